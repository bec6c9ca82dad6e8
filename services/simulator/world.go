// Package simulator wires the engine's in-memory components from a config
// file and replays YAML scenarios against them.
package simulator

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"turbo/config"
	"turbo/core/events"
	"turbo/native/accountant"
	"turbo/native/auth"
	"turbo/native/bank"
	"turbo/native/booster"
	nativecommon "turbo/native/common"
	"turbo/native/fixed"
	"turbo/native/pool"
	"turbo/native/turbo"
	"turbo/native/vault"
)

const keeperRole = "keeper"

// Address derives the deterministic identity used for name.
func Address(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(strings.ToLower(strings.TrimSpace(name)))))
}

func assetAddress(symbol string) common.Address {
	return Address("asset:" + strings.ToUpper(strings.TrimSpace(symbol)))
}

func vaultAddress(name string) common.Address { return Address("vault:" + name) }

// World is one fully wired engine instance. Calls are serialised.
type World struct {
	mu sync.Mutex

	cfg    *config.Config
	logger *slog.Logger

	journal    *nativecommon.Journal
	bank       *bank.Bank
	pool       *pool.Pool
	booster    *booster.Booster
	accountant *accountant.Accountant
	roles      *auth.RolesAuthority
	master     *turbo.Master
	pauses     *nativecommon.PauseSet
	recorder   *events.Recorder

	admin     common.Address
	yieldSrc  common.Address
	assets    map[string]common.Address
	vaults    map[string]*vault.Vault
	safes     map[string]*turbo.Safe
	safeNames map[common.Address]string
}

// NewWorld builds the engine described by cfg.
func NewWorld(cfg *config.Config, logger *slog.Logger) (*World, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.EnsureDefaults()
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	journal := nativecommon.NewJournal()
	w := &World{
		cfg:       cfg,
		logger:    logger,
		journal:   journal,
		bank:      bank.New(journal),
		recorder:  &events.Recorder{},
		pauses:    nativecommon.NewPauseSet(cfg.Pauses.Modules()...),
		admin:     Address(cfg.Admin),
		yieldSrc:  Address("module:yield"),
		assets:    make(map[string]common.Address),
		vaults:    make(map[string]*vault.Vault),
		safes:     make(map[string]*turbo.Safe),
		safeNames: make(map[common.Address]string),
	}

	funding := w.registerAsset(cfg.FundingAsset)
	w.pool = pool.New(Address("module:pool"), funding, w.bank, journal)
	w.pool.SetPauses(w.pauses)
	for _, m := range cfg.Pool.Markets {
		price, err := m.PriceWad()
		if err != nil {
			return nil, err
		}
		asset := w.registerAsset(m.Asset)
		if err := w.pool.ListMarket(asset, pool.Market{CollateralFactorBps: m.CollateralFactorBps, Price: price}); err != nil {
			return nil, fmt.Errorf("list market %s: %w", m.Asset, err)
		}
	}
	liquidity, err := cfg.Pool.LiquidityAmount()
	if err != nil {
		return nil, err
	}
	if !liquidity.IsZero() {
		if err := w.bank.Mint(funding, w.pool.Address(), liquidity); err != nil {
			return nil, err
		}
	}

	w.roles = auth.NewRolesAuthority(Address("module:roles"), w.admin, nil)
	if err := w.configureBooster(); err != nil {
		return nil, err
	}
	if err := w.configureAccountant(); err != nil {
		return nil, err
	}

	w.master = turbo.NewMaster(Address("module:master"), w.admin, w.roles, w.pool, w.bank, journal)
	w.master.SetEmitter(w.recorder)
	w.master.SetLogger(logger.With(slog.String("component", "master")))
	w.master.SetPauses(w.pauses)
	for _, step := range []error{
		w.master.SetBooster(w.admin, w.booster),
		w.master.SetAccountant(w.admin, w.accountant),
		w.master.SetDefaultSafeAuthority(w.admin, w.roles),
	} {
		if step != nil {
			return nil, step
		}
	}
	if cfg.Gibber != "" {
		if err := w.master.SetGibber(w.admin, Address(cfg.Gibber)); err != nil {
			return nil, err
		}
	}
	if err := w.configureRoles(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *World) registerAsset(symbol string) common.Address {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	addr := assetAddress(symbol)
	w.assets[symbol] = addr
	w.bank.RegisterAsset(addr, symbol)
	return addr
}

func (w *World) configureBooster() error {
	cfg := w.cfg.Booster
	w.booster = booster.New(Address("module:booster"), w.admin, w.roles)
	w.booster.SetEmitter(w.recorder)
	for _, vc := range cfg.Vaults {
		asset := w.registerAsset(vc.Asset)
		v := vault.New(vaultAddress(vc.Name), asset, w.bank, w.journal)
		w.vaults[strings.ToLower(vc.Name)] = v
		limit, err := vc.CapAmount()
		if err != nil {
			return err
		}
		if err := w.booster.SetBoostCapForVault(w.admin, v.Address(), limit); err != nil {
			return err
		}
		if err := w.booster.SetVaultAllowed(w.admin, v.Address(), !vc.Disabled); err != nil {
			return err
		}
	}
	symbols := make([]string, 0, len(cfg.CollateralCaps))
	for symbol := range cfg.CollateralCaps {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		limit, err := parseAmount(cfg.CollateralCaps[symbol])
		if err != nil {
			return fmt.Errorf("collateral cap %s: %w", symbol, err)
		}
		if err := w.booster.SetBoostCapForCollateral(w.admin, w.registerAsset(symbol), limit); err != nil {
			return err
		}
	}
	return w.booster.SetFreezeStatus(w.admin, cfg.Frozen)
}

func (w *World) configureAccountant() error {
	w.accountant = accountant.New(Address("module:accountant"), w.admin, w.roles)
	w.accountant.SetEmitter(w.recorder)
	w.accountant.SetLogger(w.logger.With(slog.String("component", "accountant")))
	fee, err := w.cfg.Accountant.DefaultFeeWad()
	if err != nil {
		return err
	}
	if err := w.accountant.SetDefaultFeePercentage(w.admin, fee); err != nil {
		return err
	}
	fees, err := w.cfg.Accountant.CollateralFeeWads()
	if err != nil {
		return err
	}
	for symbol, fee := range fees {
		if err := w.accountant.SetCustomFeePercentageForCollateral(w.admin, w.registerAsset(symbol), fee); err != nil {
			return err
		}
	}
	return nil
}

func (w *World) configureRoles() error {
	for _, keeper := range w.cfg.Roles.Keepers {
		if err := w.roles.SetUserRole(w.admin, Address(keeper), keeperRole, true); err != nil {
			return err
		}
	}
	if len(w.cfg.Roles.Keepers) > 0 {
		for _, capability := range []auth.Capability{turbo.CapSlurp, turbo.CapSlurpAll} {
			if err := w.roles.SetRoleCapability(w.admin, keeperRole, auth.AnyTarget, capability, true); err != nil {
				return err
			}
		}
	}
	if !w.cfg.Roles.RestrictSafeCreation {
		return w.roles.SetPublicCapability(w.admin, w.master.Address(), turbo.CapCreateSafe, true)
	}
	return nil
}

// Master exposes the registry.
func (w *World) Master() *turbo.Master { return w.master }

// Bank exposes the token ledger.
func (w *World) Bank() *bank.Bank { return w.bank }

// Pool exposes the lending market.
func (w *World) Pool() *pool.Pool { return w.pool }

// Recorder exposes every event emitted so far.
func (w *World) Recorder() *events.Recorder { return w.recorder }

// Safe resolves a Safe by the alias it was created under.
func (w *World) Safe(alias string) (*turbo.Safe, bool) {
	safe, ok := w.safes[strings.ToLower(strings.TrimSpace(alias))]
	return safe, ok
}

// Vault resolves a configured vault by name.
func (w *World) Vault(name string) (*vault.Vault, bool) {
	v, ok := w.vaults[strings.ToLower(strings.TrimSpace(name))]
	return v, ok
}

// Asset resolves a registered asset symbol.
func (w *World) Asset(symbol string) (common.Address, bool) {
	addr, ok := w.assets[strings.ToUpper(strings.TrimSpace(symbol))]
	return addr, ok
}

// Account resolves a name to an address: Safe aliases and vault names first,
// then the master, then a derived identity.
func (w *World) Account(name string) common.Address {
	if safe, ok := w.Safe(name); ok {
		return safe.Address()
	}
	if v, ok := w.Vault(name); ok {
		return v.Address()
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "master":
		return w.master.Address()
	case "pool":
		return w.pool.Address()
	}
	return Address(name)
}

// SafeName returns the alias a Safe was created under.
func (w *World) SafeName(addr common.Address) string {
	if name, ok := w.safeNames[addr]; ok {
		return name
	}
	return addr.Hex()
}

func parseAmount(raw string) (*uint256.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return new(uint256.Int), nil
	}
	return fixed.ParseAmount(raw)
}
