package turbo

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"turbo/core/events"
	"turbo/native/auth"
	"turbo/native/booster"
	nativecommon "turbo/native/common"
	"turbo/native/fixed"
	"turbo/observability"
)

// Master is the registry of Safes. It admits boosts through the booster,
// resolves fees through the fee policy and keeps deployment aggregates per
// vault and per collateral that always equal the sum over its Safes.
type Master struct {
	auth.Owned

	journal      *nativecommon.Journal
	pool         LendingPool
	bank         Bank
	fundingAsset common.Address

	booster              Booster
	feePolicy            FeePolicy
	defaultSafeAuthority auth.Authority
	gibber               common.Address
	pauses               nativecommon.PauseView

	emitter events.Emitter
	logger  *slog.Logger

	safes                    []*Safe
	byAddress                map[common.Address]*Safe
	totalBoosted             *uint256.Int
	boostedForVault          map[common.Address]*uint256.Int
	boostedAgainstCollateral map[common.Address]*uint256.Int
}

// NewMaster constructs an empty registry borrowing the pool's funding asset.
// Every Safe it creates records its mutations in journal.
func NewMaster(address, owner common.Address, authority auth.Authority, pool LendingPool, bank Bank, journal *nativecommon.Journal) *Master {
	return &Master{
		Owned:                    auth.NewOwned(address, owner, authority),
		journal:                  journal,
		pool:                     pool,
		bank:                     bank,
		fundingAsset:             pool.BorrowAsset(),
		byAddress:                make(map[common.Address]*Safe),
		totalBoosted:             new(uint256.Int),
		boostedForVault:          make(map[common.Address]*uint256.Int),
		boostedAgainstCollateral: make(map[common.Address]*uint256.Int),
	}
}

// SetEmitter configures the sink for master and Safe events.
func (m *Master) SetEmitter(emitter events.Emitter) {
	if m == nil {
		return
	}
	m.emitter = emitter
}

// SetLogger configures the logger shared with every Safe.
func (m *Master) SetLogger(logger *slog.Logger) {
	if m == nil {
		return
	}
	m.logger = logger
}

// SetPauses wires the pause switch consulted before Safe operations.
func (m *Master) SetPauses(p nativecommon.PauseView) {
	if m == nil {
		return
	}
	m.pauses = p
}

// FundingAsset returns the asset every Safe borrows.
func (m *Master) FundingAsset() common.Address { return m.fundingAsset }

// Booster returns the configured admission policy.
func (m *Master) Booster() Booster { return m.booster }

// FeePolicy returns the configured fee policy.
func (m *Master) FeePolicy() FeePolicy { return m.feePolicy }

// DefaultSafeAuthority returns the authority assigned to new Safes.
func (m *Master) DefaultSafeAuthority() auth.Authority { return m.defaultSafeAuthority }

// Gibber returns the identity allowed to impound Safes.
func (m *Master) Gibber() common.Address { return m.gibber }

// SetBooster replaces the admission policy.
func (m *Master) SetBooster(caller common.Address, b Booster) error {
	if !m.IsAuthorized(caller, CapSetBooster) {
		return ErrNotPermitted
	}
	m.booster = b
	m.logAdmin("booster updated", caller)
	return nil
}

// SetAccountant replaces the fee policy.
func (m *Master) SetAccountant(caller common.Address, policy FeePolicy) error {
	if !m.IsAuthorized(caller, CapSetFeePolicy) {
		return ErrNotPermitted
	}
	m.feePolicy = policy
	m.logAdmin("accountant updated", caller)
	return nil
}

// SetDefaultSafeAuthority replaces the authority assigned to Safes created from
// now on. Existing Safes keep theirs.
func (m *Master) SetDefaultSafeAuthority(caller common.Address, authority auth.Authority) error {
	if !m.IsAuthorized(caller, CapSetDefaultSafeAuthority) {
		return ErrNotPermitted
	}
	m.defaultSafeAuthority = authority
	m.logAdmin("default safe authority updated", caller)
	return nil
}

// SetGibber replaces the identity allowed to impound Safes. The zero address
// disables impounding.
func (m *Master) SetGibber(caller, gibber common.Address) error {
	if !m.IsAuthorized(caller, CapSetGibber) {
		return ErrNotPermitted
	}
	m.gibber = gibber
	m.logAdmin("gibber updated", caller, slog.String("gibber", gibber.Hex()))
	return nil
}

// CreateSafe registers a Safe owned by caller and backed by collateral.
func (m *Master) CreateSafe(caller, collateral common.Address) (*Safe, error) {
	var safe *Safe
	err := m.journal.Atomic(func() error {
		if !m.IsAuthorized(caller, CapCreateSafe) {
			return ErrNotPermitted
		}
		if !m.pool.Supports(collateral) {
			return fmt.Errorf("%w: %s", ErrUnsupportedAsset, collateral.Hex())
		}
		id := uint64(len(m.safes)) + 1
		address := crypto.CreateAddress(m.Address(), id)
		safe = newSafe(m, id, address, caller, collateral, m.defaultSafeAuthority)

		m.journal.Append(func() {
			m.safes = m.safes[:len(m.safes)-1]
			delete(m.byAddress, address)
		})
		m.safes = append(m.safes, safe)
		m.byAddress[address] = safe
		return nil
	})
	observability.Turbo().RecordOperation("create_safe", err, metricLabel)
	if err != nil {
		return nil, err
	}
	m.log().Info("safe created",
		slog.Uint64("id", safe.id),
		slog.String("safe", safe.Address().Hex()),
		slog.String("owner", caller.Hex()),
		slog.String("collateral", collateral.Hex()))
	if m.emitter != nil {
		m.emitter.Emit(events.SafeCreated{ID: safe.id, Safe: safe.Address(), Owner: caller, Collateral: collateral})
	}
	return safe, nil
}

// Safes returns every registered Safe in creation order.
func (m *Master) Safes() []*Safe {
	out := make([]*Safe, len(m.safes))
	copy(out, m.safes)
	return out
}

// SafeByAddress looks up a registered Safe.
func (m *Master) SafeByAddress(address common.Address) (*Safe, bool) {
	safe, ok := m.byAddress[address]
	return safe, ok
}

// TotalBoosted returns the funding asset deployed across every Safe.
func (m *Master) TotalBoosted() *uint256.Int { return fixed.Clone(m.totalBoosted) }

// BoostedForVault returns the aggregate deployment in vault.
func (m *Master) BoostedForVault(vault common.Address) *uint256.Int {
	return fixed.Clone(m.boostedForVault[vault])
}

// BoostedAgainstCollateral returns the aggregate deployment of Safes backed by
// collateral.
func (m *Master) BoostedAgainstCollateral(collateral common.Address) *uint256.Int {
	return fixed.Clone(m.boostedAgainstCollateral[collateral])
}

// Snapshot returns a deep copy of the aggregates.
func (m *Master) Snapshot() MasterSnapshot {
	return MasterSnapshot{
		Safes:                    len(m.safes),
		TotalBoosted:             fixed.Clone(m.totalBoosted),
		BoostedForVault:          cloneAmounts(m.boostedForVault),
		BoostedAgainstCollateral: cloneAmounts(m.boostedAgainstCollateral),
	}
}

// Sweep moves assets accrued by the master, typically protocol fees.
func (m *Master) Sweep(caller, to, asset common.Address, amount *uint256.Int) error {
	err := m.journal.Atomic(func() error {
		if !m.IsAuthorized(caller, CapMasterSweep) {
			return ErrNotPermitted
		}
		if fixed.IsZero(amount) {
			return ErrInvalidAmount
		}
		if err := m.bank.Transfer(asset, m.Address(), to, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
		}
		return nil
	})
	observability.Turbo().RecordOperation("master_sweep", err, metricLabel)
	if err != nil {
		return err
	}
	m.log().Info("master swept",
		slog.String("asset", asset.Hex()),
		slog.String("to", to.Hex()),
		slog.String("amount", amount.Dec()))
	if m.emitter != nil {
		m.emitter.Emit(events.MasterSwept{Caller: caller, To: to, Asset: asset, Amount: fixed.Clone(amount)})
	}
	return nil
}

// SlurpAll settles every active vault of every Safe. Each settlement is its
// own unit; failures are reported per pair and do not stop the batch.
func (m *Master) SlurpAll(caller common.Address) ([]SlurpReport, error) {
	if !m.IsAuthorized(caller, CapSlurpAll) {
		return nil, ErrNotPermitted
	}
	var reports []SlurpReport
	for _, safe := range m.safes {
		for _, addr := range safe.Vaults() {
			vault, ok := safe.Vault(addr)
			if !ok {
				continue
			}
			res, err := safe.Slurp(caller, vault)
			reports = append(reports, SlurpReport{Safe: safe.Address(), Vault: addr, Result: res, Err: err})
		}
	}
	return reports, nil
}

func (m *Master) registered(safe *Safe) bool {
	if safe == nil {
		return false
	}
	known, ok := m.byAddress[safe.Address()]
	return ok && known == safe
}

// onSafeBoost admits a boost of amount into vault and raises the aggregates.
func (m *Master) onSafeBoost(safe *Safe, vault common.Address, amount *uint256.Int) error {
	if !m.registered(safe) {
		return ErrUnknownSafe
	}
	if m.booster == nil {
		return fmt.Errorf("%w: no booster configured", ErrNotPermitted)
	}
	newVault, overflowVault := new(uint256.Int).AddOverflow(m.BoostedForVault(vault), amount)
	newCollateral, overflowCollateral := new(uint256.Int).AddOverflow(m.BoostedAgainstCollateral(safe.collateral), amount)
	newTotal, overflowTotal := new(uint256.Int).AddOverflow(m.totalBoosted, amount)
	if overflowVault || overflowCollateral || overflowTotal {
		return ErrOverflow
	}
	if err := m.booster.CanSafeBoostVault(safe.collateral, vault, newVault, newCollateral); err != nil {
		if errors.Is(err, booster.ErrCapExceeded) || errors.Is(err, ErrCapacityExceeded) {
			return fmt.Errorf("%w: %w: %v", ErrNotPermitted, ErrCapacityExceeded, err)
		}
		return fmt.Errorf("%w: %v", ErrNotPermitted, err)
	}
	m.setAggregates(safe.collateral, vault, newTotal, newVault, newCollateral)
	return nil
}

// onSafeLess lowers the aggregates after a Safe withdrew amount from vault.
func (m *Master) onSafeLess(safe *Safe, vault common.Address, amount *uint256.Int) error {
	if !m.registered(safe) {
		return ErrUnknownSafe
	}
	perVault := m.BoostedForVault(vault)
	perCollateral := m.BoostedAgainstCollateral(safe.collateral)
	if perVault.Lt(amount) || perCollateral.Lt(amount) || m.totalBoosted.Lt(amount) {
		return fmt.Errorf("%w: master aggregates below %s", ErrUnderflow, amount.Dec())
	}
	m.setAggregates(safe.collateral, vault,
		new(uint256.Int).Sub(m.totalBoosted, amount),
		perVault.Sub(perVault, amount),
		perCollateral.Sub(perCollateral, amount))
	return nil
}

// onSafeSlurp raises the aggregates by interest a Safe re-based into its
// principal. It is not subject to booster admission.
func (m *Master) onSafeSlurp(safe *Safe, vault common.Address, retained *uint256.Int) error {
	if !m.registered(safe) {
		return ErrUnknownSafe
	}
	newVault, o1 := new(uint256.Int).AddOverflow(m.BoostedForVault(vault), retained)
	newCollateral, o2 := new(uint256.Int).AddOverflow(m.BoostedAgainstCollateral(safe.collateral), retained)
	newTotal, o3 := new(uint256.Int).AddOverflow(m.totalBoosted, retained)
	if o1 || o2 || o3 {
		return ErrOverflow
	}
	m.setAggregates(safe.collateral, vault, newTotal, newVault, newCollateral)
	return nil
}

func (m *Master) setAggregates(collateral, vault common.Address, total, perVault, perCollateral *uint256.Int) {
	prevTotal := m.totalBoosted
	prevVault, hadVault := m.boostedForVault[vault]
	prevCollateral, hadCollateral := m.boostedAgainstCollateral[collateral]
	m.journal.Append(func() {
		m.totalBoosted = prevTotal
		restore(m.boostedForVault, vault, prevVault, hadVault)
		restore(m.boostedAgainstCollateral, collateral, prevCollateral, hadCollateral)
	})
	m.totalBoosted = total
	store(m.boostedForVault, vault, perVault)
	store(m.boostedAgainstCollateral, collateral, perCollateral)
}

func (m *Master) feePercentage(safe *Safe) *uint256.Int {
	if m.feePolicy == nil {
		return new(uint256.Int)
	}
	return fixed.Clone(m.feePolicy.FeePercentageForSafe(safe.Address(), safe.collateral))
}

func (m *Master) log() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

func (m *Master) logAdmin(msg string, caller common.Address, attrs ...any) {
	m.log().Info(msg, append([]any{slog.String("caller", caller.Hex())}, attrs...)...)
}

func store(amounts map[common.Address]*uint256.Int, key common.Address, value *uint256.Int) {
	if fixed.IsZero(value) {
		delete(amounts, key)
		return
	}
	amounts[key] = value
}

func restore(amounts map[common.Address]*uint256.Int, key common.Address, prev *uint256.Int, had bool) {
	if had {
		amounts[key] = prev
		return
	}
	delete(amounts, key)
}

func cloneAmounts(in map[common.Address]*uint256.Int) map[common.Address]*uint256.Int {
	out := make(map[common.Address]*uint256.Int, len(in))
	for k, v := range in {
		out[k] = fixed.Clone(v)
	}
	return out
}
