package booster

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"turbo/core/events"
	"turbo/native/auth"
	"turbo/native/fixed"
)

const (
	CapSetFreezeStatus  auth.Capability = "booster.setFreezeStatus"
	CapSetVaultAllowed  auth.Capability = "booster.setVaultAllowed"
	CapSetVaultCap      auth.Capability = "booster.setBoostCapForVault"
	CapSetCollateralCap auth.Capability = "booster.setBoostCapForCollateral"
)

var (
	ErrFrozen          = errors.New("booster: boosting frozen")
	ErrVaultNotAllowed = errors.New("booster: vault not allow-listed")
	ErrCapExceeded     = errors.New("booster: boost cap exceeded")
	ErrNotPermitted    = errors.New("booster: not permitted")
)

// Booster is the global admission policy consulted by the master before any
// Safe raises its deployment. A missing cap is treated as zero, so a vault or
// collateral must be given a cap before it can be boosted.
type Booster struct {
	auth.Owned

	frozen         bool
	allowed        map[common.Address]bool
	vaultCaps      map[common.Address]*uint256.Int
	collateralCaps map[common.Address]*uint256.Int

	emitter events.Emitter
}

// New constructs an unfrozen booster with nothing allow-listed.
func New(address, owner common.Address, authority auth.Authority) *Booster {
	return &Booster{
		Owned:          auth.NewOwned(address, owner, authority),
		allowed:        make(map[common.Address]bool),
		vaultCaps:      make(map[common.Address]*uint256.Int),
		collateralCaps: make(map[common.Address]*uint256.Int),
	}
}

// SetEmitter configures the sink for policy update events.
func (b *Booster) SetEmitter(emitter events.Emitter) {
	if b == nil {
		return
	}
	b.emitter = emitter
}

// CanSafeBoostVault validates a prospective boost given the totals that would
// result from it across all Safes.
func (b *Booster) CanSafeBoostVault(collateral, vault common.Address, newVaultTotal, newCollateralTotal *uint256.Int) error {
	if b.frozen {
		return ErrFrozen
	}
	if !b.allowed[vault] {
		return fmt.Errorf("%w: %s", ErrVaultNotAllowed, vault.Hex())
	}
	if limit := fixed.Clone(b.vaultCaps[vault]); fixed.Clone(newVaultTotal).Gt(limit) {
		return fmt.Errorf("%w: vault %s total %s above cap %s", ErrCapExceeded, vault.Hex(), fixed.Clone(newVaultTotal).Dec(), limit.Dec())
	}
	if limit := fixed.Clone(b.collateralCaps[collateral]); fixed.Clone(newCollateralTotal).Gt(limit) {
		return fmt.Errorf("%w: collateral %s total %s above cap %s", ErrCapExceeded, collateral.Hex(), fixed.Clone(newCollateralTotal).Dec(), limit.Dec())
	}
	return nil
}

// Frozen reports whether all boosting is halted.
func (b *Booster) Frozen() bool { return b.frozen }

// VaultAllowed reports whether vault is allow-listed.
func (b *Booster) VaultAllowed(vault common.Address) bool { return b.allowed[vault] }

// BoostCapForVault returns the aggregate cap for vault.
func (b *Booster) BoostCapForVault(vault common.Address) *uint256.Int {
	return fixed.Clone(b.vaultCaps[vault])
}

// BoostCapForCollateral returns the aggregate cap for Safes holding asset.
func (b *Booster) BoostCapForCollateral(asset common.Address) *uint256.Int {
	return fixed.Clone(b.collateralCaps[asset])
}

// SetFreezeStatus halts or resumes all boosting.
func (b *Booster) SetFreezeStatus(caller common.Address, frozen bool) error {
	if !b.IsAuthorized(caller, CapSetFreezeStatus) {
		return ErrNotPermitted
	}
	b.frozen = frozen
	b.emit("frozen", common.Address{}, strconv.FormatBool(frozen))
	return nil
}

// SetVaultAllowed adds or removes vault from the allow-list.
func (b *Booster) SetVaultAllowed(caller, vault common.Address, allowed bool) error {
	if !b.IsAuthorized(caller, CapSetVaultAllowed) {
		return ErrNotPermitted
	}
	if allowed {
		b.allowed[vault] = true
	} else {
		delete(b.allowed, vault)
	}
	b.emit("vaultAllowed", vault, strconv.FormatBool(allowed))
	return nil
}

// SetBoostCapForVault sets the aggregate cap for vault across all Safes.
func (b *Booster) SetBoostCapForVault(caller, vault common.Address, limit *uint256.Int) error {
	if !b.IsAuthorized(caller, CapSetVaultCap) {
		return ErrNotPermitted
	}
	b.vaultCaps[vault] = fixed.Clone(limit)
	b.emit("vaultCap", vault, fixed.Clone(limit).Dec())
	return nil
}

// SetBoostCapForCollateral sets the aggregate cap for Safes holding asset.
func (b *Booster) SetBoostCapForCollateral(caller, asset common.Address, limit *uint256.Int) error {
	if !b.IsAuthorized(caller, CapSetCollateralCap) {
		return ErrNotPermitted
	}
	b.collateralCaps[asset] = fixed.Clone(limit)
	b.emit("collateralCap", asset, fixed.Clone(limit).Dec())
	return nil
}

func (b *Booster) emit(setting string, target common.Address, value string) {
	if b.emitter == nil {
		return
	}
	b.emitter.Emit(events.BoosterUpdated{Setting: setting, Target: target, Value: value})
}
