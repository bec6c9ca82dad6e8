// Package accountant resolves the share of Safe interest retained by the
// protocol. Fees are WAD ratios and resolve in three tiers: a per-Safe
// override, then a per-collateral override, then the global default. A stored
// zero is indistinguishable from "unset", so an explicit 0% override for a
// single Safe cannot be expressed.
package accountant

import (
	"errors"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"turbo/core/events"
	"turbo/native/auth"
	"turbo/native/fixed"
)

const (
	CapSetDefaultFee    auth.Capability = "accountant.setDefaultFeePercentage"
	CapSetCollateralFee auth.Capability = "accountant.setCustomFeePercentageForCollateral"
	CapSetSafeFee       auth.Capability = "accountant.setCustomFeePercentageForSafe"
)

var (
	// ErrFeeTooHigh is returned when a ratio above 100% is configured.
	ErrFeeTooHigh = errors.New("accountant: fee percentage exceeds 100%")
	// ErrNotPermitted is returned when the caller may not change fees.
	ErrNotPermitted = errors.New("accountant: not permitted")
)

// Accountant stores the fee schedule.
type Accountant struct {
	auth.Owned

	defaultFee     *uint256.Int
	collateralFees map[common.Address]*uint256.Int
	safeFees       map[common.Address]*uint256.Int

	emitter events.Emitter
	logger  *slog.Logger
}

// New constructs an accountant with a zero default fee.
func New(address, owner common.Address, authority auth.Authority) *Accountant {
	return &Accountant{
		Owned:          auth.NewOwned(address, owner, authority),
		defaultFee:     new(uint256.Int),
		collateralFees: make(map[common.Address]*uint256.Int),
		safeFees:       make(map[common.Address]*uint256.Int),
	}
}

// SetEmitter configures the sink for fee update events.
func (a *Accountant) SetEmitter(emitter events.Emitter) {
	if a == nil {
		return
	}
	a.emitter = emitter
}

// SetLogger configures the structured logger.
func (a *Accountant) SetLogger(logger *slog.Logger) {
	if a == nil {
		return
	}
	a.logger = logger
}

// DefaultFeePercentage returns the global default fee.
func (a *Accountant) DefaultFeePercentage() *uint256.Int { return fixed.Clone(a.defaultFee) }

// CustomFeePercentageForCollateral returns the stored override for asset, zero
// when unset.
func (a *Accountant) CustomFeePercentageForCollateral(asset common.Address) *uint256.Int {
	return fixed.Clone(a.collateralFees[asset])
}

// CustomFeePercentageForSafe returns the stored override for safe, zero when
// unset.
func (a *Accountant) CustomFeePercentageForSafe(safe common.Address) *uint256.Int {
	return fixed.Clone(a.safeFees[safe])
}

// SetDefaultFeePercentage updates the global default fee.
func (a *Accountant) SetDefaultFeePercentage(caller common.Address, fee *uint256.Int) error {
	if err := a.checkUpdate(caller, CapSetDefaultFee, fee); err != nil {
		return err
	}
	a.defaultFee = fixed.Clone(fee)
	a.emit(events.FeeUpdated{Scope: "default", Fee: fixed.Clone(fee)})
	return nil
}

// SetCustomFeePercentageForCollateral updates the override for every Safe
// holding asset as collateral. A zero fee clears the override.
func (a *Accountant) SetCustomFeePercentageForCollateral(caller, asset common.Address, fee *uint256.Int) error {
	if err := a.checkUpdate(caller, CapSetCollateralFee, fee); err != nil {
		return err
	}
	setOverride(a.collateralFees, asset, fee)
	a.emit(events.FeeUpdated{Scope: "collateral", Target: asset, Fee: fixed.Clone(fee)})
	return nil
}

// SetCustomFeePercentageForSafe updates the override for a single Safe. A zero
// fee clears the override.
func (a *Accountant) SetCustomFeePercentageForSafe(caller, safe common.Address, fee *uint256.Int) error {
	if err := a.checkUpdate(caller, CapSetSafeFee, fee); err != nil {
		return err
	}
	setOverride(a.safeFees, safe, fee)
	a.emit(events.FeeUpdated{Scope: "safe", Target: safe, Fee: fixed.Clone(fee)})
	return nil
}

// FeePercentageForSafe resolves the fee for safe holding collateral. It is a
// pure lookup and never fails.
func (a *Accountant) FeePercentageForSafe(safe, collateral common.Address) *uint256.Int {
	if a == nil {
		return new(uint256.Int)
	}
	if fee := a.safeFees[safe]; !fixed.IsZero(fee) {
		return fixed.Clone(fee)
	}
	if fee := a.collateralFees[collateral]; !fixed.IsZero(fee) {
		return fixed.Clone(fee)
	}
	return fixed.Clone(a.defaultFee)
}

func (a *Accountant) checkUpdate(caller common.Address, capability auth.Capability, fee *uint256.Int) error {
	if !a.IsAuthorized(caller, capability) {
		return ErrNotPermitted
	}
	if fee != nil && fee.Gt(fixed.WAD) {
		return ErrFeeTooHigh
	}
	return nil
}

func (a *Accountant) emit(evt events.FeeUpdated) {
	if a.logger != nil {
		a.logger.Info("accountant fee updated",
			slog.String("scope", evt.Scope),
			slog.String("target", evt.Target.Hex()),
			slog.String("fee", fixed.FormatWad(evt.Fee)))
	}
	if a.emitter != nil {
		a.emitter.Emit(evt)
	}
}

func setOverride(overrides map[common.Address]*uint256.Int, key common.Address, fee *uint256.Int) {
	if fixed.IsZero(fee) {
		delete(overrides, key)
		return
	}
	overrides[key] = fixed.Clone(fee)
}
