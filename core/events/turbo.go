package events

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"turbo/core/types"
)

const (
	// TypeSafeCreated marks the registration of a new Safe with the master.
	TypeSafeCreated = "turbo.safe.created"
	// TypeVaultBoosted marks funding asset borrowed and deployed into a vault.
	TypeVaultBoosted = "turbo.vault.boosted"
	// TypeVaultLessened marks a deployment unwound from a vault.
	TypeVaultLessened = "turbo.vault.lessened"
	// TypeVaultSlurped marks interest realised from a vault.
	TypeVaultSlurped = "turbo.vault.slurped"
	// TypeSafeImpounded marks collateral seized by the custodial authority.
	TypeSafeImpounded = "turbo.safe.impounded"
	// TypeSafeClaimed marks settled funding asset released from a Safe.
	TypeSafeClaimed = "turbo.safe.claimed"
	// TypeSafeSwept marks a non-core asset rescued from a Safe.
	TypeSafeSwept = "turbo.safe.swept"
	// TypeCollateralDeposited marks collateral supplied through a Safe.
	TypeCollateralDeposited = "turbo.collateral.deposited"
	// TypeCollateralWithdrawn marks collateral redeemed through a Safe.
	TypeCollateralWithdrawn = "turbo.collateral.withdrawn"
	// TypeFeeUpdated marks a change to the accountant fee schedule.
	TypeFeeUpdated = "turbo.accountant.fee_updated"
	// TypeBoosterUpdated marks a change to the booster admission policy.
	TypeBoosterUpdated = "turbo.booster.updated"
	// TypeMasterSwept marks protocol fees moved out of the master.
	TypeMasterSwept = "turbo.master.swept"
)

// SafeCreated is emitted when the master registers a new Safe.
type SafeCreated struct {
	ID         uint64
	Safe       common.Address
	Owner      common.Address
	Collateral common.Address
}

// EventType satisfies the Event interface.
func (SafeCreated) EventType() string { return TypeSafeCreated }

// Event converts the payload into a broadcastable event.
func (e SafeCreated) Event() *types.Event {
	return &types.Event{Type: TypeSafeCreated, Attributes: map[string]string{
		"id":         strconv.FormatUint(e.ID, 10),
		"safe":       e.Safe.Hex(),
		"owner":      e.Owner.Hex(),
		"collateral": e.Collateral.Hex(),
	}}
}

// VaultBoosted is emitted after a successful boost.
type VaultBoosted struct {
	Safe   common.Address
	Caller common.Address
	Vault  common.Address
	Amount *uint256.Int
}

// EventType satisfies the Event interface.
func (VaultBoosted) EventType() string { return TypeVaultBoosted }

// Event converts the payload into a broadcastable event.
func (e VaultBoosted) Event() *types.Event {
	return &types.Event{Type: TypeVaultBoosted, Attributes: map[string]string{
		"safe":   e.Safe.Hex(),
		"caller": e.Caller.Hex(),
		"vault":  e.Vault.Hex(),
		"amount": amountString(e.Amount),
	}}
}

// VaultLessened is emitted after a deployment has been unwound. Repaid holds
// the debt actually returned to the lending pool, which may be lower than
// Amount.
type VaultLessened struct {
	Safe   common.Address
	Caller common.Address
	Vault  common.Address
	Amount *uint256.Int
	Repaid *uint256.Int
}

// EventType satisfies the Event interface.
func (VaultLessened) EventType() string { return TypeVaultLessened }

// Event converts the payload into a broadcastable event.
func (e VaultLessened) Event() *types.Event {
	return &types.Event{Type: TypeVaultLessened, Attributes: map[string]string{
		"safe":   e.Safe.Hex(),
		"caller": e.Caller.Hex(),
		"vault":  e.Vault.Hex(),
		"amount": amountString(e.Amount),
		"repaid": amountString(e.Repaid),
	}}
}

// VaultSlurped is emitted whenever interest has been settled for a vault,
// including settlements that found no interest.
type VaultSlurped struct {
	Safe           common.Address
	Caller         common.Address
	Vault          common.Address
	InterestEarned *uint256.Int
	ProtocolFee    *uint256.Int
	SafeRetained   *uint256.Int
}

// EventType satisfies the Event interface.
func (VaultSlurped) EventType() string { return TypeVaultSlurped }

// Event converts the payload into a broadcastable event.
func (e VaultSlurped) Event() *types.Event {
	return &types.Event{Type: TypeVaultSlurped, Attributes: map[string]string{
		"safe":         e.Safe.Hex(),
		"caller":       e.Caller.Hex(),
		"vault":        e.Vault.Hex(),
		"interest":     amountString(e.InterestEarned),
		"protocolFee":  amountString(e.ProtocolFee),
		"safeRetained": amountString(e.SafeRetained),
	}}
}

// SafeImpounded is emitted when collateral is seized from a Safe.
type SafeImpounded struct {
	Safe        common.Address
	Caller      common.Address
	Destination common.Address
	Amount      *uint256.Int
}

// EventType satisfies the Event interface.
func (SafeImpounded) EventType() string { return TypeSafeImpounded }

// Event converts the payload into a broadcastable event.
func (e SafeImpounded) Event() *types.Event {
	return &types.Event{Type: TypeSafeImpounded, Attributes: map[string]string{
		"safe":        e.Safe.Hex(),
		"caller":      e.Caller.Hex(),
		"destination": e.Destination.Hex(),
		"amount":      amountString(e.Amount),
	}}
}

// SafeClaimed is emitted when settled funding asset leaves a Safe.
type SafeClaimed struct {
	Safe   common.Address
	Caller common.Address
	Amount *uint256.Int
}

// EventType satisfies the Event interface.
func (SafeClaimed) EventType() string { return TypeSafeClaimed }

// Event converts the payload into a broadcastable event.
func (e SafeClaimed) Event() *types.Event {
	return &types.Event{Type: TypeSafeClaimed, Attributes: map[string]string{
		"safe":   e.Safe.Hex(),
		"caller": e.Caller.Hex(),
		"amount": amountString(e.Amount),
	}}
}

// SafeSwept is emitted when a Safe releases a non-core asset.
type SafeSwept struct {
	Safe   common.Address
	To     common.Address
	Asset  common.Address
	Amount *uint256.Int
}

// EventType satisfies the Event interface.
func (SafeSwept) EventType() string { return TypeSafeSwept }

// Event converts the payload into a broadcastable event.
func (e SafeSwept) Event() *types.Event {
	return &types.Event{Type: TypeSafeSwept, Attributes: map[string]string{
		"safe":   e.Safe.Hex(),
		"to":     e.To.Hex(),
		"asset":  e.Asset.Hex(),
		"amount": amountString(e.Amount),
	}}
}

// CollateralMoved is emitted for collateral deposits and withdrawals routed
// through a Safe. Deposit distinguishes the two directions.
type CollateralMoved struct {
	Safe    common.Address
	Account common.Address
	Amount  *uint256.Int
	Deposit bool
}

// EventType satisfies the Event interface.
func (e CollateralMoved) EventType() string {
	if e.Deposit {
		return TypeCollateralDeposited
	}
	return TypeCollateralWithdrawn
}

// Event converts the payload into a broadcastable event.
func (e CollateralMoved) Event() *types.Event {
	return &types.Event{Type: e.EventType(), Attributes: map[string]string{
		"safe":    e.Safe.Hex(),
		"account": e.Account.Hex(),
		"amount":  amountString(e.Amount),
	}}
}

// FeeUpdated is emitted when the accountant fee schedule changes. Scope is one
// of "default", "collateral" or "safe"; Target is empty for the default.
type FeeUpdated struct {
	Scope  string
	Target common.Address
	Fee    *uint256.Int
}

// EventType satisfies the Event interface.
func (FeeUpdated) EventType() string { return TypeFeeUpdated }

// Event converts the payload into a broadcastable event.
func (e FeeUpdated) Event() *types.Event {
	attrs := map[string]string{
		"scope": e.Scope,
		"fee":   amountString(e.Fee),
	}
	if e.Target != (common.Address{}) {
		attrs["target"] = e.Target.Hex()
	}
	return &types.Event{Type: TypeFeeUpdated, Attributes: attrs}
}

// BoosterUpdated is emitted when an admission setting changes.
type BoosterUpdated struct {
	Setting string
	Target  common.Address
	Value   string
}

// EventType satisfies the Event interface.
func (BoosterUpdated) EventType() string { return TypeBoosterUpdated }

// Event converts the payload into a broadcastable event.
func (e BoosterUpdated) Event() *types.Event {
	attrs := map[string]string{
		"setting": e.Setting,
		"value":   e.Value,
	}
	if e.Target != (common.Address{}) {
		attrs["target"] = e.Target.Hex()
	}
	return &types.Event{Type: TypeBoosterUpdated, Attributes: attrs}
}

// MasterSwept is emitted when accrued protocol fees leave the master.
type MasterSwept struct {
	Caller common.Address
	To     common.Address
	Asset  common.Address
	Amount *uint256.Int
}

// EventType satisfies the Event interface.
func (MasterSwept) EventType() string { return TypeMasterSwept }

// Event converts the payload into a broadcastable event.
func (e MasterSwept) Event() *types.Event {
	return &types.Event{Type: TypeMasterSwept, Attributes: map[string]string{
		"caller": e.Caller.Hex(),
		"to":     e.To.Hex(),
		"asset":  e.Asset.Hex(),
		"amount": amountString(e.Amount),
	}}
}

func amountString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
