package turbo

import (
	"errors"

	nativecommon "turbo/native/common"
)

var (
	ErrNotPermitted        = errors.New("turbo: not permitted")
	ErrCapacityExceeded    = errors.New("turbo: boost capacity exceeded")
	ErrWrongAsset          = errors.New("turbo: vault does not accept the funding asset")
	ErrBorrowFailed        = errors.New("turbo: lending pool rejected borrow")
	ErrRepayFailed         = errors.New("turbo: lending pool rejected repay")
	ErrRedeemFailed        = errors.New("turbo: lending pool rejected redemption")
	ErrSupplyFailed        = errors.New("turbo: lending pool rejected collateral supply")
	ErrVaultFailed         = errors.New("turbo: vault rejected transfer")
	ErrUnderflow           = errors.New("turbo: amount exceeds recorded deployment")
	ErrOverflow            = errors.New("turbo: boosted total overflow")
	ErrNoActiveDeployment  = errors.New("turbo: no funding asset deployed in vault")
	ErrVaultLoss           = errors.New("turbo: vault reports less than deployed")
	ErrInvalidAmount       = errors.New("turbo: amount must be positive")
	ErrInsufficientBalance = errors.New("turbo: insufficient balance")
	ErrUnsupportedAsset    = errors.New("turbo: collateral not supported by lending pool")
	ErrInvalidToken        = errors.New("turbo: asset cannot be swept")
	ErrUnknownSafe         = errors.New("turbo: safe not registered with master")
)

// errorKinds pairs each sentinel with the name callers match on and the
// label used for metrics. Order matters: wrapped errors report the first
// match.
var errorKinds = []struct {
	err   error
	kind  string
	label string
}{
	{nativecommon.ErrModulePaused, "Paused", "paused"},
	{ErrCapacityExceeded, "CapacityExceeded", "capacity_exceeded"},
	{ErrNotPermitted, "NotPermitted", "not_permitted"},
	{ErrWrongAsset, "WrongAsset", "wrong_asset"},
	{ErrBorrowFailed, "BorrowFailed", "borrow_failed"},
	{ErrRepayFailed, "RepayFailed", "repay_failed"},
	{ErrRedeemFailed, "RedeemFailed", "redeem_failed"},
	{ErrSupplyFailed, "SupplyFailed", "supply_failed"},
	{ErrVaultFailed, "VaultFailed", "vault_failed"},
	{ErrUnderflow, "Underflow", "underflow"},
	{ErrOverflow, "Overflow", "overflow"},
	{ErrNoActiveDeployment, "NoActiveDeployment", "no_active_deployment"},
	{ErrVaultLoss, "VaultLoss", "vault_loss"},
	{ErrInvalidAmount, "InvalidAmount", "invalid_amount"},
	{ErrInsufficientBalance, "InsufficientBalance", "insufficient_balance"},
	{ErrUnsupportedAsset, "UnsupportedAsset", "unsupported_asset"},
	{ErrInvalidToken, "InvalidToken", "invalid_token"},
	{ErrUnknownSafe, "UnknownSafe", "unknown_safe"},
}

// ErrorKind returns the taxonomy name for err ("Underflow", "BorrowFailed",
// ...), or an empty string when err is nil or unclassified.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return ""
}

// ErrorForKind returns the sentinel registered under kind.
func ErrorForKind(kind string) (error, bool) {
	for _, k := range errorKinds {
		if k.kind == kind {
			return k.err, true
		}
	}
	return nil, false
}

func metricLabel(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.label
		}
	}
	return ""
}
