package turbo

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"turbo/core/events"
	"turbo/native/fixed"
)

// Impound seizes amount of collateral from the pool and sends it to
// destination. Only the master's gibber may impound, and the pause switch does
// not apply.
func (s *Safe) Impound(caller, destination common.Address, amount *uint256.Int) error {
	err := s.execute("impound", false, func(log *slog.Logger) error {
		gibber := s.master.Gibber()
		if gibber == (common.Address{}) || caller != gibber {
			return ErrNotPermitted
		}
		if fixed.IsZero(amount) {
			return ErrInvalidAmount
		}
		if err := s.master.pool.RedeemUnderlying(s.Address(), s.collateral, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrRedeemFailed, err)
		}
		if err := s.master.bank.Transfer(s.collateral, s.Address(), destination, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
		}
		log.Warn("safe impounded",
			slog.String("destination", destination.Hex()),
			slog.String("amount", amount.Dec()))
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(events.SafeImpounded{Safe: s.Address(), Caller: caller, Destination: destination, Amount: fixed.Clone(amount)})
	return nil
}

// Claim releases funding asset held by the Safe to the caller. Deployment
// records are unaffected.
func (s *Safe) Claim(caller common.Address, amount *uint256.Int) error {
	err := s.execute("claim", true, func(log *slog.Logger) error {
		if !s.IsAuthorized(caller, CapClaim) {
			return ErrNotPermitted
		}
		if fixed.IsZero(amount) {
			return ErrInvalidAmount
		}
		if balance := s.master.bank.BalanceOf(s.fundingAsset, s.Address()); balance.Lt(amount) {
			return fmt.Errorf("%w: have %s, claiming %s", ErrInsufficientBalance, balance.Dec(), amount.Dec())
		}
		if err := s.master.bank.Transfer(s.fundingAsset, s.Address(), caller, amount); err != nil {
			return err
		}
		log.Info("safe claimed", slog.String("amount", amount.Dec()))
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(events.SafeClaimed{Safe: s.Address(), Caller: caller, Amount: fixed.Clone(amount)})
	return nil
}

// DepositCollateral pulls amount of collateral from the caller and supplies it
// to the lending pool on the Safe's behalf.
func (s *Safe) DepositCollateral(caller common.Address, amount *uint256.Int) error {
	err := s.execute("deposit_collateral", true, func(log *slog.Logger) error {
		if !s.IsAuthorized(caller, CapDeposit) {
			return ErrNotPermitted
		}
		if fixed.IsZero(amount) {
			return ErrInvalidAmount
		}
		if err := s.master.bank.Transfer(s.collateral, caller, s.Address(), amount); err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
		}
		if err := s.master.pool.Supply(s.Address(), s.collateral, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrSupplyFailed, err)
		}
		log.Info("collateral deposited", slog.String("amount", amount.Dec()))
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(events.CollateralMoved{Safe: s.Address(), Account: caller, Amount: fixed.Clone(amount), Deposit: true})
	return nil
}

// WithdrawCollateral redeems amount of collateral from the pool and sends it
// to to. The pool refuses redemptions that would leave the debt undercollateralised.
func (s *Safe) WithdrawCollateral(caller, to common.Address, amount *uint256.Int) error {
	err := s.execute("withdraw_collateral", true, func(log *slog.Logger) error {
		if !s.IsAuthorized(caller, CapWithdraw) {
			return ErrNotPermitted
		}
		if fixed.IsZero(amount) {
			return ErrInvalidAmount
		}
		if err := s.master.pool.RedeemUnderlying(s.Address(), s.collateral, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrRedeemFailed, err)
		}
		if err := s.master.bank.Transfer(s.collateral, s.Address(), to, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
		}
		log.Info("collateral withdrawn",
			slog.String("to", to.Hex()),
			slog.String("amount", amount.Dec()))
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(events.CollateralMoved{Safe: s.Address(), Account: to, Amount: fixed.Clone(amount), Deposit: false})
	return nil
}

// Sweep moves an asset that is neither the Safe's collateral nor one of its
// active vault positions.
func (s *Safe) Sweep(caller, to, asset common.Address, amount *uint256.Int) error {
	err := s.execute("sweep", true, func(log *slog.Logger) error {
		if !s.IsAuthorized(caller, CapSweep) {
			return ErrNotPermitted
		}
		if asset == s.collateral {
			return ErrInvalidToken
		}
		if _, active := s.vaults[asset]; active {
			return ErrInvalidToken
		}
		if fixed.IsZero(amount) {
			return ErrInvalidAmount
		}
		if err := s.master.bank.Transfer(asset, s.Address(), to, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
		}
		log.Info("safe swept",
			slog.String("asset", asset.Hex()),
			slog.String("to", to.Hex()),
			slog.String("amount", amount.Dec()))
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(events.SafeSwept{Safe: s.Address(), To: to, Asset: asset, Amount: fixed.Clone(amount)})
	return nil
}
