package turbo

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"turbo/core/events"
	"turbo/native/fixed"
	"turbo/observability"
)

// Boost borrows amount of funding asset against the Safe's collateral and
// deposits it into vault. An existing deployment in vault is slurped first so
// the new amount is added to an up-to-date baseline.
func (s *Safe) Boost(caller common.Address, vault Vault, amount *uint256.Int) error {
	var settled *SlurpResult
	err := s.execute("boost", true, func(log *slog.Logger) error {
		if !s.IsAuthorized(caller, CapBoost) {
			return ErrNotPermitted
		}
		if fixed.IsZero(amount) {
			return ErrInvalidAmount
		}
		if vault == nil || vault.Asset() != s.fundingAsset {
			return ErrWrongAsset
		}
		addr := vault.Address()
		if err := s.master.onSafeBoost(s, addr, amount); err != nil {
			return err
		}
		if !fixed.IsZero(s.boosted[addr]) {
			res, err := s.slurp(vault)
			if err != nil {
				return err
			}
			settled = res
		}
		total, overflow := new(uint256.Int).AddOverflow(s.totalBoosted, amount)
		if overflow {
			return ErrOverflow
		}
		perVault, overflow := new(uint256.Int).AddOverflow(s.BoostedForVault(addr), amount)
		if overflow {
			return ErrOverflow
		}
		s.setTotalBoosted(total)
		s.setVaultBoosted(vault, perVault)
		if err := s.master.pool.Borrow(s.Address(), amount); err != nil {
			return fmt.Errorf("%w: %v", ErrBorrowFailed, err)
		}
		if err := vault.Deposit(s.Address(), amount); err != nil {
			return fmt.Errorf("%w: %v", ErrVaultFailed, err)
		}
		log.Info("vault boosted",
			slog.String("vault", addr.Hex()),
			slog.String("amount", amount.Dec()),
			slog.String("total_boosted", total.Dec()))
		return nil
	})
	if err != nil {
		return err
	}
	if settled != nil {
		s.emitSlurp(caller, vault.Address(), settled)
	}
	s.emit(events.VaultBoosted{Safe: s.Address(), Caller: caller, Vault: vault.Address(), Amount: fixed.Clone(amount)})
	return nil
}

// Less withdraws amount from vault and repays as much outstanding debt as the
// withdrawal covers. It returns the debt actually repaid; any surplus stays in
// the Safe as claimable funding asset.
func (s *Safe) Less(caller common.Address, vault Vault, amount *uint256.Int) (*uint256.Int, error) {
	var (
		settled *SlurpResult
		repaid  = new(uint256.Int)
	)
	err := s.execute("less", true, func(log *slog.Logger) error {
		if !s.authorizedLocalOrMaster(caller, CapLess) {
			return ErrNotPermitted
		}
		if fixed.IsZero(amount) {
			return ErrInvalidAmount
		}
		if vault == nil {
			return ErrNoActiveDeployment
		}
		addr := vault.Address()
		if !fixed.IsZero(s.boosted[addr]) {
			res, err := s.slurp(vault)
			if err != nil {
				return err
			}
			settled = res
		}
		current := s.BoostedForVault(addr)
		if current.Lt(amount) || s.totalBoosted.Lt(amount) {
			return fmt.Errorf("%w: vault %s holds %s, requested %s", ErrUnderflow, addr.Hex(), current.Dec(), amount.Dec())
		}
		s.setTotalBoosted(new(uint256.Int).Sub(s.totalBoosted, amount))
		s.setVaultBoosted(vault, new(uint256.Int).Sub(current, amount))

		if err := vault.Withdraw(s.Address(), s.Address(), amount); err != nil {
			return fmt.Errorf("%w: %v", ErrVaultFailed, err)
		}
		debt := s.master.pool.BorrowBalance(s.Address())
		repay := fixed.Min(amount, debt)
		if !repay.IsZero() {
			if err := s.master.pool.Repay(s.Address(), repay); err != nil {
				return fmt.Errorf("%w: %v", ErrRepayFailed, err)
			}
		}
		repaid = repay
		if err := s.master.onSafeLess(s, addr, amount); err != nil {
			return err
		}
		log.Info("vault lessened",
			slog.String("vault", addr.Hex()),
			slog.String("amount", amount.Dec()),
			slog.String("repaid", repay.Dec()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if settled != nil {
		s.emitSlurp(caller, vault.Address(), settled)
	}
	s.emit(events.VaultLessened{
		Safe:   s.Address(),
		Caller: caller,
		Vault:  vault.Address(),
		Amount: fixed.Clone(amount),
		Repaid: fixed.Clone(repaid),
	})
	return fixed.Clone(repaid), nil
}

// Slurp realises the interest vault has accrued for the Safe. The protocol fee
// is withdrawn and sent to the master; the remainder is added to the Safe's
// baseline for vault.
func (s *Safe) Slurp(caller common.Address, vault Vault) (*SlurpResult, error) {
	var res *SlurpResult
	err := s.execute("slurp", true, func(log *slog.Logger) error {
		if !s.authorizedLocalOrMaster(caller, CapSlurp) {
			return ErrNotPermitted
		}
		if vault == nil {
			return ErrNoActiveDeployment
		}
		var err error
		res, err = s.slurp(vault)
		if err != nil {
			return err
		}
		log.Debug("vault slurped",
			slog.String("vault", vault.Address().Hex()),
			slog.String("interest", res.InterestEarned.Dec()),
			slog.String("fee", res.ProtocolFee.Dec()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emitSlurp(caller, vault.Address(), res)
	return res, nil
}

// slurp must run inside an open journal unit.
func (s *Safe) slurp(vault Vault) (*SlurpResult, error) {
	addr := vault.Address()
	baseline := s.BoostedForVault(addr)
	if baseline.IsZero() {
		return nil, ErrNoActiveDeployment
	}
	reported := vault.ReportedBalance(s.Address())
	if reported == nil || reported.Lt(baseline) {
		return nil, fmt.Errorf("%w: vault %s reports %s against %s deployed", ErrVaultLoss, addr.Hex(), fixed.Clone(reported).Dec(), baseline.Dec())
	}
	interest := new(uint256.Int).Sub(reported, baseline)

	ratio := fixed.Min(s.master.feePercentage(s), fixed.WAD)
	fee, overflow := fixed.MulWadDown(interest, ratio)
	if overflow {
		return nil, ErrOverflow
	}
	retained := new(uint256.Int).Sub(interest, fee)

	if !retained.IsZero() {
		total, overflow := new(uint256.Int).AddOverflow(s.totalBoosted, retained)
		if overflow {
			return nil, ErrOverflow
		}
		s.setTotalBoosted(total)
		s.setVaultBoosted(vault, new(uint256.Int).Add(baseline, retained))
		if err := s.master.onSafeSlurp(s, addr, retained); err != nil {
			return nil, err
		}
	}
	if !fee.IsZero() {
		if err := vault.Withdraw(s.Address(), s.Address(), fee); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrVaultFailed, err)
		}
		if err := s.master.bank.Transfer(s.fundingAsset, s.Address(), s.master.Address(), fee); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
		}
	}
	return &SlurpResult{InterestEarned: interest, ProtocolFee: fee, SafeRetained: retained}, nil
}

func (s *Safe) emitSlurp(caller, vault common.Address, res *SlurpResult) {
	observability.Turbo().RecordSlurp(vault.Hex(), res.ProtocolFee, res.SafeRetained)
	s.emit(events.VaultSlurped{
		Safe:           s.Address(),
		Caller:         caller,
		Vault:          vault,
		InterestEarned: fixed.Clone(res.InterestEarned),
		ProtocolFee:    fixed.Clone(res.ProtocolFee),
		SafeRetained:   fixed.Clone(res.SafeRetained),
	})
}
