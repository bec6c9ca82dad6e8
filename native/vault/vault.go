// Package vault is an in-memory yield vault over a single underlying asset.
// Holders are credited in underlying units; yield is credited explicitly by a
// funding source so reported balances stay exact.
package vault

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nativecommon "turbo/native/common"
	"turbo/native/fixed"
)

var (
	ErrInsufficientBalance = errors.New("vault: insufficient balance")
	ErrDepositsDisabled    = errors.New("vault: deposits disabled")
	errInvalidAmount       = errors.New("vault: amount must be positive")
)

// Ledger is the token ledger holding the vault's underlying.
type Ledger interface {
	Transfer(asset, from, to common.Address, amount *uint256.Int) error
	Burn(asset, from common.Address, amount *uint256.Int) error
}

// Vault tracks per-holder claims on the underlying asset.
type Vault struct {
	address common.Address
	asset   common.Address
	ledger  Ledger
	journal *nativecommon.Journal

	balances         map[common.Address]*uint256.Int
	total            *uint256.Int
	depositsDisabled bool
}

// New constructs a vault at address accepting asset.
func New(address, asset common.Address, ledger Ledger, journal *nativecommon.Journal) *Vault {
	return &Vault{
		address:  address,
		asset:    asset,
		ledger:   ledger,
		journal:  journal,
		balances: make(map[common.Address]*uint256.Int),
		total:    new(uint256.Int),
	}
}

// Address returns the account holding the vault's underlying.
func (v *Vault) Address() common.Address { return v.address }

// Asset returns the underlying asset.
func (v *Vault) Asset() common.Address { return v.asset }

// TotalAssets returns the sum of every holder's claim.
func (v *Vault) TotalAssets() *uint256.Int { return fixed.Clone(v.total) }

// SetDepositsDisabled toggles deposit acceptance, e.g. to model a vault at
// capacity.
func (v *Vault) SetDepositsDisabled(disabled bool) { v.depositsDisabled = disabled }

// ReportedBalance returns the underlying redeemable by holder.
func (v *Vault) ReportedBalance(holder common.Address) *uint256.Int {
	return fixed.Clone(v.balances[holder])
}

// Deposit pulls amount of the underlying from holder.
func (v *Vault) Deposit(holder common.Address, amount *uint256.Int) error {
	if v.depositsDisabled {
		return ErrDepositsDisabled
	}
	if fixed.IsZero(amount) {
		return errInvalidAmount
	}
	if err := v.ledger.Transfer(v.asset, holder, v.address, amount); err != nil {
		return err
	}
	v.credit(holder, amount)
	return nil
}

// Withdraw sends amount of holder's underlying to to.
func (v *Vault) Withdraw(holder, to common.Address, amount *uint256.Int) error {
	if fixed.IsZero(amount) {
		return errInvalidAmount
	}
	balance := v.ReportedBalance(holder)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, withdrawing %s", ErrInsufficientBalance, holder.Hex(), balance.Dec(), amount.Dec())
	}
	if err := v.ledger.Transfer(v.asset, v.address, to, amount); err != nil {
		return err
	}
	v.setBalance(holder, new(uint256.Int).Sub(balance, amount))
	v.setTotal(new(uint256.Int).Sub(v.total, amount))
	return nil
}

// Accrue credits holder with amount of yield funded by source.
func (v *Vault) Accrue(source, holder common.Address, amount *uint256.Int) error {
	if fixed.IsZero(amount) {
		return nil
	}
	if err := v.ledger.Transfer(v.asset, source, v.address, amount); err != nil {
		return err
	}
	v.credit(holder, amount)
	return nil
}

// Slash destroys amount of holder's claim, modelling a strategy loss.
func (v *Vault) Slash(holder common.Address, amount *uint256.Int) error {
	if fixed.IsZero(amount) {
		return nil
	}
	balance := v.ReportedBalance(holder)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: cannot slash %s from %s", ErrInsufficientBalance, amount.Dec(), balance.Dec())
	}
	if err := v.ledger.Burn(v.asset, v.address, amount); err != nil {
		return err
	}
	v.setBalance(holder, new(uint256.Int).Sub(balance, amount))
	v.setTotal(new(uint256.Int).Sub(v.total, amount))
	return nil
}

func (v *Vault) credit(holder common.Address, amount *uint256.Int) {
	v.setBalance(holder, new(uint256.Int).Add(v.ReportedBalance(holder), amount))
	v.setTotal(new(uint256.Int).Add(v.total, amount))
}

func (v *Vault) setBalance(holder common.Address, value *uint256.Int) {
	prev, existed := v.balances[holder]
	v.journal.Append(func() {
		if existed {
			v.balances[holder] = prev
		} else {
			delete(v.balances, holder)
		}
	})
	if value.IsZero() {
		delete(v.balances, holder)
		return
	}
	v.balances[holder] = value
}

func (v *Vault) setTotal(value *uint256.Int) {
	prev := v.total
	v.journal.Append(func() { v.total = prev })
	v.total = value
}
