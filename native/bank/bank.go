// Package bank keeps in-memory token balances for every asset used by the
// engine. Mutations are recorded in the shared journal so a failed operation
// restores every balance it touched.
package bank

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nativecommon "turbo/native/common"
	"turbo/native/fixed"
	"turbo/observability"
)

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrSupplyOverflow      = errors.New("bank: supply overflow")
)

// Bank is a multi-asset balance ledger.
type Bank struct {
	journal  *nativecommon.Journal
	symbols  map[common.Address]string
	balances map[common.Address]map[common.Address]*uint256.Int
	supply   map[common.Address]*uint256.Int
}

// New constructs an empty bank recording into journal.
func New(journal *nativecommon.Journal) *Bank {
	return &Bank{
		journal:  journal,
		symbols:  make(map[common.Address]string),
		balances: make(map[common.Address]map[common.Address]*uint256.Int),
		supply:   make(map[common.Address]*uint256.Int),
	}
}

// RegisterAsset attaches a ticker to asset for logs and metrics.
func (b *Bank) RegisterAsset(asset common.Address, symbol string) {
	b.symbols[asset] = strings.ToUpper(strings.TrimSpace(symbol))
}

// Symbol returns the registered ticker, or the hex address when none is set.
func (b *Bank) Symbol(asset common.Address) string {
	if symbol, ok := b.symbols[asset]; ok && symbol != "" {
		return symbol
	}
	return asset.Hex()
}

// BalanceOf returns the balance account holds of asset.
func (b *Bank) BalanceOf(asset, account common.Address) *uint256.Int {
	return fixed.Clone(b.balances[asset][account])
}

// TotalSupply returns the minted supply of asset.
func (b *Bank) TotalSupply(asset common.Address) *uint256.Int {
	return fixed.Clone(b.supply[asset])
}

// Mint credits amount of asset to account.
func (b *Bank) Mint(asset, to common.Address, amount *uint256.Int) error {
	if fixed.IsZero(amount) {
		return nil
	}
	supply, overflow := new(uint256.Int).AddOverflow(fixed.Clone(b.supply[asset]), amount)
	if overflow {
		return ErrSupplyOverflow
	}
	b.setSupply(asset, supply)
	b.setBalance(asset, to, new(uint256.Int).Add(b.BalanceOf(asset, to), amount))
	return nil
}

// Burn destroys amount of asset held by account.
func (b *Bank) Burn(asset, from common.Address, amount *uint256.Int) error {
	if fixed.IsZero(amount) {
		return nil
	}
	balance := b.BalanceOf(asset, from)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s %s, needs %s", ErrInsufficientBalance, from.Hex(), balance.Dec(), b.Symbol(asset), amount.Dec())
	}
	b.setBalance(asset, from, new(uint256.Int).Sub(balance, amount))
	b.setSupply(asset, new(uint256.Int).Sub(b.TotalSupply(asset), amount))
	return nil
}

// Transfer moves amount of asset between accounts.
func (b *Bank) Transfer(asset, from, to common.Address, amount *uint256.Int) error {
	if fixed.IsZero(amount) || from == to {
		return nil
	}
	balance := b.BalanceOf(asset, from)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s %s, needs %s", ErrInsufficientBalance, from.Hex(), balance.Dec(), b.Symbol(asset), amount.Dec())
	}
	b.setBalance(asset, from, new(uint256.Int).Sub(balance, amount))
	b.setBalance(asset, to, new(uint256.Int).Add(b.BalanceOf(asset, to), amount))
	symbol, moved := b.Symbol(asset), fixed.Clone(amount)
	b.journal.OnCommit(func() { observability.Bank().RecordTransfer(symbol, moved) })
	return nil
}

func (b *Bank) setBalance(asset, account common.Address, value *uint256.Int) {
	accounts := b.balances[asset]
	if accounts == nil {
		accounts = make(map[common.Address]*uint256.Int)
		b.balances[asset] = accounts
	}
	prev, existed := accounts[account]
	b.journal.Append(func() {
		if existed {
			accounts[account] = prev
		} else {
			delete(accounts, account)
		}
	})
	if value.IsZero() {
		delete(accounts, account)
		return
	}
	accounts[account] = value
}

func (b *Bank) setSupply(asset common.Address, value *uint256.Int) {
	prev, existed := b.supply[asset]
	b.journal.Append(func() {
		if existed {
			b.supply[asset] = prev
		} else {
			delete(b.supply, asset)
		}
	})
	b.supply[asset] = value
}
