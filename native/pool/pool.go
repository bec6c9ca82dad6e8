// Package pool is an in-memory lending market lending a single borrow asset
// against several collateral assets. Safes use it as their borrow/repay/redeem
// back-end; debt must be repaid before collateral backing it can be redeemed.
package pool

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nativecommon "turbo/native/common"
	"turbo/native/fixed"
)

const moduleName = "pool"

var (
	errInvalidAmount            = errors.New("pool: amount must be positive")
	ErrUnsupportedAsset         = errors.New("pool: asset not listed")
	ErrInsufficientCollateral   = errors.New("pool: insufficient collateral")
	ErrInsufficientLiquidity    = errors.New("pool: insufficient liquidity")
	ErrInsufficientSupply       = errors.New("pool: redeem exceeds supplied collateral")
	ErrRepayExceedsDebt         = errors.New("pool: repay exceeds outstanding debt")
	ErrBorrowPaused             = errors.New("pool: borrowing paused")
	errCollateralFactorTooLarge = errors.New("pool: collateral factor above 100%")
)

// Ledger is the token ledger the pool settles against.
type Ledger interface {
	BalanceOf(asset, account common.Address) *uint256.Int
	Transfer(asset, from, to common.Address, amount *uint256.Int) error
}

// Market describes a listed collateral asset.
type Market struct {
	// CollateralFactorBps is the share of collateral value that may be
	// borrowed against, in basis points.
	CollateralFactorBps uint64
	// Price is the value of one collateral unit in borrow asset units, WAD
	// scaled.
	Price *uint256.Int
}

// Pool is the in-memory lending market.
type Pool struct {
	address     common.Address
	borrowAsset common.Address
	ledger      Ledger
	journal     *nativecommon.Journal
	pauses      nativecommon.PauseView

	markets      map[common.Address]Market
	supplied     map[common.Address]map[common.Address]*uint256.Int
	debts        map[common.Address]*uint256.Int
	borrowPaused bool
}

// New constructs a pool holding its funds at address and lending borrowAsset.
func New(address, borrowAsset common.Address, ledger Ledger, journal *nativecommon.Journal) *Pool {
	return &Pool{
		address:     address,
		borrowAsset: borrowAsset,
		ledger:      ledger,
		journal:     journal,
		markets:     make(map[common.Address]Market),
		supplied:    make(map[common.Address]map[common.Address]*uint256.Int),
		debts:       make(map[common.Address]*uint256.Int),
	}
}

// SetPauses wires the module pause switches.
func (p *Pool) SetPauses(pauses nativecommon.PauseView) {
	if p == nil {
		return
	}
	p.pauses = pauses
}

// SetBorrowPaused halts or resumes new borrowing while leaving repay and
// redeem available.
func (p *Pool) SetBorrowPaused(paused bool) { p.borrowPaused = paused }

// Address returns the account holding pool liquidity and collateral.
func (p *Pool) Address() common.Address { return p.address }

// BorrowAsset returns the asset lent by the pool.
func (p *Pool) BorrowAsset() common.Address { return p.borrowAsset }

// ListMarket lists or updates a collateral asset.
func (p *Pool) ListMarket(asset common.Address, market Market) error {
	if market.CollateralFactorBps > 10_000 {
		return errCollateralFactorTooLarge
	}
	p.markets[asset] = Market{CollateralFactorBps: market.CollateralFactorBps, Price: fixed.Clone(market.Price)}
	return nil
}

// Supports reports whether asset is listed as collateral.
func (p *Pool) Supports(asset common.Address) bool {
	_, ok := p.markets[asset]
	return ok
}

// Supplied returns the collateral of asset supplied by account.
func (p *Pool) Supplied(account, asset common.Address) *uint256.Int {
	return fixed.Clone(p.supplied[account][asset])
}

// BorrowBalance returns the outstanding debt of account.
func (p *Pool) BorrowBalance(account common.Address) *uint256.Int {
	return fixed.Clone(p.debts[account])
}

// Liquidity returns the borrow asset available for new loans.
func (p *Pool) Liquidity() *uint256.Int {
	return p.ledger.BalanceOf(p.borrowAsset, p.address)
}

// BorrowCapacity returns how much account may owe given its collateral.
func (p *Pool) BorrowCapacity(account common.Address) *uint256.Int {
	return p.capacity(account, common.Address{}, nil)
}

// Supply moves collateral from account into the pool.
func (p *Pool) Supply(account, asset common.Address, amount *uint256.Int) error {
	if err := nativecommon.Guard(p.pauses, moduleName); err != nil {
		return err
	}
	if fixed.IsZero(amount) {
		return errInvalidAmount
	}
	if !p.Supports(asset) {
		return fmt.Errorf("%w: %s", ErrUnsupportedAsset, asset.Hex())
	}
	if err := p.ledger.Transfer(asset, account, p.address, amount); err != nil {
		return err
	}
	p.setSupplied(account, asset, new(uint256.Int).Add(p.Supplied(account, asset), amount))
	return nil
}

// Borrow lends amount of the borrow asset to account.
func (p *Pool) Borrow(account common.Address, amount *uint256.Int) error {
	if err := nativecommon.Guard(p.pauses, moduleName); err != nil {
		return err
	}
	if p.borrowPaused {
		return ErrBorrowPaused
	}
	if fixed.IsZero(amount) {
		return errInvalidAmount
	}
	debt, overflow := new(uint256.Int).AddOverflow(p.BorrowBalance(account), amount)
	if overflow || debt.Gt(p.BorrowCapacity(account)) {
		return fmt.Errorf("%w: debt would reach %s", ErrInsufficientCollateral, debt.Dec())
	}
	if p.Liquidity().Lt(amount) {
		return ErrInsufficientLiquidity
	}
	if err := p.ledger.Transfer(p.borrowAsset, p.address, account, amount); err != nil {
		return err
	}
	p.setDebt(account, debt)
	return nil
}

// Repay returns amount of the borrow asset on behalf of account.
func (p *Pool) Repay(account common.Address, amount *uint256.Int) error {
	return p.RepayBehalf(account, account, amount)
}

// RepayBehalf lets payer reduce the debt of borrower.
func (p *Pool) RepayBehalf(payer, borrower common.Address, amount *uint256.Int) error {
	if err := nativecommon.Guard(p.pauses, moduleName); err != nil {
		return err
	}
	if fixed.IsZero(amount) {
		return errInvalidAmount
	}
	debt := p.BorrowBalance(borrower)
	if debt.Lt(amount) {
		return fmt.Errorf("%w: owes %s, repaying %s", ErrRepayExceedsDebt, debt.Dec(), amount.Dec())
	}
	if err := p.ledger.Transfer(p.borrowAsset, payer, p.address, amount); err != nil {
		return err
	}
	p.setDebt(borrower, new(uint256.Int).Sub(debt, amount))
	return nil
}

// RedeemUnderlying releases amount of collateral asset back to account as
// long as the remaining collateral still covers its debt.
func (p *Pool) RedeemUnderlying(account, asset common.Address, amount *uint256.Int) error {
	if err := nativecommon.Guard(p.pauses, moduleName); err != nil {
		return err
	}
	if fixed.IsZero(amount) {
		return errInvalidAmount
	}
	supplied := p.Supplied(account, asset)
	if supplied.Lt(amount) {
		return fmt.Errorf("%w: supplied %s, redeeming %s", ErrInsufficientSupply, supplied.Dec(), amount.Dec())
	}
	if debt := p.BorrowBalance(account); debt.Gt(p.capacity(account, asset, amount)) {
		return fmt.Errorf("%w: debt %s not covered after redemption", ErrInsufficientCollateral, debt.Dec())
	}
	if err := p.ledger.Transfer(asset, p.address, account, amount); err != nil {
		return err
	}
	p.setSupplied(account, asset, new(uint256.Int).Sub(supplied, amount))
	return nil
}

// AccrueDebt grows the debt of account, e.g. to model borrow interest.
func (p *Pool) AccrueDebt(account common.Address, amount *uint256.Int) error {
	if fixed.IsZero(amount) {
		return nil
	}
	debt, overflow := new(uint256.Int).AddOverflow(p.BorrowBalance(account), amount)
	if overflow {
		return fmt.Errorf("%w: debt overflow", ErrInsufficientCollateral)
	}
	p.setDebt(account, debt)
	return nil
}

// capacity computes the borrow capacity of account assuming withdrawn of
// asset has already left the pool.
func (p *Pool) capacity(account, asset common.Address, withdrawn *uint256.Int) *uint256.Int {
	total := new(uint256.Int)
	for collateral, amount := range p.supplied[account] {
		market, ok := p.markets[collateral]
		if !ok {
			continue
		}
		remaining := fixed.Clone(amount)
		if collateral == asset && withdrawn != nil {
			remaining.Sub(remaining, withdrawn)
		}
		value, overflow := fixed.MulWadDown(remaining, market.Price)
		if overflow {
			return new(uint256.Int).SetAllOne()
		}
		allowed, _ := fixed.MulBpsDown(value, market.CollateralFactorBps)
		if _, overflow := total.AddOverflow(total, allowed); overflow {
			return new(uint256.Int).SetAllOne()
		}
	}
	return total
}

func (p *Pool) setSupplied(account, asset common.Address, value *uint256.Int) {
	assets := p.supplied[account]
	if assets == nil {
		assets = make(map[common.Address]*uint256.Int)
		p.supplied[account] = assets
	}
	prev, existed := assets[asset]
	p.journal.Append(func() {
		if existed {
			assets[asset] = prev
		} else {
			delete(assets, asset)
		}
	})
	if value.IsZero() {
		delete(assets, asset)
		return
	}
	assets[asset] = value
}

func (p *Pool) setDebt(account common.Address, value *uint256.Int) {
	prev, existed := p.debts[account]
	p.journal.Append(func() {
		if existed {
			p.debts[account] = prev
		} else {
			delete(p.debts, account)
		}
	})
	if value.IsZero() {
		delete(p.debts, account)
		return
	}
	p.debts[account] = value
}
