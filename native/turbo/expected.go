package turbo

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// LendingPool is the lending market a Safe borrows from. Implementations must
// record their mutations in the master's journal so failed operations unwind
// them.
type LendingPool interface {
	BorrowAsset() common.Address
	Supports(asset common.Address) bool
	Supply(account, asset common.Address, amount *uint256.Int) error
	Borrow(account common.Address, amount *uint256.Int) error
	Repay(account common.Address, amount *uint256.Int) error
	RedeemUnderlying(account, asset common.Address, amount *uint256.Int) error
	BorrowBalance(account common.Address) *uint256.Int
}

// Vault is a yield-bearing destination for borrowed funding asset.
type Vault interface {
	Address() common.Address
	Asset() common.Address
	Deposit(holder common.Address, amount *uint256.Int) error
	Withdraw(holder, to common.Address, amount *uint256.Int) error
	ReportedBalance(holder common.Address) *uint256.Int
}

// Bank moves tokens held by Safes and the master.
type Bank interface {
	BalanceOf(asset, account common.Address) *uint256.Int
	Transfer(asset, from, to common.Address, amount *uint256.Int) error
}

// FeePolicy resolves the WAD fee ratio retained by the protocol.
type FeePolicy interface {
	FeePercentageForSafe(safe, collateral common.Address) *uint256.Int
}

// Booster admits or rejects a prospective boost given the resulting totals.
type Booster interface {
	CanSafeBoostVault(collateral, vault common.Address, newVaultTotal, newCollateralTotal *uint256.Int) error
}
