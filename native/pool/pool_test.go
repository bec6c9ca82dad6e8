package pool

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"turbo/native/bank"
	nativecommon "turbo/native/common"
	"turbo/native/fixed"
)

var (
	poolAddr = common.HexToAddress("0x9001")
	fei      = common.HexToAddress("0xfe1")
	tribe    = common.HexToAddress("0x7e1be")
	borrower = common.HexToAddress("0xb0")
	payer    = common.HexToAddress("0xb1")
)

type fixture struct {
	journal *nativecommon.Journal
	bank    *bank.Bank
	pool    *Pool
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	j := nativecommon.NewJournal()
	b := bank.New(j)
	p := New(poolAddr, fei, b, j)
	require.NoError(t, p.ListMarket(tribe, Market{CollateralFactorBps: 5_000, Price: fixed.WAD}))
	require.NoError(t, b.Mint(fei, poolAddr, uint256.NewInt(1_000_000)))
	require.NoError(t, b.Mint(tribe, borrower, uint256.NewInt(10_000)))
	return fixture{journal: j, bank: b, pool: p}
}

func TestBorrowWithinCapacity(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.pool.Supply(borrower, tribe, uint256.NewInt(4_000)))
	require.Equal(t, uint64(2_000), f.pool.BorrowCapacity(borrower).Uint64())

	require.NoError(t, f.pool.Borrow(borrower, uint256.NewInt(2_000)))
	require.Equal(t, uint64(2_000), f.pool.BorrowBalance(borrower).Uint64())
	require.Equal(t, uint64(2_000), f.bank.BalanceOf(fei, borrower).Uint64())

	require.ErrorIs(t, f.pool.Borrow(borrower, uint256.NewInt(1)), ErrInsufficientCollateral)
}

func TestBorrowRejectsWhenPaused(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.pool.Supply(borrower, tribe, uint256.NewInt(4_000)))
	f.pool.SetBorrowPaused(true)
	require.ErrorIs(t, f.pool.Borrow(borrower, uint256.NewInt(1)), ErrBorrowPaused)

	f.pool.SetBorrowPaused(false)
	f.pool.SetPauses(nativecommon.NewPauseSet("pool"))
	require.ErrorIs(t, f.pool.Borrow(borrower, uint256.NewInt(1)), nativecommon.ErrModulePaused)
}

func TestBorrowRequiresLiquidity(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.bank.Mint(tribe, borrower, uint256.NewInt(10_000_000)))
	require.NoError(t, f.pool.Supply(borrower, tribe, uint256.NewInt(10_000_000)))
	require.ErrorIs(t, f.pool.Borrow(borrower, uint256.NewInt(1_000_001)), ErrInsufficientLiquidity)
}

func TestRedeemRequiresDebtCoverage(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.pool.Supply(borrower, tribe, uint256.NewInt(4_000)))
	require.NoError(t, f.pool.Borrow(borrower, uint256.NewInt(1_500)))

	require.ErrorIs(t, f.pool.RedeemUnderlying(borrower, tribe, uint256.NewInt(1_001)), ErrInsufficientCollateral)
	require.NoError(t, f.pool.RedeemUnderlying(borrower, tribe, uint256.NewInt(1_000)))
	require.Equal(t, uint64(3_000), f.pool.Supplied(borrower, tribe).Uint64())

	require.ErrorIs(t, f.pool.RedeemUnderlying(borrower, tribe, uint256.NewInt(3_001)), ErrInsufficientSupply)
}

func TestRepayBehalfAndOverRepay(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.pool.Supply(borrower, tribe, uint256.NewInt(4_000)))
	require.NoError(t, f.pool.Borrow(borrower, uint256.NewInt(500)))
	require.NoError(t, f.bank.Mint(fei, payer, uint256.NewInt(200)))

	require.NoError(t, f.pool.RepayBehalf(payer, borrower, uint256.NewInt(200)))
	require.Equal(t, uint64(300), f.pool.BorrowBalance(borrower).Uint64())
	require.ErrorIs(t, f.pool.Repay(borrower, uint256.NewInt(301)), ErrRepayExceedsDebt)
	require.NoError(t, f.pool.Repay(borrower, uint256.NewInt(300)))
	require.True(t, f.pool.BorrowBalance(borrower).IsZero())
}

func TestUnsupportedCollateral(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.pool.Supply(borrower, common.HexToAddress("0xdead"), uint256.NewInt(1)), ErrUnsupportedAsset)
	require.False(t, f.pool.Supports(common.HexToAddress("0xdead")))
}

func TestPoolMutationsRevertWithJournal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.pool.Supply(borrower, tribe, uint256.NewInt(4_000)))

	err := f.journal.Atomic(func() error {
		require.NoError(t, f.pool.Borrow(borrower, uint256.NewInt(1_000)))
		require.NoError(t, f.pool.AccrueDebt(borrower, uint256.NewInt(7)))
		return errors.New("abort")
	})
	require.Error(t, err)
	require.True(t, f.pool.BorrowBalance(borrower).IsZero())
	require.True(t, f.bank.BalanceOf(fei, borrower).IsZero())
}
