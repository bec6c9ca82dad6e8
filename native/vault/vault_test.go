package vault

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"turbo/native/bank"
	nativecommon "turbo/native/common"
)

var (
	vaultAddr = common.HexToAddress("0x7a01")
	fei       = common.HexToAddress("0xfe1")
	holder    = common.HexToAddress("0x5afe")
	yieldSrc  = common.HexToAddress("0xfa0")
)

func newVault(t *testing.T) (*Vault, *bank.Bank, *nativecommon.Journal) {
	t.Helper()
	j := nativecommon.NewJournal()
	b := bank.New(j)
	require.NoError(t, b.Mint(fei, holder, uint256.NewInt(1_000)))
	require.NoError(t, b.Mint(fei, yieldSrc, uint256.NewInt(1_000)))
	return New(vaultAddr, fei, b, j), b, j
}

func TestDepositAccrueWithdraw(t *testing.T) {
	v, b, _ := newVault(t)
	require.Equal(t, fei, v.Asset())

	require.NoError(t, v.Deposit(holder, uint256.NewInt(1_000)))
	require.NoError(t, v.Accrue(yieldSrc, holder, uint256.NewInt(100)))
	require.Equal(t, uint64(1_100), v.ReportedBalance(holder).Uint64())
	require.Equal(t, uint64(1_100), b.BalanceOf(fei, vaultAddr).Uint64())

	require.NoError(t, v.Withdraw(holder, holder, uint256.NewInt(20)))
	require.Equal(t, uint64(1_080), v.ReportedBalance(holder).Uint64())
	require.Equal(t, uint64(1_080), v.TotalAssets().Uint64())
	require.Equal(t, uint64(20), b.BalanceOf(fei, holder).Uint64())

	require.ErrorIs(t, v.Withdraw(holder, holder, uint256.NewInt(1_081)), ErrInsufficientBalance)
}

func TestSlashBurnsUnderlying(t *testing.T) {
	v, b, _ := newVault(t)
	require.NoError(t, v.Deposit(holder, uint256.NewInt(500)))
	require.NoError(t, v.Slash(holder, uint256.NewInt(50)))
	require.Equal(t, uint64(450), v.ReportedBalance(holder).Uint64())
	require.Equal(t, uint64(1_950), b.TotalSupply(fei).Uint64())
}

func TestDepositsDisabled(t *testing.T) {
	v, _, _ := newVault(t)
	v.SetDepositsDisabled(true)
	require.ErrorIs(t, v.Deposit(holder, uint256.NewInt(1)), ErrDepositsDisabled)
}

func TestVaultRevertsWithJournal(t *testing.T) {
	v, b, j := newVault(t)
	err := j.Atomic(func() error {
		require.NoError(t, v.Deposit(holder, uint256.NewInt(300)))
		return errors.New("abort")
	})
	require.Error(t, err)
	require.True(t, v.ReportedBalance(holder).IsZero())
	require.True(t, v.TotalAssets().IsZero())
	require.Equal(t, uint64(1_000), b.BalanceOf(fei, holder).Uint64())
}
