package bank

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	nativecommon "turbo/native/common"
	"turbo/observability"
)

var (
	fei   = common.HexToAddress("0xfe1")
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
)

func TestMintTransferBurn(t *testing.T) {
	b := New(nativecommon.NewJournal())
	b.RegisterAsset(fei, "fei")
	require.Equal(t, "FEI", b.Symbol(fei))

	require.NoError(t, b.Mint(fei, alice, uint256.NewInt(100)))
	require.NoError(t, b.Transfer(fei, alice, bob, uint256.NewInt(40)))
	require.Equal(t, uint64(60), b.BalanceOf(fei, alice).Uint64())
	require.Equal(t, uint64(40), b.BalanceOf(fei, bob).Uint64())

	require.NoError(t, b.Burn(fei, bob, uint256.NewInt(40)))
	require.True(t, b.BalanceOf(fei, bob).IsZero())
	require.Equal(t, uint64(60), b.TotalSupply(fei).Uint64())
}

func TestTransferInsufficientBalance(t *testing.T) {
	b := New(nativecommon.NewJournal())
	require.NoError(t, b.Mint(fei, alice, uint256.NewInt(10)))
	err := b.Transfer(fei, alice, bob, uint256.NewInt(11))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, uint64(10), b.BalanceOf(fei, alice).Uint64())
}

func TestMintOverflow(t *testing.T) {
	b := New(nativecommon.NewJournal())
	require.NoError(t, b.Mint(fei, alice, new(uint256.Int).SetAllOne()))
	require.ErrorIs(t, b.Mint(fei, bob, uint256.NewInt(1)), ErrSupplyOverflow)
}

func TestJournalRestoresBalances(t *testing.T) {
	j := nativecommon.NewJournal()
	b := New(j)
	require.NoError(t, b.Mint(fei, alice, uint256.NewInt(100)))

	err := j.Atomic(func() error {
		require.NoError(t, b.Transfer(fei, alice, bob, uint256.NewInt(70)))
		require.NoError(t, b.Mint(fei, bob, uint256.NewInt(5)))
		return errors.New("abort")
	})
	require.Error(t, err)
	require.Equal(t, uint64(100), b.BalanceOf(fei, alice).Uint64())
	require.True(t, b.BalanceOf(fei, bob).IsZero())
	require.Equal(t, uint64(100), b.TotalSupply(fei).Uint64())
}

func TestTransferMetricCountsCommittedOnly(t *testing.T) {
	j := nativecommon.NewJournal()
	b := New(j)
	asset := common.HexToAddress("0xc0417")
	b.RegisterAsset(asset, "cnt")
	require.NoError(t, b.Mint(asset, alice, uint256.NewInt(100)))
	metrics := observability.Bank()
	before := metrics.Transfers("CNT")

	require.Error(t, j.Atomic(func() error {
		require.NoError(t, b.Transfer(asset, alice, bob, uint256.NewInt(10)))
		return errors.New("abort")
	}))
	require.Equal(t, before, metrics.Transfers("CNT"))

	require.NoError(t, j.Atomic(func() error {
		require.NoError(t, b.Transfer(asset, alice, bob, uint256.NewInt(10)))
		require.Equal(t, before, metrics.Transfers("CNT"))
		return nil
	}))
	require.Equal(t, before+1, metrics.Transfers("CNT"))

	require.NoError(t, b.Transfer(asset, alice, bob, uint256.NewInt(10)))
	require.Equal(t, before+2, metrics.Transfers("CNT"))
}
