package turbo

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"turbo/core/events"
	nativecommon "turbo/native/common"
)

func TestImpoundRequiresGibber(t *testing.T) {
	f := newFixture(t)
	gibber := common.HexToAddress("0x61bbe7")

	require.ErrorIs(t, f.safe.Impound(gibber, treasury, amt(100)), ErrNotPermitted)
	require.ErrorIs(t, f.master.SetGibber(stranger, gibber), ErrNotPermitted)
	require.NoError(t, f.master.SetGibber(admin, gibber))

	require.ErrorIs(t, f.safe.Impound(user, treasury, amt(100)), ErrNotPermitted)
	require.ErrorIs(t, f.safe.Impound(admin, treasury, amt(100)), ErrNotPermitted)
	require.ErrorIs(t, f.safe.Impound(gibber, treasury, amt(0)), ErrInvalidAmount)
}

func TestImpoundRespectsOutstandingDebt(t *testing.T) {
	f := newFixture(t)
	gibber := common.HexToAddress("0x61bbe7")
	require.NoError(t, f.master.SetGibber(admin, gibber))
	require.NoError(t, f.safe.Boost(user, f.vault, amt(1000)))

	before := f.capture(f.safe)
	require.ErrorIs(t, f.safe.Impound(gibber, treasury, amt(4500)), ErrRedeemFailed)
	require.Equal(t, before, f.capture(f.safe))

	require.NoError(t, f.safe.Impound(gibber, treasury, amt(4000)))
	require.Equal(t, amt(4000), f.bank.BalanceOf(tribe, treasury))
	require.Equal(t, amt(1000), f.pool.Supplied(f.safe.Address(), tribe))
	require.Equal(t, amt(1000), f.safe.TotalBoosted())

	impounded := f.recorder.OfType(events.TypeSafeImpounded)
	require.Len(t, impounded, 1)
	require.Equal(t, treasury, impounded[0].(events.SafeImpounded).Destination)
}

func TestImpoundIgnoresPause(t *testing.T) {
	f := newFixture(t)
	gibber := common.HexToAddress("0x61bbe7")
	require.NoError(t, f.master.SetGibber(admin, gibber))
	f.master.SetPauses(nativecommon.NewPauseSet(moduleName))

	require.ErrorIs(t, f.safe.Claim(user, amt(1)), nativecommon.ErrModulePaused)
	require.NoError(t, f.safe.Impound(gibber, treasury, amt(10)))
}

func TestClaim(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.bank.Mint(fei, f.safe.Address(), amt(50)))

	require.ErrorIs(t, f.safe.Claim(stranger, amt(10)), ErrNotPermitted)
	require.ErrorIs(t, f.safe.Claim(user, amt(51)), ErrInsufficientBalance)
	require.NoError(t, f.safe.Claim(user, amt(50)))
	require.Equal(t, amt(50), f.bank.BalanceOf(fei, user))
	require.True(t, f.safe.TotalBoosted().IsZero())
	require.Len(t, f.recorder.OfType(events.TypeSafeClaimed), 1)
}

func TestCollateralDepositAndWithdraw(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, amt(5000), f.pool.Supplied(f.safe.Address(), tribe))

	require.NoError(t, f.bank.Mint(tribe, user, amt(100)))
	require.ErrorIs(t, f.safe.DepositCollateral(stranger, amt(100)), ErrNotPermitted)
	require.ErrorIs(t, f.safe.DepositCollateral(user, amt(101)), ErrInsufficientBalance)
	require.NoError(t, f.safe.DepositCollateral(user, amt(100)))
	require.Equal(t, amt(5100), f.pool.Supplied(f.safe.Address(), tribe))

	require.NoError(t, f.safe.Boost(user, f.vault, amt(5000)))
	require.ErrorIs(t, f.safe.WithdrawCollateral(user, user, amt(101)), ErrRedeemFailed)
	require.NoError(t, f.safe.WithdrawCollateral(user, user, amt(100)))
	require.Equal(t, amt(100), f.bank.BalanceOf(tribe, user))

	require.Len(t, f.recorder.OfType(events.TypeCollateralDeposited), 1)
	require.Len(t, f.recorder.OfType(events.TypeCollateralWithdrawn), 1)
}

func TestSafeSweep(t *testing.T) {
	f := newFixture(t)
	airdrop := common.HexToAddress("0xa1d")
	require.NoError(t, f.bank.Mint(airdrop, f.safe.Address(), amt(7)))
	require.NoError(t, f.safe.Boost(user, f.vault, amt(10)))

	require.ErrorIs(t, f.safe.Sweep(user, user, tribe, amt(1)), ErrInvalidToken)
	require.ErrorIs(t, f.safe.Sweep(user, user, vaultAddr, amt(1)), ErrInvalidToken)
	require.ErrorIs(t, f.safe.Sweep(stranger, stranger, airdrop, amt(7)), ErrNotPermitted)

	require.NoError(t, f.safe.Sweep(user, treasury, airdrop, amt(7)))
	require.Equal(t, amt(7), f.bank.BalanceOf(airdrop, treasury))
	require.Len(t, f.recorder.OfType(events.TypeSafeSwept), 1)
}
