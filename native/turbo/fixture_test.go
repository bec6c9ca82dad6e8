package turbo

import (
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"turbo/core/events"
	"turbo/native/accountant"
	"turbo/native/auth"
	"turbo/native/bank"
	"turbo/native/booster"
	nativecommon "turbo/native/common"
	"turbo/native/fixed"
	"turbo/native/pool"
	"turbo/native/vault"
)

var (
	fei        = common.HexToAddress("0xfe1")
	tribe      = common.HexToAddress("0x7e1be")
	poolAddr   = common.HexToAddress("0x9001")
	masterAddr = common.HexToAddress("0x3a57e7")
	vaultAddr  = common.HexToAddress("0x7a017")
	admin      = common.HexToAddress("0xad31")
	user       = common.HexToAddress("0x05e7")
	stranger   = common.HexToAddress("0xbad")
	yieldSrc   = common.HexToAddress("0x71e1d")
	treasury   = common.HexToAddress("0x7ea5")
)

type fixture struct {
	journal    *nativecommon.Journal
	bank       *bank.Bank
	pool       *pool.Pool
	booster    *booster.Booster
	accountant *accountant.Accountant
	roles      *auth.RolesAuthority
	master     *Master
	vault      *vault.Vault
	recorder   *events.Recorder
	safe       *Safe
}

func amt(v uint64) *uint256.Int { return uint256.NewInt(v) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	journal := nativecommon.NewJournal()
	bk := bank.New(journal)
	bk.RegisterAsset(fei, "FEI")
	bk.RegisterAsset(tribe, "TRIBE")

	pl := pool.New(poolAddr, fei, bk, journal)
	require.NoError(t, pl.ListMarket(tribe, pool.Market{CollateralFactorBps: 10_000, Price: fixed.WAD}))
	require.NoError(t, bk.Mint(fei, poolAddr, amt(1_000_000)))

	b := booster.New(common.HexToAddress("0xb005"), admin, nil)
	require.NoError(t, b.SetVaultAllowed(admin, vaultAddr, true))
	require.NoError(t, b.SetBoostCapForVault(admin, vaultAddr, amt(100_000)))
	require.NoError(t, b.SetBoostCapForCollateral(admin, tribe, amt(100_000)))

	acct := accountant.New(common.HexToAddress("0xacc0"), admin, nil)
	fee, err := fixed.ParseWad("0.2")
	require.NoError(t, err)
	require.NoError(t, acct.SetDefaultFeePercentage(admin, fee))

	roles := auth.NewRolesAuthority(common.HexToAddress("0x201e5"), admin, nil)
	require.NoError(t, roles.SetPublicCapability(admin, masterAddr, CapCreateSafe, true))

	recorder := &events.Recorder{}
	m := NewMaster(masterAddr, admin, roles, pl, bk, journal)
	m.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.SetEmitter(recorder)
	require.NoError(t, m.SetBooster(admin, b))
	require.NoError(t, m.SetAccountant(admin, acct))

	v := vault.New(vaultAddr, fei, bk, journal)
	require.NoError(t, bk.Mint(fei, yieldSrc, amt(1_000_000)))

	f := &fixture{
		journal:    journal,
		bank:       bk,
		pool:       pl,
		booster:    b,
		accountant: acct,
		roles:      roles,
		master:     m,
		vault:      v,
		recorder:   recorder,
	}
	f.safe = f.openSafe(t, user, 5_000)
	recorder.Reset()
	return f
}

// openSafe creates a Safe for owner backed by collateral units of TRIBE.
func (f *fixture) openSafe(t *testing.T, owner common.Address, collateral uint64) *Safe {
	t.Helper()
	safe, err := f.master.CreateSafe(owner, tribe)
	require.NoError(t, err)
	require.NoError(t, f.bank.Mint(tribe, owner, amt(collateral)))
	require.NoError(t, safe.DepositCollateral(owner, amt(collateral)))
	return safe
}

func (f *fixture) accrue(t *testing.T, safe *Safe, amount uint64) {
	t.Helper()
	require.NoError(t, f.vault.Accrue(yieldSrc, safe.Address(), amt(amount)))
}

type worldState struct {
	safe        SafeSnapshot
	master      MasterSnapshot
	debt        *uint256.Int
	reported    *uint256.Int
	safeFei     *uint256.Int
	masterFei   *uint256.Int
	poolFei     *uint256.Int
	vaultFei    *uint256.Int
	collateral  *uint256.Int
	eventsCount int
}

func (f *fixture) capture(safe *Safe) worldState {
	return worldState{
		safe:        safe.Snapshot(),
		master:      f.master.Snapshot(),
		debt:        f.pool.BorrowBalance(safe.Address()),
		reported:    f.vault.ReportedBalance(safe.Address()),
		safeFei:     f.bank.BalanceOf(fei, safe.Address()),
		masterFei:   f.bank.BalanceOf(fei, masterAddr),
		poolFei:     f.bank.BalanceOf(fei, poolAddr),
		vaultFei:    f.bank.BalanceOf(fei, vaultAddr),
		collateral:  f.pool.Supplied(safe.Address(), tribe),
		eventsCount: len(f.recorder.Events()),
	}
}

func requireMasterMatchesSafes(t *testing.T, m *Master) {
	t.Helper()
	total := new(uint256.Int)
	perVault := make(map[common.Address]*uint256.Int)
	perCollateral := make(map[common.Address]*uint256.Int)
	for _, safe := range m.Safes() {
		total.Add(total, safe.TotalBoosted())
		sum := new(uint256.Int)
		for _, addr := range safe.Vaults() {
			boosted := safe.BoostedForVault(addr)
			sum.Add(sum, boosted)
			perVault[addr] = new(uint256.Int).Add(fixed.Clone(perVault[addr]), boosted)
		}
		require.Equal(t, safe.TotalBoosted(), sum, "safe %s total differs from per-vault sum", safe.Address().Hex())
		if !safe.TotalBoosted().IsZero() {
			perCollateral[safe.Collateral()] = new(uint256.Int).Add(fixed.Clone(perCollateral[safe.Collateral()]), safe.TotalBoosted())
		}
	}
	snap := m.Snapshot()
	require.Equal(t, total, snap.TotalBoosted)
	require.Equal(t, perVault, snap.BoostedForVault)
	require.Equal(t, perCollateral, snap.BoostedAgainstCollateral)
}
