package turbo

import (
	"log/slog"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"turbo/core/events"
	"turbo/native/auth"
	nativecommon "turbo/native/common"
	"turbo/native/fixed"
	"turbo/observability"
)

// Safe is a user-owned position: collateral supplied to the lending pool
// backs funding asset borrowed and deployed into vaults. The Safe records how
// much funding asset it has deployed per vault; that baseline is re-based to
// the vault's reported balance, net of protocol fees, on every slurp.
type Safe struct {
	auth.Owned

	id           uint64
	collateral   common.Address
	fundingAsset common.Address

	master *Master

	totalBoosted *uint256.Int
	boosted      map[common.Address]*uint256.Int
	vaults       map[common.Address]Vault
}

func newSafe(master *Master, id uint64, address, owner, collateral common.Address, authority auth.Authority) *Safe {
	return &Safe{
		Owned:        auth.NewOwned(address, owner, authority),
		id:           id,
		collateral:   collateral,
		fundingAsset: master.fundingAsset,
		master:       master,
		totalBoosted: new(uint256.Int),
		boosted:      make(map[common.Address]*uint256.Int),
		vaults:       make(map[common.Address]Vault),
	}
}

// ID returns the registry identifier, starting at 1.
func (s *Safe) ID() uint64 { return s.id }

// Collateral returns the asset backing the Safe's borrowing.
func (s *Safe) Collateral() common.Address { return s.collateral }

// FundingAsset returns the asset the Safe borrows.
func (s *Safe) FundingAsset() common.Address { return s.fundingAsset }

// TotalBoosted returns the funding asset deployed across every vault.
func (s *Safe) TotalBoosted() *uint256.Int { return fixed.Clone(s.totalBoosted) }

// BoostedForVault returns the recorded deployment in vault, zero when none.
func (s *Safe) BoostedForVault(vault common.Address) *uint256.Int {
	return fixed.Clone(s.boosted[vault])
}

// Vault returns the handle of a vault the Safe currently has funds in.
func (s *Safe) Vault(address common.Address) (Vault, bool) {
	v, ok := s.vaults[address]
	return v, ok
}

// Vaults lists the vaults with a nonzero deployment, sorted by address.
func (s *Safe) Vaults() []common.Address {
	out := make([]common.Address, 0, len(s.boosted))
	for addr := range s.boosted {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

// Snapshot returns a deep copy of the Safe's ledger.
func (s *Safe) Snapshot() SafeSnapshot {
	perVault := make(map[common.Address]*uint256.Int, len(s.boosted))
	for addr, amount := range s.boosted {
		perVault[addr] = fixed.Clone(amount)
	}
	return SafeSnapshot{
		ID:              s.id,
		Address:         s.Address(),
		Owner:           s.Owner(),
		Collateral:      s.collateral,
		TotalBoosted:    fixed.Clone(s.totalBoosted),
		BoostedPerVault: perVault,
	}
}

// authorizedLocalOrMaster admits the Safe's own owner and authority as well as
// the master's owner and anyone the master's authority grants capability on
// this Safe.
func (s *Safe) authorizedLocalOrMaster(caller common.Address, capability auth.Capability) bool {
	if s.IsAuthorized(caller, capability) {
		return true
	}
	if caller == s.master.Owner() {
		return true
	}
	authority := s.master.Authority()
	return authority != nil && authority.CanCall(caller, s.Address(), capability)
}

func (s *Safe) setTotalBoosted(value *uint256.Int) {
	prev := s.totalBoosted
	s.master.journal.Append(func() { s.totalBoosted = prev })
	s.totalBoosted = value
}

func (s *Safe) setVaultBoosted(vault Vault, value *uint256.Int) {
	addr := vault.Address()
	prev, hadPrev := s.boosted[addr]
	prevHandle, hadHandle := s.vaults[addr]
	s.master.journal.Append(func() {
		if hadPrev {
			s.boosted[addr] = prev
		} else {
			delete(s.boosted, addr)
		}
		if hadHandle {
			s.vaults[addr] = prevHandle
		} else {
			delete(s.vaults, addr)
		}
	})
	if fixed.IsZero(value) {
		delete(s.boosted, addr)
		delete(s.vaults, addr)
		return
	}
	s.boosted[addr] = value
	s.vaults[addr] = vault
}

// execute runs fn as one journal unit behind the module pause guard and
// records the outcome.
func (s *Safe) execute(operation string, guarded bool, fn func(log *slog.Logger) error) error {
	log := s.operationLogger(operation)
	var err error
	if guarded {
		err = nativecommon.Guard(s.master.pauses, moduleName)
	}
	if err == nil {
		err = s.master.journal.Atomic(func() error { return fn(log) })
	}
	observability.Turbo().RecordOperation(operation, err, metricLabel)
	if err != nil {
		log.Warn("safe operation failed", slog.String("error", err.Error()))
		return err
	}
	observability.Turbo().SetSafeBoosted(s.Address().Hex(), s.totalBoosted)
	observability.Turbo().SetMasterTotal(s.master.totalBoosted)
	return nil
}

func (s *Safe) operationLogger(operation string) *slog.Logger {
	logger := s.master.logger
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(
		slog.String("op_id", uuid.NewString()),
		slog.String("operation", operation),
		slog.String("safe", s.Address().Hex()),
	)
}

func (s *Safe) emit(evt events.Event) {
	if s.master.emitter != nil {
		s.master.emitter.Emit(evt)
	}
}
