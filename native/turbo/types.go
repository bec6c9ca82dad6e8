package turbo

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"turbo/native/auth"
)

const moduleName = "turbo"

const (
	CapBoost    auth.Capability = "safe.boost"
	CapLess     auth.Capability = "safe.less"
	CapSlurp    auth.Capability = "safe.slurp"
	CapClaim    auth.Capability = "safe.claim"
	CapSweep    auth.Capability = "safe.sweep"
	CapDeposit  auth.Capability = "safe.depositCollateral"
	CapWithdraw auth.Capability = "safe.withdrawCollateral"

	CapCreateSafe              auth.Capability = "master.createSafe"
	CapSetBooster              auth.Capability = "master.setBooster"
	CapSetFeePolicy            auth.Capability = "master.setFeePolicy"
	CapSetDefaultSafeAuthority auth.Capability = "master.setDefaultSafeAuthority"
	CapSetGibber               auth.Capability = "master.setGibber"
	CapMasterSweep             auth.Capability = "master.sweep"
	CapSlurpAll                auth.Capability = "master.slurpAll"
)

// SlurpResult reports how interest realised from a vault was split.
type SlurpResult struct {
	InterestEarned *uint256.Int
	ProtocolFee    *uint256.Int
	SafeRetained   *uint256.Int
}

// SafeSnapshot is a point-in-time copy of a Safe's ledger.
type SafeSnapshot struct {
	ID              uint64
	Address         common.Address
	Owner           common.Address
	Collateral      common.Address
	TotalBoosted    *uint256.Int
	BoostedPerVault map[common.Address]*uint256.Int
}

// MasterSnapshot is a point-in-time copy of the master's aggregates.
type MasterSnapshot struct {
	Safes                    int
	TotalBoosted             *uint256.Int
	BoostedForVault          map[common.Address]*uint256.Int
	BoostedAgainstCollateral map[common.Address]*uint256.Int
}

// SlurpReport is one entry of a master-wide settlement run.
type SlurpReport struct {
	Safe   common.Address
	Vault  common.Address
	Result *SlurpResult
	Err    error
}
