package auth

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	rolesAddr = common.HexToAddress("0xa0")
	admin     = common.HexToAddress("0xa1")
	keeper    = common.HexToAddress("0xa2")
	stranger  = common.HexToAddress("0xa3")
	safeA     = common.HexToAddress("0xb1")
	safeB     = common.HexToAddress("0xb2")
)

func TestOwnedOwnerAlwaysAuthorized(t *testing.T) {
	o := NewOwned(safeA, admin, nil)
	require.True(t, o.IsAuthorized(admin, "anything"))
	require.False(t, o.IsAuthorized(stranger, "anything"))

	require.ErrorIs(t, o.SetOwner(stranger, stranger), ErrUnauthorized)
	require.NoError(t, o.SetOwner(admin, keeper))
	require.Equal(t, keeper, o.Owner())
	require.False(t, o.IsAuthorized(admin, "anything"))
}

func TestOwnedDelegatesToAuthority(t *testing.T) {
	calls := 0
	authority := AuthorityFunc(func(user, target common.Address, capability Capability) bool {
		calls++
		return user == keeper && target == safeA && capability == "safe.slurp"
	})
	o := NewOwned(safeA, admin, authority)
	require.True(t, o.IsAuthorized(keeper, "safe.slurp"))
	require.False(t, o.IsAuthorized(keeper, "safe.boost"))
	require.Equal(t, 2, calls)
}

func TestRolesAuthorityCapabilities(t *testing.T) {
	r := NewRolesAuthority(rolesAddr, admin, nil)
	require.ErrorIs(t, r.SetUserRole(stranger, keeper, "keeper", true), ErrUnauthorized)

	require.NoError(t, r.SetUserRole(admin, keeper, " Keeper ", true))
	require.True(t, r.HasRole("keeper", keeper))
	require.False(t, r.CanCall(keeper, safeA, "safe.slurp"))

	require.NoError(t, r.SetRoleCapability(admin, "keeper", safeA, "safe.slurp", true))
	require.True(t, r.CanCall(keeper, safeA, "safe.slurp"))
	require.False(t, r.CanCall(keeper, safeB, "safe.slurp"))

	require.NoError(t, r.SetRoleCapability(admin, "keeper", AnyTarget, "safe.slurp", true))
	require.True(t, r.CanCall(keeper, safeB, "safe.slurp"))
	require.False(t, r.CanCall(stranger, safeB, "safe.slurp"))

	require.NoError(t, r.SetUserRole(admin, keeper, "keeper", false))
	require.False(t, r.CanCall(keeper, safeA, "safe.slurp"))
	require.Empty(t, r.RoleMembers("keeper"))
}

func TestRolesAuthorityPublicCapability(t *testing.T) {
	r := NewRolesAuthority(rolesAddr, admin, nil)
	require.NoError(t, r.SetPublicCapability(admin, safeA, "safe.slurp", true))
	require.True(t, r.CanCall(stranger, safeA, "safe.slurp"))
	require.NoError(t, r.SetPublicCapability(admin, safeA, "safe.slurp", false))
	require.False(t, r.CanCall(stranger, safeA, "safe.slurp"))
}

func TestRoleMembersSorted(t *testing.T) {
	r := NewRolesAuthority(rolesAddr, admin, nil)
	require.NoError(t, r.SetUserRole(admin, stranger, "ops", true))
	require.NoError(t, r.SetUserRole(admin, keeper, "ops", true))
	require.Equal(t, []common.Address{keeper, stranger}, r.RoleMembers("ops"))
}
