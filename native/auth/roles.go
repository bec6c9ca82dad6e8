package auth

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

const (
	CapSetUserRole         Capability = "roles.setUserRole"
	CapSetRoleCapability   Capability = "roles.setRoleCapability"
	CapSetPublicCapability Capability = "roles.setPublicCapability"
)

// AnyTarget grants a role capability on every target. It is used for policies
// that apply to all Safes, such as keepers allowed to slurp.
var AnyTarget = common.Address{}

type capabilityKey struct {
	target     common.Address
	capability Capability
}

// RolesAuthority is an Authority granting capabilities to named roles.
type RolesAuthority struct {
	Owned

	mu              sync.RWMutex
	userRoles       map[common.Address]map[string]struct{}
	capabilityRoles map[capabilityKey]map[string]struct{}
	public          map[capabilityKey]struct{}
}

// NewRolesAuthority constructs an empty authority owned by owner. The optional
// authority guards the RolesAuthority's own configuration.
func NewRolesAuthority(address, owner common.Address, authority Authority) *RolesAuthority {
	return &RolesAuthority{
		Owned:           NewOwned(address, owner, authority),
		userRoles:       make(map[common.Address]map[string]struct{}),
		capabilityRoles: make(map[capabilityKey]map[string]struct{}),
		public:          make(map[capabilityKey]struct{}),
	}
}

// CanCall implements Authority.
func (r *RolesAuthority) CanCall(user, target common.Address, capability Capability) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, key := range []capabilityKey{{target, capability}, {AnyTarget, capability}} {
		if _, ok := r.public[key]; ok {
			return true
		}
		roles := r.capabilityRoles[key]
		for role := range r.userRoles[user] {
			if _, ok := roles[role]; ok {
				return true
			}
		}
	}
	return false
}

// HasRole reports whether user holds role.
func (r *RolesAuthority) HasRole(role string, user common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.userRoles[user][normalizeRole(role)]
	return ok
}

// RoleMembers returns the holders of role sorted by address.
func (r *RolesAuthority) RoleMembers(role string) []common.Address {
	role = normalizeRole(role)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var members []common.Address
	for user, roles := range r.userRoles {
		if _, ok := roles[role]; ok {
			members = append(members, user)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		return bytes.Compare(members[i][:], members[j][:]) < 0
	})
	return members
}

// SetUserRole grants or revokes role for user.
func (r *RolesAuthority) SetUserRole(caller, user common.Address, role string, enabled bool) error {
	if !r.IsAuthorized(caller, CapSetUserRole) {
		return ErrUnauthorized
	}
	role = normalizeRole(role)
	if role == "" {
		return fmt.Errorf("auth: role must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	setMember(r.userRoles, user, role, enabled)
	return nil
}

// SetRoleCapability allows or disallows holders of role to invoke capability
// on target. Use AnyTarget to cover every target.
func (r *RolesAuthority) SetRoleCapability(caller common.Address, role string, target common.Address, capability Capability, enabled bool) error {
	if !r.IsAuthorized(caller, CapSetRoleCapability) {
		return ErrUnauthorized
	}
	role = normalizeRole(role)
	if role == "" {
		return fmt.Errorf("auth: role must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	setMember(r.capabilityRoles, capabilityKey{target, capability}, role, enabled)
	return nil
}

// SetPublicCapability opens or closes capability on target to every caller.
func (r *RolesAuthority) SetPublicCapability(caller, target common.Address, capability Capability, enabled bool) error {
	if !r.IsAuthorized(caller, CapSetPublicCapability) {
		return ErrUnauthorized
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := capabilityKey{target, capability}
	if enabled {
		r.public[key] = struct{}{}
	} else {
		delete(r.public, key)
	}
	return nil
}

func setMember[K comparable](sets map[K]map[string]struct{}, key K, role string, enabled bool) {
	if enabled {
		if sets[key] == nil {
			sets[key] = make(map[string]struct{})
		}
		sets[key][role] = struct{}{}
		return
	}
	delete(sets[key], role)
	if len(sets[key]) == 0 {
		delete(sets, key)
	}
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
