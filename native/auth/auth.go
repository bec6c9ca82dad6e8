// Package auth implements the capability checks guarding Safe, master,
// accountant and booster operations. Every guarded component embeds Owned: its
// owner may do anything and everybody else must be granted the capability by
// the configured Authority.
package auth

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUnauthorized is returned when a caller lacks the required capability.
var ErrUnauthorized = errors.New("auth: unauthorized")

// Capability names a guarded operation, e.g. "safe.boost".
type Capability string

const (
	CapSetOwner     Capability = "auth.setOwner"
	CapSetAuthority Capability = "auth.setAuthority"
)

// Authority decides whether user may invoke capability on target.
type Authority interface {
	CanCall(user, target common.Address, capability Capability) bool
}

// AuthorityFunc adapts a function to the Authority interface.
type AuthorityFunc func(user, target common.Address, capability Capability) bool

// CanCall implements Authority.
func (f AuthorityFunc) CanCall(user, target common.Address, capability Capability) bool {
	if f == nil {
		return false
	}
	return f(user, target, capability)
}

// Owned tracks the owner and authority of a guarded component.
type Owned struct {
	address   common.Address
	owner     common.Address
	authority Authority
}

// NewOwned constructs the guard for the component living at address.
func NewOwned(address, owner common.Address, authority Authority) Owned {
	return Owned{address: address, owner: owner, authority: authority}
}

// Address returns the guarded component's address.
func (o *Owned) Address() common.Address { return o.address }

// Owner returns the current owner.
func (o *Owned) Owner() common.Address { return o.owner }

// Authority returns the configured authority, which may be nil.
func (o *Owned) Authority() Authority { return o.authority }

// IsAuthorized reports whether user may invoke capability on this component.
func (o *Owned) IsAuthorized(user common.Address, capability Capability) bool {
	if o == nil {
		return false
	}
	if user == o.owner {
		return true
	}
	return o.authority != nil && o.authority.CanCall(user, o.address, capability)
}

// SetOwner transfers ownership.
func (o *Owned) SetOwner(caller, owner common.Address) error {
	if !o.IsAuthorized(caller, CapSetOwner) {
		return ErrUnauthorized
	}
	o.owner = owner
	return nil
}

// SetAuthority replaces the authority. The current authority may also approve
// the change through CapSetAuthority.
func (o *Owned) SetAuthority(caller common.Address, authority Authority) error {
	if !o.IsAuthorized(caller, CapSetAuthority) {
		return ErrUnauthorized
	}
	o.authority = authority
	return nil
}
