// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package auth

// Policy is the role and anonymity requirement declared for a protected
// operation. It is a closed variant: construct one with AnyAuthenticated,
// RolesIn, or AnonymousAllowed. The zero value behaves like
// AnyAuthenticated.
type Policy struct {
	allowAnonymous bool
	roles          []Role
}

// AnyAuthenticated requires an authenticated principal of any role.
func AnyAuthenticated() Policy {
	return Policy{}
}

// RolesIn requires an authenticated principal whose role is in the set.
func RolesIn(roles ...Role) Policy {
	return Policy{roles: roles}
}

// AnonymousAllowed makes authentication optional: unauthenticated calls
// proceed with a nil principal, and no role restriction applies.
func AnonymousAllowed() Policy {
	return Policy{allowAnonymous: true}
}

// AllowsAnonymous reports whether a missing or invalid credential is
// tolerable under this policy.
func (p Policy) AllowsAnonymous() bool {
	return p.allowAnonymous
}

// permits reports whether a principal with the given presence and role
// satisfies the policy's role requirement.
func (p Policy) permits(user *User) bool {
	if len(p.roles) == 0 {
		return true
	}
	if user == nil {
		return false
	}
	for _, r := range p.roles {
		if user.Role == r {
			return true
		}
	}
	return false
}
