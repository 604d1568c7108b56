// Package auth maps identity-provider tokens onto the relay's principal and
// role model. Token issuance and key management live in the external
// identity provider; this package only verifies and translates.
package auth

// Role is a capability granted by the identity provider. Realm role strings
// the relay does not recognize are carried through opaque so they survive a
// round trip.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleHost  Role = "host"
	RoleUser  Role = "user"
)

// Realm role strings as issued by the identity provider.
const (
	scopeWrite = "reactive-rooms:scope:write"
	scopeHost  = "reactive-rooms:scope:host"
	scopeUser  = "reactive-rooms:scope:user"
)

// RoleFromClaim translates a realm role string into a Role.
func RoleFromClaim(s string) Role {
	switch s {
	case scopeWrite:
		return RoleAdmin
	case scopeHost:
		return RoleHost
	case scopeUser:
		return RoleUser
	default:
		return Role(s)
	}
}

// Principal is the authenticated caller attached to each request by the
// middleware. The core never mints principals.
type Principal struct {
	Subject string
	Roles   []Role
}

// HasRole reports whether the principal satisfies the required role.
// Admin implicitly satisfies every role check.
func (p Principal) HasRole(required Role) bool {
	for _, r := range p.Roles {
		if r == required || r == RoleAdmin {
			return true
		}
	}
	return false
}
