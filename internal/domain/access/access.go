// Package access decides whether an identity may enter a screen.
//
// The decision is a navigation gate for the browser only. The backend still
// authorizes every request it receives from this frontend.
package access

import (
	"strings"

	"scolarite/internal/domain/session"
)

// RoleSet is a set of roles allowed on a screen. An empty set marks a public screen.
type RoleSet map[session.Role]struct{}

// Roles builds a RoleSet.
func Roles(roles ...session.Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Has reports whether r is in the set.
func (s RoleSet) Has(r session.Role) bool {
	_, ok := s[r]
	return ok
}

// Public reports whether the set places no restriction.
func (s RoleSet) Public() bool {
	return len(s) == 0
}

// Decision is the outcome of an access check.
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	Unauthorized
)

// String returns the decision name for logs.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// CanAccess reports whether identity may enter a screen restricted to allowed.
// PRE: none
// POST: true for public screens, or when identity is present and its role is allowed
func CanAccess(identity *session.Identity, allowed RoleSet) bool {
	return Decide(identity, allowed) == Allow
}

// Decide returns the navigation outcome for identity on a screen restricted to allowed.
// PRE: none
// POST: RedirectLogin when identity is absent on a restricted screen,
// Unauthorized when the role is not allowed, Allow otherwise
func Decide(identity *session.Identity, allowed RoleSet) Decision {
	if allowed.Public() {
		return Allow
	}
	if identity == nil {
		return RedirectLogin
	}
	if !allowed.Has(identity.Role) {
		return Unauthorized
	}
	return Allow
}

// Route pairs a path prefix with the roles allowed on it.
type Route struct {
	Prefix  string
	Allowed RoleSet
}

var staff = []session.Role{session.RoleAdmin, session.RoleScolarite}

// Routes is the screen table. Longer prefixes are listed first.
var Routes = []Route{
	{Prefix: "/admin", Allowed: Roles(session.RoleAdmin)},
	{Prefix: "/scolarite", Allowed: Roles(session.RoleScolarite)},
	{Prefix: "/courses", Allowed: Roles(staff...)},
	{Prefix: "/notes", Allowed: Roles(staff...)},
	{Prefix: "/stats", Allowed: Roles(staff...)},
	{Prefix: "/student", Allowed: Roles(session.RoleStudent)},
	{Prefix: "/contact", Allowed: Roles(session.Roles...)},
}

// AllowedFor returns the role set for a request path.
// Paths outside the table are public.
func AllowedFor(path string) RoleSet {
	for _, r := range Routes {
		if path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/") {
			return r.Allowed
		}
	}
	return nil
}
