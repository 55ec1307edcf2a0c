// Package session derives the signed-in identity from a backend-issued token.
//
// Decoding here extracts claims for display and navigation only. The signature is
// NOT verified: a role read from the token is a UX hint, never an access-control
// guarantee. The backend authorizes every privileged operation on its own, using
// the bearer token each request carries.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is one of the three roles known to the school backend.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleScolarite Role = "SCOLARITE"
	RoleStudent   Role = "STUDENT"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleAdmin, RoleScolarite, RoleStudent}

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Domain errors
var (
	ErrEmptyToken     = errors.New("token is empty")
	ErrMalformedToken = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")
	ErrMissingSubject = errors.New("token has no subject")
	ErrUnknownRole    = errors.New("unknown role")
)

// Identity is the subject and role information carried by a token.
// INVARIANT: only produced by Decode; never mutated afterwards
type Identity struct {
	SubjectID string
	Role      Role
	Email     string
	FirstName string
	LastName  string
	ExpiresAt time.Time // zero when the token has no exp claim
	claims    map[string]any
}

// Claim returns a raw claim value.
func (i Identity) Claim(name string) (any, bool) {
	v, ok := i.claims[name]
	return v, ok
}

// DisplayName returns "First Last" when known, else the email.
func (i Identity) DisplayName() string {
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name != "" {
		return name
	}
	return i.Email
}

// Session is the pair of token and decoded identity.
// INVARIANT: Identity is nil exactly when Token is empty
type Session struct {
	Token    string
	Identity *Identity
}

// IsZero reports whether there is no session.
func (s Session) IsZero() bool {
	return s.Token == "" && s.Identity == nil
}

// timeNow is a variable for testability.
var timeNow = time.Now

var parser = jwt.NewParser()

// Decode extracts the identity from a token without verifying its signature.
// PRE: none
// POST: returns the identity, or an error for empty, malformed, expired or role-less tokens
func Decode(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrEmptyToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	id := Identity{claims: make(map[string]any, len(claims))}
	for k, v := range claims {
		id.claims[k] = v
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return Identity{}, fmt.Errorf("%w: exp: %v", ErrMalformedToken, err)
	}
	if exp != nil {
		id.ExpiresAt = exp.Time
		if !timeNow().Before(exp.Time) {
			return Identity{}, ErrTokenExpired
		}
	}

	for _, key := range []string{"_id", "id", "sub"} {
		if s, ok := claims[key].(string); ok && s != "" {
			id.SubjectID = s
			break
		}
	}
	if id.SubjectID == "" {
		return Identity{}, ErrMissingSubject
	}

	rawRole, _ := claims["role"].(string)
	role, err := ParseRole(rawRole)
	if err != nil {
		return Identity{}, err
	}
	id.Role = role

	id.Email, _ = claims["email"].(string)
	id.FirstName, _ = claims["firstName"].(string)
	id.LastName, _ = claims["lastName"].(string)
	return id, nil
}

// LandingPath returns the screen a role lands on after login.
func LandingPath(role Role) string {
	switch role {
	case RoleAdmin:
		return "/admin"
	case RoleScolarite:
		return "/scolarite"
	default:
		return "/student"
	}
}
