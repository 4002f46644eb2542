package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles recognised by the access policy.
type UserRole string

const (
	RoleStudent   UserRole = "student"
	RoleProfessor UserRole = "professor"
)

// Valid reports whether the role is one the service understands.
func (r UserRole) Valid() bool {
	return r == RoleStudent || r == RoleProfessor
}

// Principal is the authenticated caller resolved by the identity provider.
type Principal struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}

// Authenticated reports whether the principal carries an identity and a known role.
func (p Principal) Authenticated() bool {
	return p.ID != "" && p.Role.Valid()
}

// JWTClaims represents the JWT payload issued by the identity provider.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into the principal passed to services.
func (c *JWTClaims) Principal() Principal {
	if c == nil {
		return Principal{}
	}
	id := c.UserID
	if id == "" {
		id = c.Subject
	}
	return Principal{ID: id, Role: c.Role}
}
