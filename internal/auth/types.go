package auth

import (
	"strings"
	"time"
)

// Role is the coarse authorization category assigned to an identity.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleUser         Role = "user"
	RoleCollaborator Role = "collaborator"
	RoleHR           Role = "hr"
	RoleManager      Role = "manager"
)

var knownRoles = map[Role]struct{}{
	RoleAdmin:        {},
	RoleUser:         {},
	RoleCollaborator: {},
	RoleHR:           {},
	RoleManager:      {},
}

// ParseRole normalizes a raw role name. Unknown names are returned as-is so
// the guard can still compare them against required sets.
func ParseRole(raw string) Role {
	return Role(strings.TrimSpace(strings.ToLower(raw)))
}

// Valid reports whether the role belongs to the platform's fixed role set.
func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

func (r Role) String() string { return string(r) }

// Identity is the directory record the session core operates on. The
// directory owns every field; the core mutates only RefreshTokenHash.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	Permissions  []string

	// RefreshTokenHash holds the hash of the currently valid refresh token,
	// or "" when the identity is logged out.
	RefreshTokenHash string
}

// TokenPair carries freshly issued access and refresh tokens along with
// their expirations.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}
