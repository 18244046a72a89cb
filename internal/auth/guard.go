package auth

import (
	"fmt"
	"strings"
)

// Guard enforces role membership on protected operations. Required roles
// are declared statically at registration time; an empty set means the
// operation only demands a valid token.
type Guard struct {
	tokens *TokenService
}

// NewGuard constructs a Guard.
func NewGuard(tokens *TokenService) (*Guard, error) {
	if tokens == nil {
		return nil, fmt.Errorf("auth: token service is required")
	}
	return &Guard{tokens: tokens}, nil
}

// Authorize verifies the bearer token and checks that its role belongs to
// the required set. Verification failure kinds are collapsed to
// ErrInvalidToken; the internal reason is wrapped for logging only.
func (g *Guard) Authorize(token string, required ...Role) (*AccessClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingCredentials
	}
	claims, err := g.tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if len(required) == 0 {
		return claims, nil
	}
	role := ParseRole(claims.Role)
	for _, r := range required {
		if role == r {
			return claims, nil
		}
	}
	return nil, fmt.Errorf("%w: role %q not in required set", ErrInsufficientRole, claims.Role)
}
