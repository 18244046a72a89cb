package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// SessionService orchestrates login, refresh-token rotation and logout
// against the user directory. It holds no mutable state of its own; the
// single durable session artifact is the per-identity refresh token hash.
type SessionService struct {
	dir    Directory
	tokens *TokenService
}

// NewSessionService constructs a SessionService.
func NewSessionService(dir Directory, tokens *TokenService) (*SessionService, error) {
	if dir == nil {
		return nil, fmt.Errorf("auth: directory is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("auth: token service is required")
	}
	return &SessionService{dir: dir, tokens: tokens}, nil
}

// Login validates credentials and issues a fresh token pair. The new
// refresh token hash is persisted before the pair is returned; if
// persistence fails no token is handed out. Every failure collapses to
// ErrAuthenticationFailed for the caller, with the internal reason wrapped
// for logging only.
func (s *SessionService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return TokenPair{}, fmt.Errorf("%w: empty credentials", ErrAuthenticationFailed)
	}
	identity, err := s.dir.FindByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: lookup: %v", ErrAuthenticationFailed, err)
	}
	if err := VerifyPassword(identity.PasswordHash, password); err != nil {
		return TokenPair{}, fmt.Errorf("%w: password mismatch", ErrAuthenticationFailed)
	}
	pair, err := s.mint(ctx, identity)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	return pair, nil
}

// Refresh rotates the refresh token: the presented token must verify
// against the refresh secret, be unexpired and match the currently stored
// hash. A superseded or foreign token fails. On success a new pair is
// issued and the stored hash overwritten, immediately invalidating the old
// token. All failures collapse to ErrRefreshFailed.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	identity, err := s.dir.FindByID(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: lookup: %v", ErrRefreshFailed, err)
	}
	if identity.RefreshTokenHash == "" {
		return TokenPair{}, fmt.Errorf("%w: no active session", ErrRefreshFailed)
	}
	if !matchRefreshHash(identity.RefreshTokenHash, refreshToken) {
		return TokenPair{}, fmt.Errorf("%w: superseded token", ErrRefreshFailed)
	}
	pair, err := s.mint(ctx, identity)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	return pair, nil
}

// Logout clears the identity's stored refresh hash. It is idempotent:
// logging out an already logged-out subject succeeds. Only a persistence
// failure (including an unknown subject) yields ErrLogoutFailed.
func (s *SessionService) Logout(ctx context.Context, subjectID string) error {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return fmt.Errorf("%w: empty subject", ErrLogoutFailed)
	}
	if err := s.dir.UpdateRefreshHash(ctx, subjectID, ""); err != nil {
		return fmt.Errorf("%w: %v", ErrLogoutFailed, err)
	}
	return nil
}

// AccessTTL exposes the configured access token lifetime for callers that
// surface expirations.
func (s *SessionService) AccessTTL() time.Duration { return s.tokens.accessTTL }

func (s *SessionService) mint(ctx context.Context, identity *Identity) (TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccessToken(identity.ID, identity.Role, identity.Permissions)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.tokens.IssueRefreshToken(identity.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.dir.UpdateRefreshHash(ctx, identity.ID, HashRefreshToken(refresh)); err != nil {
		return TokenPair{}, fmt.Errorf("persist refresh hash: %v", err)
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// HashRefreshToken derives the stored fingerprint of a refresh token.
// SHA-256 keeps the comparison constant-time friendly and avoids bcrypt's
// 72-byte input truncation on long JWT strings.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func matchRefreshHash(storedHash, token string) bool {
	actual := HashRefreshToken(token)
	if len(storedHash) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(actual)) == 1
}
