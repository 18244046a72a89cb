package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T, opts ...TokenOption) *TokenService {
	t.Helper()
	svc, err := NewTokenService("access-secret", "refresh-secret", opts...)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func TestNewTokenServiceRequiresDistinctSecrets(t *testing.T) {
	if _, err := NewTokenService("", "refresh"); err == nil {
		t.Fatal("expected error for empty access secret")
	}
	if _, err := NewTokenService("access", ""); err == nil {
		t.Fatal("expected error for empty refresh secret")
	}
	if _, err := NewTokenService("same", "same"); err == nil {
		t.Fatal("expected error for identical secrets")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t)

	token, exp, err := svc.IssueAccessToken("u1", RoleHR, []string{"manage_users", "view_timesheet"})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", exp)
	}

	claims, err := svc.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if claims.Subject != "u1" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Role != "hr" {
		t.Fatalf("unexpected role: %s", claims.Role)
	}
	if len(claims.Permissions) != 2 || claims.Permissions[0] != "manage_users" {
		t.Fatalf("permissions not preserved: %v", claims.Permissions)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t)

	token, _, err := svc.IssueRefreshToken("u1")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	claims, err := svc.VerifyRefreshToken(token)
	if err != nil {
		t.Fatalf("VerifyRefreshToken: %v", err)
	}
	if claims.Subject != "u1" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
}

func TestTokensUseDistinctSecrets(t *testing.T) {
	svc := newTestTokenService(t)

	access, _, err := svc.IssueAccessToken("u1", RoleUser, nil)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	refresh, _, err := svc.IssueRefreshToken("u1")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	if _, err := svc.VerifyRefreshToken(access); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("access token accepted by refresh verifier: %v", err)
	}
	if _, err := svc.VerifyAccessToken(refresh); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("refresh token accepted by access verifier: %v", err)
	}
}

func TestForeignSecretRejected(t *testing.T) {
	svc := newTestTokenService(t)
	foreign, err := NewTokenService("other-access", "other-refresh")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _, err := foreign.IssueAccessToken("u1", RoleAdmin, nil)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	_, err = svc.VerifyAccessToken(token)
	if !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected signature failure, got %v", err)
	}
	if errors.Is(err, ErrTokenExpired) {
		t.Fatal("signature failure misclassified as expiry")
	}
}

func TestExpiredTokensRejected(t *testing.T) {
	current := time.Now().UTC()
	svc := newTestTokenService(t, WithClock(func() time.Time { return current }))

	access, _, err := svc.IssueAccessToken("u1", RoleUser, nil)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	refresh, _, err := svc.IssueRefreshToken("u1")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	current = current.Add(31 * time.Minute)
	if _, err := svc.VerifyAccessToken(access); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired access token, got %v", err)
	}
	if _, err := svc.VerifyRefreshToken(refresh); err != nil {
		t.Fatalf("refresh token should still be valid after 31m: %v", err)
	}

	current = current.Add(24 * time.Hour)
	if _, err := svc.VerifyRefreshToken(refresh); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired refresh token, got %v", err)
	}
}

func TestMalformedTokenRejected(t *testing.T) {
	svc := newTestTokenService(t)

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := svc.VerifyAccessToken(raw); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("VerifyAccessToken(%q): expected malformed, got %v", raw, err)
		}
	}
}

func TestVerificationFailuresWrapInvalidToken(t *testing.T) {
	for _, err := range []error{ErrTokenMalformed, ErrTokenSignature, ErrTokenExpired} {
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%v does not wrap ErrInvalidToken", err)
		}
	}
}
