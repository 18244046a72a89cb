package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"workstay.org/internal/auth"
)

// memDirectory is an in-memory user directory for handler tests.
type memDirectory struct {
	mu   sync.Mutex
	byID map[string]*auth.Identity
}

func newMemDirectory(identities ...*auth.Identity) *memDirectory {
	d := &memDirectory{byID: make(map[string]*auth.Identity)}
	for _, id := range identities {
		copied := *id
		d.byID[id.ID] = &copied
	}
	return d
}

func (d *memDirectory) FindByEmail(_ context.Context, email string) (*auth.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range d.byID {
		if id.Email == email {
			copied := *id
			return &copied, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (d *memDirectory) FindByID(_ context.Context, id string) (*auth.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	identity, ok := d.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	copied := *identity
	return &copied, nil
}

func (d *memDirectory) UpdateRefreshHash(_ context.Context, id, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	identity, ok := d.byID[id]
	if !ok {
		return fmt.Errorf("%w: user %s", auth.ErrNotFound, id)
	}
	identity.RefreshTokenHash = hash
	return nil
}

type testEnv struct {
	api     *API
	handler http.Handler
	tokens  *auth.TokenService
}

func newTestAPI(t *testing.T) *testEnv {
	t.Helper()

	hash, err := auth.HashPassword("pw1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	dir := newMemDirectory(&auth.Identity{
		ID:           "u1",
		Email:        "a@b.com",
		PasswordHash: hash,
		Role:         auth.RoleManager,
		Permissions:  []string{"manage_users"},
	})

	tokens, err := auth.NewTokenService("test-access-secret", "test-refresh-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	sessions, err := auth.NewSessionService(dir, tokens)
	if err != nil {
		t.Fatalf("NewSessionService: %v", err)
	}
	guard, err := auth.NewGuard(tokens)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	api := New(sessions, guard, ReadyProbe{}, "test")
	return &testEnv{api: api, handler: api.Handler(), tokens: tokens}
}

func (e *testEnv) post(t *testing.T, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) login(t *testing.T) auth.TokenPair {
	t.Helper()
	rr := e.post(t, "/v1/auth/login", map[string]string{"email": "a@b.com", "password": "pw1"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	var pair auth.TokenPair
	if err := json.Unmarshal(rr.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode pair: %v", err)
	}
	return pair
}

func TestLoginSuccess(t *testing.T) {
	env := newTestAPI(t)

	pair := env.login(t)
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens in response")
	}

	claims, err := env.tokens.VerifyAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if claims.Role != "manager" {
		t.Fatalf("unexpected role claim: %s", claims.Role)
	}
}

func TestLoginFailureIsGeneric(t *testing.T) {
	env := newTestAPI(t)

	for name, creds := range map[string]map[string]string{
		"unknown email":  {"email": "nobody@b.com", "password": "pw1"},
		"wrong password": {"email": "a@b.com", "password": "nope"},
	} {
		rr := env.post(t, "/v1/auth/login", creds, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rr.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode body: %v", name, err)
		}
		// Account existence must not leak.
		if body["error"] != "authentication failed" {
			t.Fatalf("%s: unexpected error body: %v", name, body["error"])
		}
	}
}

func TestLoginRejectsBadRequests(t *testing.T) {
	env := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/login", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	rr = env.post(t, "/v1/auth/login", nil, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", rr.Code)
	}
}

func TestRefreshRotationOverHTTP(t *testing.T) {
	env := newTestAPI(t)
	first := env.login(t)

	rr := env.post(t, "/v1/auth/refresh", map[string]string{"refresh_token": first.RefreshToken}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	var second auth.TokenPair
	if err := json.Unmarshal(rr.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode pair: %v", err)
	}

	// The superseded token is rejected with the generic failure.
	rr = env.post(t, "/v1/auth/refresh", map[string]string{"refresh_token": first.RefreshToken}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("superseded refresh: expected 401, got %d", rr.Code)
	}

	rr = env.post(t, "/v1/auth/refresh", map[string]string{"refresh_token": second.RefreshToken}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("rotated refresh: expected 200, got %d", rr.Code)
	}
}

func TestLogoutInvalidatesRefreshToken(t *testing.T) {
	env := newTestAPI(t)
	pair := env.login(t)

	rr := env.post(t, "/v1/auth/logout", nil, map[string]string{
		"Authorization": "Bearer " + pair.AccessToken,
		"Content-Type":  "application/json",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}

	rr = env.post(t, "/v1/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", rr.Code)
	}

	// Logout is idempotent while the access token remains valid.
	rr = env.post(t, "/v1/auth/logout", nil, map[string]string{
		"Authorization": "Bearer " + pair.AccessToken,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("repeated logout: expected 200, got %d", rr.Code)
	}
}

func TestLogoutRequiresToken(t *testing.T) {
	env := newTestAPI(t)

	rr := env.post(t, "/v1/auth/logout", nil, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("expected WWW-Authenticate header")
	}
}

func TestSessionEndpoint(t *testing.T) {
	env := newTestAPI(t)
	pair := env.login(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("session: expected 200, got %d", rr.Code)
	}

	var resp sessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if resp.Subject != "u1" || resp.Role != "manager" {
		t.Fatalf("unexpected session payload: %+v", resp)
	}
	if len(resp.Permissions) != 1 || resp.Permissions[0] != "manage_users" {
		t.Fatalf("permissions not surfaced: %v", resp.Permissions)
	}

	// Tampered token is rejected uniformly.
	req = httptest.NewRequest(http.MethodGet, "/v1/session", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken+"x")
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("tampered token: expected 401, got %d", rr.Code)
	}
}
