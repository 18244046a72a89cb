package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"workstay.org/internal/audit"
	"workstay.org/internal/auth"
	"workstay.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// requireRoles builds route middleware enforcing the guard with a
// statically declared role set. Verified claims are attached to the
// request context for the wrapped handler.
func (a *API) requireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _ := extractBearerToken(r.Header.Get(authHeader))

			claims, err := a.guard.Authorize(token, roles...)
			if err != nil {
				a.rejectRequest(w, r, err)
				return
			}

			ctx := auth.ContextWithClaims(r.Context(), claims)
			ctx = auth.ContextWithToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// rejectRequest maps guard failures to status codes. The specific
// verification failure stays in the audit log only.
func (a *API) rejectRequest(w http.ResponseWriter, r *http.Request, err error) {
	obs.ObserveAuth("authorize", "denied")
	_ = audit.LogEvent(r.Context(), "auth.denied", map[string]any{
		"path":   r.URL.Path,
		"reason": err.Error(),
	})
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		w.Header().Set("WWW-Authenticate", `Bearer realm="workstay"`)
		writeError(w, r, http.StatusUnauthorized, "missing credentials")
	case errors.Is(err, auth.ErrInsufficientRole):
		writeError(w, r, http.StatusForbidden, "insufficient role")
	default:
		w.Header().Set("WWW-Authenticate", `Bearer realm="workstay", error="invalid_token"`)
		writeError(w, r, http.StatusUnauthorized, "invalid token")
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
