package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"workstay.org/internal/audit"
	"workstay.org/internal/auth"
	"workstay.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	Subject     string   `json:"subject"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	ExpiresAt   int64    `json:"expires_at"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := a.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.ObserveAuth("login", "failure")
		_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
			"email":  strings.TrimSpace(req.Email),
			"result": "failure",
			"reason": err.Error(),
		})
		// Unknown email and wrong password surface identically.
		writeError(w, r, http.StatusUnauthorized, "authentication failed")
		return
	}

	obs.ObserveAuth("login", "success")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"email":  strings.TrimSpace(req.Email),
		"result": "success",
	})
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := a.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		obs.ObserveAuth("refresh", "failure")
		_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
			"result": "failure",
			"reason": err.Error(),
		})
		writeError(w, r, http.StatusUnauthorized, "refresh failed")
		return
	}

	obs.ObserveAuth("refresh", "success")
	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"result": "success",
	})
	writeJSON(w, http.StatusOK, pair)
}

// handleLogout runs behind the guard: the subject comes from the verified
// access token, never from caller-supplied input.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing credentials")
		return
	}

	if err := a.sessions.Logout(r.Context(), subject); err != nil {
		obs.ObserveAuth("logout", "failure")
		_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
			"result": "failure",
			"reason": err.Error(),
		})
		if errors.Is(err, auth.ErrLogoutFailed) {
			writeError(w, r, http.StatusUnauthorized, "logout failed")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	obs.ObserveAuth("logout", "success")
	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
		"result": "success",
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "logged_out",
	})
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing credentials")
		return
	}

	resp := sessionResponse{
		Subject:     claims.Subject,
		Role:        claims.Role,
		Permissions: claims.Permissions,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Unix()
	}
	writeJSON(w, http.StatusOK, resp)
}
