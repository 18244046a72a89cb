package auth

import (
	"errors"
	"fmt"
)

// Caller-facing failure taxonomy. Internal reasons are folded into the
// wrapped message for logging; the transport layer maps these sentinels to
// status codes and never exposes the detail.
var (
	ErrAuthenticationFailed = errors.New("auth: authentication failed")
	ErrRefreshFailed        = errors.New("auth: refresh failed")
	ErrLogoutFailed         = errors.New("auth: logout failed")
	ErrMissingCredentials   = errors.New("auth: missing credentials")
	ErrInsufficientRole     = errors.New("auth: insufficient role")

	ErrNotFound = errors.New("auth: not found")
)

// ErrInvalidToken indicates a token failed verification. The specific
// kinds below all wrap it, so errors.Is(err, ErrInvalidToken) matches any
// verification failure.
var ErrInvalidToken = errors.New("auth: invalid token")

var (
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrTokenSignature = fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)
)
