package auth

import "context"

// Directory is the user-directory collaborator consumed by the session
// core. Role and permission names arrive pre-resolved on the Identity; the
// core never recomputes them.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByID(ctx context.Context, id string) (*Identity, error)

	// UpdateRefreshHash persists the hash of the currently valid refresh
	// token for the identity. An empty hash clears the stored value,
	// ending the session.
	UpdateRefreshHash(ctx context.Context, id, hash string) error
}
