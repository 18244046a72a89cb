package auth

import (
	"context"
	"database/sql"
	"fmt"
)

var _ Directory = (*PGDirectory)(nil)

// PGDirectory implements Directory against the platform's PostgreSQL
// schema: users carry a company role, which links to named permissions.
type PGDirectory struct {
	db *sql.DB
}

// NewPGDirectory constructs a PGDirectory over an open connection pool.
func NewPGDirectory(db *sql.DB) *PGDirectory {
	return &PGDirectory{db: db}
}

const identityColumns = `
	select u.id, u.email, u.password_hash,
	       coalesce(cr.base_role, ''), coalesce(u.refresh_token_hash, ''),
	       cr.id
	from users u
	left join company_roles cr on cr.id = u.company_role_id
`

func (d *PGDirectory) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	row := d.db.QueryRowContext(ctx, identityColumns+` where u.email = $1`, email)
	return d.scanIdentity(ctx, row)
}

func (d *PGDirectory) FindByID(ctx context.Context, id string) (*Identity, error) {
	row := d.db.QueryRowContext(ctx, identityColumns+` where u.id = $1`, id)
	return d.scanIdentity(ctx, row)
}

func (d *PGDirectory) UpdateRefreshHash(ctx context.Context, id, hash string) error {
	res, err := d.db.ExecContext(ctx,
		`update users set refresh_token_hash = nullif($2, ''), updated_at = now() where id = $1`,
		id, hash,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return nil
}

func (d *PGDirectory) scanIdentity(ctx context.Context, row *sql.Row) (*Identity, error) {
	var (
		identity Identity
		rawRole  string
		roleID   sql.NullString
	)
	if err := row.Scan(&identity.ID, &identity.Email, &identity.PasswordHash, &rawRole, &identity.RefreshTokenHash, &roleID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	identity.Role = ParseRole(rawRole)
	if roleID.Valid {
		perms, err := d.permissionsForRole(ctx, roleID.String)
		if err != nil {
			return nil, err
		}
		identity.Permissions = perms
	}
	return &identity, nil
}

func (d *PGDirectory) permissionsForRole(ctx context.Context, roleID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		select distinct p.name
		from company_role_permissions crp
		join permissions p on p.id = crp.permission_id
		where crp.role_id = $1
		order by p.name
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		perms = append(perms, name)
	}
	return perms, rows.Err()
}
