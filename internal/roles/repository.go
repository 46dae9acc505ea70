package roles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-id/aegis/internal/platform/db"
	"github.com/aegis-id/aegis/internal/shared"
)

// Repository defines persistence operations for roles and their
// permission bindings.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, in CreateRole) (Role, error)
	Get(ctx context.Context, id uuid.UUID) (Role, error)
	List(ctx context.Context) ([]Role, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateRole) (Role, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBindings(ctx context.Context, id uuid.UUID) error
	GetIDByName(ctx context.Context, name string) (uuid.UUID, error)
	Count(ctx context.Context) (int64, error)

	GetWithPermissions(ctx context.Context, id uuid.UUID) (RoleWithPermissions, error)
	ResolvePermissions(ctx context.Context, id uuid.UUID) ([]string, error)
	Bind(ctx context.Context, roleID, permissionID uuid.UUID) error
	Unbind(ctx context.Context, roleID, permissionID uuid.UUID) error
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

// WithTx runs fn against a transaction-scoped repository.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const roleColumns = `id, name, description, created_at, updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, db.TranslateError(err)
	}
	return role, nil
}

// Create inserts a new role.
func (r *repository) Create(ctx context.Context, in CreateRole) (Role, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO roles (id, name, description) VALUES ($1, $2, $3) RETURNING `+roleColumns,
		uuid.New(), in.Name, in.Description)
	return scanRole(row)
}

// Get fetches a role by ID.
func (r *repository) Get(ctx context.Context, id uuid.UUID) (Role, error) {
	return scanRole(r.db.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
}

// List returns all roles ordered by name.
func (r *repository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.db.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Update applies the non-nil fields of in to an existing role.
func (r *repository) Update(ctx context.Context, id uuid.UUID, in UpdateRole) (Role, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE roles
		 SET name = COALESCE($2, name),
		     description = COALESCE($3, description),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+roleColumns,
		id, in.Name, in.Description)
	return scanRole(row)
}

// Delete removes a role row. A role still referenced by users fails with
// shared.ErrConflict; callers reassign those users first.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return shared.ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.TranslateError(pgx.ErrNoRows)
	}
	return nil
}

// DeleteBindings removes all permission bindings of the role.
func (r *repository) DeleteBindings(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id)
	return err
}

// GetIDByName resolves a role name to its ID.
func (r *repository) GetIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	var id uuid.UUID
	if err := r.db.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, name).Scan(&id); err != nil {
		return uuid.Nil, db.TranslateError(err)
	}
	return id, nil
}

// Count returns the number of roles.
func (r *repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM roles`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// GetWithPermissions fetches a role and its full permission set in one
// joined read. The LEFT JOIN keeps a role with no bindings visible; a
// missing role surfaces as shared.ErrNotFound.
func (r *repository) GetWithPermissions(ctx context.Context, id uuid.UUID) (RoleWithPermissions, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.id, r.name, r.description, r.created_at, r.updated_at,
		        p.id, p.name, p.description
		 FROM roles r
		 LEFT JOIN role_permissions rp ON rp.role_id = r.id
		 LEFT JOIN permissions p ON p.id = rp.permission_id
		 WHERE r.id = $1
		 ORDER BY p.name`, id)
	if err != nil {
		return RoleWithPermissions{}, err
	}
	defer rows.Close()
	var result RoleWithPermissions
	found := false
	for rows.Next() {
		var permID *uuid.UUID
		var permName, permDescription *string
		err := rows.Scan(&result.ID, &result.Name, &result.Description,
			&result.CreatedAt, &result.UpdatedAt, &permID, &permName, &permDescription)
		if err != nil {
			return RoleWithPermissions{}, err
		}
		found = true
		if permID != nil {
			result.Permissions = append(result.Permissions, BoundPermission{
				ID:          *permID,
				Name:        *permName,
				Description: *permDescription,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return RoleWithPermissions{}, err
	}
	if !found {
		return RoleWithPermissions{}, shared.ErrNotFound
	}
	return result, nil
}

// ResolvePermissions returns the deduplicated permission names reachable
// from the role.
func (r *repository) ResolvePermissions(ctx context.Context, id uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT p.name
		 FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 WHERE rp.role_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Bind attaches a permission to a role.
func (r *repository) Bind(ctx context.Context, roleID, permissionID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
		roleID, permissionID)
	return db.TranslateError(err)
}

// Unbind detaches a permission from a role. Unbinding an absent pair is
// a no-op.
func (r *repository) Unbind(ctx context.Context, roleID, permissionID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
		roleID, permissionID)
	return err
}

var _ Repository = (*repository)(nil)
