package permissions

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-id/aegis/internal/platform/db"
)

// Repository defines persistence operations for permissions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, in CreatePermission) (Permission, error)
	Get(ctx context.Context, id uuid.UUID) (Permission, error)
	List(ctx context.Context) ([]Permission, error)
	Update(ctx context.Context, id uuid.UUID, in UpdatePermission) (Permission, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBindings(ctx context.Context, id uuid.UUID) error
	GetIDByName(ctx context.Context, name string) (uuid.UUID, error)
	Count(ctx context.Context) (int64, error)
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

const permissionColumns = `id, name, description, created_at, updated_at`

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Permission{}, db.TranslateError(err)
	}
	return p, nil
}

// Create inserts a new permission.
func (r *repository) Create(ctx context.Context, in CreatePermission) (Permission, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO permissions (id, name, description) VALUES ($1, $2, $3) RETURNING `+permissionColumns,
		uuid.New(), in.Name, in.Description)
	return scanPermission(row)
}

// Get fetches a permission by ID.
func (r *repository) Get(ctx context.Context, id uuid.UUID) (Permission, error) {
	row := r.db.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id)
	return scanPermission(row)
}

// List returns all permissions ordered by name.
func (r *repository) List(ctx context.Context) ([]Permission, error) {
	rows, err := r.db.Query(ctx, `SELECT `+permissionColumns+` FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// Update applies the non-nil fields of in to an existing permission.
func (r *repository) Update(ctx context.Context, id uuid.UUID, in UpdatePermission) (Permission, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE permissions
		 SET name = COALESCE($2, name),
		     description = COALESCE($3, description),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+permissionColumns,
		id, in.Name, in.Description)
	return scanPermission(row)
}

// Delete removes a permission row.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return db.TranslateError(err)
	}
	if tag.RowsAffected() == 0 {
		return db.TranslateError(pgx.ErrNoRows)
	}
	return nil
}

// DeleteBindings removes all role bindings referencing the permission.
func (r *repository) DeleteBindings(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM role_permissions WHERE permission_id = $1`, id)
	return err
}

// GetIDByName resolves a permission name to its ID.
func (r *repository) GetIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	var id uuid.UUID
	if err := r.db.QueryRow(ctx, `SELECT id FROM permissions WHERE name = $1`, name).Scan(&id); err != nil {
		return uuid.Nil, db.TranslateError(err)
	}
	return id, nil
}

// Count returns the number of permissions in the catalog.
func (r *repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM permissions`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

var _ Repository = (*repository)(nil)
