package users

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-id/aegis/internal/platform/db"
)

// Repository defines persistence operations for the user directory.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Insert(ctx context.Context, user User) (User, error)
	Get(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateUser) (User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)

	GetWithRole(ctx context.Context, id uuid.UUID) (UserWithRole, error)
	SetRole(ctx context.Context, id, roleID uuid.UUID) error
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	RoleIDByName(ctx context.Context, name string) (uuid.UUID, error)
	RoleExists(ctx context.Context, id uuid.UUID) (bool, error)
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

const userColumns = `id, email, password_hash, first_name, last_name, is_active, role_id, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.IsActive, &u.RoleID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, db.TranslateError(err)
	}
	return u, nil
}

// Insert persists a new user row. The caller supplies role_id and the
// already-hashed password.
func (r *repository) Insert(ctx context.Context, user User) (User, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, role_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+userColumns,
		uuid.New(), user.Email, user.PasswordHash, user.FirstName, user.LastName, user.RoleID)
	return scanUser(row)
}

// Get fetches a user by ID.
func (r *repository) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail fetches a user by email.
func (r *repository) GetByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// List returns all users ordered by email.
func (r *repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
			&u.IsActive, &u.RoleID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Update applies the non-nil fields of in to an existing user.
func (r *repository) Update(ctx context.Context, id uuid.UUID, in UpdateUser) (User, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE users
		 SET email = COALESCE($2, email),
		     first_name = COALESCE($3, first_name),
		     last_name = COALESCE($4, last_name),
		     is_active = COALESCE($5, is_active),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, in.Email, in.FirstName, in.LastName, in.IsActive)
	return scanUser(row)
}

// Delete removes a user row.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return db.TranslateError(err)
	}
	if tag.RowsAffected() == 0 {
		return db.TranslateError(pgx.ErrNoRows)
	}
	return nil
}

// Count returns the number of users.
func (r *repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// GetWithRole fetches a user and its role in one joined read.
func (r *repository) GetWithRole(ctx context.Context, id uuid.UUID) (UserWithRole, error) {
	row := r.db.QueryRow(ctx,
		`SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name,
		        u.is_active, u.role_id, u.created_at, u.updated_at,
		        r.name, r.description
		 FROM users u
		 JOIN roles r ON r.id = u.role_id
		 WHERE u.id = $1`, id)
	var u UserWithRole
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.IsActive, &u.RoleID, &u.CreatedAt, &u.UpdatedAt,
		&u.RoleName, &u.RoleDescription)
	if err != nil {
		return UserWithRole{}, db.TranslateError(err)
	}
	return u, nil
}

// SetRole updates a user's role reference.
func (r *repository) SetRole(ctx context.Context, id, roleID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET role_id = $2, updated_at = now() WHERE id = $1`, id, roleID)
	if err != nil {
		return db.TranslateError(err)
	}
	if tag.RowsAffected() == 0 {
		return db.TranslateError(pgx.ErrNoRows)
	}
	return nil
}

// SetPasswordHash replaces a user's stored credential hash.
func (r *repository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.TranslateError(pgx.ErrNoRows)
	}
	return nil
}

// RoleIDByName resolves a role name to its ID.
func (r *repository) RoleIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	var id uuid.UUID
	if err := r.db.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, name).Scan(&id); err != nil {
		return uuid.Nil, db.TranslateError(err)
	}
	return id, nil
}

// RoleExists reports whether a role ID resolves to a role row.
func (r *repository) RoleExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

var _ Repository = (*repository)(nil)
