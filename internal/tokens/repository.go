package tokens

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-id/aegis/internal/platform/db"
)

// Repository defines persistence operations for the token module.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	FindAccountByEmail(ctx context.Context, email string) (Account, error)
	FindAccountByID(ctx context.Context, id uuid.UUID) (Account, error)
	InsertRefresh(ctx context.Context, rec RefreshRecord) error
	RevokeRefresh(ctx context.Context, jti uuid.UUID) error
	ConsumeRefresh(ctx context.Context, jti uuid.UUID, at time.Time) (uuid.UUID, error)
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

// FindAccountByEmail fetches the credential view of a user by email.
func (r *repository) FindAccountByEmail(ctx context.Context, email string) (Account, error) {
	var a Account
	err := r.db.QueryRow(ctx,
		`SELECT id, role_id, password_hash, is_active FROM users WHERE email = $1`, email).
		Scan(&a.ID, &a.RoleID, &a.PasswordHash, &a.IsActive)
	if err != nil {
		return Account{}, db.TranslateError(err)
	}
	return a, nil
}

// FindAccountByID fetches the credential view of a user by ID.
func (r *repository) FindAccountByID(ctx context.Context, id uuid.UUID) (Account, error) {
	var a Account
	err := r.db.QueryRow(ctx,
		`SELECT id, role_id, password_hash, is_active FROM users WHERE id = $1`, id).
		Scan(&a.ID, &a.RoleID, &a.PasswordHash, &a.IsActive)
	if err != nil {
		return Account{}, db.TranslateError(err)
	}
	return a, nil
}

// InsertRefresh records a newly issued refresh credential.
func (r *repository) InsertRefresh(ctx context.Context, rec RefreshRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO refresh_tokens (jti, user_id, expires_at) VALUES ($1, $2, $3)`,
		rec.JTI, rec.UserID, rec.ExpiresAt)
	return db.TranslateError(err)
}

// RevokeRefresh marks a refresh credential revoked. Revoking an unknown
// jti is a no-op.
func (r *repository) RevokeRefresh(ctx context.Context, jti uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE jti = $1`, jti)
	return err
}

// ConsumeRefresh atomically revokes a live jti and returns its owner.
// The revocation happens in the same statement as the liveness check, so
// of two concurrent consumers exactly one gets the row; the other sees
// shared.ErrNotFound, same as an already-consumed or unknown jti.
func (r *repository) ConsumeRefresh(ctx context.Context, jti uuid.UUID, at time.Time) (uuid.UUID, error) {
	var userID uuid.UUID
	err := r.db.QueryRow(ctx,
		`UPDATE refresh_tokens
		 SET revoked = TRUE
		 WHERE jti = $1 AND NOT revoked AND expires_at > $2
		 RETURNING user_id`, jti, at).
		Scan(&userID)
	if err != nil {
		return uuid.Nil, db.TranslateError(err)
	}
	return userID, nil
}

var _ Repository = (*repository)(nil)
