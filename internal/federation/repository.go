package federation

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-id/aegis/internal/platform/db"
)

// Repository maps external provider subjects to local user IDs.
type Repository interface {
	FindUserID(ctx context.Context, provider, subject string) (uuid.UUID, error)
	Link(ctx context.Context, provider, subject string, userID uuid.UUID) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// FindUserID resolves a federated identity to a local user.
func (r *repository) FindUserID(ctx context.Context, provider, subject string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT user_id FROM federated_identities WHERE provider = $1 AND subject = $2`,
		provider, subject).Scan(&id)
	if err != nil {
		return uuid.Nil, db.TranslateError(err)
	}
	return id, nil
}

// Link records a provider subject → local user mapping.
func (r *repository) Link(ctx context.Context, provider, subject string, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO federated_identities (provider, subject, user_id) VALUES ($1, $2, $3)`,
		provider, subject, userID)
	return db.TranslateError(err)
}

var _ Repository = (*repository)(nil)
