package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aegis-id/aegis/internal/shared"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// TranslateError maps low-level postgres errors onto the shared taxonomy.
// Unique violations become ErrConflict, broken references ErrNotFound.
// Anything else passes through untouched.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return shared.ErrConflict
		case codeForeignKeyViolation:
			return shared.ErrNotFound
		}
	}
	return err
}
