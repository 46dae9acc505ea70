package permissions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aegis-id/aegis/internal/shared"
)

// Service handles permission catalog business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create inserts a new permission. Fails with shared.ErrConflict when the
// name is already taken.
func (s *Service) Create(ctx context.Context, in CreatePermission) (Permission, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Permission{}, fmt.Errorf("%w: permission name required", shared.ErrInvalid)
	}
	in.Description = strings.TrimSpace(in.Description)
	return s.repo.Create(ctx, in)
}

// Get fetches a permission by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Permission, error) {
	return s.repo.Get(ctx, id)
}

// List returns all permissions.
func (s *Service) List(ctx context.Context) ([]Permission, error) {
	return s.repo.List(ctx)
}

// Update applies a partial update. Absent fields are left untouched.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdatePermission) (Permission, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		if trimmed == "" {
			return Permission{}, fmt.Errorf("%w: permission name required", shared.ErrInvalid)
		}
		in.Name = &trimmed
	}
	return s.repo.Update(ctx, id, in)
}

// Delete removes the permission and its role bindings in one transaction.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.DeleteBindings(ctx, id); err != nil {
			return err
		}
		return tx.Delete(ctx, id)
	})
}

// GetIDByName resolves a permission name to its ID.
func (s *Service) GetIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	return s.repo.GetIDByName(ctx, name)
}

// Count returns the catalog size.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
