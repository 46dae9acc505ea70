package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aegis-id/aegis/internal/shared"
)

// Service handles role registry business logic, including permission
// bindings.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create inserts a new role. Fails with shared.ErrConflict when the name
// is already taken.
func (s *Service) Create(ctx context.Context, in CreateRole) (Role, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrInvalid)
	}
	in.Description = strings.TrimSpace(in.Description)
	return s.repo.Create(ctx, in)
}

// Get fetches a role by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Role, error) {
	return s.repo.Get(ctx, id)
}

// List returns all roles.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Update applies a partial update. Absent fields are left untouched.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateRole) (Role, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		if trimmed == "" {
			return Role{}, fmt.Errorf("%w: role name required", shared.ErrInvalid)
		}
		in.Name = &trimmed
	}
	return s.repo.Update(ctx, id, in)
}

// Delete removes the role and its permission bindings in one transaction.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.DeleteBindings(ctx, id); err != nil {
			return err
		}
		return tx.Delete(ctx, id)
	})
}

// GetIDByName resolves a role name to its ID.
func (s *Service) GetIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	return s.repo.GetIDByName(ctx, name)
}

// Count returns the number of roles.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// GetWithPermissions returns a role with its resolved permission set.
func (s *Service) GetWithPermissions(ctx context.Context, id uuid.UUID) (RoleWithPermissions, error) {
	return s.repo.GetWithPermissions(ctx, id)
}

// ResolvePermissions returns the effective permission names of a role.
// This is the primitive every access check ultimately calls.
func (s *Service) ResolvePermissions(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	return s.repo.ResolvePermissions(ctx, roleID)
}

// Bind attaches a permission to a role. Fails with shared.ErrConflict if
// the pair exists and shared.ErrNotFound if either side is missing.
func (s *Service) Bind(ctx context.Context, roleID, permissionID uuid.UUID) error {
	return s.repo.Bind(ctx, roleID, permissionID)
}

// Unbind detaches a permission from a role. Idempotent.
func (s *Service) Unbind(ctx context.Context, roleID, permissionID uuid.UUID) error {
	return s.repo.Unbind(ctx, roleID, permissionID)
}
