// Package startup seeds the invariants the rest of the service assumes:
// the default role every new user receives, the core permission catalog,
// and an administrative account. It runs before the listener accepts
// traffic; any failure here is fatal.
package startup

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"github.com/google/uuid"

	"github.com/aegis-id/aegis/internal/permissions"
	"github.com/aegis-id/aegis/internal/roles"
	"github.com/aegis-id/aegis/internal/shared"
	"github.com/aegis-id/aegis/internal/users"
)

// Params groups the configuration the seeding pass needs.
type Params struct {
	DefaultRoleName string
	AdminRoleName   string
	AdminEmail      string
	AdminPassword   string
}

// Service performs the bootstrap seeding pass.
type Service struct {
	logger      *slog.Logger
	permissions *permissions.Service
	roles       *roles.Service
	users       *users.Service
	params      Params
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, perms *permissions.Service, roles *roles.Service, users *users.Service, params Params) *Service {
	return &Service{
		logger:      logger,
		permissions: perms,
		roles:       roles,
		users:       users,
		params:      params,
	}
}

// Run executes the full seeding pass. Every step is idempotent so
// restarting the process against a seeded store is a no-op.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureDefaultRole(ctx); err != nil {
		return fmt.Errorf("startup: default role: %w", err)
	}
	adminRoleID, err := s.ensureAdminRole(ctx)
	if err != nil {
		return fmt.Errorf("startup: admin role: %w", err)
	}
	if err := s.ensureAdminUser(ctx, adminRoleID); err != nil {
		return fmt.Errorf("startup: admin user: %w", err)
	}
	return nil
}

func (s *Service) ensureDefaultRole(ctx context.Context) error {
	_, err := s.roles.GetIDByName(ctx, s.params.DefaultRoleName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	_, err = s.roles.Create(ctx, roles.CreateRole{
		Name:        s.params.DefaultRoleName,
		Description: "Default role with no permissions",
	})
	if errors.Is(err, shared.ErrConflict) {
		// Another instance seeded concurrently.
		return nil
	}
	if err == nil {
		s.logger.Info("created default role", slog.String("name", s.params.DefaultRoleName))
	}
	return err
}

func (s *Service) ensureAdminRole(ctx context.Context) (uuid.UUID, error) {
	roleID, err := s.roles.GetIDByName(ctx, s.params.AdminRoleName)
	if errors.Is(err, shared.ErrNotFound) {
		role, createErr := s.roles.Create(ctx, roles.CreateRole{
			Name:        s.params.AdminRoleName,
			Description: "Administrative role holding all core permissions",
		})
		if createErr != nil && !errors.Is(createErr, shared.ErrConflict) {
			return uuid.Nil, createErr
		}
		if createErr == nil {
			roleID = role.ID
			s.logger.Info("created admin role", slog.String("name", s.params.AdminRoleName))
		} else {
			roleID, err = s.roles.GetIDByName(ctx, s.params.AdminRoleName)
			if err != nil {
				return uuid.Nil, err
			}
		}
	} else if err != nil {
		return uuid.Nil, err
	}

	for _, name := range shared.CoreScopes() {
		permID, err := s.ensurePermission(ctx, name)
		if err != nil {
			return uuid.Nil, err
		}
		if err := s.roles.Bind(ctx, roleID, permID); err != nil && !errors.Is(err, shared.ErrConflict) {
			return uuid.Nil, err
		}
	}
	return roleID, nil
}

func (s *Service) ensurePermission(ctx context.Context, name string) (uuid.UUID, error) {
	id, err := s.permissions.GetIDByName(ctx, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return uuid.Nil, err
	}
	perm, err := s.permissions.Create(ctx, permissions.CreatePermission{Name: name})
	if errors.Is(err, shared.ErrConflict) {
		return s.permissions.GetIDByName(ctx, name)
	}
	if err != nil {
		return uuid.Nil, err
	}
	return perm.ID, nil
}

func (s *Service) ensureAdminUser(ctx context.Context, adminRoleID uuid.UUID) error {
	user, err := s.users.GetByEmail(ctx, s.params.AdminEmail)
	if err == nil {
		if user.RoleID != adminRoleID {
			_, err = s.users.ChangeRole(ctx, user.ID, adminRoleID)
		}
		return err
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	_, err = s.users.CreateWithRole(ctx, users.CreateUser{
		Email:    s.params.AdminEmail,
		Password: s.params.AdminPassword,
	}, s.params.AdminRoleName)
	if errors.Is(err, shared.ErrConflict) {
		return nil
	}
	if err == nil {
		s.logger.Info("created admin user", slog.String("email", s.params.AdminEmail))
	}
	return err
}
