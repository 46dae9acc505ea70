package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-id/aegis/internal/shared"
)

// Service handles user directory business logic, including credential
// rotation.
type Service struct {
	repo            Repository
	defaultRoleName string
}

// NewService builds Service instance. defaultRoleName is the role every
// new user starts with; the startup service guarantees it exists before
// traffic is served.
func NewService(repo Repository, defaultRoleName string) *Service {
	return &Service{repo: repo, defaultRoleName: defaultRoleName}
}

// Create registers a new user with the default role. The password is
// hashed before it reaches storage; a duplicate email fails with
// shared.ErrConflict.
func (s *Service) Create(ctx context.Context, in CreateUser) (User, error) {
	return s.createInRole(ctx, in, s.defaultRoleName)
}

// CreateWithRole registers a new user directly into the named role. Used
// by bootstrap and federation auto-provisioning.
func (s *Service) CreateWithRole(ctx context.Context, in CreateUser, roleName string) (User, error) {
	return s.createInRole(ctx, in, roleName)
}

func (s *Service) createInRole(ctx context.Context, in CreateUser, roleName string) (User, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" {
		return User{}, fmt.Errorf("%w: email required", shared.ErrInvalid)
	}
	if in.Password == "" {
		return User{}, fmt.Errorf("%w: password required", shared.ErrInvalid)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	var created User
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		roleID, err := tx.RoleIDByName(ctx, roleName)
		if err != nil {
			return fmt.Errorf("resolve role %q: %w", roleName, err)
		}
		created, err = tx.Insert(ctx, User{
			Email:        in.Email,
			PasswordHash: string(hash),
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			RoleID:       roleID,
		})
		return err
	})
	if err != nil {
		return User{}, err
	}
	return created, nil
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.Get(ctx, id)
}

// GetByEmail fetches a user by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Update applies a partial update. Absent fields are left untouched.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateUser) (User, error) {
	if in.Email != nil {
		normalized := strings.TrimSpace(strings.ToLower(*in.Email))
		if normalized == "" {
			return User{}, fmt.Errorf("%w: email required", shared.ErrInvalid)
		}
		in.Email = &normalized
	}
	return s.repo.Update(ctx, id, in)
}

// Delete removes a user.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Count returns the directory size.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// GetWithRole returns a user with its resolved role.
func (s *Service) GetWithRole(ctx context.Context, id uuid.UUID) (UserWithRole, error) {
	return s.repo.GetWithRole(ctx, id)
}

// ChangeRole atomically reassigns a user to another role and returns the
// refreshed, role-resolved record. Fails with shared.ErrNotFound when
// either side is missing. Caller authorization is enforced at the HTTP
// boundary.
func (s *Service) ChangeRole(ctx context.Context, userID, roleID uuid.UUID) (UserWithRole, error) {
	var result UserWithRole
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		exists, err := tx.RoleExists(ctx, roleID)
		if err != nil {
			return err
		}
		if !exists {
			return shared.ErrNotFound
		}
		if err := tx.SetRole(ctx, userID, roleID); err != nil {
			return err
		}
		result, err = tx.GetWithRole(ctx, userID)
		return err
	})
	if err != nil {
		return UserWithRole{}, err
	}
	return result, nil
}

// ChangePassword rotates a user's credential. The current password is
// verified against the stored hash; a mismatch returns shared.ErrRejected
// and leaves the stored hash untouched. Verification and rotation happen
// inside one transaction.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) (User, error) {
	if newPassword == "" {
		return User{}, fmt.Errorf("%w: new password required", shared.ErrInvalid)
	}
	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	var updated User
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		user, err := tx.Get(ctx, userID)
		if err != nil {
			return err
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
			return shared.ErrRejected
		}
		if err := tx.SetPasswordHash(ctx, userID, string(newHash)); err != nil {
			return err
		}
		updated, err = tx.Get(ctx, userID)
		return err
	})
	if err != nil {
		return User{}, err
	}
	return updated, nil
}
