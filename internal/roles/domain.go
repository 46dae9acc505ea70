package roles

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a named bundle of permissions.
type Role struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoleWithPermissions is a role together with its resolved permission set,
// read eagerly in one joined query.
type RoleWithPermissions struct {
	Role
	Permissions []BoundPermission
}

// BoundPermission is a permission as seen through a role binding.
type BoundPermission struct {
	ID          uuid.UUID
	Name        string
	Description string
}

// CreateRole carries the fields required to create a role.
type CreateRole struct {
	Name        string
	Description string
}

// UpdateRole carries a partial update. Nil fields are left untouched.
type UpdateRole struct {
	Name        *string
	Description *string
}
