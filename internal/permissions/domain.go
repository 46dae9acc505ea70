package permissions

import (
	"time"

	"github.com/google/uuid"
)

// Permission represents an atomic capability addressable by name.
type Permission struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreatePermission carries the fields required to create a permission.
type CreatePermission struct {
	Name        string
	Description string
}

// UpdatePermission carries a partial update. Nil fields are left untouched.
type UpdatePermission struct {
	Name        *string
	Description *string
}
