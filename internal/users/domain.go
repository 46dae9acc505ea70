package users

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account. PasswordHash never leaves the service
// boundary; handler payloads do not carry it.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsActive     bool
	RoleID       uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserWithRole is a user together with its resolved role, read eagerly
// in one joined query.
type UserWithRole struct {
	User
	RoleName        string
	RoleDescription string
}

// CreateUser carries the fields required to create a user. Password is
// the plaintext secret; it is hashed before it reaches storage.
type CreateUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UpdateUser carries a partial update. Nil fields are left untouched.
type UpdateUser struct {
	Email     *string
	FirstName *string
	LastName  *string
	IsActive  *bool
}
