package tokens

import (
	"time"

	"github.com/google/uuid"
)

// Pair is an issued access/refresh credential set.
type Pair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// Subject is the identity a verified access token proves.
type Subject struct {
	UserID uuid.UUID
	RoleID uuid.UUID
}

// Account is the credential view of a user record needed to issue tokens.
type Account struct {
	ID           uuid.UUID
	RoleID       uuid.UUID
	PasswordHash string
	IsActive     bool
}

// RefreshRecord tracks a refresh credential by its jti. A refresh token is
// live until it expires, is revoked at logout, or is consumed by rotation.
type RefreshRecord struct {
	JTI       uuid.UUID
	UserID    uuid.UUID
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}
