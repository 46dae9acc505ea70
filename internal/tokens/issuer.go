package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aegis-id/aegis/internal/shared"
)

// Issuer mints and verifies signed bearer tokens. Access tokens are
// self-contained: a valid signature plus an unexpired exp claim is the
// whole proof, no store round-trip. Refresh tokens additionally carry a
// jti that must still be live in the store.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewIssuer constructs an Issuer.
func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

type accessClaims struct {
	RoleID string `json:"rid"`
	jwt.RegisteredClaims
}

// IssueAccess mints a signed access token for the subject.
func (i *Issuer) IssueAccess(userID, roleID uuid.UUID) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.accessTTL)
	claims := accessClaims{
		RoleID: roleID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueRefresh mints a signed refresh token and returns its jti.
func (i *Issuer) IssueRefresh(userID uuid.UUID) (string, uuid.UUID, time.Time, error) {
	now := i.now()
	exp := now.Add(i.refreshTTL)
	jti := uuid.New()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ID:        jti.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", uuid.Nil, time.Time{}, err
	}
	return signed, jti, exp, nil
}

// VerifyAccess parses and verifies a self-contained access token.
// Tampered, expired or otherwise malformed tokens all map onto the same
// shared.ErrUnauthorized so the caller cannot distinguish failure modes.
func (i *Issuer) VerifyAccess(token string) (Subject, error) {
	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, shared.ErrUnauthorized
		}
		return i.accessSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil || !parsed.Valid {
		return Subject{}, shared.ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Subject{}, shared.ErrUnauthorized
	}
	roleID, err := uuid.Parse(claims.RoleID)
	if err != nil {
		return Subject{}, shared.ErrUnauthorized
	}
	return Subject{UserID: userID, RoleID: roleID}, nil
}

// VerifyRefresh parses and verifies a refresh token signature and expiry,
// returning the subject and jti. Liveness of the jti is the store's call.
func (i *Issuer) VerifyRefresh(token string) (uuid.UUID, uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, shared.ErrUnauthorized
		}
		return i.refreshSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil || !parsed.Valid {
		return uuid.Nil, uuid.Nil, shared.ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, shared.ErrUnauthorized
	}
	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return uuid.Nil, uuid.Nil, shared.ErrUnauthorized
	}
	return userID, jti, nil
}
