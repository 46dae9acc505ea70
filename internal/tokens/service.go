package tokens

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-id/aegis/internal/shared"
)

// Service wraps the token lifecycle: primary login, refresh rotation,
// revocation and verification.
type Service struct {
	issuer *Issuer
	repo   Repository
	now    func() time.Time
}

// NewService constructs a new Service.
func NewService(issuer *Issuer, repo Repository) *Service {
	return &Service{issuer: issuer, repo: repo, now: time.Now}
}

// Login validates primary credentials and issues a token pair. The email
// is normalized the same way the directory stores it. Every failure mode
// collapses into shared.ErrUnauthorized.
func (s *Service) Login(ctx context.Context, email, password string) (Pair, error) {
	account, err := s.repo.FindAccountByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return Pair{}, shared.ErrUnauthorized
	}
	if !account.IsActive {
		return Pair{}, shared.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Pair{}, shared.ErrUnauthorized
	}
	return s.IssuePair(ctx, account.ID, account.RoleID)
}

// IssuePair mints an access/refresh pair for the subject and records the
// refresh jti.
func (s *Service) IssuePair(ctx context.Context, userID, roleID uuid.UUID) (Pair, error) {
	access, accessExp, err := s.issuer.IssueAccess(userID, roleID)
	if err != nil {
		return Pair{}, err
	}
	refresh, jti, refreshExp, err := s.issuer.IssueRefresh(userID)
	if err != nil {
		return Pair{}, err
	}
	if err := s.repo.InsertRefresh(ctx, RefreshRecord{JTI: jti, UserID: userID, ExpiresAt: refreshExp}); err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Refresh exchanges a live refresh token for a new pair. The presented
// jti is consumed and a fresh one recorded in the same transaction, so a
// replayed refresh token fails.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Pair, error) {
	userID, jti, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return Pair{}, shared.ErrUnauthorized
	}

	var pair Pair
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		owner, err := tx.ConsumeRefresh(ctx, jti, s.now())
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.ErrUnauthorized
			}
			return err
		}
		if owner != userID {
			return shared.ErrUnauthorized
		}
		account, err := tx.FindAccountByID(ctx, userID)
		if err != nil || !account.IsActive {
			return shared.ErrUnauthorized
		}

		access, accessExp, err := s.issuer.IssueAccess(account.ID, account.RoleID)
		if err != nil {
			return err
		}
		refresh, newJTI, refreshExp, err := s.issuer.IssueRefresh(account.ID)
		if err != nil {
			return err
		}
		if err := tx.InsertRefresh(ctx, RefreshRecord{JTI: newJTI, UserID: account.ID, ExpiresAt: refreshExp}); err != nil {
			return err
		}
		pair = Pair{
			AccessToken:  access,
			RefreshToken: refresh,
			AccessExp:    accessExp,
			RefreshExp:   refreshExp,
		}
		return nil
	})
	if err != nil {
		return Pair{}, err
	}
	return pair, nil
}

// Logout revokes the presented refresh credential. A token that is already
// revoked or unknown still logs out cleanly.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	_, jti, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return shared.ErrUnauthorized
	}
	return s.repo.RevokeRefresh(ctx, jti)
}

// Verify checks a self-contained access token and returns its subject.
func (s *Service) Verify(ctx context.Context, accessToken string) (Subject, error) {
	return s.issuer.VerifyAccess(accessToken)
}
