package federation

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/aegis-id/aegis/internal/shared"
	"github.com/aegis-id/aegis/internal/tokens"
	"github.com/aegis-id/aegis/internal/users"
)

// Exchanger abstracts the provider side of the bridge for tests.
type Exchanger interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

// PairIssuer mints a local token pair for a federated login.
type PairIssuer interface {
	IssuePair(ctx context.Context, userID, roleID uuid.UUID) (tokens.Pair, error)
}

// UserDirectory is the slice of the user service federation needs.
type UserDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (users.User, error)
	GetByEmail(ctx context.Context, email string) (users.User, error)
	Create(ctx context.Context, in users.CreateUser) (users.User, error)
}

// Service maps federated identities onto local users and issues local
// credentials for them.
type Service struct {
	provider Exchanger
	states   *StateStore
	repo     Repository
	users    UserDirectory
	issuer   PairIssuer
}

// NewService constructs a Service.
func NewService(provider Exchanger, states *StateStore, repo Repository, users UserDirectory, issuer PairIssuer) *Service {
	return &Service{provider: provider, states: states, repo: repo, users: users, issuer: issuer}
}

// Begin issues a state nonce and returns the provider redirect URL.
func (s *Service) Begin(ctx context.Context) (string, error) {
	state, err := s.states.Issue(ctx)
	if err != nil {
		return "", err
	}
	return s.provider.AuthCodeURL(state), nil
}

// Callback completes the authorization-code flow: the state nonce is
// consumed, the code exchanged, the external subject mapped to a local
// user (auto-provisioned with the default role on first sight), and a
// local token pair issued.
func (s *Service) Callback(ctx context.Context, state, code string) (tokens.Pair, error) {
	ok, err := s.states.Claim(ctx, state)
	if err != nil {
		return tokens.Pair{}, err
	}
	if !ok {
		return tokens.Pair{}, shared.ErrUnauthorized
	}

	identity, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return tokens.Pair{}, err
	}

	user, err := s.resolveUser(ctx, identity)
	if err != nil {
		return tokens.Pair{}, err
	}
	return s.issuer.IssuePair(ctx, user.ID, user.RoleID)
}

func (s *Service) resolveUser(ctx context.Context, identity Identity) (users.User, error) {
	userID, err := s.repo.FindUserID(ctx, s.provider.Name(), identity.Subject)
	if err == nil {
		return s.users.Get(ctx, userID)
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return users.User{}, err
	}

	// First federated login. Attach to an existing account with the same
	// email, otherwise provision one with the default role and a random
	// unusable password.
	user, err := s.users.GetByEmail(ctx, identity.Email)
	if errors.Is(err, shared.ErrNotFound) {
		user, err = s.users.Create(ctx, users.CreateUser{
			Email:     identity.Email,
			Password:  uuid.NewString(),
			FirstName: identity.FirstName,
			LastName:  identity.LastName,
		})
	}
	if err != nil {
		return users.User{}, err
	}

	if err := s.repo.Link(ctx, s.provider.Name(), identity.Subject, user.ID); err != nil {
		// A concurrent callback may have linked the same subject already.
		if !errors.Is(err, shared.ErrConflict) {
			return users.User{}, err
		}
	}
	return user, nil
}
