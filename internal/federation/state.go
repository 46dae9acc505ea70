package federation

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore keeps single-use OAuth2 state nonces in Redis. A nonce is
// valid for one callback within the TTL; claiming removes it.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStateStore constructs a StateStore.
func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	return &StateStore{client: client, ttl: ttl}
}

// Issue generates and records a fresh state nonce.
func (s *StateStore) Issue(ctx context.Context) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(raw)
	if err := s.client.Set(ctx, s.key(state), "1", s.ttl).Err(); err != nil {
		return "", fmt.Errorf("federation: store state: %w", err)
	}
	return state, nil
}

// Claim consumes a state nonce. Returns false for unknown or expired
// nonces and for a second claim of the same nonce.
func (s *StateStore) Claim(ctx context.Context, state string) (bool, error) {
	err := s.client.GetDel(ctx, s.key(state)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("federation: claim state: %w", err)
	}
	return true, nil
}

func (s *StateStore) key(state string) string {
	return "oauth2:state:" + state
}
