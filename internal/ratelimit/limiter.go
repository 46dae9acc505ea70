// Package ratelimit implements fixed-window counters on Redis for
// abuse-sensitive endpoints. The counters are ephemeral and never
// authoritative state.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts events per key within a fixed window.
type Limiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewLimiter constructs a Limiter.
func NewLimiter(client *redis.Client, limit int64, window time.Duration) *Limiter {
	return &Limiter{client: client, limit: limit, window: window}
}

// Allow reports whether another event is permitted for key. The first
// event in a window sets the expiry; the window is never extended.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit: incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("ratelimit: expire: %w", err)
		}
	}
	return count <= l.limit, nil
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, fmt.Sprintf("ratelimit:%s", key)).Err()
}
