package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int64, window time.Duration) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewLimiter(client, limit, window), mr
}

func TestAllowWithinLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "login:10.0.0.1")
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err := limiter.Allow(ctx, "login:10.0.0.1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "login:10.0.0.1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = limiter.Allow(ctx, "login:10.0.0.2")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestWindowExpiry(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "login:10.0.0.1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = limiter.Allow(ctx, "login:10.0.0.1")
	require.NoError(t, err)
	require.False(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = limiter.Allow(ctx, "login:10.0.0.1")
	require.NoError(t, err)
	require.True(t, ok)
}
