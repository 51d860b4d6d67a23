package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed RateLimitStore for multi-instance
// deployments. It uses an INCR + PEXPIRE pipeline so the check-and-increment
// is atomic across instances. Unlike the memory store it counts denied
// attempts too; the window still never extends past its original reset.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RateLimitStore backed by the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(identity string) string {
	return fmt.Sprintf("ratelimit:contact:%s", identity)
}

// Check implements RateLimitStore.
func (s *RedisStore) Check(ctx context.Context, identity string, maxRequests int, window time.Duration) (Result, error) {
	key := redisKey(identity)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// NX: only the first request in a window sets the expiry, so later
	// requests never push the reset out.
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	count := incr.Val()

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	resetTime := time.Now().Add(ttl)

	if count > int64(maxRequests) {
		return Result{Allowed: false, Remaining: 0, ResetTime: resetTime}, nil
	}

	remaining := maxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining, ResetTime: resetTime}, nil
}

// Sweep implements RateLimitStore. Redis evicts expired keys itself, so
// there is nothing to do.
func (s *RedisStore) Sweep(_ context.Context) error {
	return nil
}
