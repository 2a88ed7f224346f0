package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/friendy21/workspace-auth/internal/core/port"
)

// RateLimitRepository implements the fixed-window counters behind the request
// throttles. Each key is a plain integer incremented atomically; the TTL is
// set only when the increment creates the key, so the window resets exactly
// when it elapses rather than sliding.
type RateLimitRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRateLimitRepository constructs a repository using the provided Redis client.
func NewRateLimitRepository(client *redis.Client, keyPrefix string) *RateLimitRepository {
	return &RateLimitRepository{client: client, keyPrefix: keyPrefix}
}

// Incr atomically increments the counter for key, stamping the window TTL on
// first increment, and returns the post-increment count together with the
// time remaining until the window resets.
func (r *RateLimitRepository) Incr(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		return 0, 0, errors.New("window must be positive")
	}

	fullKey := r.key(key)

	count, err := r.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, fullKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis expire: %w", err)
		}
		return int(count), window, nil
	}

	remaining, err := r.client.PTTL(ctx, fullKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis pttl: %w", err)
	}
	if remaining < 0 {
		// Key exists without a TTL, likely an interrupted first increment.
		// Re-stamp the window so the counter cannot live forever.
		if err := r.client.Expire(ctx, fullKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis expire: %w", err)
		}
		remaining = window
	}

	return int(count), remaining, nil
}

// Reset removes the counter.
func (r *RateLimitRepository) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *RateLimitRepository) key(key string) string {
	if r.keyPrefix == "" {
		return "ratelimit:" + key
	}
	return fmt.Sprintf("%s:ratelimit:%s", r.keyPrefix, key)
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
