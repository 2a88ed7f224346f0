package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/friendy21/workspace-auth/internal/core/port"
)

// LoginActivityRepository holds the observation sets the security monitor
// reads. Each set carries a rolling TTL refreshed on every write, so the
// window extends while activity continues and the state evaporates once it
// stops.
type LoginActivityRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewLoginActivityRepository constructs a repository using the provided Redis client.
func NewLoginActivityRepository(client *redis.Client, keyPrefix string) *LoginActivityRepository {
	return &LoginActivityRepository{client: client, keyPrefix: keyPrefix}
}

// RecordAccountIP adds ip to the set of addresses seen for the account and
// returns the distinct address count inside the window.
func (r *LoginActivityRepository) RecordAccountIP(ctx context.Context, accountKey, ip string, window time.Duration) (int, error) {
	return r.record(ctx, r.key("ips", accountKey), ip, window)
}

// RecordUnknownEmail adds the probed email to the set attributed to ip and
// returns the distinct email count inside the window.
func (r *LoginActivityRepository) RecordUnknownEmail(ctx context.Context, ip, email string, window time.Duration) (int, error) {
	return r.record(ctx, r.key("probes", ip), email, window)
}

func (r *LoginActivityRepository) record(ctx context.Context, key, member string, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, key, member)
	pipe.Expire(ctx, key, window)
	card := pipe.SCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis pipeline: %w", err)
	}

	return int(card.Val()), nil
}

func (r *LoginActivityRepository) key(kind, identifier string) string {
	if r.keyPrefix == "" {
		return fmt.Sprintf("activity:%s:%s", kind, identifier)
	}
	return fmt.Sprintf("%s:activity:%s:%s", r.keyPrefix, kind, identifier)
}

var _ port.LoginActivityStore = (*LoginActivityRepository)(nil)
