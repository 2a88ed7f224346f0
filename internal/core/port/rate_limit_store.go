package port

import (
	"context"
	"time"
)

// RateLimitStore is the shared counter backing the request throttles. The
// increment must be atomic; a window that has fully elapsed resets on the next
// request rather than decaying gradually.
type RateLimitStore interface {
	// Incr increments the counter for key, creating it with the supplied
	// window TTL when absent, and returns the post-increment count together
	// with the time remaining until the window resets.
	Incr(ctx context.Context, key string, window time.Duration) (count int, remaining time.Duration, err error)

	// Reset removes the counter. Used by tests and admin tooling.
	Reset(ctx context.Context, key string) error
}
