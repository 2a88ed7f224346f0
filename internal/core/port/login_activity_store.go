package port

import (
	"context"
	"time"
)

// LoginActivityStore keeps the short-lived observation state the security
// monitor reads: which addresses touched an account recently, and which
// unknown emails a single address probed. Entries carry a rolling TTL and are
// approximate by design; the monitor detects, it never enforces.
type LoginActivityStore interface {
	// RecordAccountIP adds ip to the set of addresses seen for the account
	// within the window and returns the distinct count.
	RecordAccountIP(ctx context.Context, accountKey, ip string, window time.Duration) (distinct int, err error)

	// RecordUnknownEmail adds the probed email to the set attributed to ip
	// within the window and returns the distinct count.
	RecordUnknownEmail(ctx context.Context, ip, email string, window time.Duration) (distinct int, err error)
}
