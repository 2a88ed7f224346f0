package port

import (
	"context"
	"time"

	"github.com/friendy21/workspace-auth/internal/core/domain"
)

// UserRepository defines persistence operations for auth users.
//
// RecordLoginFailure and ClearLoginFailures must be atomic at the storage
// layer: concurrent wrong-password submissions race on the failed-attempt
// counter and a read-modify-write in application code would lose updates.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// RecordLoginFailure increments the failed-attempt counter in a single
	// statement. When the incremented value reaches the lockout threshold the
	// same statement sets lockedUntil and resets the counter. It returns the
	// post-update counter and lockout deadline.
	RecordLoginFailure(ctx context.Context, userID string, at time.Time, lockedUntil time.Time) (attempts int, locked *time.Time, err error)

	// ClearLoginFailures resets the counter, clears any lockout, and stamps
	// last_login in one statement.
	ClearLoginFailures(ctx context.Context, userID string, at time.Time) error

	// UpdatePassword swaps the password hash and bumps password_changed_at,
	// which invalidates every access token minted before the change.
	UpdatePassword(ctx context.Context, userID, passwordHash string, changedAt time.Time) error

	SetActive(ctx context.Context, userID string, active bool) error
	SetVerified(ctx context.Context, userID string, verified bool) error
}
