package port

import (
	"context"
	"time"

	"github.com/friendy21/workspace-auth/internal/core/domain"
)

// SessionRepository defines persistence operations for login sessions.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetBySessionTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	ListActiveByUser(ctx context.Context, userID string) ([]domain.Session, error)
	CountActiveByUser(ctx context.Context, userID string) (int, error)

	// RotateTokens atomically replaces both token hashes and extends expiry,
	// guarded by a compare-and-swap on the current refresh token hash and
	// active status. It returns ErrNotFound when the guard fails, which makes
	// a second rotation from the same stale token impossible.
	RotateTokens(ctx context.Context, sessionID, oldRefreshHash, newSessionHash, newRefreshHash string, expiresAt, at time.Time) error

	// Revoke marks the session revoked. Revoking an already revoked session
	// is a no-op success.
	Revoke(ctx context.Context, sessionID string) error

	// RevokeAllForUser revokes every active session for the user except the
	// optionally excluded one and returns the number revoked.
	RevokeAllForUser(ctx context.Context, userID string, exceptSessionID *string) (int, error)

	// Touch bumps last_accessed when a session authenticates a request.
	Touch(ctx context.Context, sessionID string, at time.Time) error

	// MarkExpired flips sessions whose expiry has elapsed to the expired
	// status. Correctness does not depend on it; it exists for hygiene.
	MarkExpired(ctx context.Context, before time.Time) (int, error)
}
