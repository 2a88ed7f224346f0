package port

import (
	"context"
	"time"

	"github.com/friendy21/workspace-auth/internal/core/domain"
)

// PasswordResetTokenRepository persists single-use password reset tokens.
type PasswordResetTokenRepository interface {
	Create(ctx context.Context, token domain.PasswordResetToken) error
	GetByTokenHash(ctx context.Context, hash string) (*domain.PasswordResetToken, error)

	// MarkUsed consumes the token. The update is guarded on used_at being
	// null so a token can redeem exactly one reset; ErrNotFound signals the
	// token was already spent.
	MarkUsed(ctx context.Context, tokenID string, at time.Time) error

	// InvalidateForUser spends every outstanding token for the user, called
	// when a new reset is requested or a password changes.
	InvalidateForUser(ctx context.Context, userID string, at time.Time) (int, error)
}
