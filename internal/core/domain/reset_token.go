package domain

import "time"

// PasswordResetToken is a single-use credential for the password reset flow.
// Only the SHA-256 hash of the token is stored; the raw value is delivered
// out of band and never persisted.
type PasswordResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsUsable reports whether the token can still redeem a reset at the supplied moment.
func (t PasswordResetToken) IsUsable(at time.Time) bool {
	return t.UsedAt == nil && t.ExpiresAt.After(at)
}
