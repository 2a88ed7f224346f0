package domain

import (
	"strings"
	"time"
)

// LockoutThreshold is the number of consecutive failed logins that locks an account.
const LockoutThreshold = 5

// LockoutDuration is how long an account stays locked after hitting the threshold.
const LockoutDuration = 30 * time.Minute

// User mirrors the persisted representation in the auth_users table.
type User struct {
	ID                  string
	Email               string
	PasswordHash        string
	IsActive            bool
	IsVerified          bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	PasswordChangedAt   time.Time
	LastLogin           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NormalizeEmail lowercases and trims an email for case-insensitive lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsLocked reports whether the account is under an active lockout at the supplied moment.
func (u User) IsLocked(at time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(at)
}

// LockRemaining returns how long the lockout has left, or zero when not locked.
func (u User) LockRemaining(at time.Time) time.Duration {
	if !u.IsLocked(at) {
		return 0
	}
	return u.LockedUntil.Sub(at)
}

// PasswordEpoch returns the unix timestamp of the last password change.
// Access tokens embed this value; tokens minted before a change become stale.
func (u User) PasswordEpoch() int64 {
	return u.PasswordChangedAt.UTC().Unix()
}
