package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials indicates the email or password is incorrect. The
	// same error covers unknown emails so responses cannot be used to
	// enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive indicates the account is deactivated.
	ErrAccountInactive = errors.New("account is not active")
	// ErrSessionInvalid indicates the session or refresh token does not
	// reference a usable session.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrServiceUnavailable indicates a dependency the flow fails closed on
	// could not be reached.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrResetTokenInvalid indicates the reset token is unknown, expired, or
	// already spent.
	ErrResetTokenInvalid = errors.New("reset token invalid")
)

// AccountLockedError indicates the account is under an active lockout.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.UTC().Format(time.RFC3339))
}

// RetryAfter returns the remaining lockout duration at the supplied moment.
func (e *AccountLockedError) RetryAfter(at time.Time) time.Duration {
	if !e.Until.After(at) {
		return 0
	}
	return e.Until.Sub(at)
}
