package domain

import "time"

// LoginOutcome classifies a finished authentication attempt for the security monitor.
type LoginOutcome string

const (
	LoginOutcomeSuccess       LoginOutcome = "success"
	LoginOutcomeBadPassword   LoginOutcome = "bad_password"
	LoginOutcomeUnknownEmail  LoginOutcome = "unknown_email"
	LoginOutcomeLockedAccount LoginOutcome = "locked_account"
	LoginOutcomeInactive      LoginOutcome = "inactive_account"
)

// SecurityFlag names a suspicious pattern detected around authentication traffic.
type SecurityFlag string

const (
	// FlagMultipleIPs fires when one account authenticates from too many
	// distinct addresses inside the observation window.
	FlagMultipleIPs SecurityFlag = "multiple_ip_detected"
	// FlagEnumeration fires when one address probes too many unknown emails.
	FlagEnumeration SecurityFlag = "enumeration_suspected"
	// FlagLockoutBypass fires on any attempt against a currently locked account.
	FlagLockoutBypass SecurityFlag = "lockout_bypass_attempt"
)

// LoginObservation is the event context handed to the security monitor after
// every login attempt, successful or not.
type LoginObservation struct {
	Email      string
	UserID     *string
	IP         string
	UserAgent  *string
	Outcome    LoginOutcome
	ObservedAt time.Time
}
