package domain

import "time"

// LoginSucceededEvent represents the payload for auth.login.succeeded messages.
type LoginSucceededEvent struct {
	EventID   string
	UserID    string
	SessionID string
	OrgID     string
	IP        string
	Device    string
	LoggedAt  time.Time
}

// LoginFailedEvent represents the payload for auth.login.failed messages.
type LoginFailedEvent struct {
	EventID  string
	Email    string
	UserID   *string
	IP       string
	Reason   string
	FailedAt time.Time
}

// SessionRevokedEvent represents the payload for auth.session.revoked messages.
type SessionRevokedEvent struct {
	EventID   string
	SessionID string
	UserID    string
	Reason    string
	RevokedAt time.Time
}

// PasswordChangedEvent represents the payload for auth.password.changed messages.
type PasswordChangedEvent struct {
	EventID         string
	UserID          string
	SessionsRevoked int
	ChangedAt       time.Time
}

// SecurityAlertEvent represents the payload for auth.security.alert messages.
type SecurityAlertEvent struct {
	EventID    string
	Flag       SecurityFlag
	Email      string
	UserID     *string
	IP         string
	DetectedAt time.Time
	Details    map[string]any
}
