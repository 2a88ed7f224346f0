package domain

import "time"

// SessionStatus enumerates lifecycle states of a login session.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusRevoked SessionStatus = "revoked"
	SessionStatusExpired SessionStatus = "expired"
)

// DeviceType classifies the channel a session was created from.
type DeviceType string

const (
	DeviceTypeWeb     DeviceType = "web"
	DeviceTypeMobile  DeviceType = "mobile"
	DeviceTypeAPI     DeviceType = "api"
	DeviceTypeUnknown DeviceType = "unknown"
)

// ParseDeviceType normalises textual input into a supported device type.
func ParseDeviceType(value string) DeviceType {
	switch DeviceType(value) {
	case DeviceTypeWeb, DeviceTypeMobile, DeviceTypeAPI:
		return DeviceType(value)
	default:
		return DeviceTypeUnknown
	}
}

// DeviceInfo carries the optional device metadata supplied at login.
type DeviceInfo struct {
	ID   *string
	Type DeviceType
	Name *string
}

// Session represents one authenticated device or channel for a user.
// Session and refresh tokens are stored as SHA-256 hashes, never raw.
type Session struct {
	ID               string
	UserID           string
	SessionTokenHash string
	RefreshTokenHash string
	DeviceID         *string
	DeviceType       DeviceType
	DeviceName       *string
	IP               string
	UserAgent        *string
	OrgID            string
	OrgRole          OrgRole
	Status           SessionStatus
	CreatedAt        time.Time
	LastAccessed     time.Time
	ExpiresAt        time.Time
}

// IsExpired reports whether the session's validity window has elapsed.
func (s Session) IsExpired(at time.Time) bool {
	return !s.ExpiresAt.After(at)
}

// IsUsable reports whether the session can authenticate requests at the supplied moment.
func (s Session) IsUsable(at time.Time) bool {
	return s.Status == SessionStatusActive && !s.IsExpired(at)
}

// Revoke transitions the session to revoked. Returns true when the state changed,
// false when it was already revoked (revocation is idempotent).
func (s *Session) Revoke() bool {
	if s.Status == SessionStatusRevoked {
		return false
	}
	s.Status = SessionStatusRevoked
	return true
}

// OrgContext reconstructs the organization context captured at login, used to
// re-mint access tokens on refresh without another directory round trip.
func (s Session) OrgContext() OrgContext {
	return OrgContext{UserID: s.UserID, OrgID: s.OrgID, Role: s.OrgRole}
}

// Touch bumps last-accessed metadata when the session authenticates a request.
func (s *Session) Touch(at time.Time) {
	s.LastAccessed = at
}
