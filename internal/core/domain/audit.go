package domain

import "time"

// AuditAction identifies the kind of security event recorded in the audit trail.
type AuditAction string

const (
	AuditLoginSuccess           AuditAction = "login_success"
	AuditLoginFailed            AuditAction = "login_failed"
	AuditLogout                 AuditAction = "logout"
	AuditLogoutAll              AuditAction = "logout_all"
	AuditSessionRefreshed       AuditAction = "session_refreshed"
	AuditSessionRevoked         AuditAction = "session_revoked"
	AuditPasswordChanged        AuditAction = "password_changed"
	AuditPasswordResetRequested AuditAction = "password_reset_requested"
	AuditPasswordResetCompleted AuditAction = "password_reset_completed"
	AuditAccountLocked          AuditAction = "account_locked"
	AuditSecurityAlert          AuditAction = "security_alert"
	AuditServiceAuthAccepted    AuditAction = "service_auth_accepted"
	AuditServiceAuthRejected    AuditAction = "service_auth_rejected"
)

// AuditLog is an append-only security event. The user reference is weak: the
// row survives user deactivation or deletion with a nil UserID.
type AuditLog struct {
	ID        string
	UserID    *string
	Action    AuditAction
	IP        string
	UserAgent *string
	Details   map[string]any
	CreatedAt time.Time
}
