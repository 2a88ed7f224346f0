package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/transport/http/middleware"
)

// ErrorResponse is the uniform error payload. Error carries a stable
// machine-readable code; Message is for humans.
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	RetryAfter *int   `json:"retry_after,omitempty"`
}

// NewErrorResponse creates an error response carrying the request correlation id.
func NewErrorResponse(c *gin.Context, code, message string) ErrorResponse {
	return ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	}
}

// MessageResponse is a simple acknowledgement payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest is the payload for the login endpoint. Device metadata rides
// on X-Device-ID / X-Device-Type / X-Device-Name headers.
type LoginRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// UserSummary is the user view embedded in login responses.
type UserSummary struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	IsVerified bool   `json:"is_verified"`
	OrgID      string `json:"org_id"`
	Role       string `json:"role"`
}

// LoginResponse is the payload for a successful login.
type LoginResponse struct {
	AccessToken     string      `json:"access_token"`
	SessionToken    string      `json:"session_token"`
	RefreshToken    string      `json:"refresh_token"`
	SessionID       string      `json:"session_id"`
	ExpiresIn       int         `json:"expires_in"`
	User            UserSummary `json:"user"`
	SecurityWarning *string     `json:"security_warning,omitempty"`
}

// RefreshRequest is the payload for the token refresh endpoint.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshResponse is the payload for a successful rotation.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	SessionToken string `json:"session_token"`
	RefreshToken string `json:"refresh_token"`
	SessionID    string `json:"session_id"`
	ExpiresIn    int    `json:"expires_in"`
}

// LogoutAllResponse reports how many sessions a bulk revocation ended.
type LogoutAllResponse struct {
	Message         string `json:"message"`
	SessionsRevoked int    `json:"sessions_revoked"`
}

// ChangePasswordRequest is the payload for the authenticated password change.
type ChangePasswordRequest struct {
	CurrentPassword  string `json:"current_password" binding:"required"`
	NewPassword      string `json:"new_password" binding:"required"`
	LogoutAllDevices bool   `json:"logout_all_devices"`
}

// ResetRequestRequest is the payload for requesting a password reset.
type ResetRequestRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetConfirmRequest is the payload for completing a password reset.
type ResetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// SessionSummary is the per-session view in session listings.
type SessionSummary struct {
	ID           string    `json:"id"`
	DeviceType   string    `json:"device_type"`
	DeviceName   *string   `json:"device_name,omitempty"`
	IP           string    `json:"ip"`
	Current      bool      `json:"current"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SecuritySummaryResponse is the per-user security overview.
type SecuritySummaryResponse struct {
	ActiveSessions      int        `json:"active_sessions"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	Locked              bool       `json:"locked"`
	LockedUntil         *time.Time `json:"locked_until,omitempty"`
	RecentLogins        int        `json:"recent_logins"`
	LastLogin           *time.Time `json:"last_login,omitempty"`
}

// OrgContextResponse is the internal directory lookup payload.
type OrgContextResponse struct {
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
	Role   string `json:"role"`
}

// OrgUserSummary is the member view in organization listings.
type OrgUserSummary struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	Name       string  `json:"name"`
	Role       string  `json:"role"`
	IsVerified bool    `json:"is_verified"`
	LastLogin  *string `json:"last_login,omitempty"`
}

func deviceInfoFromHeaders(c *gin.Context) domain.DeviceInfo {
	info := domain.DeviceInfo{
		Type: domain.ParseDeviceType(c.GetHeader("X-Device-Type")),
	}
	if id := c.GetHeader("X-Device-ID"); id != "" {
		info.ID = &id
	}
	if name := c.GetHeader("X-Device-Name"); name != "" {
		info.Name = &name
	}
	return info
}

func userAgentPtr(c *gin.Context) *string {
	if ua := c.Request.UserAgent(); ua != "" {
		return &ua
	}
	return nil
}
