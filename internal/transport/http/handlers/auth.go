package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/transport/http/middleware"
	"github.com/friendy21/workspace-auth/internal/usecase"
)

// AuthHandler serves login, refresh, and logout.
type AuthHandler struct {
	auth     *usecase.AuthService
	sessions *usecase.SessionService
	logger   *zap.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, sessions *usecase.SessionService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, logger: log}
}

// Login handles POST /auth/login/.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "email and password are required")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		IP:         c.ClientIP(),
		UserAgent:  userAgentPtr(c),
		Device:     deviceInfoFromHeaders(c),
	})
	if err != nil {
		RespondWithMappedError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  result.AccessToken,
		SessionToken: result.SessionToken,
		RefreshToken: result.RefreshToken,
		SessionID:    result.SessionID,
		ExpiresIn:    result.ExpiresIn,
		User: UserSummary{
			ID:         result.User.ID,
			Email:      result.User.Email,
			IsVerified: result.User.IsVerified,
			OrgID:      result.Org.OrgID,
			Role:       string(result.Org.Role),
		},
		SecurityWarning: result.SecurityWarning,
	})
}

// Refresh handles POST /auth/refresh/.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "refresh_token is required")
		return
	}

	result, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken, c.ClientIP())
	if err != nil {
		RespondWithMappedError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		AccessToken:  result.AccessToken,
		SessionToken: result.SessionToken,
		RefreshToken: result.RefreshToken,
		SessionID:    result.SessionID,
		ExpiresIn:    result.ExpiresIn,
	})
}

// Logout handles POST /auth/logout/ and ends the current session.
func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	session, okSession := middleware.CurrentSession(c)
	if !ok || !okSession {
		RespondWithMappedError(c, usecase.ErrSessionInvalid, nil)
		return
	}

	if err := h.sessions.Revoke(c.Request.Context(), user.ID, session.ID, c.ClientIP()); err != nil {
		RespondWithMappedError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// LogoutAll handles POST /auth/logout-all/ and ends every session including
// the current one.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		RespondWithMappedError(c, usecase.ErrSessionInvalid, nil)
		return
	}

	count, err := h.sessions.RevokeAll(c.Request.Context(), user.ID, nil, c.ClientIP(), "logout_all")
	if err != nil {
		RespondWithMappedError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, LogoutAllResponse{
		Message:         "all sessions revoked",
		SessionsRevoked: count,
	})
}
