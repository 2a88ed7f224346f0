package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/transport/http/middleware"
	"github.com/friendy21/workspace-auth/internal/usecase"
)

// PasswordHandler serves the password change and reset endpoints.
type PasswordHandler struct {
	passwords *usecase.PasswordService
	logger    *zap.Logger
}

// NewPasswordHandler constructs a PasswordHandler.
func NewPasswordHandler(passwords *usecase.PasswordService, log *zap.Logger) *PasswordHandler {
	return &PasswordHandler{passwords: passwords, logger: log}
}

// Change handles POST /auth/password/change/ (authenticated).
func (h *PasswordHandler) Change(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "current_password and new_password are required")
		return
	}

	user, ok := middleware.CurrentUser(c)
	if !ok {
		RespondWithMappedError(c, usecase.ErrSessionInvalid, nil)
		return
	}

	sessionID := ""
	if session, ok := middleware.CurrentSession(c); ok {
		sessionID = session.ID
	}

	revoked, err := h.passwords.Change(c.Request.Context(),
		user.ID, req.CurrentPassword, req.NewPassword,
		req.LogoutAllDevices, sessionID, c.ClientIP(),
	)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "current password is incorrect"},
		})
		return
	}

	c.JSON(http.StatusOK, LogoutAllResponse{
		Message:         "password changed",
		SessionsRevoked: revoked,
	})
}

// RequestReset handles POST /auth/password/reset/. The response never reveals
// whether the email exists.
func (h *PasswordHandler) RequestReset(c *gin.Context) {
	var req ResetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "email is required")
		return
	}

	if err := h.passwords.RequestReset(c.Request.Context(), req.Email, c.ClientIP()); err != nil {
		h.logger.Error("password reset request", zap.Error(err))
		RespondWithMappedError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		Message: "if the account exists, reset instructions have been sent",
	})
}

// ConfirmReset handles POST /auth/password/reset/confirm/.
func (h *PasswordHandler) ConfirmReset(c *gin.Context) {
	var req ResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "token and new_password are required")
		return
	}

	err := h.passwords.CompleteReset(c.Request.Context(), req.Token, req.NewPassword, c.ClientIP())
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetTokenInvalid, Status: http.StatusBadRequest, Code: "validation_error", Message: "reset token is invalid or expired"},
		})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password has been reset"})
}
