package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/transport/http/middleware"
	"github.com/friendy21/workspace-auth/internal/usecase"
)

// SecurityHandler serves the per-user security summary.
type SecurityHandler struct {
	security *usecase.SecurityService
	logger   *zap.Logger
}

// NewSecurityHandler constructs a SecurityHandler.
func NewSecurityHandler(security *usecase.SecurityService, log *zap.Logger) *SecurityHandler {
	return &SecurityHandler{security: security, logger: log}
}

// Summary handles GET /auth/security/.
func (h *SecurityHandler) Summary(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		RespondWithMappedError(c, usecase.ErrSessionInvalid, nil)
		return
	}

	summary, err := h.security.Summary(c.Request.Context(), user.ID)
	if err != nil {
		RespondWithMappedError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, SecuritySummaryResponse{
		ActiveSessions:      summary.ActiveSessions,
		FailedLoginAttempts: summary.FailedLoginAttempts,
		Locked:              summary.Locked,
		LockedUntil:         summary.LockedUntil,
		RecentLogins:        summary.RecentLogins,
		LastLogin:           summary.LastLogin,
	})
}
