package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/transport/http/middleware"
	"github.com/friendy21/workspace-auth/internal/usecase"
)

// SessionHandler serves session listing and per-session revocation.
type SessionHandler struct {
	sessions *usecase.SessionService
	logger   *zap.Logger
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(sessions *usecase.SessionService, log *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: log}
}

// List handles GET /auth/sessions/.
func (h *SessionHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		RespondWithMappedError(c, usecase.ErrSessionInvalid, nil)
		return
	}

	currentID := ""
	if session, ok := middleware.CurrentSession(c); ok {
		currentID = session.ID
	}

	sessions, err := h.sessions.List(c.Request.Context(), user.ID)
	if err != nil {
		RespondWithMappedError(c, err, nil)
		return
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, SessionSummary{
			ID:           s.ID,
			DeviceType:   string(s.DeviceType),
			DeviceName:   s.DeviceName,
			IP:           s.IP,
			Current:      s.ID == currentID,
			CreatedAt:    s.CreatedAt,
			LastAccessed: s.LastAccessed,
			ExpiresAt:    s.ExpiresAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"sessions": summaries})
}

// Revoke handles DELETE /auth/sessions/:id/.
func (h *SessionHandler) Revoke(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		RespondWithMappedError(c, usecase.ErrSessionInvalid, nil)
		return
	}

	sessionID := c.Param("id")
	if sessionID == "" {
		respondValidationError(c, "session id is required")
		return
	}

	if err := h.sessions.Revoke(c.Request.Context(), user.ID, sessionID, c.ClientIP()); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrSessionInvalid, Status: http.StatusNotFound, Code: "session_invalid", Message: "session not found"},
		})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "session revoked"})
}
