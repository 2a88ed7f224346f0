package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/usecase"
)

// OrgHandler serves the Organization Service's endpoints: the internal
// directory lookup consumed by the Authentication Service plus member reads.
type OrgHandler struct {
	orgs   *usecase.OrgService
	logger *zap.Logger
}

// NewOrgHandler constructs an OrgHandler.
func NewOrgHandler(orgs *usecase.OrgService, log *zap.Logger) *OrgHandler {
	return &OrgHandler{orgs: orgs, logger: log}
}

// LookupUser handles GET /internal/users/:email/ under service auth.
func (h *OrgHandler) LookupUser(c *gin.Context) {
	email := c.Param("email")
	if email == "" {
		respondValidationError(c, "email is required")
		return
	}

	ctx, err := h.orgs.LookupUser(c.Request.Context(), email)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrOrgUserNotFound, Status: http.StatusNotFound, Code: "user_not_found", Message: "no active member for this email"},
		})
		return
	}

	c.JSON(http.StatusOK, OrgContextResponse{
		UserID: ctx.UserID,
		OrgID:  ctx.OrgID,
		Role:   string(ctx.Role),
	})
}

// GetOrganization handles GET /orgs/:id/ under the JWT middleware.
func (h *OrgHandler) GetOrganization(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respondValidationError(c, "organization id is required")
		return
	}

	org, err := h.orgs.GetOrganization(c.Request.Context(), id)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrOrgUserNotFound, Status: http.StatusNotFound, Code: "user_not_found", Message: "organization not found"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        org.ID,
		"name":      org.Name,
		"email":     org.Email,
		"is_active": org.IsActive,
	})
}

// ListMembers handles GET /orgs/:id/members/ under the JWT middleware.
func (h *OrgHandler) ListMembers(c *gin.Context) {
	orgID := c.Param("id")
	if orgID == "" {
		respondValidationError(c, "organization id is required")
		return
	}

	members, err := h.orgs.ListMembers(c.Request.Context(), orgID)
	if err != nil {
		RespondWithMappedError(c, err, nil)
		return
	}

	summaries := make([]OrgUserSummary, 0, len(members))
	for _, m := range members {
		summary := OrgUserSummary{
			ID:         m.ID,
			Email:      m.Email,
			Name:       m.Name,
			Role:       string(m.Role),
			IsVerified: m.IsVerified,
		}
		if m.LastLogin != nil {
			formatted := m.LastLogin.UTC().Format(time.RFC3339)
			summary.LastLogin = &formatted
		}
		summaries = append(summaries, summary)
	}

	c.JSON(http.StatusOK, gin.H{"members": summaries})
}
