package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/core/port"
	"github.com/friendy21/workspace-auth/internal/svcauth"
)

const maxServiceBodyBytes = 1 << 20

// RequireServiceAuth verifies the inter-service HMAC protocol on internal
// endpoints. The body is read in full for signature verification and replaced
// so downstream handlers can bind it. Accepts and rejects are both audited.
func RequireServiceAuth(verifier *svcauth.Verifier, audit port.AuditRepository, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			var err error
			body, err = io.ReadAll(io.LimitReader(c.Request.Body, maxServiceBodyBytes))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
					"error":   "validation_error",
					"message": "unreadable request body",
				})
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		attempt := svcauth.AttemptFromRequest(c.Request, string(body))
		if err := verifier.Verify(attempt); err != nil {
			recordServiceAuth(c, audit, log, domain.AuditServiceAuthRejected, attempt.ServiceID, rejectReason(err))

			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "service_auth_failed",
				"message": "service authentication failed",
			})
			return
		}

		recordServiceAuth(c, audit, log, domain.AuditServiceAuthAccepted, attempt.ServiceID, "")
		c.Set(CallerIDKey, attempt.ServiceID)

		c.Next()
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, svcauth.ErrMissingHeaders):
		return "missing_headers"
	case errors.Is(err, svcauth.ErrBadToken):
		return "bad_token"
	case errors.Is(err, svcauth.ErrBadTimestamp):
		return "bad_timestamp"
	case errors.Is(err, svcauth.ErrBadSignature):
		return "bad_signature"
	default:
		return "unknown"
	}
}

func recordServiceAuth(c *gin.Context, audit port.AuditRepository, log *zap.Logger, action domain.AuditAction, serviceID, reason string) {
	details := map[string]any{
		"service_id": serviceID,
		"path":       c.Request.URL.Path,
	}
	if reason != "" {
		details["reason"] = reason
	}

	entry := domain.AuditLog{
		ID:        uuid.NewString(),
		Action:    action,
		IP:        c.ClientIP(),
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if err := audit.Append(c.Request.Context(), entry); err != nil {
		log.Error("append service auth audit", zap.Error(err))
	}

	if action == domain.AuditServiceAuthRejected {
		log.Warn("service auth rejected",
			zap.String("service_id", serviceID),
			zap.String("reason", reason),
			zap.String("path", c.Request.URL.Path),
		)
	}
}
