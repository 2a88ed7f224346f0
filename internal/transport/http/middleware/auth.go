package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/friendy21/workspace-auth/internal/infra/security"
	"github.com/friendy21/workspace-auth/internal/usecase"
)

// RequireAuth validates the Authorization bearer token and loads the user and
// session it references. Beyond signature and expiry it cross-checks that the
// session is still active and the token was minted against the current
// password, so revocation and password changes take effect immediately.
func RequireAuth(sessions *usecase.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "session_invalid", "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(c, "session_invalid", "invalid authorization format: expected 'Bearer <token>'")
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			unauthorized(c, "session_invalid", "missing access token")
			return
		}

		user, session, _, err := sessions.Validate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrTokenExpired):
				unauthorized(c, "token_expired", "access token expired")
			case errors.Is(err, security.ErrTokenInvalid):
				unauthorized(c, "session_invalid", "invalid access token")
			case errors.Is(err, usecase.ErrSessionInvalid):
				unauthorized(c, "session_invalid", "session is no longer valid")
			case errors.Is(err, usecase.ErrAccountInactive):
				unauthorized(c, "account_inactive", "account is deactivated")
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "internal_error",
					"message": "authentication failed",
				})
			}
			return
		}

		c.Set(UserKey, user)
		c.Set(SessionKey, session)
		c.Set(UserIDKey, user.ID)

		c.Next()
	}
}

func unauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   code,
		"message": message,
	})
}
