package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/friendy21/workspace-auth/internal/infra/security"
)

// ClaimsKey stores the verified access token claims on the request.
const ClaimsKey = "auth_claims"

// RequireToken verifies the bearer token statelessly: signature, expiry, and
// issuer. Services that do not own the session store use this instead of
// RequireAuth; revocation takes effect there when the short-lived token dies.
func RequireToken(issuer *security.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if authHeader == "" || len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(c, "session_invalid", "missing or malformed authorization header")
			return
		}

		claims, err := issuer.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, security.ErrTokenExpired) {
				unauthorized(c, "token_expired", "access token expired")
			} else {
				unauthorized(c, "session_invalid", "invalid access token")
			}
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, claims.Subject)

		c.Next()
	}
}

// CurrentClaims returns the verified claims stored by RequireToken.
func CurrentClaims(c *gin.Context) (*security.AccessTokenClaims, bool) {
	value, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*security.AccessTokenClaims)
	return claims, ok
}
