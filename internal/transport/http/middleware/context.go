package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/friendy21/workspace-auth/internal/core/domain"
)

// Context keys for values the middleware chain stores on the request.
const (
	UserKey     = "auth_user"
	SessionKey  = "auth_session"
	UserIDKey   = "user_id"
	CallerIDKey = "service_caller_id"
)

// CurrentUser returns the authenticated user stored by RequireAuth.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	value, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*domain.User)
	return user, ok
}

// CurrentSession returns the authenticated session stored by RequireAuth.
func CurrentSession(c *gin.Context) (*domain.Session, bool) {
	value, exists := c.Get(SessionKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*domain.Session)
	return session, ok
}

// CallerServiceID returns the verified peer service id stored by RequireServiceAuth.
func CallerServiceID(c *gin.Context) string {
	value, exists := c.Get(CallerIDKey)
	if !exists {
		return ""
	}
	id, _ := value.(string)
	return id
}
