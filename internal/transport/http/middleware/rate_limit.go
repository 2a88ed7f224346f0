package middleware

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/core/port"
)

// RateLimitRule names one throttle and how requests are keyed under it.
type RateLimitRule struct {
	Name   string
	Limit  int
	Window time.Duration
	Key    func(c *gin.Context) string
}

// KeyByIP keys the rule on the client address.
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByUser keys the rule on the authenticated user, falling back to the
// client address before authentication.
func KeyByUser(c *gin.Context) string {
	if user, ok := CurrentUser(c); ok {
		return user.ID
	}
	return c.ClientIP()
}

// RateLimit enforces a fixed-window throttle backed by the shared store.
// Exceeding the limit yields 429 with a Retry-After hint equal to the time
// left in the window. Store failures fail open: throttling is protection, not
// a dependency the API should die with.
func RateLimit(store port.RateLimitStore, rule RateLimitRule, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", rule.Name, rule.Key(c))

		count, remaining, err := store.Incr(c.Request.Context(), key, rule.Window)
		if err != nil {
			log.Warn("rate limit store failure", zap.String("rule", rule.Name), zap.Error(err))
			c.Next()
			return
		}

		if count > rule.Limit {
			retryAfter := int(math.Ceil(remaining.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"message":     "too many requests, slow down",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
