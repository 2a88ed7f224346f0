package handlers

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/friendy21/workspace-auth/internal/infra/security"
	"github.com/friendy21/workspace-auth/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status and wire code.
type ErrorCase struct {
	Err     error
	Status  int
	Code    string
	Message string
}

// RespondWithMappedError resolves the error against the cases, then the
// cross-cutting failure kinds, then a generic 500.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Code, cs.Message))
			return
		}
	}

	var lockedErr *usecase.AccountLockedError
	if errors.As(err, &lockedErr) {
		resp := NewErrorResponse(c, "account_locked", "account temporarily locked due to repeated failures")
		retry := int(math.Ceil(lockedErr.RetryAfter(time.Now().UTC()).Seconds()))
		if retry > 0 {
			resp.RetryAfter = &retry
		}
		c.JSON(http.StatusLocked, resp)
		return
	}

	var policyErr *security.PasswordPolicyError
	if errors.As(err, &policyErr) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", policyErr.Message))
		return
	}

	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid_credentials", "invalid email or password"))
	case errors.Is(err, usecase.ErrAccountInactive):
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "account_inactive", "account is deactivated"))
	case errors.Is(err, usecase.ErrSessionInvalid):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "session_invalid", "session is no longer valid"))
	case errors.Is(err, security.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "token_expired", "access token expired"))
	case errors.Is(err, usecase.ErrServiceUnavailable):
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "service_unavailable", "a dependent service is unavailable, try again later"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal_error", "internal server error"))
	}
}

func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", message))
}
