// Package orgclient is the HTTP client the Authentication Service uses to
// resolve organization context during login. Every request is signed with the
// inter-service HMAC protocol; failures classify into a small set of
// sentinels the login flow maps onto its own error taxonomy.
package orgclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/core/port"
	"github.com/friendy21/workspace-auth/internal/svcauth"
)

var (
	// ErrUserNotFound indicates the directory has no active member for the email.
	ErrUserNotFound = errors.New("orgclient: user not found")
	// ErrUnavailable indicates the Organization Service could not be reached
	// in time. Login fails closed on this error.
	ErrUnavailable = errors.New("orgclient: organization service unavailable")
	// ErrServiceAuth indicates the Organization Service rejected our
	// inter-service credentials. This is a deployment fault, not user error.
	ErrServiceAuth = errors.New("orgclient: service authentication rejected")
	// ErrInternal indicates the Organization Service answered with an
	// unexpected status. The service was reachable, so this is not an
	// availability problem; login still fails closed on it.
	ErrInternal = errors.New("orgclient: organization service error")
)

// Client resolves organization context over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	signer  *svcauth.Signer
	logger  *zap.Logger
}

// New constructs a client for the given base URL. The timeout bounds the
// whole exchange including connection setup.
func New(baseURL string, timeout time.Duration, signer *svcauth.Signer, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		signer:  signer,
		logger:  logger,
	}
}

type orgContextResponse struct {
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
	Role   string `json:"role"`
}

// FetchOrgContext looks up the user's organization membership by email.
func (c *Client) FetchOrgContext(ctx context.Context, email string) (*domain.OrgContext, error) {
	path := fmt.Sprintf("/internal/users/%s/", url.PathEscape(domain.NormalizeEmail(email)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build org lookup request: %w", err)
	}
	c.signer.Apply(req, "")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("org lookup transport failure", zap.Error(err))
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return nil, ErrUserNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		c.logger.Error("org lookup rejected service credentials", zap.Int("status", resp.StatusCode))
		return nil, ErrServiceAuth
	default:
		c.logger.Warn("org lookup unexpected status", zap.Int("status", resp.StatusCode))
		return nil, ErrInternal
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, ErrUnavailable
	}

	var payload orgContextResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode org lookup response: %w", err)
	}
	if payload.UserID == "" || payload.OrgID == "" {
		return nil, fmt.Errorf("org lookup response missing identifiers")
	}

	return &domain.OrgContext{
		UserID: payload.UserID,
		OrgID:  payload.OrgID,
		Role:   domain.OrgRole(payload.Role),
	}, nil
}

var _ port.OrgDirectory = (*Client)(nil)
