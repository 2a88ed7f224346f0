package port

import (
	"context"

	"github.com/friendy21/workspace-auth/internal/core/domain"
)

// OrgDirectory resolves organization context for a user during login. The
// production implementation is an HMAC-authenticated HTTP client against the
// Organization Service; tests substitute an in-memory directory.
type OrgDirectory interface {
	FetchOrgContext(ctx context.Context, email string) (*domain.OrgContext, error)
}

// OrgRepository defines the Organization Service's own persistence operations.
type OrgRepository interface {
	GetOrganization(ctx context.Context, id string) (*domain.Organization, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.OrgUser, error)
	ListUsersByOrg(ctx context.Context, orgID string) ([]domain.OrgUser, error)
}
