package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/core/port"
	"github.com/friendy21/workspace-auth/internal/infra/logger"
	"github.com/friendy21/workspace-auth/internal/repository"
)

// ErrOrgUserNotFound indicates no active organization member matches the email.
var ErrOrgUserNotFound = errors.New("organization user not found")

// OrgService serves the Organization Service's directory operations.
type OrgService struct {
	orgs   port.OrgRepository
	logger *zap.Logger
}

// NewOrgService constructs an OrgService.
func NewOrgService(orgs port.OrgRepository, log *zap.Logger) *OrgService {
	return &OrgService{orgs: orgs, logger: log}
}

// LookupUser resolves the organization context for an email. Deactivated
// members resolve as not found.
func (s *OrgService) LookupUser(ctx context.Context, email string) (*domain.OrgContext, error) {
	user, err := s.orgs.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug("directory miss", zap.String("email", logger.MaskEmail(email)))
			return nil, ErrOrgUserNotFound
		}
		return nil, fmt.Errorf("lookup org user: %w", err)
	}

	return &domain.OrgContext{
		UserID: user.ID,
		OrgID:  user.OrgID,
		Role:   user.Role,
	}, nil
}

// GetOrganization returns one organization by id.
func (s *OrgService) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	org, err := s.orgs.GetOrganization(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrgUserNotFound
		}
		return nil, fmt.Errorf("lookup organization: %w", err)
	}
	return org, nil
}

// ListMembers returns the active members of an organization.
func (s *OrgService) ListMembers(ctx context.Context, orgID string) ([]domain.OrgUser, error) {
	return s.orgs.ListUsersByOrg(ctx, orgID)
}
