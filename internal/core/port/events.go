package port

import (
	"context"

	"github.com/friendy21/workspace-auth/internal/core/domain"
)

// EventPublisher mirrors audit-relevant happenings onto the message bus so
// downstream consumers (SIEM, analytics) see them without polling the audit
// table. Publishing is best-effort; a failed publish never fails the request.
type EventPublisher interface {
	PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error
	PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error
	PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishSecurityAlert(ctx context.Context, event domain.SecurityAlertEvent) error
}
