package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured, typically in development.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	all := append([]zap.Field{
		zap.String("event_type", eventType),
		zap.Time("timestamp", at.UTC()),
	}, fields...)

	p.logger.Info("stub event published", all...)
}

// PublishLoginSucceeded logs auth.login.succeeded events.
func (p *StubPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	p.logEvent("auth.login.succeeded", event.LoggedAt,
		zap.String("user_id", event.UserID),
		zap.String("session_id", event.SessionID),
		zap.String("org_id", event.OrgID),
	)
	return nil
}

// PublishLoginFailed logs auth.login.failed events.
func (p *StubPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	p.logEvent("auth.login.failed", event.FailedAt,
		zap.String("reason", event.Reason),
		zap.Stringp("user_id", event.UserID),
	)
	return nil
}

// PublishSessionRevoked logs auth.session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.logEvent("auth.session.revoked", event.RevokedAt,
		zap.String("session_id", event.SessionID),
		zap.String("user_id", event.UserID),
		zap.String("reason", event.Reason),
	)
	return nil
}

// PublishPasswordChanged logs auth.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.logEvent("auth.password.changed", event.ChangedAt,
		zap.String("user_id", event.UserID),
		zap.Int("sessions_revoked", event.SessionsRevoked),
	)
	return nil
}

// PublishSecurityAlert logs auth.security.alert events.
func (p *StubPublisher) PublishSecurityAlert(_ context.Context, event domain.SecurityAlertEvent) error {
	p.logEvent("auth.security.alert", event.DetectedAt,
		zap.String("flag", string(event.Flag)),
		zap.Stringp("user_id", event.UserID),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
