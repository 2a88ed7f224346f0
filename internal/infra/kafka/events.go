package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/core/port"
	"github.com/friendy21/workspace-auth/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishLoginSucceeded publishes auth.login.succeeded events.
func (p *EventPublisher) PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error {
	payload := struct {
		UserID    string    `json:"user_id"`
		SessionID string    `json:"session_id"`
		OrgID     string    `json:"org_id"`
		IP        string    `json:"ip"`
		Device    string    `json:"device,omitempty"`
		LoggedAt  time.Time `json:"logged_at"`
	}{
		UserID:    event.UserID,
		SessionID: event.SessionID,
		OrgID:     event.OrgID,
		IP:        event.IP,
		Device:    event.Device,
		LoggedAt:  event.LoggedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.login.succeeded", event.UserID, event.LoggedAt, payload)
}

// PublishLoginFailed publishes auth.login.failed events.
func (p *EventPublisher) PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error {
	payload := struct {
		Email    string    `json:"email"`
		UserID   *string   `json:"user_id,omitempty"`
		IP       string    `json:"ip"`
		Reason   string    `json:"reason"`
		FailedAt time.Time `json:"failed_at"`
	}{
		Email:    event.Email,
		UserID:   event.UserID,
		IP:       event.IP,
		Reason:   event.Reason,
		FailedAt: event.FailedAt.UTC(),
	}

	userID := ""
	if event.UserID != nil {
		userID = *event.UserID
	}

	return p.publish(ctx, event.EventID, "auth.login.failed", userID, event.FailedAt, payload)
}

// PublishSessionRevoked publishes auth.session.revoked events.
func (p *EventPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	payload := struct {
		SessionID string    `json:"session_id"`
		UserID    string    `json:"user_id"`
		Reason    string    `json:"reason"`
		RevokedAt time.Time `json:"revoked_at"`
	}{
		SessionID: event.SessionID,
		UserID:    event.UserID,
		Reason:    event.Reason,
		RevokedAt: event.RevokedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.session.revoked", event.UserID, event.RevokedAt, payload)
}

// PublishPasswordChanged publishes auth.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		UserID          string    `json:"user_id"`
		SessionsRevoked int       `json:"sessions_revoked"`
		ChangedAt       time.Time `json:"changed_at"`
	}{
		UserID:          event.UserID,
		SessionsRevoked: event.SessionsRevoked,
		ChangedAt:       event.ChangedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.password.changed", event.UserID, event.ChangedAt, payload)
}

// PublishSecurityAlert publishes auth.security.alert events.
func (p *EventPublisher) PublishSecurityAlert(ctx context.Context, event domain.SecurityAlertEvent) error {
	payload := struct {
		Flag       string         `json:"flag"`
		Email      string         `json:"email,omitempty"`
		UserID     *string        `json:"user_id,omitempty"`
		IP         string         `json:"ip"`
		DetectedAt time.Time      `json:"detected_at"`
		Details    map[string]any `json:"details,omitempty"`
	}{
		Flag:       string(event.Flag),
		Email:      event.Email,
		UserID:     event.UserID,
		IP:         event.IP,
		DetectedAt: event.DetectedAt.UTC(),
		Details:    event.Details,
	}

	userID := ""
	if event.UserID != nil {
		userID = *event.UserID
	}

	return p.publish(ctx, event.EventID, "auth.security.alert", userID, event.DetectedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
