package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/core/port"
	"github.com/friendy21/workspace-auth/internal/infra/logger"
)

// Detection thresholds. The monitor observes and reports; it never blocks a
// login on its own.
const (
	multipleIPThreshold = 3
	multipleIPWindow    = time.Hour

	enumerationThreshold = 5
	enumerationWindow    = 15 * time.Minute
)

// SecurityMonitor evaluates every finished login attempt for suspicious
// patterns. Detected flags are audited and published; on a successful login
// they surface as a security_warning on the response.
type SecurityMonitor struct {
	activity  port.LoginActivityStore
	audit     port.AuditRepository
	publisher port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewSecurityMonitor constructs a monitor over the given observation store.
func NewSecurityMonitor(
	activity port.LoginActivityStore,
	audit port.AuditRepository,
	publisher port.EventPublisher,
	log *zap.Logger,
) *SecurityMonitor {
	return &SecurityMonitor{
		activity:  activity,
		audit:     audit,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (m *SecurityMonitor) WithClock(now func() time.Time) *SecurityMonitor {
	if now != nil {
		m.now = now
	}
	return m
}

// Observe evaluates one login attempt and returns the flags it raised.
// Observation is best effort: store failures are logged and produce no flags
// rather than failing the login.
func (m *SecurityMonitor) Observe(ctx context.Context, obs domain.LoginObservation) []domain.SecurityFlag {
	var flags []domain.SecurityFlag

	switch obs.Outcome {
	case domain.LoginOutcomeLockedAccount:
		flags = append(flags, domain.FlagLockoutBypass)

	case domain.LoginOutcomeUnknownEmail:
		distinct, err := m.activity.RecordUnknownEmail(ctx, obs.IP, domain.NormalizeEmail(obs.Email), enumerationWindow)
		if err != nil {
			m.logger.Warn("security monitor: record unknown email", zap.Error(err))
		} else if distinct >= enumerationThreshold {
			flags = append(flags, domain.FlagEnumeration)
		}

	case domain.LoginOutcomeSuccess, domain.LoginOutcomeBadPassword:
		if obs.UserID != nil {
			distinct, err := m.activity.RecordAccountIP(ctx, *obs.UserID, obs.IP, multipleIPWindow)
			if err != nil {
				m.logger.Warn("security monitor: record account ip", zap.Error(err))
			} else if distinct >= multipleIPThreshold {
				flags = append(flags, domain.FlagMultipleIPs)
			}
		}
	}

	for _, flag := range flags {
		m.report(ctx, flag, obs)
	}

	return flags
}

func (m *SecurityMonitor) report(ctx context.Context, flag domain.SecurityFlag, obs domain.LoginObservation) {
	at := obs.ObservedAt
	if at.IsZero() {
		at = m.now().UTC()
	}

	details := map[string]any{
		"flag":    string(flag),
		"outcome": string(obs.Outcome),
	}

	entry := domain.AuditLog{
		ID:        uuid.NewString(),
		UserID:    obs.UserID,
		Action:    domain.AuditSecurityAlert,
		IP:        obs.IP,
		UserAgent: obs.UserAgent,
		Details:   details,
		CreatedAt: at,
	}
	if err := m.audit.Append(ctx, entry); err != nil {
		m.logger.Error("security monitor: append audit", zap.Error(err))
	}

	event := domain.SecurityAlertEvent{
		EventID:    uuid.NewString(),
		Flag:       flag,
		Email:      obs.Email,
		UserID:     obs.UserID,
		IP:         obs.IP,
		DetectedAt: at,
		Details:    details,
	}
	if err := m.publisher.PublishSecurityAlert(ctx, event); err != nil {
		m.logger.Warn("security monitor: publish alert", zap.Error(err))
	}

	m.logger.Warn("security flag raised",
		zap.String("flag", string(flag)),
		zap.String("email", logger.MaskEmail(obs.Email)),
		zap.String("ip", logger.MaskIP(obs.IP)),
	)
}

// SecuritySummary is the per-user view served by the security endpoint.
type SecuritySummary struct {
	ActiveSessions      int
	FailedLoginAttempts int
	Locked              bool
	LockedUntil         *time.Time
	RecentLogins        int
	LastLogin           *time.Time
}

// SecurityService assembles the per-user security summary.
type SecurityService struct {
	users    port.UserRepository
	sessions port.SessionRepository
	audit    port.AuditRepository
	now      func() time.Time
}

// NewSecurityService constructs the summary service.
func NewSecurityService(users port.UserRepository, sessions port.SessionRepository, audit port.AuditRepository) *SecurityService {
	return &SecurityService{
		users:    users,
		sessions: sessions,
		audit:    audit,
		now:      time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *SecurityService) WithClock(now func() time.Time) *SecurityService {
	if now != nil {
		s.now = now
	}
	return s
}

// Summary builds the security overview for a user.
func (s *SecurityService) Summary(ctx context.Context, userID string) (*SecuritySummary, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	active, err := s.sessions.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	recent, err := s.audit.CountByUserAction(ctx, userID, domain.AuditLoginSuccess, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	summary := &SecuritySummary{
		ActiveSessions:      active,
		FailedLoginAttempts: user.FailedLoginAttempts,
		Locked:              user.IsLocked(now),
		RecentLogins:        recent,
		LastLogin:           user.LastLogin,
	}
	if summary.Locked {
		summary.LockedUntil = user.LockedUntil
	}

	return summary, nil
}
