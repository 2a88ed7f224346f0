package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/core/port"
	"github.com/friendy21/workspace-auth/internal/infra/logger"
	"github.com/friendy21/workspace-auth/internal/infra/security"
	"github.com/friendy21/workspace-auth/internal/orgclient"
	"github.com/friendy21/workspace-auth/internal/repository"
)

// LoginInput carries everything the login flow needs from the transport layer.
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
	IP         string
	UserAgent  *string
	Device     domain.DeviceInfo
}

// LoginResult is the successful outcome of a login.
type LoginResult struct {
	AccessToken     string
	SessionToken    string
	RefreshToken    string
	SessionID       string
	ExpiresIn       int
	User            domain.User
	Org             domain.OrgContext
	SecurityWarning *string
}

// AuthService orchestrates the login flow: credentials and lockout, the
// security monitor, the org directory lookup, session creation, and token
// minting.
type AuthService struct {
	users     port.UserRepository
	audit     port.AuditRepository
	publisher port.EventPublisher
	orgs      port.OrgDirectory
	sessions  *SessionService
	monitor   *SecurityMonitor
	hasher    *security.PasswordHasher
	issuer    *security.TokenIssuer
	logger    *zap.Logger
	now       func() time.Time

	// decoyHash absorbs a password verification for unknown emails so the
	// response time does not reveal whether the account exists.
	decoyHash string
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	users port.UserRepository,
	audit port.AuditRepository,
	publisher port.EventPublisher,
	orgs port.OrgDirectory,
	sessions *SessionService,
	monitor *SecurityMonitor,
	hasher *security.PasswordHasher,
	issuer *security.TokenIssuer,
	log *zap.Logger,
) (*AuthService, error) {
	decoy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare decoy hash: %w", err)
	}

	return &AuthService{
		users:     users,
		audit:     audit,
		publisher: publisher,
		orgs:      orgs,
		sessions:  sessions,
		monitor:   monitor,
		hasher:    hasher,
		issuer:    issuer,
		logger:    log,
		now:       time.Now,
		decoyHash: decoy,
	}, nil
}

// WithClock injects a custom clock, primarily for testing.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login authenticates the user and establishes a session. Unknown email and
// wrong password produce the same error and comparable timing. The flow fails
// closed when the org directory cannot answer, and a session created before a
// later step failed is revoked before returning.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	log := s.logger.With(zap.String("email", logger.MaskEmail(email)), zap.String("ip", logger.MaskIP(input.IP)))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.failUnknownEmail(ctx, email, input, now)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if user.IsLocked(now) {
		return nil, s.failLocked(ctx, user, input, now)
	}

	// Deactivated accounts are rejected before the password is compared, so
	// they never accrue failed attempts or transition into a lockout.
	if !user.IsActive {
		s.appendAudit(ctx, &user.ID, domain.AuditLoginFailed, input.IP, input.UserAgent, map[string]any{
			"reason": "account_inactive",
		})
		return nil, ErrAccountInactive
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, s.failBadPassword(ctx, user, input, now)
	}

	// The counter resets on the password match itself. A later org outage
	// must not leave stale failed-attempt state behind.
	if err := s.users.ClearLoginFailures(ctx, user.ID, now); err != nil {
		log.Error("clear login failures", zap.Error(err))
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLogin = &now

	org, err := s.orgs.FetchOrgContext(ctx, email)
	if err != nil {
		return nil, s.failOrgLookup(ctx, user, input, err)
	}

	issued, err := s.sessions.Create(ctx, *user, *org, input.Device, input.IP, input.UserAgent, input.RememberMe)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	accessToken, err := s.issuer.Mint(*user, issued.Session, *org)
	if err != nil {
		// Never leak a session whose access token was never delivered.
		if revokeErr := s.sessions.sessions.Revoke(ctx, issued.Session.ID); revokeErr != nil {
			log.Error("rollback session after mint failure", zap.Error(revokeErr))
		}
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	flags := s.monitor.Observe(ctx, domain.LoginObservation{
		Email:      email,
		UserID:     &user.ID,
		IP:         input.IP,
		UserAgent:  input.UserAgent,
		Outcome:    domain.LoginOutcomeSuccess,
		ObservedAt: now,
	})

	s.appendAudit(ctx, &user.ID, domain.AuditLoginSuccess, input.IP, input.UserAgent, map[string]any{
		"session_id": issued.Session.ID,
		"org_id":     org.OrgID,
		"device":     string(input.Device.Type),
	})

	event := domain.LoginSucceededEvent{
		EventID:   uuid.NewString(),
		UserID:    user.ID,
		SessionID: issued.Session.ID,
		OrgID:     org.OrgID,
		IP:        input.IP,
		Device:    string(input.Device.Type),
		LoggedAt:  now,
	}
	if err := s.publisher.PublishLoginSucceeded(ctx, event); err != nil {
		log.Warn("publish login succeeded", zap.Error(err))
	}

	result := &LoginResult{
		AccessToken:  accessToken,
		SessionToken: issued.SessionToken,
		RefreshToken: issued.RefreshToken,
		SessionID:    issued.Session.ID,
		ExpiresIn:    int(s.issuer.TTL().Seconds()),
		User:         *user,
		Org:          *org,
	}
	if len(flags) > 0 {
		warning := warningForFlags(flags)
		result.SecurityWarning = &warning
	}

	log.Info("login succeeded", zap.String("session_id", issued.Session.ID))

	return result, nil
}

func (s *AuthService) failUnknownEmail(ctx context.Context, email string, input LoginInput, now time.Time) error {
	// Burn a hash verification so unknown emails cost the same as known ones.
	if _, err := s.hasher.Verify(input.Password, s.decoyHash); err != nil {
		s.logger.Warn("decoy verification", zap.Error(err))
	}

	s.monitor.Observe(ctx, domain.LoginObservation{
		Email:      email,
		IP:         input.IP,
		UserAgent:  input.UserAgent,
		Outcome:    domain.LoginOutcomeUnknownEmail,
		ObservedAt: now,
	})

	s.appendAudit(ctx, nil, domain.AuditLoginFailed, input.IP, input.UserAgent, map[string]any{
		"reason": "unknown_email",
		"email":  email,
	})
	s.publishLoginFailed(ctx, email, nil, input.IP, "unknown_email", now)

	return ErrInvalidCredentials
}

func (s *AuthService) failLocked(ctx context.Context, user *domain.User, input LoginInput, now time.Time) error {
	s.monitor.Observe(ctx, domain.LoginObservation{
		Email:      user.Email,
		UserID:     &user.ID,
		IP:         input.IP,
		UserAgent:  input.UserAgent,
		Outcome:    domain.LoginOutcomeLockedAccount,
		ObservedAt: now,
	})

	s.appendAudit(ctx, &user.ID, domain.AuditLoginFailed, input.IP, input.UserAgent, map[string]any{
		"reason":       "account_locked",
		"locked_until": user.LockedUntil.UTC().Format(time.RFC3339),
	})
	s.publishLoginFailed(ctx, user.Email, &user.ID, input.IP, "account_locked", now)

	return &AccountLockedError{Until: *user.LockedUntil}
}

func (s *AuthService) failBadPassword(ctx context.Context, user *domain.User, input LoginInput, now time.Time) error {
	attempts, lockedUntil, err := s.users.RecordLoginFailure(ctx, user.ID, now, now.Add(domain.LockoutDuration))
	if err != nil {
		s.logger.Error("record login failure", zap.Error(err))
	}

	s.monitor.Observe(ctx, domain.LoginObservation{
		Email:      user.Email,
		UserID:     &user.ID,
		IP:         input.IP,
		UserAgent:  input.UserAgent,
		Outcome:    domain.LoginOutcomeBadPassword,
		ObservedAt: now,
	})

	locked := lockedUntil != nil && lockedUntil.After(now)

	details := map[string]any{
		"reason":          "bad_password",
		"failed_attempts": attempts,
	}
	if locked {
		details["locked_until"] = lockedUntil.UTC().Format(time.RFC3339)
	}
	s.appendAudit(ctx, &user.ID, domain.AuditLoginFailed, input.IP, input.UserAgent, details)

	if locked {
		s.appendAudit(ctx, &user.ID, domain.AuditAccountLocked, input.IP, input.UserAgent, map[string]any{
			"locked_until": lockedUntil.UTC().Format(time.RFC3339),
		})
		s.publishLoginFailed(ctx, user.Email, &user.ID, input.IP, "account_locked", now)
		return &AccountLockedError{Until: *lockedUntil}
	}

	s.publishLoginFailed(ctx, user.Email, &user.ID, input.IP, "bad_password", now)

	return ErrInvalidCredentials
}

func (s *AuthService) failOrgLookup(ctx context.Context, user *domain.User, input LoginInput, cause error) error {
	reason := "org_lookup_failed"
	mapped := ErrServiceUnavailable

	switch {
	case errors.Is(cause, orgclient.ErrUserNotFound):
		// Credentials are right but no organization knows this user. To the
		// caller that is the same as wrong credentials.
		reason = "org_membership_missing"
		mapped = ErrInvalidCredentials
	case errors.Is(cause, orgclient.ErrServiceAuth):
		reason = "service_auth_rejected"
	case errors.Is(cause, orgclient.ErrUnavailable):
		reason = "org_service_unavailable"
	case errors.Is(cause, orgclient.ErrInternal):
		// The directory was reachable but misbehaving. Surface it as an
		// internal failure rather than unavailability.
		reason = "org_service_error"
		mapped = fmt.Errorf("organization service error: %w", cause)
	}

	s.logger.Warn("org lookup failed during login",
		zap.String("email", logger.MaskEmail(user.Email)),
		zap.String("reason", reason),
		zap.Error(cause),
	)

	s.appendAudit(ctx, &user.ID, domain.AuditLoginFailed, input.IP, input.UserAgent, map[string]any{
		"reason": reason,
	})

	return mapped
}

func (s *AuthService) appendAudit(ctx context.Context, userID *string, action domain.AuditAction, ip string, userAgent *string, details map[string]any) {
	entry := domain.AuditLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		IP:        ip,
		UserAgent: userAgent,
		Details:   details,
		CreatedAt: s.now().UTC(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("append audit entry", zap.String("action", string(action)), zap.Error(err))
	}
}

func (s *AuthService) publishLoginFailed(ctx context.Context, email string, userID *string, ip, reason string, at time.Time) {
	event := domain.LoginFailedEvent{
		EventID:  uuid.NewString(),
		Email:    email,
		UserID:   userID,
		IP:       ip,
		Reason:   reason,
		FailedAt: at,
	}
	if err := s.publisher.PublishLoginFailed(ctx, event); err != nil {
		s.logger.Warn("publish login failed", zap.Error(err))
	}
}

func warningForFlags(flags []domain.SecurityFlag) string {
	names := make([]string, 0, len(flags))
	for _, flag := range flags {
		names = append(names, string(flag))
	}
	return "unusual activity detected: " + strings.Join(names, ", ")
}
