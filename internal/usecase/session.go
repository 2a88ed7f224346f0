package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/core/port"
	"github.com/friendy21/workspace-auth/internal/infra/config"
	"github.com/friendy21/workspace-auth/internal/infra/security"
	"github.com/friendy21/workspace-auth/internal/repository"
)

// IssuedSession bundles a freshly created session with the raw token pair.
// Raw tokens exist only in this value and the response that carries them.
type IssuedSession struct {
	Session      domain.Session
	SessionToken string
	RefreshToken string
}

// RefreshResult is the outcome of a successful token rotation.
type RefreshResult struct {
	AccessToken  string
	SessionToken string
	RefreshToken string
	SessionID    string
	ExpiresIn    int
}

// SessionService manages the session lifecycle: creation, rotation,
// revocation, and per-request validation.
type SessionService struct {
	sessions  port.SessionRepository
	users     port.UserRepository
	audit     port.AuditRepository
	publisher port.EventPublisher
	issuer    *security.TokenIssuer
	cfg       config.SessionSettings
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(
	sessions port.SessionRepository,
	users port.UserRepository,
	audit port.AuditRepository,
	publisher port.EventPublisher,
	issuer *security.TokenIssuer,
	cfg config.SessionSettings,
	log *zap.Logger,
) *SessionService {
	return &SessionService{
		sessions:  sessions,
		users:     users,
		audit:     audit,
		publisher: publisher,
		issuer:    issuer,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	if now != nil {
		s.now = now
	}
	return s
}

// Create persists a new active session for the user with two independent
// random tokens. Only the SHA-256 hashes reach storage.
func (s *SessionService) Create(ctx context.Context, user domain.User, org domain.OrgContext, device domain.DeviceInfo, ip string, userAgent *string, rememberMe bool) (*IssuedSession, error) {
	sessionToken, err := security.GenerateSecureToken(s.cfg.TokenByteSize)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	refreshToken, err := security.GenerateSecureToken(s.cfg.TokenByteSize)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now().UTC()
	ttl := s.cfg.TTL
	if rememberMe {
		ttl = s.cfg.RememberMeTTL
	}

	session := domain.Session{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		SessionTokenHash: security.HashToken(sessionToken),
		RefreshTokenHash: security.HashToken(refreshToken),
		DeviceID:         device.ID,
		DeviceType:       device.Type,
		DeviceName:       device.Name,
		IP:               ip,
		UserAgent:        userAgent,
		OrgID:            org.OrgID,
		OrgRole:          org.Role,
		Status:           domain.SessionStatusActive,
		CreatedAt:        now,
		LastAccessed:     now,
		ExpiresAt:        now.Add(ttl),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &IssuedSession{
		Session:      session,
		SessionToken: sessionToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh rotates the token pair referenced by the raw refresh token. The
// rotation is a compare-and-swap on the stored refresh hash: of two
// concurrent refreshes with the same token exactly one succeeds, the other
// gets ErrSessionInvalid. The spent pair is unusable afterwards.
func (s *SessionService) Refresh(ctx context.Context, refreshToken, ip string) (*RefreshResult, error) {
	session, err := s.sessions.GetByRefreshTokenHash(ctx, security.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	now := s.now().UTC()
	if !session.IsUsable(now) {
		return nil, ErrSessionInvalid
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	newSessionToken, err := security.GenerateSecureToken(s.cfg.TokenByteSize)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	newRefreshToken, err := security.GenerateSecureToken(s.cfg.TokenByteSize)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	ttl := s.cfg.TTL
	expiresAt := now.Add(ttl)

	err = s.sessions.RotateTokens(ctx,
		session.ID,
		session.RefreshTokenHash,
		security.HashToken(newSessionToken),
		security.HashToken(newRefreshToken),
		expiresAt,
		now,
	)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("rotate session tokens: %w", err)
	}

	accessToken, err := s.issuer.Mint(*user, *session, session.OrgContext())
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	s.appendAudit(ctx, &session.UserID, domain.AuditSessionRefreshed, ip, session.UserAgent, map[string]any{
		"session_id": session.ID,
	})

	return &RefreshResult{
		AccessToken:  accessToken,
		SessionToken: newSessionToken,
		RefreshToken: newRefreshToken,
		SessionID:    session.ID,
		ExpiresIn:    int(s.issuer.TTL().Seconds()),
	}, nil
}

// Revoke ends one of the user's sessions. Revoking a session that is already
// revoked succeeds; revoking someone else's session is indistinguishable from
// revoking a session that does not exist.
func (s *SessionService) Revoke(ctx context.Context, userID, sessionID, ip string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionInvalid
		}
		return fmt.Errorf("lookup session: %w", err)
	}
	if session.UserID != userID {
		return ErrSessionInvalid
	}

	if err := s.sessions.Revoke(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}

	now := s.now().UTC()
	s.appendAudit(ctx, &userID, domain.AuditSessionRevoked, ip, nil, map[string]any{
		"session_id": sessionID,
	})
	s.publishRevoked(ctx, sessionID, userID, "user_revoked", now)

	return nil
}

// RevokeAll revokes every active session for the user except the optionally
// excluded one and returns the number revoked.
func (s *SessionService) RevokeAll(ctx context.Context, userID string, exceptSessionID *string, ip, reason string) (int, error) {
	count, err := s.sessions.RevokeAllForUser(ctx, userID, exceptSessionID)
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}

	now := s.now().UTC()
	s.appendAudit(ctx, &userID, domain.AuditLogoutAll, ip, nil, map[string]any{
		"sessions_revoked": count,
		"reason":           reason,
	})
	s.publishRevoked(ctx, "", userID, reason, now)

	return count, nil
}

// List returns the user's active sessions, newest access first.
func (s *SessionService) List(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.sessions.ListActiveByUser(ctx, userID)
}

// Validate authenticates one request: verifies the access token, cross-checks
// that the referenced session is still usable and that the token was minted
// against the user's current password, then bumps last_accessed.
func (s *SessionService) Validate(ctx context.Context, rawAccessToken string) (*domain.User, *domain.Session, *security.AccessTokenClaims, error) {
	claims, err := s.issuer.Verify(rawAccessToken)
	if err != nil {
		return nil, nil, nil, err
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, nil, ErrSessionInvalid
		}
		return nil, nil, nil, fmt.Errorf("lookup session: %w", err)
	}

	now := s.now().UTC()
	if !session.IsUsable(now) {
		return nil, nil, nil, ErrSessionInvalid
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, nil, ErrSessionInvalid
		}
		return nil, nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, nil, ErrAccountInactive
	}

	// A token minted before the last password change is stale even when its
	// signature and expiry are fine.
	if claims.PasswordEpoch != user.PasswordEpoch() {
		return nil, nil, nil, ErrSessionInvalid
	}

	if err := s.sessions.Touch(ctx, session.ID, now); err != nil {
		s.logger.Warn("touch session", zap.String("session_id", session.ID), zap.Error(err))
	}
	session.Touch(now)

	return user, session, claims, nil
}

// PurgeExpired flips elapsed sessions to expired. Validation never depends on
// this; it keeps listings clean.
func (s *SessionService) PurgeExpired(ctx context.Context) (int, error) {
	return s.sessions.MarkExpired(ctx, s.now().UTC())
}

func (s *SessionService) appendAudit(ctx context.Context, userID *string, action domain.AuditAction, ip string, userAgent *string, details map[string]any) {
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

func (s *SessionService) publishRevoked(ctx context.Context, sessionID, userID, reason string, at time.Time) {
	event := domain.SessionRevokedEvent{
		EventID:   uuid.NewString(),
		SessionID: sessionID,
		UserID:    userID,
		Reason:    reason,
		RevokedAt: at,
	}
	if err := s.publisher.PublishSessionRevoked(ctx, event); err != nil {
		s.logger.Warn("publish session revoked", zap.Error(err))
	}
}
