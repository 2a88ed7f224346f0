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
	"github.com/friendy21/workspace-auth/internal/infra/logger"
	"github.com/friendy21/workspace-auth/internal/infra/security"
	"github.com/friendy21/workspace-auth/internal/repository"
)

// PasswordService implements the password change and reset flows.
type PasswordService struct {
	users       port.UserRepository
	sessions    *SessionService
	resetTokens port.PasswordResetTokenRepository
	audit       port.AuditRepository
	publisher   port.EventPublisher
	hasher      *security.PasswordHasher
	policy      *security.PasswordPolicy
	cfg         config.SessionSettings
	logger      *zap.Logger
	now         func() time.Time
}

// NewPasswordService constructs a PasswordService.
func NewPasswordService(
	users port.UserRepository,
	sessions *SessionService,
	resetTokens port.PasswordResetTokenRepository,
	audit port.AuditRepository,
	publisher port.EventPublisher,
	hasher *security.PasswordHasher,
	policy *security.PasswordPolicy,
	cfg config.SessionSettings,
	log *zap.Logger,
) *PasswordService {
	return &PasswordService{
		users:       users,
		sessions:    sessions,
		resetTokens: resetTokens,
		audit:       audit,
		publisher:   publisher,
		hasher:      hasher,
		policy:      policy,
		cfg:         cfg,
		logger:      log,
		now:         time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *PasswordService) WithClock(now func() time.Time) *PasswordService {
	if now != nil {
		s.now = now
	}
	return s
}

// Change swaps the user's password after verifying the current one. Bumping
// password_changed_at invalidates every outstanding access token through the
// middleware epoch check. With logoutAllDevices every other session dies too;
// the current one survives so the caller is not logged out by the change.
func (s *PasswordService) Change(ctx context.Context, userID, currentPassword, newPassword string, logoutAllDevices bool, currentSessionID, ip string) (int, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(currentPassword, user.PasswordHash)
	if err != nil {
		return 0, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return 0, ErrInvalidCredentials
	}

	if err := s.policy.Validate(newPassword, user.Email); err != nil {
		return 0, err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	if err := s.users.UpdatePassword(ctx, userID, hash, now); err != nil {
		return 0, fmt.Errorf("update password: %w", err)
	}

	if _, err := s.resetTokens.InvalidateForUser(ctx, userID, now); err != nil {
		s.logger.Warn("invalidate reset tokens", zap.Error(err))
	}

	revoked := 0
	if logoutAllDevices {
		except := &currentSessionID
		if currentSessionID == "" {
			except = nil
		}
		revoked, err = s.sessions.RevokeAll(ctx, userID, except, ip, "password_changed")
		if err != nil {
			s.logger.Error("revoke sessions after password change", zap.Error(err))
		}
	}

	s.appendAudit(ctx, &userID, domain.AuditPasswordChanged, ip, map[string]any{
		"logout_all_devices": logoutAllDevices,
		"sessions_revoked":   revoked,
	})

	event := domain.PasswordChangedEvent{
		EventID:         uuid.NewString(),
		UserID:          userID,
		SessionsRevoked: revoked,
		ChangedAt:       now,
	}
	if err := s.publisher.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed", zap.Error(err))
	}

	return revoked, nil
}

// RequestReset issues a single-use reset token for the account. The response
// is identical whether or not the email exists; delivery happens out of band.
func (s *PasswordService) RequestReset(ctx context.Context, email, ip string) error {
	normalized := domain.NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Same outcome as the known-email path from the outside.
			s.logger.Info("reset requested for unknown email",
				zap.String("email", logger.MaskEmail(normalized)),
				zap.String("ip", logger.MaskIP(ip)),
			)
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	now := s.now().UTC()

	// A new request supersedes any outstanding token.
	if _, err := s.resetTokens.InvalidateForUser(ctx, user.ID, now); err != nil {
		s.logger.Warn("invalidate reset tokens", zap.Error(err))
	}

	raw, err := security.GenerateSecureToken(s.cfg.TokenByteSize)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	token := domain.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(raw),
		ExpiresAt: now.Add(s.cfg.ResetTokenTTL),
		CreatedAt: now,
	}
	if err := s.resetTokens.Create(ctx, token); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	s.appendAudit(ctx, &user.ID, domain.AuditPasswordResetRequested, ip, map[string]any{
		"expires_at": token.ExpiresAt.Format(time.RFC3339),
	})

	// Delivery is a notification concern. Until a mail pipeline exists the
	// token is logged masked for operator-assisted resets.
	s.logger.Info("password reset token issued",
		zap.String("user_id", user.ID),
		zap.String("token", logger.MaskString(raw)),
	)

	return nil
}

// CompleteReset redeems a reset token and sets the new password. The token is
// spent with a guarded update first, so a concurrently redeemed or reused
// token fails cleanly. Every active session dies with the reset.
func (s *PasswordService) CompleteReset(ctx context.Context, rawToken, newPassword, ip string) error {
	token, err := s.resetTokens.GetByTokenHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	now := s.now().UTC()
	if !token.IsUsable(now) {
		return ErrResetTokenInvalid
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if err := s.policy.Validate(newPassword, user.Email); err != nil {
		return err
	}

	if err := s.resetTokens.MarkUsed(ctx, token.ID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	revoked, err := s.sessions.RevokeAll(ctx, user.ID, nil, ip, "password_reset")
	if err != nil {
		s.logger.Error("revoke sessions after password reset", zap.Error(err))
	}

	s.appendAudit(ctx, &user.ID, domain.AuditPasswordResetCompleted, ip, map[string]any{
		"sessions_revoked": revoked,
	})

	event := domain.PasswordChangedEvent{
		EventID:         uuid.NewString(),
		UserID:          user.ID,
		SessionsRevoked: revoked,
		ChangedAt:       now,
	}
	if err := s.publisher.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed", zap.Error(err))
	}

	return nil
}

func (s *PasswordService) appendAudit(ctx context.Context, userID *string, action domain.AuditAction, ip string, details map[string]any) {
	entry := domain.AuditLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		IP:        ip,
		Details:   details,
		CreatedAt: s.now().UTC(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("append audit entry", zap.String("action", string(action)), zap.Error(err))
	}
}
