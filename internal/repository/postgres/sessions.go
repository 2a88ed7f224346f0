package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/core/port"
	"github.com/friendy21/workspace-auth/internal/repository"
)

const sessionColumns = "id, user_id, session_token_hash, refresh_token_hash, device_id, device_type, device_name, ip_address, user_agent, org_id, org_role, status, created_at, last_accessed, expires_at"

// SessionRepository implements port.SessionRepository backed by PostgreSQL.
type SessionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewSessionRepository(exec pgExecutor) *SessionRepository {
	repo := &SessionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *SessionRepository) WithTx(tx pgx.Tx) *SessionRepository {
	if tx == nil {
		return r
	}
	return &SessionRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	query := r.builder.Insert("auth_sessions").
		Columns(
			"id",
			"user_id",
			"session_token_hash",
			"refresh_token_hash",
			"device_id",
			"device_type",
			"device_name",
			"ip_address",
			"user_agent",
			"org_id",
			"org_role",
			"status",
			"created_at",
			"last_accessed",
			"expires_at",
		).
		Values(
			session.ID,
			session.UserID,
			session.SessionTokenHash,
			session.RefreshTokenHash,
			session.DeviceID,
			string(session.DeviceType),
			session.DeviceName,
			session.IP,
			session.UserAgent,
			session.OrgID,
			string(session.OrgRole),
			string(session.Status),
			session.CreatedAt,
			session.LastAccessed,
			session.ExpiresAt,
		)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by identifier.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetBySessionTokenHash retrieves a session by its session token hash.
func (r *SessionRepository) GetBySessionTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	return r.getOne(ctx, squirrel.Eq{"session_token_hash": hash})
}

// GetByRefreshTokenHash retrieves a session by its refresh token hash.
func (r *SessionRepository) GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	return r.getOne(ctx, squirrel.Eq{"refresh_token_hash": hash})
}

func (r *SessionRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.Session, error) {
	stmt, args, err := r.builder.
		Select(strings.Split(sessionColumns, ", ")...).
		From("auth_sessions").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	session, err := scanSession(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}

	return session, nil
}

// ListActiveByUser returns the user's active sessions ordered by last access.
func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	stmt, args, err := r.builder.
		Select(strings.Split(sessionColumns, ", ")...).
		From("auth_sessions").
		Where(squirrel.Eq{"user_id": userID, "status": string(domain.SessionStatusActive)}).
		OrderBy("last_accessed DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// CountActiveByUser counts the user's active sessions.
func (r *SessionRepository) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From("auth_sessions").
		Where(squirrel.Eq{"user_id": userID, "status": string(domain.SessionStatusActive)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count sessions sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}

	return count, nil
}

// RotateTokens atomically replaces both token hashes and extends expiry. The
// update is guarded on the current refresh token hash and active status, so
// two concurrent refreshes from the same token resolve to exactly one winner.
func (r *SessionRepository) RotateTokens(ctx context.Context, sessionID, oldRefreshHash, newSessionHash, newRefreshHash string, expiresAt, at time.Time) error {
	stmt, args, err := r.builder.Update("auth_sessions").
		Set("session_token_hash", newSessionHash).
		Set("refresh_token_hash", newRefreshHash).
		Set("expires_at", expiresAt).
		Set("last_accessed", at).
		Where(squirrel.Eq{
			"id":                 sessionID,
			"refresh_token_hash": oldRefreshHash,
			"status":             string(domain.SessionStatusActive),
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build rotate tokens sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("rotate tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Revoke marks the session revoked. Revoking a session that is already
// revoked succeeds without effect.
func (r *SessionRepository) Revoke(ctx context.Context, sessionID string) error {
	stmt, args, err := r.builder.Update("auth_sessions").
		Set("status", string(domain.SessionStatusRevoked)).
		Where(squirrel.Eq{"id": sessionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke session sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RevokeAllForUser revokes every active session for the user except the
// optionally excluded one and returns the number revoked.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string, exceptSessionID *string) (int, error) {
	query := r.builder.Update("auth_sessions").
		Set("status", string(domain.SessionStatusRevoked)).
		Where(squirrel.Eq{"user_id": userID, "status": string(domain.SessionStatusActive)})

	if exceptSessionID != nil {
		query = query.Where(squirrel.NotEq{"id": *exceptSessionID})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke all sessions sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// Touch bumps last_accessed when the session authenticates a request.
func (r *SessionRepository) Touch(ctx context.Context, sessionID string, at time.Time) error {
	stmt, args, err := r.builder.Update("auth_sessions").
		Set("last_accessed", at).
		Where(squirrel.Eq{"id": sessionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	return nil
}

// MarkExpired flips active sessions whose expiry has elapsed to expired.
func (r *SessionRepository) MarkExpired(ctx context.Context, before time.Time) (int, error) {
	stmt, args, err := r.builder.Update("auth_sessions").
		Set("status", string(domain.SessionStatusExpired)).
		Where(squirrel.Eq{"status": string(domain.SessionStatusActive)}).
		Where(squirrel.LtOrEq{"expires_at": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build mark expired sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("mark expired sessions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		session    domain.Session
		deviceType string
		orgRole    string
		status     string
	)

	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.SessionTokenHash,
		&session.RefreshTokenHash,
		&session.DeviceID,
		&deviceType,
		&session.DeviceName,
		&session.IP,
		&session.UserAgent,
		&session.OrgID,
		&orgRole,
		&status,
		&session.CreatedAt,
		&session.LastAccessed,
		&session.ExpiresAt,
	); err != nil {
		return nil, err
	}

	session.DeviceType = domain.ParseDeviceType(deviceType)
	session.OrgRole = domain.OrgRole(orgRole)
	session.Status = domain.SessionStatus(status)

	return &session, nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
