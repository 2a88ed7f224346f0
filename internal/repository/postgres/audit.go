package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/core/port"
)

const auditColumns = "id, user_id, action, ip_address, user_agent, details, created_at"

// AuditRepository implements the append-only audit trail in PostgreSQL.
type AuditRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAuditRepository(exec pgExecutor) *AuditRepository {
	repo := &AuditRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Append inserts an audit row. Details are stored as JSONB.
func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditLog) error {
	var details any
	if len(entry.Details) > 0 {
		encoded, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		details = encoded
	}

	stmt, args, err := r.builder.Insert("auth_audit_log").
		Columns("id", "user_id", "action", "ip_address", "user_agent", "details", "created_at").
		Values(
			entry.ID,
			entry.UserID,
			string(entry.Action),
			entry.IP,
			entry.UserAgent,
			details,
			entry.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// ListByUser returns the user's audit entries newest first.
func (r *AuditRepository) ListByUser(ctx context.Context, userID string, since time.Time, limit int) ([]domain.AuditLog, error) {
	query := r.builder.
		Select(strings.Split(auditColumns, ", ")...).
		From("auth_audit_log").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.GtOrEq{"created_at": since}).
		OrderBy("created_at DESC")

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list audit sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditLog
	for rows.Next() {
		var (
			entry   domain.AuditLog
			action  string
			details []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&action,
			&entry.IP,
			&entry.UserAgent,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		entry.Action = domain.AuditAction(action)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("decode audit details: %w", err)
			}
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}

// CountByUserAction counts entries of one action kind for the user since the
// given moment. The security summary endpoint builds on this.
func (r *AuditRepository) CountByUserAction(ctx context.Context, userID string, action domain.AuditAction, since time.Time) (int, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From("auth_audit_log").
		Where(squirrel.Eq{"user_id": userID, "action": string(action)}).
		Where(squirrel.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count audit sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}

	return count, nil
}

var _ port.AuditRepository = (*AuditRepository)(nil)
