package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/core/port"
	"github.com/friendy21/workspace-auth/internal/repository"
)

// ResetTokenRepository implements password reset token persistence.
type ResetTokenRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewResetTokenRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewResetTokenRepository(exec pgExecutor) *ResetTokenRepository {
	repo := &ResetTokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Create inserts a reset token row.
func (r *ResetTokenRepository) Create(ctx context.Context, token domain.PasswordResetToken) error {
	stmt, args, err := r.builder.Insert("password_reset_tokens").
		Columns("id", "user_id", "token_hash", "expires_at", "used_at", "created_at").
		Values(token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.UsedAt, token.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert reset token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}

	return nil
}

// GetByTokenHash retrieves a reset token by its hash.
func (r *ResetTokenRepository) GetByTokenHash(ctx context.Context, hash string) (*domain.PasswordResetToken, error) {
	stmt, args, err := r.builder.
		Select("id", "user_id", "token_hash", "expires_at", "used_at", "created_at").
		From("password_reset_tokens").
		Where(squirrel.Eq{"token_hash": hash}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select reset token sql: %w", err)
	}

	var token domain.PasswordResetToken
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.UsedAt,
		&token.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select reset token: %w", err)
	}

	return &token, nil
}

// MarkUsed consumes the token. Guarded on used_at being null so a token
// redeems at most one reset; ErrNotFound means it was already spent.
func (r *ResetTokenRepository) MarkUsed(ctx context.Context, tokenID string, at time.Time) error {
	stmt, args, err := r.builder.Update("password_reset_tokens").
		Set("used_at", at).
		Where(squirrel.Eq{"id": tokenID, "used_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark used sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark reset token used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// InvalidateForUser spends every outstanding token for the user.
func (r *ResetTokenRepository) InvalidateForUser(ctx context.Context, userID string, at time.Time) (int, error) {
	stmt, args, err := r.builder.Update("password_reset_tokens").
		Set("used_at", at).
		Where(squirrel.Eq{"user_id": userID, "used_at": nil}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build invalidate reset tokens sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("invalidate reset tokens: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

var _ port.PasswordResetTokenRepository = (*ResetTokenRepository)(nil)
