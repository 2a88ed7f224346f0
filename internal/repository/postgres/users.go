package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/core/port"
	"github.com/friendy21/workspace-auth/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = "id, email, password_hash, is_active, is_verified, failed_login_attempts, locked_until, password_changed_at, last_login, created_at, updated_at"

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	repo := &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	query := r.builder.Insert("auth_users").
		Columns(
			"id",
			"email",
			"password_hash",
			"is_active",
			"is_verified",
			"failed_login_attempts",
			"locked_until",
			"password_changed_at",
			"last_login",
			"created_at",
			"updated_at",
		).
		Values(
			user.ID,
			domain.NormalizeEmail(user.Email),
			user.PasswordHash,
			user.IsActive,
			user.IsVerified,
			user.FailedLoginAttempts,
			user.LockedUntil,
			user.PasswordChangedAt,
			user.LastLogin,
			user.CreatedAt,
			user.UpdatedAt,
		)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": domain.NormalizeEmail(email)})
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(strings.Split(userColumns, ", ")...).
		From("auth_users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	var user domain.User
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsVerified,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.PasswordChangedAt,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}

	return &user, nil
}

// RecordLoginFailure increments the failed-attempt counter in one statement.
// When the incremented value reaches the lockout threshold the same statement
// sets locked_until and resets the counter, so concurrent failures can never
// produce two lock transitions or a lost increment.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, userID string, at time.Time, lockedUntil time.Time) (int, *time.Time, error) {
	stmt, args, err := r.builder.Update("auth_users").
		Set("failed_login_attempts", squirrel.Expr(
			"CASE WHEN failed_login_attempts + 1 >= ? THEN 0 ELSE failed_login_attempts + 1 END",
			domain.LockoutThreshold,
		)).
		Set("locked_until", squirrel.Expr(
			"CASE WHEN failed_login_attempts + 1 >= ? THEN ?::timestamptz ELSE locked_until END",
			domain.LockoutThreshold, lockedUntil,
		)).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": userID}).
		Suffix("RETURNING failed_login_attempts, locked_until").
		ToSql()
	if err != nil {
		return 0, nil, fmt.Errorf("build record login failure sql: %w", err)
	}

	var (
		attempts int
		locked   *time.Time
	)
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(&attempts, &locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, repository.ErrNotFound
		}
		return 0, nil, fmt.Errorf("record login failure: %w", err)
	}

	// The lock transition resets the stored counter; report the attempt that
	// tripped the threshold rather than the reset value.
	if attempts == 0 && locked != nil && locked.After(at) {
		attempts = domain.LockoutThreshold
	}

	return attempts, locked, nil
}

// ClearLoginFailures resets the counter, clears any lockout, and stamps
// last_login in one statement.
func (r *UserRepository) ClearLoginFailures(ctx context.Context, userID string, at time.Time) error {
	stmt, args, err := r.builder.Update("auth_users").
		Set("failed_login_attempts", 0).
		Set("locked_until", nil).
		Set("last_login", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear login failures sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("clear login failures: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword swaps the password hash and bumps password_changed_at.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update("auth_users").
		Set("password_hash", passwordHash).
		Set("password_changed_at", changedAt).
		Set("updated_at", changedAt).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetActive toggles the account's active flag.
func (r *UserRepository) SetActive(ctx context.Context, userID string, active bool) error {
	return r.setFlag(ctx, userID, "is_active", active)
}

// SetVerified toggles the account's verified flag.
func (r *UserRepository) SetVerified(ctx context.Context, userID string, verified bool) error {
	return r.setFlag(ctx, userID, "is_verified", verified)
}

func (r *UserRepository) setFlag(ctx context.Context, userID, column string, value bool) error {
	stmt, args, err := r.builder.Update("auth_users").
		Set(column, value).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update %s sql: %w", column, err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ port.UserRepository = (*UserRepository)(nil)
