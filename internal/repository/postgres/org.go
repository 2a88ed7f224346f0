package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/core/port"
	"github.com/friendy21/workspace-auth/internal/repository"
)

const orgUserColumns = "id, email, name, role, org_id, is_active, is_verified, last_login, created_at, updated_at, deactivated_at"

// OrgRepository implements the Organization Service's persistence operations.
type OrgRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewOrgRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewOrgRepository(exec pgExecutor) *OrgRepository {
	repo := &OrgRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// GetOrganization retrieves an organization by identifier.
func (r *OrgRepository) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	stmt, args, err := r.builder.
		Select("id", "name", "email", "phone", "website", "industry", "size", "owner_id", "is_active", "created_at", "updated_at").
		From("organizations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select organization sql: %w", err)
	}

	var org domain.Organization
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(
		&org.ID,
		&org.Name,
		&org.Email,
		&org.Phone,
		&org.Website,
		&org.Industry,
		&org.Size,
		&org.OwnerID,
		&org.IsActive,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select organization: %w", err)
	}

	return &org, nil
}

// GetUserByEmail retrieves an organization member by normalized email.
// Deactivated members are excluded; to the directory they do not exist.
func (r *OrgRepository) GetUserByEmail(ctx context.Context, email string) (*domain.OrgUser, error) {
	stmt, args, err := r.builder.
		Select(strings.Split(orgUserColumns, ", ")...).
		From("org_users").
		Where(squirrel.Eq{"email": domain.NormalizeEmail(email), "is_active": true, "deactivated_at": nil}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select org user sql: %w", err)
	}

	user, err := scanOrgUser(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select org user: %w", err)
	}

	return user, nil
}

// ListUsersByOrg returns all active members of an organization.
func (r *OrgRepository) ListUsersByOrg(ctx context.Context, orgID string) ([]domain.OrgUser, error) {
	stmt, args, err := r.builder.
		Select(strings.Split(orgUserColumns, ", ")...).
		From("org_users").
		Where(squirrel.Eq{"org_id": orgID, "is_active": true}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list org users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list org users: %w", err)
	}
	defer rows.Close()

	var users []domain.OrgUser
	for rows.Next() {
		user, err := scanOrgUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan org user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate org users: %w", err)
	}

	return users, nil
}

func scanOrgUser(row rowScanner) (*domain.OrgUser, error) {
	var (
		user domain.OrgUser
		role string
	)

	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&role,
		&user.OrgID,
		&user.IsActive,
		&user.IsVerified,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeactivatedAt,
	); err != nil {
		return nil, err
	}

	user.Role = domain.OrgRole(role)

	return &user, nil
}

var _ port.OrgRepository = (*OrgRepository)(nil)
