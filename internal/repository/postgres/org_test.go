package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/repository"
)

func newOrgMock(t *testing.T) (pgxmock.PgxPoolIface, *OrgRepository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)

	return mock, NewOrgRepository(mock)
}

func orgUserRow(id, email, name, role, orgID string) *pgxmock.Rows {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return pgxmock.NewRows([]string{
		"id", "email", "name", "role", "org_id", "is_active", "is_verified",
		"last_login", "created_at", "updated_at", "deactivated_at",
	}).AddRow(id, email, name, role, orgID, true, true, nil, now, now, nil)
}

func TestOrgRepository_GetUserByEmail_FiltersDeactivated(t *testing.T) {
	mock, repo := newOrgMock(t)

	// Deactivated members are filtered in SQL; to the directory they do not exist.
	mock.ExpectQuery(`SELECT .+ FROM org_users WHERE deactivated_at IS NULL AND email = \$1 AND is_active = \$2`).
		WithArgs("alice@example.com", true).
		WillReturnRows(orgUserRow("org-user-1", "alice@example.com", "Alice", "admin", "org-1"))

	user, err := repo.GetUserByEmail(context.Background(), " Alice@Example.COM ")
	if err != nil {
		t.Fatalf("GetUserByEmail returned error: %v", err)
	}
	if user.ID != "org-user-1" || user.Role != domain.OrgRoleAdmin {
		t.Fatalf("unexpected user %+v", user)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrgRepository_GetUserByEmail_NotFound(t *testing.T) {
	mock, repo := newOrgMock(t)

	mock.ExpectQuery(`SELECT .+ FROM org_users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetUserByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrgRepository_ListUsersByOrg(t *testing.T) {
	mock, repo := newOrgMock(t)

	rows := orgUserRow("org-user-1", "alice@example.com", "Alice", "admin", "org-1").
		AddRow("org-user-2", "bob@example.com", "Bob", "member", "org-1", true, true, nil,
			time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), nil)

	mock.ExpectQuery(`SELECT .+ FROM org_users WHERE is_active = \$1 AND org_id = \$2 ORDER BY name ASC`).
		WithArgs(true, "org-1").
		WillReturnRows(rows)

	users, err := repo.ListUsersByOrg(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("ListUsersByOrg returned error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("users = %d, want 2", len(users))
	}
	if users[1].Role != domain.OrgRoleMember {
		t.Fatalf("role = %q, want member", users[1].Role)
	}
}
