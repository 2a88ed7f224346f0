package domain

import "time"

// OrgRole enumerates the roles an organization member can hold.
type OrgRole string

const (
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
	OrgRoleViewer OrgRole = "viewer"
)

// OrgContext is the organization/role context resolved for a user during login.
// It is fetched from the Organization Service and embedded into access tokens.
type OrgContext struct {
	UserID string
	OrgID  string
	Role   OrgRole
}

// Organization mirrors the persisted representation in the organizations table.
type Organization struct {
	ID        string
	Name      string
	Email     string
	Phone     *string
	Website   *string
	Industry  *string
	Size      *int
	OwnerID   *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrgUser mirrors the persisted representation in the org_users table.
type OrgUser struct {
	ID            string
	Email         string
	Name          string
	Role          OrgRole
	OrgID         string
	IsActive      bool
	IsVerified    bool
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeactivatedAt *time.Time
}
