package model

import "time"

type TeamRole string

const (
	TeamRoleMember     TeamRole = "member"
	TeamRoleSupport    TeamRole = "support"
	TeamRoleAdmin      TeamRole = "admin"
	TeamRoleSuperAdmin TeamRole = "super_admin"
)

// Permissions is a closed set of named capabilities. Resolved once per
// request; no dynamic permission maps.
type Permissions struct {
	ManageListings bool `json:"manage_listings"`
	ManagePayments bool `json:"manage_payments"`
	ManageUsers    bool `json:"manage_users"`
	ViewAnalytics  bool `json:"view_analytics"`
}

// TeamMember is an explicit staff record. Staff can also be represented by a
// privileged role flag on the user row without a membership record; the
// entitlement resolver checks both.
type TeamMember struct {
	UserID      string // UUID
	Role        TeamRole
	Permissions Permissions
	CreatedAt   time.Time
}

// IsPrivileged reports whether the role bypasses subscription gating.
func (m *TeamMember) IsPrivileged() bool {
	return m != nil && (m.Role == TeamRoleAdmin || m.Role == TeamRoleSuperAdmin)
}
