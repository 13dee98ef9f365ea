package domain

import "time"

type OrganizationType string

const (
	OrganizationTypeHospital OrganizationType = "hospital"
	OrganizationTypeProvider OrganizationType = "provider"
)

type Organization struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Type         OrganizationType `json:"type"`
	ContactEmail string           `json:"contact_email"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

func (r MemberRole) Valid() bool {
	switch r {
	case MemberRoleOwner, MemberRoleAdmin, MemberRoleMember:
		return true
	}
	return false
}

// IsAdmin reports whether the role carries organization admin rights.
func (r MemberRole) IsAdmin() bool {
	return r == MemberRoleOwner || r == MemberRoleAdmin
}

// Membership is unique per (OrganizationID, UserID).
type Membership struct {
	OrganizationID string     `json:"organization_id"`
	UserID         string     `json:"user_id"`
	Role           MemberRole `json:"role"`
	JoinedAt       time.Time  `json:"joined_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
