package domain

import "time"

type PlatformRole string

const (
	PlatformRoleNone    PlatformRole = ""
	PlatformRoleAdmin   PlatformRole = "platform_admin"
	PlatformRoleSupport PlatformRole = "platform_support"
)

func (r PlatformRole) Valid() bool {
	switch r {
	case PlatformRoleNone, PlatformRoleAdmin, PlatformRoleSupport:
		return true
	}
	return false
}

type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	PlatformRole PlatformRole `json:"platform_role,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Identity is the resolved caller. It is passed explicitly into every guard and mutation.
type Identity struct {
	UserID       string       `json:"user_id"`
	Email        string       `json:"email"`
	PlatformRole PlatformRole `json:"platform_role,omitempty"`
	Memberships  []Membership `json:"memberships,omitempty"`
}

func (i Identity) Authenticated() bool { return i.UserID != "" }

func (i Identity) IsPlatformAdmin() bool { return i.PlatformRole == PlatformRoleAdmin }

// IsPlatformStaff covers both platform roles; staff may read across tenants.
func (i Identity) IsPlatformStaff() bool {
	return i.PlatformRole == PlatformRoleAdmin || i.PlatformRole == PlatformRoleSupport
}

// SystemActorID is the actor recorded for scheduled, non-user mutations.
const SystemActorID = "system"
