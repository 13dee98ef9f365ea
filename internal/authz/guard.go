// Package authz holds the membership, role and platform-role checks that
// gate every mutation. Checks read memberships through the caller's
// repository so they observe the same transaction as the mutation.
package authz

import (
	"context"
	"errors"

	"medequip-marketplace/internal/domain"
)

// MembershipReader is the slice of repository.MembershipRepository the guards need.
type MembershipReader interface {
	Get(ctx context.Context, orgID, userID string) (*domain.Membership, error)
	CountByRole(ctx context.Context, orgID string, role domain.MemberRole) (int, error)
}

var (
	errAdminRequired = domain.ErrForbidden.WithDetail(
		"cần quyền quản trị tổ chức", "organization admin role required")
	errOwnerRequired = domain.ErrForbidden.WithDetail(
		"cần quyền chủ sở hữu tổ chức", "organization owner role required")
	errPlatformAdminRequired = domain.ErrForbidden.WithDetail(
		"cần quyền quản trị nền tảng", "platform admin role required")
)

func RequireAuthenticated(id domain.Identity) error {
	if !id.Authenticated() {
		return domain.ErrUnauthenticated
	}
	return nil
}

// RequireMember returns the caller's membership in orgID. A missing membership
// yields the generic FORBIDDEN, which never names the organization.
func RequireMember(ctx context.Context, members MembershipReader, id domain.Identity, orgID string) (*domain.Membership, error) {
	if err := RequireAuthenticated(id); err != nil {
		return nil, err
	}
	m, err := members.Get(ctx, orgID, id.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, err
	}
	return m, nil
}

func RequireAdmin(ctx context.Context, members MembershipReader, id domain.Identity, orgID string) (*domain.Membership, error) {
	m, err := RequireMember(ctx, members, id, orgID)
	if err != nil {
		return nil, err
	}
	if !m.Role.IsAdmin() {
		return nil, errAdminRequired
	}
	return m, nil
}

func RequireOwner(ctx context.Context, members MembershipReader, id domain.Identity, orgID string) (*domain.Membership, error) {
	m, err := RequireMember(ctx, members, id, orgID)
	if err != nil {
		return nil, err
	}
	if m.Role != domain.MemberRoleOwner {
		return nil, errOwnerRequired
	}
	return m, nil
}

// RequirePlatformAdmin ignores organization scoping entirely.
func RequirePlatformAdmin(id domain.Identity) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if !id.IsPlatformAdmin() {
		return errPlatformAdminRequired
	}
	return nil
}

// RequirePlatformStaff admits platform admins and platform support.
func RequirePlatformStaff(id domain.Identity) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if !id.IsPlatformStaff() {
		return domain.ErrForbidden
	}
	return nil
}

// CanManage reports whether a caller holding callerRole may change or remove
// a member holding targetRole. Nobody manages themselves.
func CanManage(callerRole, targetRole domain.MemberRole, callerID, targetID string) bool {
	if callerID == targetID {
		return false
	}
	switch callerRole {
	case domain.MemberRoleOwner:
		return true
	case domain.MemberRoleAdmin:
		return targetRole != domain.MemberRoleOwner
	default:
		return false
	}
}

func CountOwners(ctx context.Context, members MembershipReader, orgID string) (int, error) {
	return members.CountByRole(ctx, orgID, domain.MemberRoleOwner)
}

// EnsureOwnerRemains fails with LAST_OWNER when target is the organization's
// only owner and would stop being one. A nil newRole means removal.
func EnsureOwnerRemains(ctx context.Context, members MembershipReader, target *domain.Membership, newRole *domain.MemberRole) error {
	if target.Role != domain.MemberRoleOwner {
		return nil
	}
	if newRole != nil && *newRole == domain.MemberRoleOwner {
		return nil
	}
	owners, err := CountOwners(ctx, members, target.OrganizationID)
	if err != nil {
		return err
	}
	if owners <= 1 {
		return domain.ErrLastOwner
	}
	return nil
}
