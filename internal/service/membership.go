package service

import (
	"context"
	"errors"

	"medequip-marketplace/internal/authz"
	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/repository"
)

type membershipService struct {
	store repository.Store
	audit *AuditTrail
	opts  options
}

func NewMembershipService(store repository.Store, audit *AuditTrail, opts ...Option) MembershipService {
	return &membershipService{store: store, audit: audit, opts: newOptions(opts)}
}

func (s *membershipService) ListMembers(ctx context.Context, caller domain.Identity, orgID string) ([]domain.Membership, error) {
	if !caller.IsPlatformStaff() {
		if _, err := authz.RequireMember(ctx, s.store.Memberships(), caller, orgID); err != nil {
			return nil, err
		}
	}
	return s.store.Memberships().ListByOrganization(ctx, orgID)
}

// loadTarget applies the checks shared by role changes and removal. The
// last-owner guard runs before CanManage so that demoting a sole owner always
// reports LAST_OWNER.
func (s *membershipService) loadTarget(ctx context.Context, tx repository.Repositories, caller domain.Identity,
	orgID, targetUserID string, newRole *domain.MemberRole) (*domain.Membership, *domain.Membership, error) {
	callerM, err := authz.RequireAdmin(ctx, tx.Memberships(), caller, orgID)
	if err != nil {
		return nil, nil, err
	}
	target, err := tx.Memberships().Get(ctx, orgID, targetUserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrMembershipNotFound
		}
		return nil, nil, err
	}
	if err := authz.EnsureOwnerRemains(ctx, tx.Memberships(), target, newRole); err != nil {
		return nil, nil, err
	}
	if !authz.CanManage(callerM.Role, target.Role, caller.UserID, target.UserID) {
		return nil, nil, domain.ErrCannotManageMember
	}
	return callerM, target, nil
}

func (s *membershipService) UpdateMemberRole(ctx context.Context, caller domain.Identity, orgID, targetUserID string, role domain.MemberRole) (*domain.Membership, error) {
	logger.EnterMethod("membershipService.UpdateMemberRole", "user_id", caller.UserID, "organization_id", orgID, "target", targetUserID, "role", role)
	if err := authz.RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, domain.ErrValidation.WithDetail("vai trò không hợp lệ", "unknown role")
	}

	var updated domain.Membership
	err := withinAuditedTx(ctx, s.store, func(ctx context.Context, tx repository.Repositories) error {
		callerM, target, err := s.loadTarget(ctx, tx, caller, orgID, targetUserID, &role)
		if err != nil {
			return err
		}
		if role == domain.MemberRoleOwner && callerM.Role != domain.MemberRoleOwner {
			return domain.ErrCannotManageMember
		}
		if target.Role == role {
			updated = *target
			return nil
		}
		now := s.opts.now()
		if err := tx.Memberships().UpdateRole(ctx, orgID, targetUserID, role, now); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, AuditRecord{
			OrganizationID: orgID,
			ActorID:        caller.UserID,
			Action:         domain.ActionMembershipRoleUpdated,
			ResourceType:   domain.ResourceMembership,
			ResourceID:     targetUserID,
			Previous:       map[string]string{"role": string(target.Role)},
			New:            map[string]string{"role": string(role)},
		}); err != nil {
			return err
		}
		updated = *target
		updated.Role = role
		updated.UpdatedAt = now
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("membershipService.UpdateMemberRole", err, "organization_id", orgID, "target", targetUserID)
		return nil, err
	}
	logger.ExitMethod("membershipService.UpdateMemberRole", "organization_id", orgID, "target", targetUserID, "role", role)
	return &updated, nil
}

func (s *membershipService) RemoveMember(ctx context.Context, caller domain.Identity, orgID, targetUserID string) error {
	logger.EnterMethod("membershipService.RemoveMember", "user_id", caller.UserID, "organization_id", orgID, "target", targetUserID)
	err := withinAuditedTx(ctx, s.store, func(ctx context.Context, tx repository.Repositories) error {
		_, target, err := s.loadTarget(ctx, tx, caller, orgID, targetUserID, nil)
		if err != nil {
			return err
		}
		if err := tx.Memberships().Delete(ctx, orgID, targetUserID); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, tx, AuditRecord{
			OrganizationID: orgID,
			ActorID:        caller.UserID,
			Action:         domain.ActionMembershipRemoved,
			ResourceType:   domain.ResourceMembership,
			ResourceID:     targetUserID,
			Previous:       map[string]string{"role": string(target.Role)},
		})
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("membershipService.RemoveMember", err, "organization_id", orgID, "target", targetUserID)
		return err
	}
	logger.ExitMethod("membershipService.RemoveMember", "organization_id", orgID, "target", targetUserID)
	return nil
}
