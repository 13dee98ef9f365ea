package service

import (
	"context"
	"errors"

	"medequip-marketplace/internal/authz"
	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/repository"
)

type providerAdminService struct {
	store repository.Store
	audit *AuditTrail
	opts  options
}

func NewProviderAdminService(store repository.Store, audit *AuditTrail, opts ...Option) ProviderAdminService {
	return &providerAdminService{store: store, audit: audit, opts: newOptions(opts)}
}

func (s *providerAdminService) GetProvider(ctx context.Context, caller domain.Identity, providerID string) (*domain.Provider, error) {
	if err := authz.RequirePlatformStaff(caller); err != nil {
		return nil, err
	}
	p, err := s.store.Providers().GetByID(ctx, providerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrProviderNotFound
	}
	return p, err
}

func (s *providerAdminService) ListProviders(ctx context.Context, caller domain.Identity) ([]domain.Provider, error) {
	if err := authz.RequirePlatformStaff(caller); err != nil {
		return nil, err
	}
	return s.store.Providers().List(ctx)
}

func (s *providerAdminService) ApproveProvider(ctx context.Context, caller domain.Identity, providerID string) (*domain.Provider, error) {
	return s.apply(ctx, caller, providerID, domain.ProviderActionApprove, "")
}

func (s *providerAdminService) RejectProvider(ctx context.Context, caller domain.Identity, providerID, reason string) (*domain.Provider, error) {
	return s.apply(ctx, caller, providerID, domain.ProviderActionReject, reason)
}

func (s *providerAdminService) SuspendProvider(ctx context.Context, caller domain.Identity, providerID, reason string) (*domain.Provider, error) {
	return s.apply(ctx, caller, providerID, domain.ProviderActionSuspend, reason)
}

func (s *providerAdminService) ReinstateProvider(ctx context.Context, caller domain.Identity, providerID string) (*domain.Provider, error) {
	return s.apply(ctx, caller, providerID, domain.ProviderActionReinstate, "")
}

type providerState struct {
	Status             domain.ProviderStatus     `json:"status"`
	VerificationStatus domain.VerificationStatus `json:"verification_status"`
	Reason             string                    `json:"reason,omitempty"`
}

func (s *providerAdminService) apply(ctx context.Context, caller domain.Identity, providerID string, action domain.ProviderAction, reason string) (*domain.Provider, error) {
	method := "providerAdminService." + string(action)
	logger.EnterMethod(method, "user_id", caller.UserID, "provider_id", providerID)
	if err := authz.RequirePlatformAdmin(caller); err != nil {
		logger.ExitMethodWithError(method, err, "user_id", caller.UserID)
		return nil, err
	}
	if (action == domain.ProviderActionReject || action == domain.ProviderActionSuspend) && trimmedLen(reason) == 0 {
		return nil, domain.ErrValidation.WithDetail("cần nêu lý do", "a reason is required")
	}

	var result domain.Provider
	err := withinAuditedTx(ctx, s.store, func(ctx context.Context, tx repository.Repositories) error {
		p, err := tx.Providers().GetByID(ctx, providerID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrProviderNotFound
			}
			return err
		}
		status, verification, err := domain.ApplyProviderAction(*p, action)
		if err != nil {
			return err
		}
		prev := providerState{Status: p.Status, VerificationStatus: p.VerificationStatus, Reason: p.StatusReason}

		now := s.opts.now()
		p.Status = status
		p.VerificationStatus = verification
		p.StatusReason = reason
		p.UpdatedAt = now
		if action == domain.ProviderActionApprove {
			p.VerifiedAt = &now
		}
		if err := tx.Providers().UpdateStatus(ctx, p); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, AuditRecord{
			OrganizationID: p.OrganizationID,
			ActorID:        caller.UserID,
			Action:         domain.AdminProviderAction(action),
			ResourceType:   domain.ResourceProvider,
			ResourceID:     p.ID,
			Previous:       prev,
			New:            providerState{Status: status, VerificationStatus: verification, Reason: reason},
		}); err != nil {
			return err
		}
		result = *p
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError(method, err, "provider_id", providerID)
		return nil, err
	}
	logger.ExitMethod(method, "provider_id", providerID, "status", result.Status)
	return &result, nil
}
