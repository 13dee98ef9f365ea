package service

import (
	"context"
	"errors"

	"medequip-marketplace/internal/authz"
	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/repository"
)

// requestAccess is what a caller may do with one service request.
type requestAccess struct {
	visible     bool
	actors      domain.TransitionActor
	providerIDs []string
}

func (a requestAccess) ownsProvider(providerID string) bool {
	for _, id := range a.providerIDs {
		if id == providerID {
			return true
		}
	}
	return false
}

// callerProviders returns the providers of every organization the caller belongs to.
func callerProviders(ctx context.Context, tx repository.Repositories, caller domain.Identity) ([]domain.Provider, error) {
	memberships, err := tx.Memberships().ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	var out []domain.Provider
	for _, m := range memberships {
		providers, err := tx.Providers().ListByOrganization(ctx, m.OrganizationID)
		if err != nil {
			return nil, err
		}
		out = append(out, providers...)
	}
	return out, nil
}

func providerIDs(providers []domain.Provider) []string {
	ids := make([]string, 0, len(providers))
	for _, p := range providers {
		ids = append(ids, p.ID)
	}
	return ids
}

// resolveRequestAccess decides visibility and the transition actor kinds the
// caller holds for sr. Hospital members, the assigned provider, providers that
// quoted, any provider while the request is open for quoting and platform
// staff can see it.
func resolveRequestAccess(ctx context.Context, tx repository.Repositories, caller domain.Identity, sr *domain.ServiceRequest) (requestAccess, error) {
	var access requestAccess
	if err := authz.RequireAuthenticated(caller); err != nil {
		return access, err
	}
	if caller.IsPlatformStaff() {
		access.visible = true
	}
	if caller.IsPlatformAdmin() {
		access.actors |= domain.ActorPlatformAdmin
	}

	if _, err := tx.Memberships().Get(ctx, sr.OrganizationID, caller.UserID); err == nil {
		access.visible = true
		access.actors |= domain.ActorHospital
	} else if !errors.Is(err, domain.ErrNotFound) {
		return access, err
	}

	providers, err := callerProviders(ctx, tx, caller)
	if err != nil {
		return access, err
	}
	access.providerIDs = providerIDs(providers)
	if len(access.providerIDs) == 0 {
		return access, nil
	}
	if sr.AssignedProviderID != nil && access.ownsProvider(*sr.AssignedProviderID) {
		access.visible = true
		access.actors |= domain.ActorProvider
	}
	if sr.Status.Quotable() {
		access.visible = true
	}
	if !access.visible {
		quotes, err := tx.Quotes().ListByServiceRequest(ctx, sr.ID)
		if err != nil {
			return access, err
		}
		for _, q := range quotes {
			if access.ownsProvider(q.ProviderID) {
				access.visible = true
				break
			}
		}
	}
	return access, nil
}

// loadVisibleRequest returns the request or SERVICE_REQUEST_NOT_FOUND when it
// is absent or hidden from the caller; the two cases are indistinguishable.
func loadVisibleRequest(ctx context.Context, tx repository.Repositories, caller domain.Identity, id string, forUpdate bool) (*domain.ServiceRequest, requestAccess, error) {
	if err := authz.RequireAuthenticated(caller); err != nil {
		return nil, requestAccess{}, err
	}
	var sr *domain.ServiceRequest
	var err error
	if forUpdate {
		sr, err = tx.ServiceRequests().GetByIDForUpdate(ctx, id)
	} else {
		sr, err = tx.ServiceRequests().GetByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, requestAccess{}, domain.ErrServiceRequestNotFound
		}
		return nil, requestAccess{}, err
	}
	access, err := resolveRequestAccess(ctx, tx, caller, sr)
	if err != nil {
		return nil, access, err
	}
	if !access.visible {
		return nil, access, domain.ErrServiceRequestNotFound
	}
	return sr, access, nil
}

// resolveProvider loads providerID and checks the caller is a member of its organization.
func resolveProvider(ctx context.Context, tx repository.Repositories, caller domain.Identity, providerID string) (*domain.Provider, error) {
	p, err := tx.Providers().GetByID(ctx, providerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrProviderNotFound
		}
		return nil, err
	}
	if _, err := authz.RequireMember(ctx, tx.Memberships(), caller, p.OrganizationID); err != nil {
		return nil, err
	}
	return p, nil
}
