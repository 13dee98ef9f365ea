package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medequip-marketplace/internal/authz"
	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/metrics"
	"medequip-marketplace/internal/repository"
)

type serviceRequestService struct {
	store    repository.Store
	audit    *AuditTrail
	notifier Notifier
	opts     options
}

func NewServiceRequestService(store repository.Store, audit *AuditTrail, notifier Notifier, opts ...Option) ServiceRequestService {
	return &serviceRequestService{store: store, audit: audit, notifier: notifier, opts: newOptions(opts)}
}

func (s *serviceRequestService) view(sr domain.ServiceRequest) *domain.ServiceRequestView {
	v := domain.NewServiceRequestView(sr, s.opts.now())
	return &v
}

func (s *serviceRequestService) views(list []domain.ServiceRequest) []domain.ServiceRequestView {
	now := s.opts.now()
	out := make([]domain.ServiceRequestView, 0, len(list))
	for _, sr := range list {
		out = append(out, domain.NewServiceRequestView(sr, now))
	}
	return out
}

func (s *serviceRequestService) Create(ctx context.Context, caller domain.Identity, input CreateServiceRequestInput) (*domain.ServiceRequestView, error) {
	logger.EnterMethod("serviceRequestService.Create", "user_id", caller.UserID, "organization_id", input.OrganizationID)
	if err := authz.RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		logger.ExitMethodWithError("serviceRequestService.Create", err, "user_id", caller.UserID)
		return nil, err
	}

	var created domain.ServiceRequest
	err := withinAuditedTx(ctx, s.store, func(ctx context.Context, tx repository.Repositories) error {
		if _, err := authz.RequireMember(ctx, tx.Memberships(), caller, input.OrganizationID); err != nil {
			return err
		}
		org, err := tx.Organizations().GetByID(ctx, input.OrganizationID)
		if err != nil {
			return err
		}
		if org.Type != domain.OrganizationTypeHospital {
			return domain.ErrForbidden.WithDetail("chỉ bệnh viện được tạo yêu cầu dịch vụ",
				"only hospitals can create service requests")
		}
		now := s.opts.now()
		created = domain.ServiceRequest{
			ID:             s.opts.newID(),
			OrganizationID: input.OrganizationID,
			EquipmentID:    input.EquipmentID,
			RequestedBy:    caller.UserID,
			Type:           input.Type,
			Priority:       input.Priority,
			Status:         domain.ServiceRequestStatusPending,
			Description:    input.Description,
			PreferredDate:  input.PreferredDate,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.ServiceRequests().Create(ctx, &created); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, tx, AuditRecord{
			OrganizationID: created.OrganizationID,
			ActorID:        caller.UserID,
			Action:         domain.ActionServiceRequestCreated,
			ResourceType:   domain.ResourceServiceRequest,
			ResourceID:     created.ID,
			New:            created,
		})
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("serviceRequestService.Create", err, "organization_id", input.OrganizationID)
		return nil, err
	}

	dispatch(ctx, s.notifier, domain.Notification{
		OrganizationID: created.OrganizationID,
		Topic:          domain.TopicServiceRequestCreated,
		Title:          "Yêu cầu dịch vụ mới / New service request",
		Message:        fmt.Sprintf("Service request %s (%s, %s) was created", created.ID, created.Type, created.Priority),
		Attributes:     map[string]string{"service_request_id": created.ID},
	})
	logger.ExitMethod("serviceRequestService.Create", "service_request_id", created.ID)
	return s.view(created), nil
}

func (s *serviceRequestService) Get(ctx context.Context, caller domain.Identity, id string) (*domain.ServiceRequestView, error) {
	sr, _, err := loadVisibleRequest(ctx, s.store, caller, id, false)
	if err != nil {
		return nil, err
	}
	return s.view(*sr), nil
}

func (s *serviceRequestService) Transition(ctx context.Context, caller domain.Identity, id string, to domain.ServiceRequestStatus, note string) (*domain.ServiceRequestView, error) {
	logger.EnterMethod("serviceRequestService.Transition", "user_id", caller.UserID, "service_request_id", id, "to", to)
	if err := authz.RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, domain.ErrValidation.WithDetail("trạng thái không hợp lệ", "unknown status "+string(to))
	}

	var updated domain.ServiceRequest
	err := withinAuditedTx(ctx, s.store, func(ctx context.Context, tx repository.Repositories) error {
		sr, access, err := loadVisibleRequest(ctx, tx, caller, id, true)
		if err != nil {
			return err
		}
		actors, ok := domain.ServiceRequestEdge(sr.Status, to)
		if !ok || actors.SystemOnly() {
			return invalidTransition(sr.Status, to)
		}
		if !actors.Has(access.actors) {
			return domain.ErrForbidden
		}
		action := domain.ActionServiceRequestStatusChanged
		if actors == domain.ActorPlatformAdmin {
			action = domain.ActionServiceRequestSettled
		}
		from, err := moveStatus(sr, to, s.opts.now())
		if err != nil {
			return err
		}
		if err := tx.ServiceRequests().Update(ctx, sr); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, AuditRecord{
			OrganizationID: sr.OrganizationID,
			ActorID:        caller.UserID,
			Action:         action,
			ResourceType:   domain.ResourceServiceRequest,
			ResourceID:     sr.ID,
			Previous:       statusChange{Status: string(from)},
			New:            statusChange{Status: string(to), Note: note},
		}); err != nil {
			return err
		}
		metrics.ServiceRequestTransition(string(from), string(to))
		updated = *sr
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("serviceRequestService.Transition", err, "service_request_id", id, "to", to)
		return nil, err
	}
	logger.ExitMethod("serviceRequestService.Transition", "service_request_id", id, "status", updated.Status)
	return s.view(updated), nil
}

func (s *serviceRequestService) ListForOrganization(ctx context.Context, caller domain.Identity, orgID string, status domain.ServiceRequestStatus) ([]domain.ServiceRequestView, error) {
	if !caller.IsPlatformStaff() {
		if _, err := authz.RequireMember(ctx, s.store.Memberships(), caller, orgID); err != nil {
			return nil, err
		}
	}
	list, err := s.store.ServiceRequests().List(ctx, repository.ServiceRequestFilter{OrganizationID: orgID, Status: status})
	if err != nil {
		return nil, err
	}
	return s.views(list), nil
}

func (s *serviceRequestService) ListForProvider(ctx context.Context, caller domain.Identity, providerOrgID string, status domain.ServiceRequestStatus) ([]domain.ServiceRequestView, error) {
	if !caller.IsPlatformStaff() {
		if _, err := authz.RequireMember(ctx, s.store.Memberships(), caller, providerOrgID); err != nil {
			return nil, err
		}
	}
	providers, err := s.store.Providers().ListByOrganization(ctx, providerOrgID)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return []domain.ServiceRequestView{}, nil
	}
	list, err := s.store.ServiceRequests().List(ctx, repository.ServiceRequestFilter{
		Status:             status,
		VisibleToProviders: providerIDs(providers),
	})
	if err != nil {
		return nil, err
	}
	return s.views(list), nil
}

// moveStatus applies one edge of the transition table to sr and stamps the
// terminal timestamps. It does not check who is asking.
func moveStatus(sr *domain.ServiceRequest, to domain.ServiceRequestStatus, now time.Time) (domain.ServiceRequestStatus, error) {
	from := sr.Status
	if !from.CanTransition(to) {
		return from, invalidTransition(from, to)
	}
	sr.Status = to
	sr.UpdatedAt = now
	switch to {
	case domain.ServiceRequestStatusCompleted:
		sr.CompletedAt = &now
	case domain.ServiceRequestStatusCancelled:
		sr.CancelledAt = &now
	}
	return from, nil
}

func invalidTransition(from, to domain.ServiceRequestStatus) error {
	edge := fmt.Sprintf("%s → %s", from, to)
	return domain.ErrInvalidTransition.WithDetail(edge, edge)
}

// errIsNotFound reports a missing row from any repository.
func errIsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
