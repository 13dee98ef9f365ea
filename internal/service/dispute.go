package service

import (
	"context"
	"fmt"
	"strings"

	"medequip-marketplace/internal/authz"
	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/metrics"
	"medequip-marketplace/internal/repository"
)

const maxDisputeMessageLength = 5000

type disputeService struct {
	store    repository.Store
	audit    *AuditTrail
	notifier Notifier
	opts     options
}

func NewDisputeService(store repository.Store, audit *AuditTrail, notifier Notifier, opts ...Option) DisputeService {
	return &disputeService{store: store, audit: audit, notifier: notifier, opts: newOptions(opts)}
}

const partyActors = domain.ActorHospital | domain.ActorProvider

// loadDispute returns the dispute, its request and the caller's access to it.
// Callers that are neither a party nor platform staff get DISPUTE_NOT_FOUND.
func loadDispute(ctx context.Context, tx repository.Repositories, caller domain.Identity, id string) (*domain.Dispute, *domain.ServiceRequest, requestAccess, error) {
	if err := authz.RequireAuthenticated(caller); err != nil {
		return nil, nil, requestAccess{}, err
	}
	d, err := tx.Disputes().GetByID(ctx, id)
	if err != nil {
		if errIsNotFound(err) {
			return nil, nil, requestAccess{}, domain.ErrDisputeNotFound
		}
		return nil, nil, requestAccess{}, err
	}
	sr, err := tx.ServiceRequests().GetByID(ctx, d.ServiceRequestID)
	if err != nil {
		return nil, nil, requestAccess{}, err
	}
	access, err := resolveRequestAccess(ctx, tx, caller, sr)
	if err != nil {
		return nil, nil, access, err
	}
	if !access.actors.Has(partyActors) && !caller.IsPlatformStaff() {
		return nil, nil, access, domain.ErrDisputeNotFound
	}
	return d, sr, access, nil
}

// partyNotifications addresses the hospital and, when assigned, the provider organization.
func partyNotifications(ctx context.Context, tx repository.Repositories, sr *domain.ServiceRequest,
	topic domain.NotificationTopic, title, message string, attrs map[string]string) []domain.Notification {
	notes := []domain.Notification{{
		OrganizationID: sr.OrganizationID,
		Topic:          topic,
		Title:          title,
		Message:        message,
		Attributes:     attrs,
	}}
	if sr.AssignedProviderID != nil {
		if n, ok := providerNotification(ctx, tx, *sr.AssignedProviderID, topic, title, message); ok {
			n.Attributes = attrs
			notes = append(notes, n)
		}
	}
	return notes
}

func (s *disputeService) Open(ctx context.Context, caller domain.Identity, input OpenDisputeInput) (*domain.Dispute, error) {
	logger.EnterMethod("disputeService.Open", "user_id", caller.UserID, "service_request_id", input.ServiceRequestID)
	if err := authz.RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		logger.ExitMethodWithError("disputeService.Open", err, "user_id", caller.UserID)
		return nil, err
	}

	var created domain.Dispute
	var notes []domain.Notification
	err := withinAuditedTx(ctx, s.store, func(ctx context.Context, tx repository.Repositories) error {
		sr, access, err := loadVisibleRequest(ctx, tx, caller, input.ServiceRequestID, true)
		if err != nil {
			return err
		}
		if !access.actors.Has(partyActors) {
			return domain.ErrForbidden
		}
		if !sr.Status.Disputable() {
			return invalidTransition(sr.Status, domain.ServiceRequestStatusDisputed)
		}

		openedBy := sr.OrganizationID
		if !access.actors.Has(domain.ActorHospital) {
			p, err := tx.Providers().GetByID(ctx, *sr.AssignedProviderID)
			if err != nil {
				return err
			}
			openedBy = p.OrganizationID
		}

		now := s.opts.now()
		created = domain.Dispute{
			ID:                     s.opts.newID(),
			OrganizationID:         sr.OrganizationID,
			ServiceRequestID:       sr.ID,
			OpenedBy:               caller.UserID,
			OpenedByOrganizationID: openedBy,
			Status:                 domain.DisputeStatusOpen,
			Type:                   input.Type,
			Description:            input.Description,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		if err := tx.Disputes().Create(ctx, &created); err != nil {
			return err
		}

		values := map[string]any{"dispute": created}
		if sr.Status != domain.ServiceRequestStatusDisputed {
			from, err := moveStatus(sr, domain.ServiceRequestStatusDisputed, now)
			if err != nil {
				return err
			}
			if err := tx.ServiceRequests().Update(ctx, sr); err != nil {
				return err
			}
			metrics.ServiceRequestTransition(string(from), string(sr.Status))
			values["service_request_status"] = map[string]string{"from": string(from), "to": string(sr.Status)}
		}
		if _, err := s.audit.Record(ctx, tx, AuditRecord{
			OrganizationID: sr.OrganizationID,
			ActorID:        caller.UserID,
			Action:         domain.ActionDisputeOpened,
			ResourceType:   domain.ResourceDispute,
			ResourceID:     created.ID,
			New:            values,
		}); err != nil {
			return err
		}
		notes = partyNotifications(ctx, tx, sr, domain.TopicDisputeOpened,
			"Khiếu nại mới / Dispute opened",
			fmt.Sprintf("A %s dispute was opened on service request %s", created.Type, sr.ID),
			map[string]string{"dispute_id": created.ID, "service_request_id": sr.ID})
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("disputeService.Open", err, "service_request_id", input.ServiceRequestID)
		return nil, err
	}
	dispatch(ctx, s.notifier, notes...)
	logger.ExitMethod("disputeService.Open", "dispute_id", created.ID)
	return &created, nil
}

func (s *disputeService) AddMessage(ctx context.Context, caller domain.Identity, disputeID, content string) (*domain.DisputeMessage, error) {
	logger.EnterMethod("disputeService.AddMessage", "user_id", caller.UserID, "dispute_id", disputeID)
	if err := authz.RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	if n := trimmedLen(content); n == 0 || n > maxDisputeMessageLength {
		return nil, domain.ErrValidation.WithDetail("nội dung phải từ 1 đến 5000 ký tự", "content must be 1 to 5000 characters")
	}

	var msg domain.DisputeMessage
	err := withinAuditedTx(ctx, s.store, func(ctx context.Context, tx repository.Repositories) error {
		d, _, _, err := loadDispute(ctx, tx, caller, disputeID)
		if err != nil {
			return err
		}
		if d.Status == domain.DisputeStatusResolved {
			return domain.ErrDisputeAlreadyResolved
		}
		msg = domain.DisputeMessage{
			ID:        s.opts.newID(),
			DisputeID: d.ID,
			AuthorID:  caller.UserID,
			Content:   content,
			CreatedAt: s.opts.now(),
		}
		if err := tx.Disputes().AddMessage(ctx, &msg); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, tx, AuditRecord{
			OrganizationID: d.OrganizationID,
			ActorID:        caller.UserID,
			Action:         domain.ActionDisputeMessageAdded,
			ResourceType:   domain.ResourceDispute,
			ResourceID:     d.ID,
			New:            map[string]string{"message_id": msg.ID},
		})
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("disputeService.AddMessage", err, "dispute_id", disputeID)
		return nil, err
	}
	logger.ExitMethod("disputeService.AddMessage", "dispute_id", disputeID, "message_id", msg.ID)
	return &msg, nil
}

func (s *disputeService) Escalate(ctx context.Context, caller domain.Identity, disputeID, reason string) (*domain.Dispute, error) {
	logger.EnterMethod("disputeService.Escalate", "user_id", caller.UserID, "dispute_id", disputeID)
	var updated domain.Dispute
	var notes []domain.Notification
	err := withinAuditedTx(ctx, s.store, func(ctx context.Context, tx repository.Repositories) error {
		d, sr, access, err := loadDispute(ctx, tx, caller, disputeID)
		if err != nil {
			return err
		}
		if !access.actors.Has(partyActors) && !caller.IsPlatformAdmin() {
			return domain.ErrForbidden
		}
		if d.Status == domain.DisputeStatusResolved {
			return domain.ErrDisputeAlreadyResolved
		}
		if !d.Status.CanTransition(domain.DisputeStatusEscalated) {
			return domain.ErrInvalidTransition.WithDetail(string(d.Status)+" → escalated", string(d.Status)+" → escalated")
		}
		now := s.opts.now()
		prev := d.Status
		d.Status = domain.DisputeStatusEscalated
		d.EscalatedAt = &now
		d.UpdatedAt = now
		if err := tx.Disputes().Update(ctx, d); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, AuditRecord{
			OrganizationID: d.OrganizationID,
			ActorID:        caller.UserID,
			Action:         domain.ActionDisputeEscalated,
			ResourceType:   domain.ResourceDispute,
			ResourceID:     d.ID,
			Previous:       statusChange{Status: string(prev)},
			New:            statusChange{Status: string(d.Status), Note: reason},
		}); err != nil {
			return err
		}
		notes = partyNotifications(ctx, tx, sr, domain.TopicDisputeEscalated,
			"Khiếu nại được chuyển lên quản trị / Dispute escalated",
			fmt.Sprintf("Dispute %s was escalated to platform arbitration", d.ID),
			map[string]string{"dispute_id": d.ID})
		updated = *d
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("disputeService.Escalate", err, "dispute_id", disputeID)
		return nil, err
	}
	dispatch(ctx, s.notifier, notes...)
	logger.ExitMethod("disputeService.Escalate", "dispute_id", disputeID)
	return &updated, nil
}

// acceptedQuote returns the accepted quote of a request, if any.
func acceptedQuote(ctx context.Context, tx repository.Repositories, serviceRequestID string) (*domain.Quote, error) {
	quotes, err := tx.Quotes().ListByServiceRequest(ctx, serviceRequestID)
	if err != nil {
		return nil, err
	}
	for i := range quotes {
		if quotes[i].Status == domain.QuoteStatusAccepted {
			return &quotes[i], nil
		}
	}
	return nil, nil
}

func checkRefund(input ResolveDisputeInput, accepted *domain.Quote) error {
	if !input.Resolution.RequiresRefundAmount() {
		if input.RefundAmount != nil {
			return domain.ErrValidation.WithDetail("không được nhập số tiền hoàn cho hình thức này",
				"refund_amount is not allowed for "+string(input.Resolution))
		}
		return nil
	}
	if input.RefundAmount == nil || *input.RefundAmount <= 0 {
		return domain.ErrValidation.WithDetail("số tiền hoàn phải lớn hơn 0", "refund_amount must be greater than 0")
	}
	if accepted == nil {
		return domain.ErrValidation.WithDetail("yêu cầu chưa có báo giá được chấp nhận", "service request has no accepted quote")
	}
	if *input.RefundAmount > accepted.Amount {
		return domain.ErrValidation.WithDetail("số tiền hoàn vượt quá giá trị báo giá", "refund_amount exceeds the accepted quote")
	}
	return nil
}

func (s *disputeService) Resolve(ctx context.Context, caller domain.Identity, input ResolveDisputeInput) (*domain.Dispute, error) {
	logger.EnterMethod("disputeService.Resolve", "user_id", caller.UserID, "dispute_id", input.DisputeID, "resolution", input.Resolution)
	if err := authz.RequirePlatformAdmin(caller); err != nil {
		logger.ExitMethodWithError("disputeService.Resolve", err, "user_id", caller.UserID)
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var updated domain.Dispute
	var notes []domain.Notification
	err := withinAuditedTx(ctx, s.store, func(ctx context.Context, tx repository.Repositories) error {
		d, err := tx.Disputes().GetByID(ctx, input.DisputeID)
		if err != nil {
			if errIsNotFound(err) {
				return domain.ErrDisputeNotFound
			}
			return err
		}
		if d.Status == domain.DisputeStatusResolved {
			return domain.ErrDisputeAlreadyResolved
		}
		if !d.Status.CanTransition(domain.DisputeStatusResolved) {
			return domain.ErrInvalidTransition.WithDetail("khiếu nại phải được chuyển lên trước", "dispute must be escalated first")
		}
		sr, err := tx.ServiceRequests().GetByID(ctx, d.ServiceRequestID)
		if err != nil {
			if errIsNotFound(err) {
				return domain.ErrServiceRequestNotFound
			}
			return err
		}
		accepted, err := acceptedQuote(ctx, tx, sr.ID)
		if err != nil {
			return err
		}
		if err := checkRefund(input, accepted); err != nil {
			return err
		}

		note := &domain.ResolutionNote{
			Resolution:   input.Resolution,
			ReasonVi:     strings.TrimSpace(input.ReasonVi),
			ReasonEn:     strings.TrimSpace(input.ReasonEn),
			RefundAmount: input.RefundAmount,
			ResolvedBy:   caller.UserID,
		}
		if input.RefundAmount != nil {
			note.Currency = accepted.Currency
		}
		now := s.opts.now()
		prev := d.Status
		d.Status = domain.DisputeStatusResolved
		d.ResolutionNotes = note
		d.ResolvedAt = &now
		d.UpdatedAt = now
		if err := tx.Disputes().Update(ctx, d); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, AuditRecord{
			OrganizationID: d.OrganizationID,
			ActorID:        caller.UserID,
			Action:         domain.ActionDisputeArbitrated,
			ResourceType:   domain.ResourceDispute,
			ResourceID:     d.ID,
			Previous:       statusChange{Status: string(prev)},
			New: map[string]any{
				"status":           d.Status,
				"resolution_notes": note,
			},
		}); err != nil {
			return err
		}
		notes = partyNotifications(ctx, tx, sr, domain.TopicDisputeResolved,
			"Khiếu nại đã được giải quyết / Dispute resolved",
			fmt.Sprintf("Dispute %s was resolved: %s", d.ID, note.Resolution),
			map[string]string{"dispute_id": d.ID, "resolution": string(note.Resolution)})
		updated = *d
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("disputeService.Resolve", err, "dispute_id", input.DisputeID)
		return nil, err
	}
	dispatch(ctx, s.notifier, notes...)
	logger.ExitMethod("disputeService.Resolve", "dispute_id", input.DisputeID, "resolution", input.Resolution)
	return &updated, nil
}

func reassignable(status domain.ServiceRequestStatus) bool {
	switch status {
	case domain.ServiceRequestStatusAccepted, domain.ServiceRequestStatusInProgress, domain.ServiceRequestStatusDisputed:
		return true
	}
	return false
}

// ReassignProvider patches the assigned provider only. It never touches the
// dispute or the request status.
func (s *disputeService) ReassignProvider(ctx context.Context, caller domain.Identity, serviceRequestID, newProviderID, reason string) (*domain.ServiceRequestView, error) {
	logger.EnterMethod("disputeService.ReassignProvider", "user_id", caller.UserID, "service_request_id", serviceRequestID, "provider_id", newProviderID)
	if err := authz.RequirePlatformAdmin(caller); err != nil {
		logger.ExitMethodWithError("disputeService.ReassignProvider", err, "user_id", caller.UserID)
		return nil, err
	}
	if trimmedLen(reason) == 0 {
		return nil, domain.ErrValidation.WithDetail("cần nêu lý do", "reason is required")
	}

	var updated domain.ServiceRequest
	err := withinAuditedTx(ctx, s.store, func(ctx context.Context, tx repository.Repositories) error {
		sr, err := tx.ServiceRequests().GetByIDForUpdate(ctx, serviceRequestID)
		if err != nil {
			if errIsNotFound(err) {
				return domain.ErrServiceRequestNotFound
			}
			return err
		}
		if !reassignable(sr.Status) {
			return domain.ErrInvalidTransition.WithDetail("không thể đổi nhà cung cấp ở trạng thái "+string(sr.Status),
				"cannot reassign a provider in status "+string(sr.Status))
		}
		p, err := tx.Providers().GetByID(ctx, newProviderID)
		if err != nil {
			if errIsNotFound(err) {
				return domain.ErrProviderNotFound
			}
			return err
		}
		if !p.CanQuote() {
			return domain.ErrProviderNotEligible
		}
		if p.OrganizationID == sr.OrganizationID {
			return domain.ErrSameOrganization
		}
		if sr.IsAssignedTo(p.ID) {
			return domain.ErrConflict.WithDetail("nhà cung cấp đã được chỉ định", "provider is already assigned")
		}

		prev := sr.AssignedProviderID
		providerID := p.ID
		sr.AssignedProviderID = &providerID
		sr.UpdatedAt = s.opts.now()
		if err := tx.ServiceRequests().Update(ctx, sr); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, AuditRecord{
			OrganizationID: sr.OrganizationID,
			ActorID:        caller.UserID,
			Action:         domain.ActionProviderReassigned,
			ResourceType:   domain.ResourceServiceRequest,
			ResourceID:     sr.ID,
			Previous:       map[string]any{"assigned_provider_id": prev},
			New:            map[string]any{"assigned_provider_id": providerID, "reason": reason},
		}); err != nil {
			return err
		}
		updated = *sr
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("disputeService.ReassignProvider", err, "service_request_id", serviceRequestID)
		return nil, err
	}
	logger.ExitMethod("disputeService.ReassignProvider", "service_request_id", serviceRequestID, "provider_id", newProviderID)
	v := domain.NewServiceRequestView(updated, s.opts.now())
	return &v, nil
}

func (s *disputeService) Get(ctx context.Context, caller domain.Identity, disputeID string) (*domain.Dispute, error) {
	d, _, _, err := loadDispute(ctx, s.store, caller, disputeID)
	return d, err
}

func (s *disputeService) ListForOrganization(ctx context.Context, caller domain.Identity, orgID string, status domain.DisputeStatus) ([]domain.Dispute, error) {
	if !caller.IsPlatformStaff() {
		if _, err := authz.RequireMember(ctx, s.store.Memberships(), caller, orgID); err != nil {
			return nil, err
		}
	}
	return s.store.Disputes().List(ctx, repository.DisputeFilter{OrganizationID: orgID, Status: status})
}

// ListForProvider returns disputes on requests assigned to a provider of providerOrgID.
func (s *disputeService) ListForProvider(ctx context.Context, caller domain.Identity, providerOrgID string, status domain.DisputeStatus) ([]domain.Dispute, error) {
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
		return []domain.Dispute{}, nil
	}
	return s.store.Disputes().List(ctx, repository.DisputeFilter{AssignedProviderIDs: providerIDs(providers), Status: status})
}

func (s *disputeService) ListMessages(ctx context.Context, caller domain.Identity, disputeID string) ([]domain.DisputeMessage, error) {
	d, _, _, err := loadDispute(ctx, s.store, caller, disputeID)
	if err != nil {
		return nil, err
	}
	return s.store.Disputes().ListMessages(ctx, d.ID)
}

// ListAll is the cross-tenant arbitration queue.
func (s *disputeService) ListAll(ctx context.Context, caller domain.Identity, status domain.DisputeStatus) ([]domain.Dispute, error) {
	if err := authz.RequirePlatformStaff(caller); err != nil {
		return nil, err
	}
	return s.store.Disputes().List(ctx, repository.DisputeFilter{Status: status})
}
