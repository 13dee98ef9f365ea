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
	"medequip-marketplace/internal/utils"
)

// AcceptResult is the full outcome of accepting a quote.
type AcceptResult struct {
	Quote            domain.Quote              `json:"quote"`
	ServiceRequest   domain.ServiceRequestView `json:"service_request"`
	RejectedQuoteIDs []string                  `json:"rejected_quote_ids"`
}

type quoteService struct {
	store    repository.Store
	audit    *AuditTrail
	notifier Notifier
	opts     options
}

func NewQuoteService(store repository.Store, audit *AuditTrail, notifier Notifier, opts ...Option) QuoteService {
	return &quoteService{store: store, audit: audit, notifier: notifier, opts: newOptions(opts)}
}

func (s *quoteService) checkValidUntil(validUntil *time.Time) error {
	if validUntil != nil && !validUntil.After(s.opts.now()) {
		return domain.ErrValidation.WithDetail("hạn báo giá phải ở tương lai", "valid_until must be in the future")
	}
	return nil
}

func (s *quoteService) Submit(ctx context.Context, caller domain.Identity, input SubmitQuoteInput) (*domain.Quote, error) {
	logger.EnterMethod("quoteService.Submit", "user_id", caller.UserID, "service_request_id", input.ServiceRequestID, "provider_id", input.ProviderID)
	if err := authz.RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		logger.ExitMethodWithError("quoteService.Submit", err, "user_id", caller.UserID)
		return nil, err
	}
	if err := s.checkValidUntil(input.ValidUntil); err != nil {
		return nil, err
	}

	var created domain.Quote
	var hospitalOrgID string
	err := withinAuditedTx(ctx, s.store, func(ctx context.Context, tx repository.Repositories) error {
		provider, err := resolveProvider(ctx, tx, caller, input.ProviderID)
		if err != nil {
			return err
		}
		if !provider.CanQuote() {
			return domain.ErrProviderNotEligible
		}
		sr, err := tx.ServiceRequests().GetByIDForUpdate(ctx, input.ServiceRequestID)
		if err != nil {
			if errIsNotFound(err) {
				return domain.ErrServiceRequestNotFound
			}
			return err
		}
		if provider.OrganizationID == sr.OrganizationID {
			return domain.ErrSameOrganization
		}
		if !sr.Status.Quotable() {
			return domain.ErrServiceRequestNotQuotable
		}
		existing, err := tx.Quotes().ListByServiceRequest(ctx, sr.ID)
		if err != nil {
			return err
		}
		for _, q := range existing {
			if q.ProviderID == provider.ID && q.Status == domain.QuoteStatusPending {
				return domain.ErrDuplicateQuote
			}
		}

		now := s.opts.now()
		created = domain.Quote{
			ID:                    s.opts.newID(),
			ServiceRequestID:      sr.ID,
			ProviderID:            provider.ID,
			SubmittedBy:           caller.UserID,
			Status:                domain.QuoteStatusPending,
			Amount:                input.Amount,
			Currency:              input.Currency,
			ValidUntil:            input.ValidUntil,
			Notes:                 input.Notes,
			EstimatedDurationDays: input.EstimatedDurationDays,
			AvailableStartDate:    input.AvailableStartDate,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := tx.Quotes().Create(ctx, &created); err != nil {
			return err
		}

		values := map[string]any{"quote": created}
		if sr.Status == domain.ServiceRequestStatusPending {
			from, err := moveStatus(sr, domain.ServiceRequestStatusQuoted, now)
			if err != nil {
				return err
			}
			if err := tx.ServiceRequests().Update(ctx, sr); err != nil {
				return err
			}
			metrics.ServiceRequestTransition(string(from), string(sr.Status))
			values["service_request_status"] = sr.Status
		}
		hospitalOrgID = sr.OrganizationID
		_, err = s.audit.Record(ctx, tx, AuditRecord{
			OrganizationID: provider.OrganizationID,
			ActorID:        caller.UserID,
			Action:         domain.ActionQuoteSubmitted,
			ResourceType:   domain.ResourceQuote,
			ResourceID:     created.ID,
			New:            values,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) && !errors.Is(err, domain.ErrDuplicateQuote) && !errors.Is(err, domain.ErrTxConflict) {
			err = domain.ErrDuplicateQuote.Wrap(err)
		}
		logger.ExitMethodWithError("quoteService.Submit", err, "service_request_id", input.ServiceRequestID)
		return nil, err
	}

	dispatch(ctx, s.notifier, domain.Notification{
		OrganizationID: hospitalOrgID,
		Topic:          domain.TopicQuoteSubmitted,
		Title:          "Báo giá mới / New quote",
		Message:        fmt.Sprintf("A quote of %d %s was submitted for service request %s", created.Amount, created.Currency, created.ServiceRequestID),
		Attributes:     map[string]string{"quote_id": created.ID, "service_request_id": created.ServiceRequestID},
	})
	logger.ExitMethod("quoteService.Submit", "quote_id", created.ID)
	return &created, nil
}

func (s *quoteService) Update(ctx context.Context, caller domain.Identity, input UpdateQuoteInput) (*domain.Quote, error) {
	logger.EnterMethod("quoteService.Update", "user_id", caller.UserID, "quote_id", input.QuoteID)
	if err := authz.RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := s.checkValidUntil(input.ValidUntil); err != nil {
		return nil, err
	}

	var updated domain.Quote
	err := withinAuditedTx(ctx, s.store, func(ctx context.Context, tx repository.Repositories) error {
		q, _, _, err := loadVisibleQuote(ctx, tx, caller, input.QuoteID, false)
		if err != nil {
			return err
		}
		provider, err := resolveProvider(ctx, tx, caller, q.ProviderID)
		if err != nil {
			return err
		}
		if q.Status != domain.QuoteStatusPending {
			return domain.ErrQuoteNotEditable
		}

		prev, next := map[string]any{}, map[string]any{}
		if input.Amount != nil && *input.Amount != q.Amount {
			prev["amount"], next["amount"] = q.Amount, *input.Amount
			q.Amount = *input.Amount
		}
		if input.Currency != nil && *input.Currency != q.Currency {
			prev["currency"], next["currency"] = q.Currency, *input.Currency
			q.Currency = *input.Currency
		}
		if input.ValidUntil != nil {
			prev["valid_until"], next["valid_until"] = q.ValidUntil, *input.ValidUntil
			q.ValidUntil = input.ValidUntil
		}
		if input.Notes != nil {
			prev["notes"], next["notes"] = q.Notes, *input.Notes
			q.Notes = input.Notes
		}
		if input.EstimatedDurationDays != nil {
			prev["estimated_duration_days"], next["estimated_duration_days"] = q.EstimatedDurationDays, *input.EstimatedDurationDays
			q.EstimatedDurationDays = input.EstimatedDurationDays
		}
		if input.AvailableStartDate != nil {
			prev["available_start_date"], next["available_start_date"] = q.AvailableStartDate, *input.AvailableStartDate
			q.AvailableStartDate = input.AvailableStartDate
		}
		if len(next) == 0 {
			updated = *q
			return nil
		}
		q.UpdatedAt = s.opts.now()
		if err := tx.Quotes().Update(ctx, q); err != nil {
			return err
		}
		updated = *q
		_, err = s.audit.Record(ctx, tx, AuditRecord{
			OrganizationID: provider.OrganizationID,
			ActorID:        caller.UserID,
			Action:         domain.ActionQuoteUpdated,
			ResourceType:   domain.ResourceQuote,
			ResourceID:     q.ID,
			Previous:       prev,
			New:            next,
		})
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("quoteService.Update", err, "quote_id", input.QuoteID)
		return nil, err
	}
	logger.ExitMethod("quoteService.Update", "quote_id", updated.ID)
	return &updated, nil
}

// acceptChanges is the audit payload of an acceptance.
type acceptChanges struct {
	QuoteStatus          domain.QuoteStatus            `json:"quote_status"`
	ServiceRequestStatus domain.ServiceRequestStatus   `json:"service_request_status"`
	AssignedProviderID   *string                       `json:"assigned_provider_id,omitempty"`
	SiblingQuotes        map[string]domain.QuoteStatus `json:"sibling_quotes,omitempty"`
}

// Accept runs with the request row locked inside one serializable transaction.
// A concurrent acceptance on the same request either observes the accepted
// request or fails to commit; both surface as SERVICE_REQUEST_ALREADY_ACCEPTED.
func (s *quoteService) Accept(ctx context.Context, caller domain.Identity, quoteID string) (*AcceptResult, error) {
	logger.EnterMethod("quoteService.Accept", "user_id", caller.UserID, "quote_id", quoteID)
	if err := authz.RequireAuthenticated(caller); err != nil {
		return nil, err
	}

	var result AcceptResult
	var notes []domain.Notification
	err := withinAuditedTx(ctx, s.store, func(ctx context.Context, tx repository.Repositories) error {
		q, sr, access, err := loadVisibleQuote(ctx, tx, caller, quoteID, true)
		if err != nil {
			return err
		}
		if !access.actors.Has(domain.ActorHospital) {
			return domain.ErrForbidden
		}

		siblings, err := tx.Quotes().ListByServiceRequest(ctx, sr.ID)
		if err != nil {
			return err
		}
		for _, other := range siblings {
			if other.Status == domain.QuoteStatusAccepted {
				return domain.ErrServiceRequestAlreadyAccepted
			}
		}
		if sr.Status != domain.ServiceRequestStatusQuoted {
			return invalidTransition(sr.Status, domain.ServiceRequestStatusAccepted)
		}
		now := s.opts.now()
		if q.Status != domain.QuoteStatusPending || q.ExpiredAt(now) {
			return domain.ErrQuoteNotAcceptable
		}

		q.Status = domain.QuoteStatusAccepted
		q.RespondedAt = &now
		q.UpdatedAt = now
		if err := tx.Quotes().Update(ctx, q); err != nil {
			return err
		}

		prevSiblings := map[string]domain.QuoteStatus{}
		nextSiblings := map[string]domain.QuoteStatus{}
		rejected := []string{}
		for i := range siblings {
			other := siblings[i]
			if other.ID == q.ID || other.Status != domain.QuoteStatusPending {
				continue
			}
			other.Status = domain.QuoteStatusRejected
			other.RespondedAt = &now
			other.UpdatedAt = now
			if err := tx.Quotes().Update(ctx, &other); err != nil {
				return err
			}
			prevSiblings[other.ID] = domain.QuoteStatusPending
			nextSiblings[other.ID] = domain.QuoteStatusRejected
			rejected = append(rejected, other.ID)
			if n, ok := providerNotification(ctx, tx, other.ProviderID, domain.TopicQuoteRejected,
				"Báo giá bị từ chối / Quote rejected",
				fmt.Sprintf("Your quote %s on service request %s was not selected", other.ID, sr.ID)); ok {
				notes = append(notes, n)
			}
		}

		from, err := moveStatus(sr, domain.ServiceRequestStatusAccepted, now)
		if err != nil {
			return err
		}
		prevAssigned := sr.AssignedProviderID
		providerID := q.ProviderID
		sr.AssignedProviderID = &providerID
		if err := tx.ServiceRequests().Update(ctx, sr); err != nil {
			return err
		}

		if _, err := s.audit.Record(ctx, tx, AuditRecord{
			OrganizationID: sr.OrganizationID,
			ActorID:        caller.UserID,
			Action:         domain.ActionQuoteAccepted,
			ResourceType:   domain.ResourceQuote,
			ResourceID:     q.ID,
			Previous: acceptChanges{
				QuoteStatus:          domain.QuoteStatusPending,
				ServiceRequestStatus: from,
				AssignedProviderID:   prevAssigned,
				SiblingQuotes:        prevSiblings,
			},
			New: acceptChanges{
				QuoteStatus:          q.Status,
				ServiceRequestStatus: sr.Status,
				AssignedProviderID:   sr.AssignedProviderID,
				SiblingQuotes:        nextSiblings,
			},
		}); err != nil {
			return err
		}
		if n, ok := providerNotification(ctx, tx, q.ProviderID, domain.TopicQuoteAccepted,
			"Báo giá được chấp nhận / Quote accepted",
			fmt.Sprintf("Your quote %s on service request %s was accepted", q.ID, sr.ID)); ok {
			notes = append(notes, n)
		}

		result = AcceptResult{
			Quote:            *q,
			ServiceRequest:   domain.NewServiceRequestView(*sr, now),
			RejectedQuoteIDs: rejected,
		}
		metrics.ServiceRequestTransition(string(from), string(sr.Status))
		return nil
	})
	if err != nil {
		// Any conflict here means another acceptance won the race.
		if errors.Is(err, domain.ErrConflict) {
			metrics.QuoteAcceptConflict()
			if !errors.Is(err, domain.ErrServiceRequestAlreadyAccepted) {
				err = domain.ErrServiceRequestAlreadyAccepted.Wrap(err)
			}
		}
		logger.ExitMethodWithError("quoteService.Accept", err, "quote_id", quoteID)
		return nil, err
	}

	dispatch(ctx, s.notifier, notes...)
	logger.ExitMethod("quoteService.Accept", "quote_id", quoteID, "rejected", len(result.RejectedQuoteIDs))
	return &result, nil
}

// providerNotification addresses a notification to the organization owning providerID.
func providerNotification(ctx context.Context, tx repository.Repositories, providerID string,
	topic domain.NotificationTopic, title, message string) (domain.Notification, bool) {
	p, err := tx.Providers().GetByID(ctx, providerID)
	if err != nil {
		logger.Warn("cannot address notification", "provider_id", providerID, "error", err)
		return domain.Notification{}, false
	}
	return domain.Notification{
		OrganizationID: p.OrganizationID,
		Topic:          topic,
		Title:          title,
		Message:        message,
		Attributes:     map[string]string{"provider_id": providerID},
	}, true
}

func (s *quoteService) Decline(ctx context.Context, caller domain.Identity, serviceRequestID, providerID, reason string) (*domain.ServiceRequestDecline, error) {
	logger.EnterMethod("quoteService.Decline", "user_id", caller.UserID, "service_request_id", serviceRequestID, "provider_id", providerID)
	if err := authz.RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	if trimmedLen(reason) < domain.MinDeclineReasonLength {
		return nil, domain.ErrDeclineReasonTooShort
	}

	var decline domain.ServiceRequestDecline
	err := withinAuditedTx(ctx, s.store, func(ctx context.Context, tx repository.Repositories) error {
		provider, err := resolveProvider(ctx, tx, caller, providerID)
		if err != nil {
			return err
		}
		sr, _, err := loadVisibleRequest(ctx, tx, caller, serviceRequestID, true)
		if err != nil {
			return err
		}
		if !sr.Status.Quotable() {
			return domain.ErrServiceRequestNotQuotable
		}

		now := s.opts.now()
		quotes, err := tx.Quotes().ListByServiceRequest(ctx, sr.ID)
		if err != nil {
			return err
		}
		var rejected []string
		for i := range quotes {
			q := quotes[i]
			if q.ProviderID != provider.ID || q.Status != domain.QuoteStatusPending {
				continue
			}
			q.Status = domain.QuoteStatusRejected
			q.RespondedAt = &now
			q.UpdatedAt = now
			if err := tx.Quotes().Update(ctx, &q); err != nil {
				return err
			}
			rejected = append(rejected, q.ID)
		}

		decline = domain.ServiceRequestDecline{
			ID:               s.opts.newID(),
			ServiceRequestID: sr.ID,
			ProviderID:       provider.ID,
			DeclinedBy:       caller.UserID,
			Reason:           reason,
			CreatedAt:        now,
		}
		if err := tx.ServiceRequests().RecordDecline(ctx, &decline); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, tx, AuditRecord{
			OrganizationID: provider.OrganizationID,
			ActorID:        caller.UserID,
			Action:         domain.ActionQuoteDeclined,
			ResourceType:   domain.ResourceServiceRequest,
			ResourceID:     sr.ID,
			New: map[string]any{
				"provider_id":        provider.ID,
				"reason":             reason,
				"rejected_quote_ids": rejected,
			},
		})
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("quoteService.Decline", err, "service_request_id", serviceRequestID)
		return nil, err
	}
	logger.ExitMethod("quoteService.Decline", "decline_id", decline.ID)
	return &decline, nil
}

// Expire moves every pending quote past its validity to expired. It runs as
// the system actor from the scheduler.
func (s *quoteService) Expire(ctx context.Context) (int, error) {
	logger.EnterMethod("quoteService.Expire")
	var expired int
	err := withinAuditedTx(ctx, s.store, func(ctx context.Context, tx repository.Repositories) error {
		expired = 0
		now := s.opts.now()
		quotes, err := tx.Quotes().ListExpirable(ctx, now)
		if err != nil {
			return err
		}
		orgOf := map[string]string{}
		for i := range quotes {
			q := quotes[i]
			orgID, ok := orgOf[q.ProviderID]
			if !ok {
				p, err := tx.Providers().GetByID(ctx, q.ProviderID)
				if err != nil {
					return err
				}
				orgID = p.OrganizationID
				orgOf[q.ProviderID] = orgID
			}
			q.Status = domain.QuoteStatusExpired
			q.UpdatedAt = now
			if err := tx.Quotes().Update(ctx, &q); err != nil {
				return err
			}
			if _, err := s.audit.Record(ctx, tx, AuditRecord{
				OrganizationID: orgID,
				ActorID:        domain.SystemActorID,
				Action:         domain.ActionQuoteExpired,
				ResourceType:   domain.ResourceQuote,
				ResourceID:     q.ID,
				Previous:       statusChange{Status: string(domain.QuoteStatusPending)},
				New:            statusChange{Status: string(domain.QuoteStatusExpired)},
			}); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("quoteService.Expire", err)
		return 0, err
	}
	metrics.QuotesExpired(expired)
	logger.ExitMethod("quoteService.Expire", "expired", expired)
	return expired, nil
}

// quoteVisible reports whether the caller may read q: hospital members and
// platform staff see every quote on the request, providers only their own.
func quoteVisible(access requestAccess, caller domain.Identity, q domain.Quote) bool {
	return caller.IsPlatformStaff() || access.actors.Has(domain.ActorHospital) || access.ownsProvider(q.ProviderID)
}

// loadVisibleQuote returns the quote with its request, or QUOTE_NOT_FOUND when
// the quote is absent or hidden from the caller. forUpdate locks the request row.
func loadVisibleQuote(ctx context.Context, tx repository.Repositories, caller domain.Identity, quoteID string, forUpdate bool) (*domain.Quote, *domain.ServiceRequest, requestAccess, error) {
	if err := authz.RequireAuthenticated(caller); err != nil {
		return nil, nil, requestAccess{}, err
	}
	q, err := tx.Quotes().GetByID(ctx, quoteID)
	if err != nil {
		if errIsNotFound(err) {
			return nil, nil, requestAccess{}, domain.ErrQuoteNotFound
		}
		return nil, nil, requestAccess{}, err
	}
	var sr *domain.ServiceRequest
	if forUpdate {
		sr, err = tx.ServiceRequests().GetByIDForUpdate(ctx, q.ServiceRequestID)
	} else {
		sr, err = tx.ServiceRequests().GetByID(ctx, q.ServiceRequestID)
	}
	if err != nil {
		if errIsNotFound(err) {
			return nil, nil, requestAccess{}, domain.ErrQuoteNotFound
		}
		return nil, nil, requestAccess{}, err
	}
	access, err := resolveRequestAccess(ctx, tx, caller, sr)
	if err != nil {
		return nil, nil, access, err
	}
	if !access.visible || !quoteVisible(access, caller, *q) {
		return nil, nil, access, domain.ErrQuoteNotFound
	}
	return q, sr, access, nil
}

func (s *quoteService) Get(ctx context.Context, caller domain.Identity, quoteID string) (*domain.Quote, error) {
	q, _, _, err := loadVisibleQuote(ctx, s.store, caller, quoteID, false)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *quoteService) ListForServiceRequest(ctx context.Context, caller domain.Identity, serviceRequestID string) ([]domain.Quote, error) {
	sr, access, err := loadVisibleRequest(ctx, s.store, caller, serviceRequestID, false)
	if err != nil {
		return nil, err
	}
	quotes, err := s.store.Quotes().ListByServiceRequest(ctx, sr.ID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Quote, 0, len(quotes))
	for _, q := range quotes {
		if quoteVisible(access, caller, q) {
			out = append(out, q)
		}
	}
	return out, nil
}

// providerOrgProviders checks access to a provider organization and returns its provider ids.
func (s *quoteService) providerOrgProviders(ctx context.Context, caller domain.Identity, providerOrgID string) ([]string, error) {
	if !caller.IsPlatformStaff() {
		if _, err := authz.RequireMember(ctx, s.store.Memberships(), caller, providerOrgID); err != nil {
			return nil, err
		}
	}
	providers, err := s.store.Providers().ListByOrganization(ctx, providerOrgID)
	if err != nil {
		return nil, err
	}
	return providerIDs(providers), nil
}

func (s *quoteService) ListForProvider(ctx context.Context, caller domain.Identity, providerOrgID string, status domain.QuoteStatus) ([]domain.Quote, error) {
	ids, err := s.providerOrgProviders(ctx, caller, providerOrgID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Quote{}, nil
	}
	return s.store.Quotes().ListByProviders(ctx, ids, status)
}

func (s *quoteService) Stats(ctx context.Context, caller domain.Identity, providerOrgID string) (*domain.QuoteStats, error) {
	ids, err := s.providerOrgProviders(ctx, caller, providerOrgID)
	if err != nil {
		return nil, err
	}
	counts := map[domain.QuoteStatus]int{}
	if len(ids) > 0 {
		if counts, err = s.store.Quotes().CountByStatus(ctx, ids); err != nil {
			return nil, err
		}
	}
	accepted, rejected := counts[domain.QuoteStatusAccepted], counts[domain.QuoteStatusRejected]
	return &domain.QuoteStats{
		PendingCount:  counts[domain.QuoteStatusPending],
		AcceptedCount: accepted,
		RejectedCount: rejected,
		ExpiredCount:  counts[domain.QuoteStatusExpired],
		WinRate:       utils.WinRate(accepted, rejected),
	}, nil
}
