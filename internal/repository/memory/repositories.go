package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/repository"
)

type organizationRepository struct{ v view }

func (r *organizationRepository) Create(ctx context.Context, o *domain.Organization) error {
	st, done := r.v.write()
	defer done()
	if _, ok := st.organizations[o.ID]; ok {
		return domain.ErrConflict
	}
	st.organizations[o.ID] = *o
	return nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	st, done := r.v.read()
	defer done()
	o, ok := st.organizations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

type userRepository struct{ v view }

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	st, done := r.v.write()
	defer done()
	if _, ok := st.users[u.ID]; ok {
		return domain.ErrConflict
	}
	for _, existing := range st.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrConflict
		}
	}
	st.users[u.ID] = *u
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	st, done := r.v.read()
	defer done()
	u, ok := st.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

type membershipRepository struct{ v view }

func (r *membershipRepository) Create(ctx context.Context, m *domain.Membership) error {
	st, done := r.v.write()
	defer done()
	key := membershipKey{m.OrganizationID, m.UserID}
	if _, ok := st.memberships[key]; ok {
		return domain.ErrConflict
	}
	st.memberships[key] = *m
	return nil
}

func (r *membershipRepository) Get(ctx context.Context, orgID, userID string) (*domain.Membership, error) {
	st, done := r.v.read()
	defer done()
	m, ok := st.memberships[membershipKey{orgID, userID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

func (r *membershipRepository) ListByOrganization(ctx context.Context, orgID string) ([]domain.Membership, error) {
	return r.list(func(m domain.Membership) bool { return m.OrganizationID == orgID }), nil
}

func (r *membershipRepository) ListByUser(ctx context.Context, userID string) ([]domain.Membership, error) {
	return r.list(func(m domain.Membership) bool { return m.UserID == userID }), nil
}

func (r *membershipRepository) list(match func(domain.Membership) bool) []domain.Membership {
	st, done := r.v.read()
	defer done()
	var out []domain.Membership
	for _, m := range st.memberships {
		if match(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		if out[i].OrganizationID != out[j].OrganizationID {
			return out[i].OrganizationID < out[j].OrganizationID
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func (r *membershipRepository) UpdateRole(ctx context.Context, orgID, userID string, role domain.MemberRole, updatedAt time.Time) error {
	st, done := r.v.write()
	defer done()
	key := membershipKey{orgID, userID}
	m, ok := st.memberships[key]
	if !ok {
		return domain.ErrNotFound
	}
	m.Role = role
	m.UpdatedAt = updatedAt
	st.memberships[key] = m
	return nil
}

func (r *membershipRepository) Delete(ctx context.Context, orgID, userID string) error {
	st, done := r.v.write()
	defer done()
	key := membershipKey{orgID, userID}
	if _, ok := st.memberships[key]; !ok {
		return domain.ErrNotFound
	}
	delete(st.memberships, key)
	return nil
}

func (r *membershipRepository) CountByRole(ctx context.Context, orgID string, role domain.MemberRole) (int, error) {
	st, done := r.v.read()
	defer done()
	n := 0
	for _, m := range st.memberships {
		if m.OrganizationID == orgID && m.Role == role {
			n++
		}
	}
	return n, nil
}

type providerRepository struct{ v view }

func (r *providerRepository) Create(ctx context.Context, p *domain.Provider) error {
	st, done := r.v.write()
	defer done()
	if _, ok := st.providers[p.ID]; ok {
		return domain.ErrConflict
	}
	st.providers[p.ID] = *p
	return nil
}

func (r *providerRepository) GetByID(ctx context.Context, id string) (*domain.Provider, error) {
	st, done := r.v.read()
	defer done()
	p, ok := st.providers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *providerRepository) ListByOrganization(ctx context.Context, orgID string) ([]domain.Provider, error) {
	return r.list(func(p domain.Provider) bool { return p.OrganizationID == orgID }), nil
}

func (r *providerRepository) List(ctx context.Context) ([]domain.Provider, error) {
	return r.list(func(domain.Provider) bool { return true }), nil
}

func (r *providerRepository) list(match func(domain.Provider) bool) []domain.Provider {
	st, done := r.v.read()
	defer done()
	var out []domain.Provider
	for _, p := range st.providers {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return olderFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out
}

func (r *providerRepository) UpdateStatus(ctx context.Context, p *domain.Provider) error {
	st, done := r.v.write()
	defer done()
	cur, ok := st.providers[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Status = p.Status
	cur.VerificationStatus = p.VerificationStatus
	cur.StatusReason = p.StatusReason
	cur.VerifiedAt = p.VerifiedAt
	cur.UpdatedAt = p.UpdatedAt
	st.providers[p.ID] = cur
	return nil
}

type serviceRequestRepository struct{ v view }

func (r *serviceRequestRepository) Create(ctx context.Context, sr *domain.ServiceRequest) error {
	st, done := r.v.write()
	defer done()
	if _, ok := st.serviceRequests[sr.ID]; ok {
		return domain.ErrConflict
	}
	st.serviceRequests[sr.ID] = *sr
	return nil
}

func (r *serviceRequestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	st, done := r.v.read()
	defer done()
	sr, ok := st.serviceRequests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sr, nil
}

// GetByIDForUpdate needs no row lock: a transaction already owns the whole store.
func (r *serviceRequestRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *serviceRequestRepository) Update(ctx context.Context, sr *domain.ServiceRequest) error {
	st, done := r.v.write()
	defer done()
	cur, ok := st.serviceRequests[sr.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Status = sr.Status
	cur.AssignedProviderID = sr.AssignedProviderID
	cur.CompletedAt = sr.CompletedAt
	cur.CancelledAt = sr.CancelledAt
	cur.UpdatedAt = sr.UpdatedAt
	st.serviceRequests[sr.ID] = cur
	return nil
}

func (r *serviceRequestRepository) List(ctx context.Context, filter repository.ServiceRequestFilter) ([]domain.ServiceRequest, error) {
	st, done := r.v.read()
	defer done()

	providers := make(map[string]bool, len(filter.VisibleToProviders))
	for _, id := range filter.VisibleToProviders {
		providers[id] = true
	}
	quotedBy := make(map[string]bool)
	if len(providers) > 0 {
		for _, q := range st.quotes {
			if providers[q.ProviderID] {
				quotedBy[q.ServiceRequestID] = true
			}
		}
	}

	var out []domain.ServiceRequest
	for _, sr := range st.serviceRequests {
		if filter.OrganizationID != "" && sr.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.Status != "" && sr.Status != filter.Status {
			continue
		}
		if len(providers) > 0 {
			assigned := sr.AssignedProviderID != nil && providers[*sr.AssignedProviderID]
			if !sr.Status.Quotable() && !assigned && !quotedBy[sr.ID] {
				continue
			}
		}
		out = append(out, sr)
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (r *serviceRequestRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.ServiceRequest, error) {
	st, done := r.v.read()
	defer done()
	var out []domain.ServiceRequest
	for _, sr := range st.serviceRequests {
		if !sr.Status.Terminal() && sr.UpdatedAt.Before(cutoff) {
			out = append(out, sr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return olderFirst(out[i].UpdatedAt, out[j].UpdatedAt, out[i].ID, out[j].ID) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *serviceRequestRepository) RecordDecline(ctx context.Context, d *domain.ServiceRequestDecline) error {
	st, done := r.v.write()
	defer done()
	st.declines = append(st.declines, *d)
	return nil
}

func (r *serviceRequestRepository) ListDeclines(ctx context.Context, serviceRequestID string) ([]domain.ServiceRequestDecline, error) {
	st, done := r.v.read()
	defer done()
	var out []domain.ServiceRequestDecline
	for _, d := range st.declines {
		if d.ServiceRequestID == serviceRequestID {
			out = append(out, d)
		}
	}
	return out, nil
}

type quoteRepository struct{ v view }

// checkUnique mirrors the partial unique indexes on quotes.
func checkUnique(st *state, q domain.Quote) error {
	for _, other := range st.quotes {
		if other.ID == q.ID || other.ServiceRequestID != q.ServiceRequestID {
			continue
		}
		if q.Status == domain.QuoteStatusAccepted && other.Status == domain.QuoteStatusAccepted {
			return domain.ErrConflict
		}
		if q.Status == domain.QuoteStatusPending && other.Status == domain.QuoteStatusPending && other.ProviderID == q.ProviderID {
			return domain.ErrConflict
		}
	}
	return nil
}

func (r *quoteRepository) Create(ctx context.Context, q *domain.Quote) error {
	st, done := r.v.write()
	defer done()
	if _, ok := st.quotes[q.ID]; ok {
		return domain.ErrConflict
	}
	if err := checkUnique(st, *q); err != nil {
		return err
	}
	st.quotes[q.ID] = *q
	return nil
}

func (r *quoteRepository) GetByID(ctx context.Context, id string) (*domain.Quote, error) {
	st, done := r.v.read()
	defer done()
	q, ok := st.quotes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &q, nil
}

func (r *quoteRepository) Update(ctx context.Context, q *domain.Quote) error {
	st, done := r.v.write()
	defer done()
	cur, ok := st.quotes[q.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Status = q.Status
	cur.Amount = q.Amount
	cur.Currency = q.Currency
	cur.ValidUntil = q.ValidUntil
	cur.Notes = q.Notes
	cur.EstimatedDurationDays = q.EstimatedDurationDays
	cur.AvailableStartDate = q.AvailableStartDate
	cur.RespondedAt = q.RespondedAt
	cur.UpdatedAt = q.UpdatedAt
	if err := checkUnique(st, cur); err != nil {
		return err
	}
	st.quotes[q.ID] = cur
	return nil
}

func (r *quoteRepository) ListByServiceRequest(ctx context.Context, serviceRequestID string) ([]domain.Quote, error) {
	st, done := r.v.read()
	defer done()
	var out []domain.Quote
	for _, q := range st.quotes {
		if q.ServiceRequestID == serviceRequestID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return olderFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (r *quoteRepository) ListByProviders(ctx context.Context, providerIDs []string, status domain.QuoteStatus) ([]domain.Quote, error) {
	st, done := r.v.read()
	defer done()
	ids := toSet(providerIDs)
	var out []domain.Quote
	for _, q := range st.quotes {
		if ids[q.ProviderID] && (status == "" || q.Status == status) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (r *quoteRepository) CountByStatus(ctx context.Context, providerIDs []string) (map[domain.QuoteStatus]int, error) {
	st, done := r.v.read()
	defer done()
	ids := toSet(providerIDs)
	counts := make(map[domain.QuoteStatus]int)
	for _, q := range st.quotes {
		if ids[q.ProviderID] {
			counts[q.Status]++
		}
	}
	return counts, nil
}

func (r *quoteRepository) ListExpirable(ctx context.Context, now time.Time) ([]domain.Quote, error) {
	st, done := r.v.read()
	defer done()
	var out []domain.Quote
	for _, q := range st.quotes {
		if q.Status == domain.QuoteStatusPending && q.ValidUntil != nil && q.ValidUntil.Before(now) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return olderFirst(*out[i].ValidUntil, *out[j].ValidUntil, out[i].ID, out[j].ID) })
	return out, nil
}

type disputeRepository struct{ v view }

func (r *disputeRepository) Create(ctx context.Context, d *domain.Dispute) error {
	st, done := r.v.write()
	defer done()
	if _, ok := st.disputes[d.ID]; ok {
		return domain.ErrConflict
	}
	st.disputes[d.ID] = *d
	return nil
}

func (r *disputeRepository) GetByID(ctx context.Context, id string) (*domain.Dispute, error) {
	st, done := r.v.read()
	defer done()
	d, ok := st.disputes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (r *disputeRepository) Update(ctx context.Context, d *domain.Dispute) error {
	st, done := r.v.write()
	defer done()
	cur, ok := st.disputes[d.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Status = d.Status
	cur.ResolutionNotes = d.ResolutionNotes
	cur.EscalatedAt = d.EscalatedAt
	cur.ResolvedAt = d.ResolvedAt
	cur.UpdatedAt = d.UpdatedAt
	st.disputes[d.ID] = cur
	return nil
}

func (r *disputeRepository) List(ctx context.Context, filter repository.DisputeFilter) ([]domain.Dispute, error) {
	st, done := r.v.read()
	defer done()
	providers := toSet(filter.AssignedProviderIDs)
	var out []domain.Dispute
	for _, d := range st.disputes {
		if filter.OrganizationID != "" && d.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.ServiceRequestID != "" && d.ServiceRequestID != filter.ServiceRequestID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if len(filter.AssignedProviderIDs) > 0 {
			sr, ok := st.serviceRequests[d.ServiceRequestID]
			if !ok || sr.AssignedProviderID == nil || !providers[*sr.AssignedProviderID] {
				continue
			}
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (r *disputeRepository) AddMessage(ctx context.Context, m *domain.DisputeMessage) error {
	st, done := r.v.write()
	defer done()
	st.messages = append(st.messages, *m)
	return nil
}

func (r *disputeRepository) ListMessages(ctx context.Context, disputeID string) ([]domain.DisputeMessage, error) {
	st, done := r.v.read()
	defer done()
	var out []domain.DisputeMessage
	for _, m := range st.messages {
		if m.DisputeID == disputeID {
			out = append(out, m)
		}
	}
	return out, nil
}

type auditLogRepository struct{ v view }

func (r *auditLogRepository) Append(ctx context.Context, e domain.AuditLogEntry) error {
	st, done := r.v.write()
	defer done()
	st.audit = append(st.audit, e)
	return nil
}

func (r *auditLogRepository) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, error) {
	filter = filter.Normalize()
	st, done := r.v.read()
	defer done()

	var matched []domain.AuditLogEntry
	for i := len(st.audit) - 1; i >= 0; i-- {
		e := st.audit[i]
		if filter.OrganizationID != "" && e.OrganizationID() != filter.OrganizationID {
			continue
		}
		if filter.ResourceID != "" && e.ResourceID() != filter.ResourceID {
			continue
		}
		if filter.ResourceType != "" && e.ResourceType() != filter.ResourceType {
			continue
		}
		if filter.ActionPrefix != "" && !strings.HasPrefix(e.Action(), filter.ActionPrefix) {
			continue
		}
		if filter.Since != nil && e.CreatedAt().Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && !e.CreatedAt().Before(*filter.Until) {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt().After(matched[j].CreatedAt()) })

	if filter.Offset >= len(matched) {
		return nil, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return append([]domain.AuditLogEntry(nil), matched[filter.Offset:end]...), nil
}

type analyticsRepository struct{ v view }

func (r *analyticsRepository) CountOrganizations(ctx context.Context, orgType domain.OrganizationType) (int, error) {
	st, done := r.v.read()
	defer done()
	n := 0
	for _, o := range st.organizations {
		if o.Type == orgType {
			n++
		}
	}
	return n, nil
}

func (r *analyticsRepository) CountProviders(ctx context.Context) (int, error) {
	st, done := r.v.read()
	defer done()
	return len(st.providers), nil
}

func (r *analyticsRepository) CountServiceRequests(ctx context.Context) (int, error) {
	st, done := r.v.read()
	defer done()
	return len(st.serviceRequests), nil
}

func (r *analyticsRepository) CountDistinctEquipment(ctx context.Context) (int, error) {
	st, done := r.v.read()
	defer done()
	seen := make(map[string]bool)
	for _, sr := range st.serviceRequests {
		seen[sr.EquipmentID] = true
	}
	return len(seen), nil
}

func (r *analyticsRepository) ListRevenueFacts(ctx context.Context) ([]domain.RevenueFact, error) {
	st, done := r.v.read()
	defer done()
	var out []domain.RevenueFact
	for _, q := range st.quotes {
		if q.Status != domain.QuoteStatusAccepted {
			continue
		}
		sr, ok := st.serviceRequests[q.ServiceRequestID]
		if !ok {
			continue
		}
		out = append(out, domain.RevenueFact{
			QuoteID:              q.ID,
			Amount:               q.Amount,
			Currency:             q.Currency,
			ServiceRequestStatus: sr.Status,
			HospitalID:           sr.OrganizationID,
			HospitalName:         st.organizations[sr.OrganizationID].Name,
			ProviderID:           q.ProviderID,
			ProviderName:         st.providers[q.ProviderID].Name,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuoteID < out[j].QuoteID })
	return out, nil
}

func (r *analyticsRepository) ListOrganizationCreations(ctx context.Context, orgType domain.OrganizationType, since time.Time) ([]time.Time, error) {
	st, done := r.v.read()
	defer done()
	var out []time.Time
	for _, o := range st.organizations {
		if o.Type == orgType && !o.CreatedAt.Before(since) {
			out = append(out, o.CreatedAt)
		}
	}
	return out, nil
}

func (r *analyticsRepository) ListProviderCreations(ctx context.Context, since time.Time) ([]time.Time, error) {
	st, done := r.v.read()
	defer done()
	var out []time.Time
	for _, p := range st.providers {
		if !p.CreatedAt.Before(since) {
			out = append(out, p.CreatedAt)
		}
	}
	return out, nil
}

func (r *analyticsRepository) ListServiceRequestFacts(ctx context.Context, since time.Time) ([]domain.ServiceRequestFact, error) {
	st, done := r.v.read()
	defer done()

	firstQuote := make(map[string]time.Time)
	for _, q := range st.quotes {
		if t, ok := firstQuote[q.ServiceRequestID]; !ok || q.CreatedAt.Before(t) {
			firstQuote[q.ServiceRequestID] = q.CreatedAt
		}
	}

	var out []domain.ServiceRequestFact
	for _, sr := range st.serviceRequests {
		if sr.CreatedAt.Before(since) {
			continue
		}
		f := domain.ServiceRequestFact{
			ID:               sr.ID,
			OrganizationID:   sr.OrganizationID,
			OrganizationName: st.organizations[sr.OrganizationID].Name,
			Status:           sr.Status,
			CreatedAt:        sr.CreatedAt,
			UpdatedAt:        sr.UpdatedAt,
		}
		if t, ok := firstQuote[sr.ID]; ok {
			f.FirstQuoteAt = &t
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return olderFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func olderFirst(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return idA < idB
}

func newerFirst(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return idA < idB
}
