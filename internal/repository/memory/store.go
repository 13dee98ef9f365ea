// Package memory is an in-process repository.Store. Transactions hold one
// global lock and work on a copy of the data set that replaces the live one on
// success, which gives serializable isolation. It backs the dev server
// (database.type: memory) and the service tests.
package memory

import (
	"context"
	"sync"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/repository"
)

type membershipKey struct {
	orgID  string
	userID string
}

type state struct {
	organizations   map[string]domain.Organization
	users           map[string]domain.User
	memberships     map[membershipKey]domain.Membership
	providers       map[string]domain.Provider
	serviceRequests map[string]domain.ServiceRequest
	declines        []domain.ServiceRequestDecline
	quotes          map[string]domain.Quote
	disputes        map[string]domain.Dispute
	messages        []domain.DisputeMessage
	audit           []domain.AuditLogEntry
}

func newState() *state {
	return &state{
		organizations:   make(map[string]domain.Organization),
		users:           make(map[string]domain.User),
		memberships:     make(map[membershipKey]domain.Membership),
		providers:       make(map[string]domain.Provider),
		serviceRequests: make(map[string]domain.ServiceRequest),
		quotes:          make(map[string]domain.Quote),
		disputes:        make(map[string]domain.Dispute),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone copies the containers. Entity values are copied by value; their
// pointer fields are only ever replaced, never written through.
func (s *state) clone() *state {
	return &state{
		organizations:   copyMap(s.organizations),
		users:           copyMap(s.users),
		memberships:     copyMap(s.memberships),
		providers:       copyMap(s.providers),
		serviceRequests: copyMap(s.serviceRequests),
		declines:        append([]domain.ServiceRequestDecline(nil), s.declines...),
		quotes:          copyMap(s.quotes),
		disputes:        copyMap(s.disputes),
		messages:        append([]domain.DisputeMessage(nil), s.messages...),
		audit:           append([]domain.AuditLogEntry(nil), s.audit...),
	}
}

// Store implements repository.Store in memory.
type Store struct {
	mu sync.RWMutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

// view resolves the state a repository call operates on. Outside a
// transaction every call takes the store lock; inside one the transaction
// already holds it.
type view struct {
	store *Store
	tx    *state
}

func (v view) read() (*state, func()) {
	if v.tx != nil {
		return v.tx, func() {}
	}
	v.store.mu.RLock()
	return v.store.st, v.store.mu.RUnlock
}

func (v view) write() (*state, func()) {
	if v.tx != nil {
		return v.tx, func() {}
	}
	v.store.mu.Lock()
	return v.store.st, v.store.mu.Unlock
}

type repositories struct {
	v view
}

func (r repositories) Organizations() repository.OrganizationRepository {
	return &organizationRepository{r.v}
}
func (r repositories) Users() repository.UserRepository             { return &userRepository{r.v} }
func (r repositories) Memberships() repository.MembershipRepository { return &membershipRepository{r.v} }
func (r repositories) Providers() repository.ProviderRepository     { return &providerRepository{r.v} }
func (r repositories) ServiceRequests() repository.ServiceRequestRepository {
	return &serviceRequestRepository{r.v}
}
func (r repositories) Quotes() repository.QuoteRepository        { return &quoteRepository{r.v} }
func (r repositories) Disputes() repository.DisputeRepository    { return &disputeRepository{r.v} }
func (r repositories) AuditLogs() repository.AuditLogRepository  { return &auditLogRepository{r.v} }
func (r repositories) Analytics() repository.AnalyticsRepository { return &analyticsRepository{r.v} }

func (s *Store) base() repositories { return repositories{v: view{store: s}} }

func (s *Store) Organizations() repository.OrganizationRepository { return s.base().Organizations() }
func (s *Store) Users() repository.UserRepository                 { return s.base().Users() }
func (s *Store) Memberships() repository.MembershipRepository     { return s.base().Memberships() }
func (s *Store) Providers() repository.ProviderRepository         { return s.base().Providers() }
func (s *Store) ServiceRequests() repository.ServiceRequestRepository {
	return s.base().ServiceRequests()
}
func (s *Store) Quotes() repository.QuoteRepository        { return s.base().Quotes() }
func (s *Store) Disputes() repository.DisputeRepository    { return s.base().Disputes() }
func (s *Store) AuditLogs() repository.AuditLogRepository  { return s.base().AuditLogs() }
func (s *Store) Analytics() repository.AnalyticsRepository { return s.base().Analytics() }

// WithinTx runs fn against a private copy and publishes it only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(repositories{v: view{store: s, tx: work}}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
