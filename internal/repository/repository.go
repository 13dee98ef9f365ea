package repository

import (
	"context"
	"time"

	"medequip-marketplace/internal/domain"
)

// Repositories return domain.ErrNotFound when a single-row lookup matches nothing.

type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) error
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type MembershipRepository interface {
	Create(ctx context.Context, m *domain.Membership) error
	Get(ctx context.Context, orgID, userID string) (*domain.Membership, error)
	ListByOrganization(ctx context.Context, orgID string) ([]domain.Membership, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Membership, error)
	UpdateRole(ctx context.Context, orgID, userID string, role domain.MemberRole, updatedAt time.Time) error
	Delete(ctx context.Context, orgID, userID string) error
	CountByRole(ctx context.Context, orgID string, role domain.MemberRole) (int, error)
}

type ProviderRepository interface {
	Create(ctx context.Context, p *domain.Provider) error
	GetByID(ctx context.Context, id string) (*domain.Provider, error)
	ListByOrganization(ctx context.Context, orgID string) ([]domain.Provider, error)
	List(ctx context.Context) ([]domain.Provider, error)
	// UpdateStatus persists Status, VerificationStatus, StatusReason, VerifiedAt and UpdatedAt.
	UpdateStatus(ctx context.Context, p *domain.Provider) error
}

// ServiceRequestFilter narrows request listings. Empty fields are ignored.
type ServiceRequestFilter struct {
	OrganizationID string
	Status         domain.ServiceRequestStatus
	// VisibleToProviders selects requests open for quoting or assigned to or
	// quoted by any of the given providers.
	VisibleToProviders []string
}

type ServiceRequestRepository interface {
	Create(ctx context.Context, sr *domain.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.ServiceRequest, error)
	// Update persists Status, AssignedProviderID, CompletedAt, CancelledAt and UpdatedAt.
	Update(ctx context.Context, sr *domain.ServiceRequest) error
	List(ctx context.Context, filter ServiceRequestFilter) ([]domain.ServiceRequest, error)
	// ListStale returns non-terminal requests last updated before cutoff, oldest first.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.ServiceRequest, error)
	RecordDecline(ctx context.Context, d *domain.ServiceRequestDecline) error
	ListDeclines(ctx context.Context, serviceRequestID string) ([]domain.ServiceRequestDecline, error)
}

type QuoteRepository interface {
	Create(ctx context.Context, q *domain.Quote) error
	GetByID(ctx context.Context, id string) (*domain.Quote, error)
	// Update persists every mutable column: pricing fields, Status, RespondedAt and UpdatedAt.
	Update(ctx context.Context, q *domain.Quote) error
	ListByServiceRequest(ctx context.Context, serviceRequestID string) ([]domain.Quote, error)
	ListByProviders(ctx context.Context, providerIDs []string, status domain.QuoteStatus) ([]domain.Quote, error)
	CountByStatus(ctx context.Context, providerIDs []string) (map[domain.QuoteStatus]int, error)
	// ListExpirable returns pending quotes whose ValidUntil is before now.
	ListExpirable(ctx context.Context, now time.Time) ([]domain.Quote, error)
}

// DisputeFilter narrows dispute listings. Empty fields are ignored.
type DisputeFilter struct {
	OrganizationID   string
	ServiceRequestID string
	Status           domain.DisputeStatus
	// AssignedProviderIDs keeps disputes whose request is assigned to one of these providers.
	AssignedProviderIDs []string
}

type DisputeRepository interface {
	Create(ctx context.Context, d *domain.Dispute) error
	GetByID(ctx context.Context, id string) (*domain.Dispute, error)
	// Update persists Status, ResolutionNotes, EscalatedAt, ResolvedAt and UpdatedAt.
	Update(ctx context.Context, d *domain.Dispute) error
	List(ctx context.Context, filter DisputeFilter) ([]domain.Dispute, error)
	AddMessage(ctx context.Context, m *domain.DisputeMessage) error
	ListMessages(ctx context.Context, disputeID string) ([]domain.DisputeMessage, error)
}

// AuditLogRepository is append-only: there is no update or delete.
type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, error)
}

// AnalyticsRepository loads the raw facts the admin dashboards aggregate.
type AnalyticsRepository interface {
	CountOrganizations(ctx context.Context, orgType domain.OrganizationType) (int, error)
	CountProviders(ctx context.Context) (int, error)
	CountServiceRequests(ctx context.Context) (int, error)
	CountDistinctEquipment(ctx context.Context) (int, error)
	// ListRevenueFacts returns every accepted quote with its request status and parties.
	ListRevenueFacts(ctx context.Context) ([]domain.RevenueFact, error)
	ListOrganizationCreations(ctx context.Context, orgType domain.OrganizationType, since time.Time) ([]time.Time, error)
	ListProviderCreations(ctx context.Context, since time.Time) ([]time.Time, error)
	// ListServiceRequestFacts returns requests created at or after since; a zero since means all.
	ListServiceRequestFacts(ctx context.Context, since time.Time) ([]domain.ServiceRequestFact, error)
}

// Repositories is the set of repositories bound to one connection or transaction.
type Repositories interface {
	Organizations() OrganizationRepository
	Users() UserRepository
	Memberships() MembershipRepository
	Providers() ProviderRepository
	ServiceRequests() ServiceRequestRepository
	Quotes() QuoteRepository
	Disputes() DisputeRepository
	AuditLogs() AuditLogRepository
	Analytics() AnalyticsRepository
}

// Store runs fn inside one serializable transaction. fn must only use the
// repositories it is handed; returning an error rolls everything back.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(tx Repositories) error) error
	Ping(ctx context.Context) error
}
