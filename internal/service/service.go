package service

import (
	"context"
	"time"

	"medequip-marketplace/internal/domain"

	"github.com/google/uuid"
)

// Every service method takes the resolved caller explicitly. Nothing reads
// identity from the context.

type AuditService interface {
	ListForOrganization(ctx context.Context, caller domain.Identity, orgID string, filter domain.AuditFilter) ([]domain.AuditLogEntry, error)
	ListForResource(ctx context.Context, caller domain.Identity, resourceID string, filter domain.AuditFilter) ([]domain.AuditLogEntry, error)
	ListAll(ctx context.Context, caller domain.Identity, filter domain.AuditFilter) ([]domain.AuditLogEntry, error)
}

type MembershipService interface {
	ListMembers(ctx context.Context, caller domain.Identity, orgID string) ([]domain.Membership, error)
	UpdateMemberRole(ctx context.Context, caller domain.Identity, orgID, targetUserID string, role domain.MemberRole) (*domain.Membership, error)
	RemoveMember(ctx context.Context, caller domain.Identity, orgID, targetUserID string) error
}

type ProviderAdminService interface {
	GetProvider(ctx context.Context, caller domain.Identity, providerID string) (*domain.Provider, error)
	ListProviders(ctx context.Context, caller domain.Identity) ([]domain.Provider, error)
	ApproveProvider(ctx context.Context, caller domain.Identity, providerID string) (*domain.Provider, error)
	RejectProvider(ctx context.Context, caller domain.Identity, providerID, reason string) (*domain.Provider, error)
	SuspendProvider(ctx context.Context, caller domain.Identity, providerID, reason string) (*domain.Provider, error)
	ReinstateProvider(ctx context.Context, caller domain.Identity, providerID string) (*domain.Provider, error)
}

type ServiceRequestService interface {
	Create(ctx context.Context, caller domain.Identity, input CreateServiceRequestInput) (*domain.ServiceRequestView, error)
	Get(ctx context.Context, caller domain.Identity, id string) (*domain.ServiceRequestView, error)
	Transition(ctx context.Context, caller domain.Identity, id string, to domain.ServiceRequestStatus, note string) (*domain.ServiceRequestView, error)
	ListForOrganization(ctx context.Context, caller domain.Identity, orgID string, status domain.ServiceRequestStatus) ([]domain.ServiceRequestView, error)
	ListForProvider(ctx context.Context, caller domain.Identity, providerOrgID string, status domain.ServiceRequestStatus) ([]domain.ServiceRequestView, error)
}

type QuoteService interface {
	Submit(ctx context.Context, caller domain.Identity, input SubmitQuoteInput) (*domain.Quote, error)
	Update(ctx context.Context, caller domain.Identity, input UpdateQuoteInput) (*domain.Quote, error)
	Accept(ctx context.Context, caller domain.Identity, quoteID string) (*AcceptResult, error)
	Decline(ctx context.Context, caller domain.Identity, serviceRequestID, providerID, reason string) (*domain.ServiceRequestDecline, error)
	Expire(ctx context.Context) (int, error)
	Get(ctx context.Context, caller domain.Identity, quoteID string) (*domain.Quote, error)
	ListForServiceRequest(ctx context.Context, caller domain.Identity, serviceRequestID string) ([]domain.Quote, error)
	ListForProvider(ctx context.Context, caller domain.Identity, providerOrgID string, status domain.QuoteStatus) ([]domain.Quote, error)
	Stats(ctx context.Context, caller domain.Identity, providerOrgID string) (*domain.QuoteStats, error)
}

type DisputeService interface {
	Open(ctx context.Context, caller domain.Identity, input OpenDisputeInput) (*domain.Dispute, error)
	AddMessage(ctx context.Context, caller domain.Identity, disputeID, content string) (*domain.DisputeMessage, error)
	Escalate(ctx context.Context, caller domain.Identity, disputeID, reason string) (*domain.Dispute, error)
	Resolve(ctx context.Context, caller domain.Identity, input ResolveDisputeInput) (*domain.Dispute, error)
	ReassignProvider(ctx context.Context, caller domain.Identity, serviceRequestID, newProviderID, reason string) (*domain.ServiceRequestView, error)
	Get(ctx context.Context, caller domain.Identity, disputeID string) (*domain.Dispute, error)
	ListForOrganization(ctx context.Context, caller domain.Identity, orgID string, status domain.DisputeStatus) ([]domain.Dispute, error)
	ListForProvider(ctx context.Context, caller domain.Identity, providerOrgID string, status domain.DisputeStatus) ([]domain.Dispute, error)
	ListMessages(ctx context.Context, caller domain.Identity, disputeID string) ([]domain.DisputeMessage, error)
	ListAll(ctx context.Context, caller domain.Identity, status domain.DisputeStatus) ([]domain.Dispute, error)
}

type AnalyticsService interface {
	Overview(ctx context.Context, caller domain.Identity) (*domain.PlatformOverview, error)
	Growth(ctx context.Context, caller domain.Identity, months int) ([]domain.GrowthPoint, error)
	ServiceMetrics(ctx context.Context, caller domain.Identity, months int) ([]domain.ServiceMetricsPoint, error)
	RevenueBreakdown(ctx context.Context, caller domain.Identity, limit int) (*domain.RevenueBreakdown, error)
	TopPerformers(ctx context.Context, caller domain.Identity, limit int) (*domain.TopPerformers, error)
	PlatformHealth(ctx context.Context, caller domain.Identity) (*domain.PlatformHealth, error)
	ListBottlenecks(ctx context.Context, caller domain.Identity, limit int) ([]domain.ServiceRequestView, error)
}

// Notifier delivers notifications after the mutation that produced them commits.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

type options struct {
	now   func() time.Time
	newID func() string
}

// Option customises the clock and id source of a service.
type Option func(*options)

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func newOptions(opts []Option) options {
	o := options{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
