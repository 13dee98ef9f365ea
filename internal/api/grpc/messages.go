package grpc

import (
	"encoding/json"
	"time"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/service"
)

// Request and response messages. Create-style requests reuse the service
// input structs so validation tags travel with them.

type (
	CreateServiceRequestRequest = service.CreateServiceRequestInput
	SubmitQuoteRequest          = service.SubmitQuoteInput
	UpdateQuoteRequest          = service.UpdateQuoteInput
	OpenDisputeRequest          = service.OpenDisputeInput
	ResolveDisputeRequest       = service.ResolveDisputeInput
	AcceptQuoteResponse         = service.AcceptResult
)

type Empty struct{}

type IDRequest struct {
	ID string `json:"id"`
}

type OrganizationRequest struct {
	OrganizationID string `json:"organization_id"`
}

type TransitionStatusRequest struct {
	ID     string                      `json:"id"`
	Status domain.ServiceRequestStatus `json:"status"`
	Note   string                      `json:"note,omitempty"`
}

type ListServiceRequestsRequest struct {
	OrganizationID string                      `json:"organization_id"`
	Status         domain.ServiceRequestStatus `json:"status,omitempty"`
}

type ServiceRequestResponse struct {
	ServiceRequest *domain.ServiceRequestView `json:"service_request"`
}

type ServiceRequestListResponse struct {
	ServiceRequests []domain.ServiceRequestView `json:"service_requests"`
}

type DeclineServiceRequestRequest struct {
	ServiceRequestID string `json:"service_request_id"`
	ProviderID       string `json:"provider_id"`
	Reason           string `json:"reason"`
}

type DeclineServiceRequestResponse struct {
	Decline *domain.ServiceRequestDecline `json:"decline"`
}

type ListQuotesRequest struct {
	OrganizationID string             `json:"organization_id"`
	Status         domain.QuoteStatus `json:"status,omitempty"`
}

type QuoteResponse struct {
	Quote *domain.Quote `json:"quote"`
}

type QuoteListResponse struct {
	Quotes []domain.Quote `json:"quotes"`
}

type AddMessageRequest struct {
	DisputeID string `json:"dispute_id"`
	Content   string `json:"content"`
}

type EscalateDisputeRequest struct {
	DisputeID string `json:"dispute_id"`
	Reason    string `json:"reason,omitempty"`
}

type ListDisputesRequest struct {
	OrganizationID string               `json:"organization_id,omitempty"`
	Status         domain.DisputeStatus `json:"status,omitempty"`
}

type DisputeResponse struct {
	Dispute *domain.Dispute `json:"dispute"`
}

type DisputeListResponse struct {
	Disputes []domain.Dispute `json:"disputes"`
}

type DisputeMessageResponse struct {
	Message *domain.DisputeMessage `json:"message"`
}

type DisputeMessageListResponse struct {
	Messages []domain.DisputeMessage `json:"messages"`
}

type ReassignProviderRequest struct {
	ServiceRequestID string `json:"service_request_id"`
	ProviderID       string `json:"provider_id"`
	Reason           string `json:"reason"`
}

type MemberRequest struct {
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
}

type UpdateMemberRoleRequest struct {
	OrganizationID string            `json:"organization_id"`
	UserID         string            `json:"user_id"`
	Role           domain.MemberRole `json:"role"`
}

type MemberResponse struct {
	Member *domain.Membership `json:"member"`
}

type MemberListResponse struct {
	Members []domain.Membership `json:"members"`
}

type ProviderActionRequest struct {
	ProviderID string `json:"provider_id"`
	Reason     string `json:"reason,omitempty"`
}

type ProviderResponse struct {
	Provider *domain.Provider `json:"provider"`
}

type ProviderListResponse struct {
	Providers []domain.Provider `json:"providers"`
}

type AuditQuery struct {
	OrganizationID string     `json:"organization_id,omitempty"`
	ResourceID     string     `json:"resource_id,omitempty"`
	ResourceType   string     `json:"resource_type,omitempty"`
	ActionPrefix   string     `json:"action_prefix,omitempty"`
	Since          *time.Time `json:"since,omitempty"`
	Until          *time.Time `json:"until,omitempty"`
	Limit          int        `json:"limit,omitempty"`
	Offset         int        `json:"offset,omitempty"`
}

func (q *AuditQuery) filter() domain.AuditFilter {
	return domain.AuditFilter{
		ResourceType: q.ResourceType,
		ActionPrefix: q.ActionPrefix,
		Since:        q.Since,
		Until:        q.Until,
		Limit:        q.Limit,
		Offset:       q.Offset,
	}
}

// AuditEntry is the wire form of domain.AuditLogEntry, which keeps its fields private.
type AuditEntry struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	ActorID        string          `json:"actor_id"`
	Action         string          `json:"action"`
	ResourceType   string          `json:"resource_type"`
	ResourceID     string          `json:"resource_id"`
	PreviousValues json.RawMessage `json:"previous_values,omitempty"`
	NewValues      json.RawMessage `json:"new_values,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type AuditListResponse struct {
	Entries []AuditEntry `json:"entries"`
}

func mapAuditEntries(entries []domain.AuditLogEntry) []AuditEntry {
	out := make([]AuditEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntry{
			ID:             e.ID(),
			OrganizationID: e.OrganizationID(),
			ActorID:        e.ActorID(),
			Action:         e.Action(),
			ResourceType:   e.ResourceType(),
			ResourceID:     e.ResourceID(),
			PreviousValues: e.PreviousValues(),
			NewValues:      e.NewValues(),
			CreatedAt:      e.CreatedAt(),
		})
	}
	return out
}

type WindowRequest struct {
	Months int `json:"months,omitempty"`
}

type LimitRequest struct {
	Limit int `json:"limit,omitempty"`
}

type GrowthResponse struct {
	Points []domain.GrowthPoint `json:"points"`
}

type ServiceMetricsResponse struct {
	Points []domain.ServiceMetricsPoint `json:"points"`
}
