package domain

import (
	"encoding/json"
	"time"
)

// Audit actions. Admin actions carry the "admin." prefix.
const (
	ActionServiceRequestCreated       = "service_request.created"
	ActionServiceRequestStatusChanged = "service_request.status_changed"
	ActionQuoteSubmitted              = "quote.submitted"
	ActionQuoteUpdated                = "quote.updated"
	ActionQuoteAccepted               = "quote.accepted"
	ActionQuoteDeclined               = "quote.declined"
	ActionQuoteExpired                = "quote.expired"
	ActionDisputeOpened               = "dispute.opened"
	ActionDisputeEscalated            = "dispute.escalated"
	ActionDisputeMessageAdded         = "dispute.message_added"
	ActionDisputeArbitrated           = "admin.dispute.arbitrated"
	ActionProviderReassigned          = "admin.service_request.provider_reassigned"
	ActionServiceRequestSettled       = "admin.service_request.status_changed"
	ActionMembershipRoleUpdated       = "membership.role_updated"
	ActionMembershipRemoved           = "membership.removed"
)

// AdminProviderAction returns the audit action for a provider review action.
func AdminProviderAction(a ProviderAction) string {
	return "admin.provider." + string(a)
}

const (
	ResourceServiceRequest = "service_request"
	ResourceQuote          = "quote"
	ResourceDispute        = "dispute"
	ResourceProvider       = "provider"
	ResourceMembership     = "membership"
)

// AuditLogEntry is immutable: fields are unexported and accessors return copies.
type AuditLogEntry struct {
	id             string
	organizationID string
	actorID        string
	action         string
	resourceType   string
	resourceID     string
	previousValues json.RawMessage
	newValues      json.RawMessage
	createdAt      time.Time
}

// NewAuditLogEntry builds an entry; it is also used by stores rehydrating rows.
func NewAuditLogEntry(id, organizationID, actorID, action, resourceType, resourceID string,
	previousValues, newValues json.RawMessage, createdAt time.Time) AuditLogEntry {
	return AuditLogEntry{
		id:             id,
		organizationID: organizationID,
		actorID:        actorID,
		action:         action,
		resourceType:   resourceType,
		resourceID:     resourceID,
		previousValues: cloneRaw(previousValues),
		newValues:      cloneRaw(newValues),
		createdAt:      createdAt,
	}
}

func (e AuditLogEntry) ID() string             { return e.id }
func (e AuditLogEntry) OrganizationID() string { return e.organizationID }
func (e AuditLogEntry) ActorID() string        { return e.actorID }
func (e AuditLogEntry) Action() string         { return e.action }
func (e AuditLogEntry) ResourceType() string   { return e.resourceType }
func (e AuditLogEntry) ResourceID() string     { return e.resourceID }
func (e AuditLogEntry) CreatedAt() time.Time   { return e.createdAt }

func (e AuditLogEntry) PreviousValues() json.RawMessage { return cloneRaw(e.previousValues) }
func (e AuditLogEntry) NewValues() json.RawMessage      { return cloneRaw(e.newValues) }

func (e AuditLogEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID             string          `json:"id"`
		OrganizationID string          `json:"organization_id"`
		ActorID        string          `json:"actor_id"`
		Action         string          `json:"action"`
		ResourceType   string          `json:"resource_type"`
		ResourceID     string          `json:"resource_id"`
		PreviousValues json.RawMessage `json:"previous_values,omitempty"`
		NewValues      json.RawMessage `json:"new_values,omitempty"`
		CreatedAt      time.Time       `json:"created_at"`
	}{e.id, e.organizationID, e.actorID, e.action, e.resourceType, e.resourceID,
		e.previousValues, e.newValues, e.createdAt})
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return cp
}

// AuditFilter narrows audit queries. Zero values mean "no constraint".
type AuditFilter struct {
	OrganizationID string
	ResourceID     string
	ResourceType   string
	ActionPrefix   string
	Since          *time.Time
	Until          *time.Time
	Limit          int
	Offset         int
}

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

// Normalize clamps Limit and Offset into their allowed ranges.
func (f AuditFilter) Normalize() AuditFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultAuditLimit
	}
	if f.Limit > MaxAuditLimit {
		f.Limit = MaxAuditLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
