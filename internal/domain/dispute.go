package domain

import "time"

type DisputeStatus string

const (
	DisputeStatusOpen      DisputeStatus = "open"
	DisputeStatusEscalated DisputeStatus = "escalated"
	DisputeStatusResolved  DisputeStatus = "resolved"
)

func (s DisputeStatus) Valid() bool {
	switch s {
	case DisputeStatusOpen, DisputeStatusEscalated, DisputeStatusResolved:
		return true
	}
	return false
}

// CanTransition allows open → escalated → resolved.
func (s DisputeStatus) CanTransition(to DisputeStatus) bool {
	switch s {
	case DisputeStatusOpen:
		return to == DisputeStatusEscalated
	case DisputeStatusEscalated:
		return to == DisputeStatusResolved
	}
	return false
}

type DisputeType string

const (
	DisputeTypeQuality DisputeType = "quality"
	DisputeTypeDelay   DisputeType = "delay"
	DisputeTypeBilling DisputeType = "billing"
	DisputeTypeNoShow  DisputeType = "no_show"
	DisputeTypeOther   DisputeType = "other"
)

type Resolution string

const (
	ResolutionRefund        Resolution = "refund"
	ResolutionPartialRefund Resolution = "partial_refund"
	ResolutionDismiss       Resolution = "dismiss"
	ResolutionReassign      Resolution = "re_assign"
)

// RequiresRefundAmount reports whether the resolution moves money.
func (r Resolution) RequiresRefundAmount() bool {
	return r == ResolutionRefund || r == ResolutionPartialRefund
}

// ResolutionNote is the structured arbitration record stored on a resolved dispute.
type ResolutionNote struct {
	Resolution   Resolution `json:"resolution"`
	ReasonVi     string     `json:"reason_vi"`
	ReasonEn     string     `json:"reason_en,omitempty"`
	RefundAmount *int64     `json:"refund_amount,omitempty"`
	Currency     string     `json:"currency,omitempty"`
	ResolvedBy   string     `json:"resolved_by"`
}

type Dispute struct {
	ID                     string          `json:"id"`
	OrganizationID         string          `json:"organization_id"`
	ServiceRequestID       string          `json:"service_request_id"`
	OpenedBy               string          `json:"opened_by"`
	OpenedByOrganizationID string          `json:"opened_by_organization_id"`
	Status                 DisputeStatus   `json:"status"`
	Type                   DisputeType     `json:"type"`
	Description            string          `json:"description"`
	ResolutionNotes        *ResolutionNote `json:"resolution_notes,omitempty"`
	EscalatedAt            *time.Time      `json:"escalated_at,omitempty"`
	ResolvedAt             *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

type DisputeMessage struct {
	ID        string    `json:"id"`
	DisputeID string    `json:"dispute_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
