package domain

import "time"

type QuoteStatus string

const (
	QuoteStatusPending  QuoteStatus = "pending"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
	QuoteStatusExpired  QuoteStatus = "expired"
)

func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteStatusPending, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusExpired:
		return true
	}
	return false
}

// CanTransition allows only pending → accepted|rejected|expired.
func (s QuoteStatus) CanTransition(to QuoteStatus) bool {
	if s != QuoteStatusPending {
		return false
	}
	return to == QuoteStatusAccepted || to == QuoteStatusRejected || to == QuoteStatusExpired
}

// Quote amounts are integer minor units of Currency (VND has none).
type Quote struct {
	ID                    string      `json:"id"`
	ServiceRequestID      string      `json:"service_request_id"`
	ProviderID            string      `json:"provider_id"`
	SubmittedBy           string      `json:"submitted_by"`
	Status                QuoteStatus `json:"status"`
	Amount                int64       `json:"amount"`
	Currency              string      `json:"currency"`
	ValidUntil            *time.Time  `json:"valid_until,omitempty"`
	Notes                 *string     `json:"notes,omitempty"`
	EstimatedDurationDays *int        `json:"estimated_duration_days,omitempty"`
	AvailableStartDate    *time.Time  `json:"available_start_date,omitempty"`
	RespondedAt           *time.Time  `json:"responded_at,omitempty"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// ExpiredAt reports whether ValidUntil has passed at now.
func (q *Quote) ExpiredAt(now time.Time) bool {
	return q.ValidUntil != nil && now.After(*q.ValidUntil)
}

// QuoteStats is the provider dashboard summary. WinRate is -1 when no quote
// has been decided yet.
type QuoteStats struct {
	PendingCount  int `json:"pending_count"`
	AcceptedCount int `json:"accepted_count"`
	RejectedCount int `json:"rejected_count"`
	ExpiredCount  int `json:"expired_count"`
	WinRate       int `json:"win_rate"`
}

// WinRateNotApplicable is the sentinel for an empty denominator.
const WinRateNotApplicable = -1

// ServiceRequestDecline records a provider declining to quote.
type ServiceRequestDecline struct {
	ID               string    `json:"id"`
	ServiceRequestID string    `json:"service_request_id"`
	ProviderID       string    `json:"provider_id"`
	DeclinedBy       string    `json:"declined_by"`
	Reason           string    `json:"reason"`
	CreatedAt        time.Time `json:"created_at"`
}

// MinDeclineReasonLength is counted in runes after trimming.
const MinDeclineReasonLength = 10
