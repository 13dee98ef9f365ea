package domain

import "time"

type ProviderStatus string

const (
	ProviderStatusPendingVerification ProviderStatus = "pending_verification"
	ProviderStatusActive              ProviderStatus = "active"
	ProviderStatusSuspended           ProviderStatus = "suspended"
	ProviderStatusInactive            ProviderStatus = "inactive"
)

type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusInReview VerificationStatus = "in_review"
	VerificationStatusVerified VerificationStatus = "verified"
	VerificationStatusRejected VerificationStatus = "rejected"
)

type Provider struct {
	ID                 string             `json:"id"`
	OrganizationID     string             `json:"organization_id"`
	Name               string             `json:"name"`
	Status             ProviderStatus     `json:"status"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	StatusReason       string             `json:"status_reason,omitempty"`
	AverageRating      float64            `json:"average_rating"`
	TotalRatings       int                `json:"total_ratings"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// CanQuote reports whether the provider may submit quotes.
func (p *Provider) CanQuote() bool {
	return p.Status == ProviderStatusActive && p.VerificationStatus == VerificationStatusVerified
}

type ProviderAction string

const (
	ProviderActionApprove   ProviderAction = "approved"
	ProviderActionReject    ProviderAction = "rejected"
	ProviderActionSuspend   ProviderAction = "suspended"
	ProviderActionReinstate ProviderAction = "reinstated"
)

// ApplyProviderAction returns the provider's next (status, verification) pair or
// ErrInvalidTransition when the action does not apply to the current state.
func ApplyProviderAction(p Provider, action ProviderAction) (ProviderStatus, VerificationStatus, error) {
	reviewable := p.VerificationStatus == VerificationStatusPending || p.VerificationStatus == VerificationStatusInReview
	switch action {
	case ProviderActionApprove:
		if p.Status == ProviderStatusPendingVerification && reviewable {
			return ProviderStatusActive, VerificationStatusVerified, nil
		}
	case ProviderActionReject:
		if p.Status == ProviderStatusPendingVerification && reviewable {
			return ProviderStatusInactive, VerificationStatusRejected, nil
		}
	case ProviderActionSuspend:
		if p.Status == ProviderStatusActive {
			return ProviderStatusSuspended, p.VerificationStatus, nil
		}
	case ProviderActionReinstate:
		if p.Status == ProviderStatusSuspended && p.VerificationStatus == VerificationStatusVerified {
			return ProviderStatusActive, p.VerificationStatus, nil
		}
	}
	return p.Status, p.VerificationStatus, ErrInvalidTransition
}
