package domain

import "time"

// RevenueFact is one accepted quote joined with its request and parties.
type RevenueFact struct {
	QuoteID              string               `json:"quote_id"`
	Amount               int64                `json:"amount"`
	Currency             string               `json:"currency"`
	ServiceRequestStatus ServiceRequestStatus `json:"service_request_status"`
	HospitalID           string               `json:"hospital_id"`
	HospitalName         string               `json:"hospital_name"`
	ProviderID           string               `json:"provider_id"`
	ProviderName         string               `json:"provider_name"`
}

// ServiceRequestFact is the slice of a request the analytics read path needs.
type ServiceRequestFact struct {
	ID               string               `json:"id"`
	OrganizationID   string               `json:"organization_id"`
	OrganizationName string               `json:"organization_name"`
	Status           ServiceRequestStatus `json:"status"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	FirstQuoteAt     *time.Time           `json:"first_quote_at,omitempty"`
}

type PlatformOverview struct {
	TotalHospitals       int              `json:"total_hospitals"`
	TotalProviders       int              `json:"total_providers"`
	TotalEquipment       int              `json:"total_equipment"`
	TotalServiceRequests int              `json:"total_service_requests"`
	TotalRevenue         int64            `json:"total_revenue"`
	RevenueByCurrency    map[string]int64 `json:"revenue_by_currency"`
}

type GrowthPoint struct {
	Month     string `json:"month"`
	Hospitals int    `json:"hospitals"`
	Providers int    `json:"providers"`
}

type ServiceMetricsPoint struct {
	Month          string  `json:"month"`
	Requests       int     `json:"requests"`
	Completed      int     `json:"completed"`
	Cancelled      int     `json:"cancelled"`
	CompletionRate float64 `json:"completion_rate"`
}

type RevenueEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Revenue int64  `json:"revenue"`
	Jobs    int    `json:"jobs"`
}

type RevenueBreakdown struct {
	TopHospitals []RevenueEntry `json:"top_hospitals"`
	TopProviders []RevenueEntry `json:"top_providers"`
}

type HospitalPerformance struct {
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	RequestCount   int    `json:"request_count"`
}

type ProviderPerformance struct {
	ProviderID    string  `json:"provider_id"`
	Name          string  `json:"name"`
	AverageRating float64 `json:"average_rating"`
	TotalRatings  int     `json:"total_ratings"`
}

type TopPerformers struct {
	Hospitals []HospitalPerformance `json:"hospitals"`
	Providers []ProviderPerformance `json:"providers"`
}

type PlatformHealth struct {
	AvgQuoteResponseDays      float64 `json:"avg_quote_response_days"`
	AvgDisputeResolutionDays  float64 `json:"avg_dispute_resolution_days"`
	OpenDisputes              int     `json:"open_disputes"`
	EscalatedDisputes         int     `json:"escalated_disputes"`
	BottleneckServiceRequests int     `json:"bottleneck_service_requests"`
}
