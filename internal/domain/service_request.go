package domain

import "time"

type ServiceRequestStatus string

const (
	ServiceRequestStatusPending    ServiceRequestStatus = "pending"
	ServiceRequestStatusQuoted     ServiceRequestStatus = "quoted"
	ServiceRequestStatusAccepted   ServiceRequestStatus = "accepted"
	ServiceRequestStatusInProgress ServiceRequestStatus = "in_progress"
	ServiceRequestStatusCompleted  ServiceRequestStatus = "completed"
	ServiceRequestStatusCancelled  ServiceRequestStatus = "cancelled"
	ServiceRequestStatusDisputed   ServiceRequestStatus = "disputed"
)

// AllServiceRequestStatuses lists every status, in lifecycle order.
var AllServiceRequestStatuses = []ServiceRequestStatus{
	ServiceRequestStatusPending,
	ServiceRequestStatusQuoted,
	ServiceRequestStatusAccepted,
	ServiceRequestStatusInProgress,
	ServiceRequestStatusCompleted,
	ServiceRequestStatusCancelled,
	ServiceRequestStatusDisputed,
}

func (s ServiceRequestStatus) Valid() bool {
	for _, v := range AllServiceRequestStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports completed/cancelled. Only dispute handling reopens them.
func (s ServiceRequestStatus) Terminal() bool {
	return s == ServiceRequestStatusCompleted || s == ServiceRequestStatusCancelled
}

// Quotable reports whether new quotes may be submitted.
func (s ServiceRequestStatus) Quotable() bool {
	return s == ServiceRequestStatusPending || s == ServiceRequestStatusQuoted
}

// Disputable reports whether a dispute may be opened against the request.
func (s ServiceRequestStatus) Disputable() bool {
	switch s {
	case ServiceRequestStatusAccepted, ServiceRequestStatusInProgress,
		ServiceRequestStatusCompleted, ServiceRequestStatusDisputed:
		return true
	}
	return false
}

type ServiceType string

const (
	ServiceTypeRepair       ServiceType = "repair"
	ServiceTypeMaintenance  ServiceType = "maintenance"
	ServiceTypeCalibration  ServiceType = "calibration"
	ServiceTypeInstallation ServiceType = "installation"
	ServiceTypeInspection   ServiceType = "inspection"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type ServiceRequest struct {
	ID                 string               `json:"id"`
	OrganizationID     string               `json:"organization_id"`
	EquipmentID        string               `json:"equipment_id"`
	RequestedBy        string               `json:"requested_by"`
	AssignedProviderID *string              `json:"assigned_provider_id,omitempty"`
	Type               ServiceType          `json:"type"`
	Priority           Priority             `json:"priority"`
	Status             ServiceRequestStatus `json:"status"`
	Description        string               `json:"description"`
	PreferredDate      *time.Time           `json:"preferred_date,omitempty"`
	CompletedAt        *time.Time           `json:"completed_at,omitempty"`
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// IsAssignedTo reports whether providerID is the request's assigned provider.
func (sr *ServiceRequest) IsAssignedTo(providerID string) bool {
	return sr.AssignedProviderID != nil && *sr.AssignedProviderID == providerID
}

// BottleneckThreshold is how long a non-terminal request may sit unchanged.
const BottleneckThreshold = 7 * 24 * time.Hour

// IsBottleneck is derived at query time and never persisted.
func (sr *ServiceRequest) IsBottleneck(now time.Time) bool {
	if sr.Status.Terminal() {
		return false
	}
	return now.Sub(sr.UpdatedAt) > BottleneckThreshold
}

// ServiceRequestView is the read model returned by queries.
type ServiceRequestView struct {
	ServiceRequest
	IsBottleneck bool `json:"is_bottleneck"`
}

func NewServiceRequestView(sr ServiceRequest, now time.Time) ServiceRequestView {
	return ServiceRequestView{ServiceRequest: sr, IsBottleneck: sr.IsBottleneck(now)}
}

// TransitionActor is a bit set of who may drive a given edge.
type TransitionActor uint8

const (
	ActorSystem TransitionActor = 1 << iota
	ActorHospital
	ActorProvider
	ActorPlatformAdmin
)

func (a TransitionActor) Has(b TransitionActor) bool { return a&b != 0 }

// SystemOnly reports that no caller may invoke the edge directly.
func (a TransitionActor) SystemOnly() bool { return a == ActorSystem }

var serviceRequestTransitions = map[ServiceRequestStatus]map[ServiceRequestStatus]TransitionActor{
	ServiceRequestStatusPending: {
		ServiceRequestStatusQuoted:    ActorSystem,
		ServiceRequestStatusCancelled: ActorHospital,
	},
	ServiceRequestStatusQuoted: {
		ServiceRequestStatusAccepted:  ActorSystem,
		ServiceRequestStatusCancelled: ActorHospital,
	},
	ServiceRequestStatusAccepted: {
		ServiceRequestStatusInProgress: ActorHospital | ActorProvider,
		ServiceRequestStatusCancelled:  ActorHospital,
		ServiceRequestStatusDisputed:   ActorSystem,
	},
	ServiceRequestStatusInProgress: {
		ServiceRequestStatusCompleted: ActorHospital | ActorProvider,
		ServiceRequestStatusDisputed:  ActorSystem,
	},
	ServiceRequestStatusCompleted: {
		ServiceRequestStatusDisputed: ActorSystem,
	},
	ServiceRequestStatusDisputed: {
		ServiceRequestStatusInProgress: ActorPlatformAdmin,
		ServiceRequestStatusCompleted:  ActorPlatformAdmin,
		ServiceRequestStatusCancelled:  ActorPlatformAdmin,
	},
}

// ServiceRequestEdge returns the actors allowed on from→to and whether the edge exists.
func ServiceRequestEdge(from, to ServiceRequestStatus) (TransitionActor, bool) {
	actors, ok := serviceRequestTransitions[from][to]
	return actors, ok
}

// CanTransition reports whether from→to is in the edge table.
func (s ServiceRequestStatus) CanTransition(to ServiceRequestStatus) bool {
	_, ok := ServiceRequestEdge(s, to)
	return ok
}
