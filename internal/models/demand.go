package models

import "time"

// DemandSource tags which collection a demand was normalized from
type DemandSource string

const (
	DemandFromReception   DemandSource = "service_reception"
	DemandFromPartRequest DemandSource = "part_request"
)

// AllocationPriority records whether a demand is currently believed
// satisfiable given the greedy allocation ordering
type AllocationPriority string

const (
	AllocationHigh AllocationPriority = "high"
	AllocationLow  AllocationPriority = "low"
)

// Demand is the canonical, normalized form of one outstanding request for
// a quantity of a specific part. It is derived from either an unapproved
// reception part or a pending standalone part request, and is persisted
// only embedded in a PartConflict snapshot.
type Demand struct {
	RequestID     string       `json:"requestId"`
	RequestType   DemandSource `json:"requestType"`
	AppointmentID string       `json:"appointmentId"`

	RequestedQuantity int                 `json:"requestedQuantity"`
	Priority          AppointmentPriority `json:"priority"`

	ScheduledDate time.Time `json:"scheduledDate"`
	ScheduledTime string    `json:"scheduledTime,omitempty"`
	RequestedAt   time.Time `json:"requestedAt"`

	CustomerID        string `json:"customerId,omitempty"`
	TechnicianID      string `json:"technicianId,omitempty"`
	StaffReviewStatus string `json:"staffReviewStatus,omitempty"`

	// Filled by the allocation pass, never by the collector
	CanBeFulfilled     bool               `json:"canBeFulfilled"`
	AllocationPriority AllocationPriority `json:"allocationPriority,omitempty"`
}
