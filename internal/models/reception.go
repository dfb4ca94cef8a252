package models

import (
	"time"

	"gorm.io/gorm"
)

// ReceptionStatus defines the workflow state of a service reception
type ReceptionStatus string

const (
	ReceptionOpen      ReceptionStatus = "open"
	ReceptionInService ReceptionStatus = "in_service"
	ReceptionCompleted ReceptionStatus = "completed"
	ReceptionCancelled ReceptionStatus = "cancelled"
)

// ServiceReception represents a vehicle checked in for service.
// Parts the technician asks for are embedded as ReceptionParts and stay
// unapproved (open demand) until staff review signs them off.
type ServiceReception struct {
	ID            string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	AppointmentID string  `gorm:"type:uuid;not null;index" json:"appointmentId"`
	TechnicianID  *string `gorm:"type:uuid;index" json:"technicianId,omitempty"`

	Status ReceptionStatus `gorm:"default:'open';index" json:"status"`

	VehicleConditionNotes string   `gorm:"type:text" json:"vehicleConditionNotes"`
	BatteryHealthPercent  *float64 `json:"batteryHealthPercent,omitempty"`

	// HasConflict is set by the approval workflow when conflict detection
	// reports a shortage involving this reception. Informational only.
	HasConflict bool `gorm:"default:false" json:"hasConflict"`

	Parts []ReceptionPart `gorm:"foreignKey:ReceptionID" json:"parts,omitempty"`

	Appointment *Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ServiceReception) TableName() string {
	return "service_receptions"
}

// ReceptionPart is one part demand embedded in a reception
type ReceptionPart struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ReceptionID string `gorm:"type:uuid;not null;index" json:"receptionId"`
	PartID      string `gorm:"type:uuid;not null;index" json:"partId"`

	Quantity int `gorm:"not null" json:"quantity"`

	IsApproved   bool       `gorm:"default:false;index" json:"isApproved"`
	AutoApproved bool       `gorm:"default:false" json:"autoApproved"`
	ApprovedAt   *time.Time `json:"approvedAt,omitempty"`
	Rejected     bool       `gorm:"default:false" json:"rejected"`

	StaffReviewStatus string `gorm:"default:'pending'" json:"staffReviewStatus"` // pending | reviewed

	RequestedAt time.Time `gorm:"not null" json:"requestedAt"`

	Part      *Part             `gorm:"foreignKey:PartID" json:"part,omitempty"`
	Reception *ServiceReception `gorm:"foreignKey:ReceptionID" json:"-"`
}

func (ReceptionPart) TableName() string {
	return "reception_parts"
}
