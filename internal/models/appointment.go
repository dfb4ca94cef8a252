package models

import (
	"time"

	"gorm.io/gorm"
)

// AppointmentPriority defines business priority of an appointment
type AppointmentPriority string

const (
	PriorityUrgent AppointmentPriority = "urgent"
	PriorityHigh   AppointmentPriority = "high"
	PriorityNormal AppointmentPriority = "normal"
	PriorityLow    AppointmentPriority = "low"
)

// AppointmentStatus defines possible appointment states
type AppointmentStatus string

const (
	AppointmentScheduled  AppointmentStatus = "scheduled"
	AppointmentConfirmed  AppointmentStatus = "confirmed"
	AppointmentInProgress AppointmentStatus = "in_progress"
	AppointmentCompleted  AppointmentStatus = "completed"
	AppointmentCancelled  AppointmentStatus = "cancelled"
)

// Appointment represents a scheduled service visit
type Appointment struct {
	ID           string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	CustomerID   string  `gorm:"type:uuid;not null;index" json:"customerId"`
	VehicleID    string  `gorm:"type:uuid;not null;index" json:"vehicleId"`
	TechnicianID *string `gorm:"type:uuid;index" json:"technicianId,omitempty"`
	SlotID       *string `gorm:"type:uuid;index" json:"slotId,omitempty"`

	ServiceType string `json:"serviceType"` // battery_check, full_service, repair...

	// ScheduledDate carries the day; ScheduledTime is "HH:MM" wall time.
	// Kept separate because the booking UI books day slots with a free-form
	// time, and conflict prioritization compares them independently.
	ScheduledDate time.Time `gorm:"not null;index" json:"scheduledDate"`
	ScheduledTime string    `json:"scheduledTime"`

	Priority AppointmentPriority `gorm:"default:'normal';index" json:"priority"`
	Status   AppointmentStatus   `gorm:"default:'scheduled';index" json:"status"`

	Notes string `gorm:"type:text" json:"notes"`

	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Vehicle  *Vehicle  `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Appointment model
func (Appointment) TableName() string {
	return "appointments"
}
