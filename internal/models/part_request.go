package models

import (
	"time"

	"gorm.io/gorm"
)

// PartRequestStatus defines possible standalone request states
type PartRequestStatus string

const (
	RequestPending   PartRequestStatus = "pending"
	RequestApproved  PartRequestStatus = "approved"
	RequestRejected  PartRequestStatus = "rejected"
	RequestFulfilled PartRequestStatus = "fulfilled"
)

// PartRequest is a standalone part demand raised outside a reception,
// e.g. a technician ordering ahead of a scheduled appointment.
type PartRequest struct {
	ID            string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PartID        string  `gorm:"type:uuid;not null;index" json:"partId"`
	AppointmentID string  `gorm:"type:uuid;not null;index" json:"appointmentId"`
	RequestedBy   *string `gorm:"type:uuid;index" json:"requestedBy,omitempty"`

	Quantity int `gorm:"not null" json:"quantity"`

	Status       PartRequestStatus `gorm:"default:'pending';index" json:"status"`
	AutoApproved bool              `gorm:"default:false" json:"autoApproved"`
	ApprovedAt   *time.Time        `json:"approvedAt,omitempty"`

	StaffReviewStatus string `gorm:"default:'pending'" json:"staffReviewStatus"`

	Reason string `gorm:"type:text" json:"reason"`

	RequestedAt time.Time `gorm:"not null" json:"requestedAt"`

	Part        *Part        `gorm:"foreignKey:PartID" json:"part,omitempty"`
	Appointment *Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for PartRequest model
func (PartRequest) TableName() string {
	return "part_requests"
}
