package models

import "time"

// ServiceSlot is a bookable capacity window on a service bay. Booking is a
// single conditional UPDATE (booked_count < capacity), the same
// contention-safe pattern the conflict engine uses for its upsert.
type ServiceSlot struct {
	ID   string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Date time.Time `gorm:"not null;index:idx_slot_window" json:"date"`

	StartTime string `gorm:"not null;index:idx_slot_window" json:"startTime"` // "HH:MM"
	EndTime   string `gorm:"not null" json:"endTime"`

	Capacity    int `gorm:"not null;default:1" json:"capacity"`
	BookedCount int `gorm:"not null;default:0" json:"bookedCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ServiceSlot) TableName() string {
	return "service_slots"
}

// Remaining returns unbooked capacity
func (s *ServiceSlot) Remaining() int {
	return s.Capacity - s.BookedCount
}
