// Package scheduling books appointments into capacity-limited service
// slots. Booking is one conditional UPDATE guarded by the capacity check,
// so two racing bookings of the last place cannot both succeed.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/voltera-ev/evscgo/internal/database"
	"github.com/voltera-ev/evscgo/internal/models"
)

var (
	ErrSlotFull  = errors.New("slot is fully booked")
	ErrSlotEmpty = errors.New("slot has no bookings to release")
)

// Service handles slot booking operations
type Service struct {
	db *database.DB
}

// NewService creates a new scheduling service
func NewService(db *database.DB) *Service {
	return &Service{db: db}
}

// CreateSlot opens a bookable window
func (s *Service) CreateSlot(ctx context.Context, date time.Time, startTime, endTime string, capacity int) (*models.ServiceSlot, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	slot := models.ServiceSlot{
		Date:      date,
		StartTime: startTime,
		EndTime:   endTime,
		Capacity:  capacity,
	}
	if err := s.db.WithContext(ctx).Create(&slot).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

// ListSlots returns slots for a given day
func (s *Service) ListSlots(ctx context.Context, date time.Time) ([]models.ServiceSlot, error) {
	var slots []models.ServiceSlot
	dayStart := date.Truncate(24 * time.Hour)
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date < ?", dayStart, dayStart.Add(24*time.Hour)).
		Order("start_time").
		Find(&slots).Error
	return slots, err
}

// Book takes one place in a slot and attaches it to the appointment.
// The capacity guard lives in the WHERE clause: zero rows affected means
// the slot filled up first.
func (s *Service) Book(ctx context.Context, slotID, appointmentID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ServiceSlot{}).
			Where("id = ? AND booked_count < capacity", slotID).
			Update("booked_count", gorm.Expr("booked_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSlotFull
		}

		return tx.Model(&models.Appointment{}).
			Where("id = ?", appointmentID).
			Update("slot_id", slotID).Error
	})
}

// Release frees one place in a slot, e.g. on appointment cancellation
func (s *Service) Release(ctx context.Context, slotID, appointmentID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ServiceSlot{}).
			Where("id = ? AND booked_count > 0", slotID).
			Update("booked_count", gorm.Expr("booked_count - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSlotEmpty
		}

		return tx.Model(&models.Appointment{}).
			Where("id = ? AND slot_id = ?", appointmentID, slotID).
			Update("slot_id", nil).Error
	})
}
