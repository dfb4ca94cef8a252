// Package reception implements the service-reception workflow: vehicle
// check-in, technician part demands, and staff approval. Approval is the
// trigger for conflict detection, which is deliberately non-fatal here — a
// shortage must never block the approval itself.
package reception

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/voltera-ev/evscgo/internal/conflict"
	"github.com/voltera-ev/evscgo/internal/database"
	"github.com/voltera-ev/evscgo/internal/models"
)

var (
	ErrAlreadyReviewed = errors.New("reception part already reviewed")
	ErrReceptionClosed = errors.New("reception is not open")
)

// Service handles service reception operations
type Service struct {
	db     *database.DB
	engine *conflict.Engine
}

// NewService creates a new reception service
func NewService(db *database.DB, engine *conflict.Engine) *Service {
	return &Service{db: db, engine: engine}
}

// CheckIn opens a reception for an appointment
func (s *Service) CheckIn(ctx context.Context, appointmentID string, technicianID *string, notes string) (*models.ServiceReception, error) {
	var appt models.Appointment
	if err := s.db.WithContext(ctx).First(&appt, "id = ?", appointmentID).Error; err != nil {
		return nil, fmt.Errorf("appointment not found: %w", err)
	}

	rec := models.ServiceReception{
		AppointmentID:         appointmentID,
		TechnicianID:          technicianID,
		Status:                models.ReceptionOpen,
		VehicleConditionNotes: notes,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&appt).
		Update("status", models.AppointmentInProgress).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// AddPart records a technician part demand on an open reception. The
// demand stays unapproved and counts as open demand for conflict
// detection until staff review it.
func (s *Service) AddPart(ctx context.Context, receptionID, partID string, quantity int) (*models.ReceptionPart, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	var rec models.ServiceReception
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", receptionID).Error; err != nil {
		return nil, fmt.Errorf("reception not found: %w", err)
	}
	if rec.Status != models.ReceptionOpen && rec.Status != models.ReceptionInService {
		return nil, ErrReceptionClosed
	}

	var part models.Part
	if err := s.db.WithContext(ctx).First(&part, "id = ?", partID).Error; err != nil {
		return nil, fmt.Errorf("part not found: %w", err)
	}

	rp := models.ReceptionPart{
		ReceptionID: receptionID,
		PartID:      partID,
		Quantity:    quantity,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&rp).Error; err != nil {
		return nil, err
	}
	return &rp, nil
}

// ApprovePart marks one reception part approved and reserves its quantity
// against the part's stock, then runs conflict detection for the part.
// Detection failure is logged and swallowed: the approval stands either
// way, and a later scan will pick the conflict up.
func (s *Service) ApprovePart(ctx context.Context, receptionPartID string) (*models.ReceptionPart, *models.PartConflict, error) {
	var rp models.ReceptionPart
	now := time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rp, "id = ?", receptionPartID).Error; err != nil {
			return fmt.Errorf("reception part not found: %w", err)
		}
		if rp.IsApproved || rp.Rejected {
			return ErrAlreadyReviewed
		}

		if err := tx.Model(&rp).Updates(map[string]interface{}{
			"is_approved":         true,
			"approved_at":         now,
			"staff_review_status": "reviewed",
		}).Error; err != nil {
			return err
		}

		// Reserve the approved quantity
		return tx.Model(&models.Part{}).
			Where("id = ?", rp.PartID).
			Update("reserved_stock", gorm.Expr("reserved_stock + ?", rp.Quantity)).Error
	})
	if err != nil {
		return nil, nil, err
	}

	detected, detectErr := s.engine.DetectPartConflicts(ctx, rp.PartID)
	if detectErr != nil {
		log.Printf("⚠️ Conflict detection after approval of %s failed: %v", receptionPartID, detectErr)
		return &rp, nil, nil
	}

	if detected != nil {
		if err := s.db.WithContext(ctx).Model(&models.ServiceReception{}).
			Where("id = ?", rp.ReceptionID).
			Update("has_conflict", true).Error; err != nil {
			log.Printf("⚠️ Failed to flag reception %s: %v", rp.ReceptionID, err)
		}
	}
	return &rp, detected, nil
}

// RejectPart marks one reception part rejected. Rejected demands drop out
// of conflict detection and count as terminal for auto-resolution.
func (s *Service) RejectPart(ctx context.Context, receptionPartID string) (*models.ReceptionPart, error) {
	var rp models.ReceptionPart
	if err := s.db.WithContext(ctx).First(&rp, "id = ?", receptionPartID).Error; err != nil {
		return nil, fmt.Errorf("reception part not found: %w", err)
	}
	if rp.IsApproved || rp.Rejected {
		return nil, ErrAlreadyReviewed
	}

	if err := s.db.WithContext(ctx).Model(&rp).Updates(map[string]interface{}{
		"rejected":            true,
		"staff_review_status": "reviewed",
	}).Error; err != nil {
		return nil, err
	}
	return &rp, nil
}

// Complete closes a reception once service work is finished
func (s *Service) Complete(ctx context.Context, receptionID string) (*models.ServiceReception, error) {
	var rec models.ServiceReception
	if err := s.db.WithContext(ctx).Preload("Parts").First(&rec, "id = ?", receptionID).Error; err != nil {
		return nil, fmt.Errorf("reception not found: %w", err)
	}
	for _, rp := range rec.Parts {
		if !rp.IsApproved && !rp.Rejected {
			return nil, fmt.Errorf("reception has unreviewed part demands")
		}
	}

	if err := s.db.WithContext(ctx).Model(&rec).
		Update("status", models.ReceptionCompleted).Error; err != nil {
		return nil, err
	}
	rec.Status = models.ReceptionCompleted
	return &rec, nil
}
