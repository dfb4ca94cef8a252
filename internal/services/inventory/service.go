// Package inventory owns Part stock mutations. The conflict engine only
// reads stock; every increment and decrement funnels through here,
// including the reservations implied by auto-approved demands after a
// restock.
package inventory

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

var ErrInsufficientStock = errors.New("insufficient stock")

// Service handles inventory operations
type Service struct {
	db     *database.DB
	engine *conflict.Engine
}

// NewService creates a new inventory service
func NewService(db *database.DB, engine *conflict.Engine) *Service {
	return &Service{db: db, engine: engine}
}

// Restock increases a part's stock and re-evaluates its open conflicts.
// Demands the auto-resolver approves imply reservations; those are applied
// here, after resolution, because the engine never mutates Part stock.
func (s *Service) Restock(ctx context.Context, partID string, quantity int) (*models.Part, []*models.PartConflict, error) {
	if quantity <= 0 {
		return nil, nil, fmt.Errorf("restock quantity must be positive, got %d", quantity)
	}

	restockedAt := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&models.Part{}).
		Where("id = ?", partID).
		Update("current_stock", gorm.Expr("current_stock + ?", quantity)).Error; err != nil {
		return nil, nil, err
	}

	resolved, err := s.engine.AutoResolveConflicts(ctx, partID)
	if err != nil {
		// Non-fatal: the restock stands, a later restock or scan retries
		log.Printf("⚠️ Auto-resolution after restock of %s failed: %v", partID, err)
		resolved = nil
	}

	if len(resolved) > 0 {
		if err := s.reserveAutoApproved(ctx, partID, restockedAt); err != nil {
			log.Printf("⚠️ Failed to apply auto-approval reservations for %s: %v", partID, err)
		}
	}

	var part models.Part
	if err := s.db.WithContext(ctx).First(&part, "id = ?", partID).Error; err != nil {
		return nil, nil, err
	}
	return &part, resolved, nil
}

// reserveAutoApproved reserves stock for every demand the auto-resolver
// approved during this restock, identified by the auto_approved flag and
// an approval timestamp at or after the restock.
func (s *Service) reserveAutoApproved(ctx context.Context, partID string, since time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var receptionQty, requestQty int64

		if err := tx.Model(&models.ReceptionPart{}).
			Where("part_id = ? AND auto_approved = ? AND approved_at >= ?", partID, true, since).
			Select("COALESCE(SUM(quantity), 0)").
			Scan(&receptionQty).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.PartRequest{}).
			Where("part_id = ? AND auto_approved = ? AND approved_at >= ?", partID, true, since).
			Select("COALESCE(SUM(quantity), 0)").
			Scan(&requestQty).Error; err != nil {
			return err
		}

		total := receptionQty + requestQty
		if total == 0 {
			return nil
		}
		return tx.Model(&models.Part{}).
			Where("id = ?", partID).
			Update("reserved_stock", gorm.Expr("reserved_stock + ?", total)).Error
	})
}

// Consume moves reserved stock into used stock when a part is fitted.
// Fails when the part has less on hand than requested.
func (s *Service) Consume(ctx context.Context, partID string, quantity int) (*models.Part, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("consume quantity must be positive, got %d", quantity)
	}

	res := s.db.WithContext(ctx).Model(&models.Part{}).
		Where("id = ? AND current_stock >= ?", partID, quantity).
		Updates(map[string]interface{}{
			"current_stock":  gorm.Expr("current_stock - ?", quantity),
			"reserved_stock": gorm.Expr("GREATEST(reserved_stock - ?, 0)", quantity),
			"used_stock":     gorm.Expr("used_stock + ?", quantity),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInsufficientStock
	}

	var part models.Part
	if err := s.db.WithContext(ctx).First(&part, "id = ?", partID).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

// LowStockReport lists parts below their minimum level with a reorder
// suggestion derived from average usage and supplier lead time.
type LowStockEntry struct {
	Part             models.Part `json:"part"`
	SuggestedReorder int         `json:"suggestedReorder"`
}

func (s *Service) LowStockReport(ctx context.Context) ([]LowStockEntry, error) {
	var parts []models.Part
	if err := s.db.WithContext(ctx).
		Where("current_stock < min_stock_level").
		Order("part_number").
		Find(&parts).Error; err != nil {
		return nil, err
	}

	entries := make([]LowStockEntry, 0, len(parts))
	for _, p := range parts {
		suggested := p.MinStockLevel - p.CurrentStock
		if usage := int(p.AverageUsage * float64(p.SupplierLeadDays)); usage > suggested {
			suggested = usage
		}
		entries = append(entries, LowStockEntry{Part: p, SuggestedReorder: suggested})
	}
	return entries, nil
}
