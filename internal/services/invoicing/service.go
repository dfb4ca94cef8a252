// Package invoicing bills completed receptions: approved parts at their
// unit price plus labor, with decimal arithmetic throughout. Money never
// touches float64.
package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voltera-ev/evscgo/internal/database"
	"github.com/voltera-ev/evscgo/internal/models"
)

// DefaultVATRate is applied when no rate is configured per invoice
var DefaultVATRate = decimal.NewFromFloat(0.19)

var ErrReceptionNotCompleted = errors.New("reception is not completed")

// Service handles invoicing operations
type Service struct {
	db *database.DB
}

// NewService creates a new invoicing service
func NewService(db *database.DB) *Service {
	return &Service{db: db}
}

// Totals is the computed money summary of a set of invoice lines
type Totals struct {
	Subtotal decimal.Decimal
	VAT      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals sums line totals and applies the VAT rate, rounding each
// figure to cents half-up.
func ComputeTotals(lines []models.InvoiceLine, vatRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal)
	}
	subtotal = subtotal.Round(2)
	vat := subtotal.Mul(vatRate).Round(2)
	return Totals{
		Subtotal: subtotal,
		VAT:      vat,
		Total:    subtotal.Add(vat),
	}
}

// BuildPartLine prices one approved reception part
func BuildPartLine(part models.Part, quantity int) models.InvoiceLine {
	unit := part.UnitPrice
	return models.InvoiceLine{
		Description: fmt.Sprintf("%s (%s)", part.Name, part.PartNumber),
		Kind:        "part",
		PartID:      &part.ID,
		Quantity:    quantity,
		UnitPrice:   unit,
		LineTotal:   unit.Mul(decimal.NewFromInt(int64(quantity))).Round(2),
	}
}

// BuildLaborLine prices labor hours at the given rate
func BuildLaborLine(hours, hourlyRate decimal.Decimal) models.InvoiceLine {
	return models.InvoiceLine{
		Description: fmt.Sprintf("Labor (%s h)", hours.String()),
		Kind:        "labor",
		Quantity:    1,
		UnitPrice:   hourlyRate,
		LineTotal:   hours.Mul(hourlyRate).Round(2),
	}
}

// CreateFromReception builds and persists a draft invoice for a completed
// reception: one line per approved part demand plus one labor line.
func (s *Service) CreateFromReception(ctx context.Context, receptionID string, laborHours, hourlyRate decimal.Decimal) (*models.Invoice, error) {
	var invoice *models.Invoice

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.ServiceReception
		if err := tx.Preload("Parts").Preload("Appointment").
			First(&rec, "id = ?", receptionID).Error; err != nil {
			return fmt.Errorf("reception not found: %w", err)
		}
		if rec.Status != models.ReceptionCompleted {
			return ErrReceptionNotCompleted
		}
		if rec.Appointment == nil {
			return fmt.Errorf("reception %s has no appointment", receptionID)
		}

		var lines []models.InvoiceLine
		for _, rp := range rec.Parts {
			if !rp.IsApproved {
				continue
			}
			var part models.Part
			if err := tx.First(&part, "id = ?", rp.PartID).Error; err != nil {
				return fmt.Errorf("part %s not found: %w", rp.PartID, err)
			}
			lines = append(lines, BuildPartLine(part, rp.Quantity))
		}
		if laborHours.IsPositive() {
			lines = append(lines, BuildLaborLine(laborHours, hourlyRate))
		}

		totals := ComputeTotals(lines, DefaultVATRate)

		number, err := s.nextInvoiceNumber(tx)
		if err != nil {
			return err
		}

		inv := models.Invoice{
			InvoiceNumber: number,
			ReceptionID:   receptionID,
			CustomerID:    rec.Appointment.CustomerID,
			Subtotal:      totals.Subtotal,
			VATRate:       DefaultVATRate,
			VAT:           totals.VAT,
			Total:         totals.Total,
			Status:        models.InvoiceDraft,
			Lines:         lines,
		}
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}
		invoice = &inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// Issue moves a draft invoice to issued
func (s *Service) Issue(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).First(&inv, "id = ?", invoiceID).Error; err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceDraft {
		return nil, fmt.Errorf("invoice %s is %s, not draft", inv.InvoiceNumber, inv.Status)
	}
	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&inv).Updates(map[string]interface{}{
		"status":    models.InvoiceIssued,
		"issued_at": now,
	}).Error; err != nil {
		return nil, err
	}
	inv.Status = models.InvoiceIssued
	inv.IssuedAt = &now
	return &inv, nil
}

// nextInvoiceNumber allocates the next sequential number from the counter
// row, locked for the duration of the enclosing transaction
func (s *Service) nextInvoiceNumber(tx *gorm.DB) (string, error) {
	var counter models.InvoiceCounter
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(models.InvoiceCounter{ID: 1}).
		Attrs(models.InvoiceCounter{NextValue: 1}).
		FirstOrCreate(&counter).Error; err != nil {
		return "", err
	}
	seq := counter.NextValue
	if err := tx.Model(&models.InvoiceCounter{}).
		Where("id = ?", 1).
		Update("next_value", seq+1).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%05d", seq), nil
}
