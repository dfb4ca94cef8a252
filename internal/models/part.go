package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PartCategory groups spare parts by subsystem
type PartCategory string

const (
	CategoryBattery     PartCategory = "battery"
	CategoryMotor       PartCategory = "motor"
	CategoryCharging    PartCategory = "charging"
	CategoryBraking     PartCategory = "braking"
	CategorySuspension  PartCategory = "suspension"
	CategoryElectronics PartCategory = "electronics"
	CategoryGeneral     PartCategory = "general"
)

// Part represents a spare part in the service-center inventory.
// AvailableStock is always derived, never stored.
type Part struct {
	ID         string       `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PartNumber string       `gorm:"uniqueIndex;not null" json:"partNumber"`
	Name       string       `gorm:"not null;index" json:"name"`
	Category   PartCategory `gorm:"default:'general';index" json:"category"`

	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2)" json:"unitPrice"`

	// Stock accounting. ReservedStock counts quantities held for approved
	// but not yet fulfilled requests; UsedStock is lifetime consumption.
	CurrentStock  int     `gorm:"default:0" json:"currentStock"`
	ReservedStock int     `gorm:"default:0" json:"reservedStock"`
	UsedStock     int     `gorm:"default:0" json:"usedStock"`
	MinStockLevel int     `gorm:"default:0" json:"minStockLevel"`
	AverageUsage  float64 `gorm:"default:0" json:"averageUsage"`

	SupplierName     string `json:"supplierName,omitempty"`
	SupplierLeadDays int    `gorm:"default:0" json:"supplierLeadDays"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Part model
func (Part) TableName() string {
	return "parts"
}

// AvailableStock returns stock not yet reserved, floored at zero
func (p *Part) AvailableStock() int {
	available := p.CurrentStock - p.ReservedStock
	if available < 0 {
		return 0
	}
	return available
}

// BelowMinimum reports whether the part needs reordering
func (p *Part) BelowMinimum() bool {
	return p.CurrentStock < p.MinStockLevel
}
