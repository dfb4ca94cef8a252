package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus defines possible invoice states
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceIssued    InvoiceStatus = "issued"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// Invoice bills a completed service reception: approved parts plus labor
type Invoice struct {
	ID            string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	InvoiceNumber string `gorm:"uniqueIndex;not null" json:"invoiceNumber"` // INV-00042
	ReceptionID   string `gorm:"type:uuid;not null;index" json:"receptionId"`
	CustomerID    string `gorm:"type:uuid;not null;index" json:"customerId"`

	Subtotal decimal.Decimal `gorm:"type:numeric(12,2)" json:"subtotal"`
	VATRate  decimal.Decimal `gorm:"type:numeric(5,4)" json:"vatRate"`
	VAT      decimal.Decimal `gorm:"type:numeric(12,2)" json:"vat"`
	Total    decimal.Decimal `gorm:"type:numeric(12,2)" json:"total"`

	Status InvoiceStatus `gorm:"default:'draft';index" json:"status"`

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID" json:"lines,omitempty"`

	IssuedAt *time.Time `json:"issuedAt,omitempty"`
	PaidAt   *time.Time `json:"paidAt,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// InvoiceLine is one billable item on an invoice
type InvoiceLine struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	InvoiceID string `gorm:"type:uuid;not null;index" json:"invoiceId"`

	Description string          `gorm:"not null" json:"description"`
	Kind        string          `gorm:"default:'part'" json:"kind"` // part | labor
	PartID      *string         `gorm:"type:uuid" json:"partId,omitempty"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2)" json:"unitPrice"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2)" json:"lineTotal"`
}

func (InvoiceLine) TableName() string {
	return "invoice_lines"
}

// InvoiceCounter is a single-row table allocating sequential invoice
// numbers, locked for the creating transaction. A COUNT-based number would
// repeat after soft-deletes and under concurrent creates.
type InvoiceCounter struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	NextValue int64     `gorm:"not null;default:1" json:"nextValue"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (InvoiceCounter) TableName() string {
	return "invoice_counters"
}
