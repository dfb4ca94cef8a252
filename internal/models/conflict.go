package models

import (
	"time"

	"gorm.io/datatypes"
)

// ConflictStatus defines the lifecycle of a part conflict record
type ConflictStatus string

const (
	// ConflictPending: shortage detected, no demand resolved yet
	ConflictPending ConflictStatus = "pending"
	// ConflictPartiallyResolved: auto-resolution approved some demands but
	// a shortage remains. Still open and still blocks like pending.
	ConflictPartiallyResolved ConflictStatus = "partially_resolved"
	// ConflictAutoResolved: every demand reached a terminal state via
	// auto-resolution after restocking
	ConflictAutoResolved ConflictStatus = "auto_resolved"
	// ConflictResolved: closed manually by staff (external workflow)
	ConflictResolved ConflictStatus = "resolved"
)

// OpenConflictStatuses are the states counted against the
// at-most-one-open-conflict-per-part invariant
var OpenConflictStatuses = []ConflictStatus{ConflictPending, ConflictPartiallyResolved}

// PartConflict is the durable artifact describing a part shortage and every
// competing demand at detection time. At most one open conflict exists per
// part, enforced by a partial unique index plus atomic upsert — never by
// check-then-write.
type PartConflict struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ConflictNumber string `gorm:"uniqueIndex;not null" json:"conflictNumber"` // PC-00042

	PartID     string `gorm:"type:uuid;not null;index" json:"partId"`
	PartName   string `json:"partName"`
	PartNumber string `json:"partNumber"`

	AvailableStock int `gorm:"not null" json:"availableStock"`
	TotalRequested int `gorm:"not null" json:"totalRequested"`
	Shortfall      int `gorm:"not null" json:"shortfall"`

	// Always stored in prioritization order with allocation annotations
	// consistent with a greedy left-to-right pass over AvailableStock.
	ConflictingRequests datatypes.JSONSlice[Demand] `json:"conflictingRequests"`

	Status ConflictStatus `gorm:"default:'pending';index" json:"status"`

	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// TableName specifies the table name for PartConflict model
func (PartConflict) TableName() string {
	return "part_conflicts"
}

// IsOpen reports whether the conflict still blocks allocations
func (c *PartConflict) IsOpen() bool {
	return c.Status == ConflictPending || c.Status == ConflictPartiallyResolved
}

// ConflictCounter is a single-row table allocating sequential conflict
// numbers. Incremented inside the detector's serializable transaction so
// numbers stay gapless even when a racing transaction retries.
type ConflictCounter struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	NextValue int64     `gorm:"not null;default:1" json:"nextValue"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ConflictCounter) TableName() string {
	return "conflict_counters"
}
