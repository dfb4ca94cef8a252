package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer represents a vehicle owner
type Customer struct {
	ID    string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name  string `gorm:"not null;index" json:"name"`
	Email string `gorm:"index" json:"email"`
	Phone string `json:"phone"`

	Vehicles []Vehicle `gorm:"foreignKey:CustomerID" json:"vehicles,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Customer) TableName() string {
	return "customers"
}

// Vehicle represents an electric vehicle serviced by the center
type Vehicle struct {
	ID         string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	CustomerID string `gorm:"type:uuid;not null;index" json:"customerId"`
	VIN        string `gorm:"uniqueIndex;not null" json:"vin"`
	Make       string `json:"make"`
	Model      string `json:"model"`
	Year       int    `json:"year"`

	// EV-specific fields
	BatteryCapacityKWh float64 `json:"batteryCapacityKwh"`
	MotorType          string  `json:"motorType"`
	OdometerKm         int     `json:"odometerKm"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}
