package model

import "time"

// Hotel represents a managed property.
type Hotel struct {
	ID        int64     `gorm:"primaryKey"`
	Code      string    `gorm:"uniqueIndex;size:16;not null"` // Short code used in order numbers, e.g. "GRD"
	Name      string    `gorm:"size:256;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	// Associations
	Departments []Department `gorm:"foreignKey:HotelID"`
	Locations   []Location   `gorm:"foreignKey:HotelID"`
}

// Department represents an operational unit inside a hotel (housekeeping,
// engineering, ...). Only departments with CanReceiveOrders set may be
// assigned maintenance orders.
type Department struct {
	ID               int64  `gorm:"primaryKey"`
	HotelID          int64  `gorm:"index;not null"`
	Name             string `gorm:"size:128;not null"`
	CanReceiveOrders bool   `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Associations
	Hotel Hotel `gorm:"constraint:OnDelete:CASCADE"`
}

// Location represents a physical place inside a hotel (room, floor, facility).
type Location struct {
	ID        int64  `gorm:"primaryKey"`
	HotelID   int64  `gorm:"index;not null"`
	Name      string `gorm:"size:256;not null"`
	Building  string `gorm:"size:64"`
	Floor     int
	CreatedAt time.Time
	UpdatedAt time.Time

	// Associations
	Hotel Hotel `gorm:"constraint:OnDelete:CASCADE"`
}
