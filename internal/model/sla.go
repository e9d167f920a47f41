package model

import "time"

// SLAConfiguration is a hotel-specific response/resolution time budget for a
// priority. A missing row falls back to the system default table.
type SLAConfiguration struct {
	ID                int64         `gorm:"primaryKey;autoIncrement"`
	HotelID           int64         `gorm:"uniqueIndex:idx_sla_hotel_priority;not null"`
	Priority          OrderPriority `gorm:"uniqueIndex:idx_sla_hotel_priority;size:16;not null"`
	ResponseMinutes   int           `gorm:"not null"`
	ResolutionMinutes int           `gorm:"not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
