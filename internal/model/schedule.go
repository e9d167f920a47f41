package model

import "time"

// PMFrequency is the recurrence unit of a preventive-maintenance schedule.
type PMFrequency string

const (
	FrequencyDaily     PMFrequency = "Daily"
	FrequencyWeekly    PMFrequency = "Weekly"
	FrequencyMonthly   PMFrequency = "Monthly"
	FrequencyQuarterly PMFrequency = "Quarterly"
	FrequencyYearly    PMFrequency = "Yearly"
	FrequencyCustom    PMFrequency = "Custom" // FrequencyValue counts days.
)

// NextAfter returns due advanced by one interval of f with the given value.
// A non-positive value is treated as 1.
func (f PMFrequency) NextAfter(due time.Time, value int) time.Time {
	if value <= 0 {
		value = 1
	}
	switch f {
	case FrequencyDaily, FrequencyCustom:
		return due.AddDate(0, 0, value)
	case FrequencyWeekly:
		return due.AddDate(0, 0, 7*value)
	case FrequencyMonthly:
		return due.AddDate(0, value, 0)
	case FrequencyQuarterly:
		return due.AddDate(0, 3*value, 0)
	case FrequencyYearly:
		return due.AddDate(value, 0, 0)
	}
	return due.AddDate(0, 0, value)
}

// PreventiveMaintenanceSchedule is a recurrence rule that periodically spawns
// preventive maintenance orders. The schedule references the orders it spawned
// through MaintenanceOrder.ScheduleID; it does not own them.
type PreventiveMaintenanceSchedule struct {
	ID                       int64  `gorm:"primaryKey"`
	HotelID                  int64  `gorm:"index;not null"`
	DepartmentID             int64  `gorm:"not null"` // Department the generated orders are requested for.
	Title                    string `gorm:"size:256;not null"`
	Description              string `gorm:"type:text"`
	LocationID               int64  `gorm:"not null"`
	CategoryID               int64
	Frequency                PMFrequency   `gorm:"size:16;not null"`
	FrequencyValue           int           `gorm:"not null;default:1"`
	Priority                 OrderPriority `gorm:"size:16"` // Empty means the engine default.
	EstimatedDurationMinutes int           `gorm:"not null;default:0"`
	StartDate                time.Time     `gorm:"not null"`
	EndDate                  *time.Time
	NextDueDate              time.Time `gorm:"index;not null"`
	AssignedToUserID         *int64
	CreatedByUserID          int64 `gorm:"not null"`
	IsActive                 bool  `gorm:"not null;index"`
	AutoGenerateOrders       bool  `gorm:"not null"`
	CreatedAt                time.Time
	UpdatedAt                time.Time

	// Associations
	Hotel Hotel `gorm:"constraint:OnDelete:CASCADE"`
}
