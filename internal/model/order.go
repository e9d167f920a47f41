package model

import "time"

// OrderStatus is the lifecycle state of a maintenance order.
type OrderStatus string

const (
	StatusNew        OrderStatus = "New"
	StatusAssigned   OrderStatus = "Assigned"
	StatusInProgress OrderStatus = "InProgress"
	StatusCompleted  OrderStatus = "Completed"
	StatusVerified   OrderStatus = "Verified"
	StatusClosed     OrderStatus = "Closed"
	StatusCancelled  OrderStatus = "Cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// IsOpen reports whether the order still counts against its resolution deadline.
func (s OrderStatus) IsOpen() bool {
	switch s {
	case StatusNew, StatusAssigned, StatusInProgress:
		return true
	}
	return false
}

// OrderPriority determines the applicable SLA budget.
type OrderPriority string

const (
	PriorityLow      OrderPriority = "Low"
	PriorityMedium   OrderPriority = "Medium"
	PriorityHigh     OrderPriority = "High"
	PriorityCritical OrderPriority = "Critical"
)

// IsValidPriority reports whether p is a recognized priority.
func IsValidPriority(p OrderPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// OrderType classifies the origin of the work.
type OrderType string

const (
	TypeCorrective OrderType = "Corrective"
	TypePreventive OrderType = "Preventive"
	TypeInspection OrderType = "Inspection"
	TypeEmergency  OrderType = "Emergency"
)

// IsValidOrderType reports whether t is a recognized order type.
func IsValidOrderType(t OrderType) bool {
	switch t {
	case TypeCorrective, TypePreventive, TypeInspection, TypeEmergency:
		return true
	}
	return false
}

// MaintenanceOrder is the unit of maintenance work inside a hotel.
type MaintenanceOrder struct {
	ID          int64  `gorm:"primaryKey"`
	OrderNumber string `gorm:"uniqueIndex;size:32;not null"` // Assigned once at creation, immutable.

	HotelID                int64         `gorm:"index;not null"`
	RequestingDepartmentID int64         `gorm:"not null"`
	AssignedDepartmentID   *int64        `gorm:"index"`
	LocationID             int64         `gorm:"not null"`
	ScheduleID             *int64        `gorm:"index"` // Set when spawned by a PM schedule.
	Type                   OrderType     `gorm:"size:32;not null"`
	Priority               OrderPriority `gorm:"size:16;not null"`

	Title           string `gorm:"size:256;not null"`
	Description     string `gorm:"type:text"`
	ResolutionNotes string `gorm:"type:text"`

	Status                 OrderStatus `gorm:"size:16;not null;index"`
	CreatedByUserID        int64       `gorm:"not null"`
	AssignedToUserID       *int64      `gorm:"index"`
	CreatedAt              time.Time   `gorm:"not null"`
	ExpectedCompletionDate time.Time
	ActualCompletionDate   *time.Time
	IsCancelled            bool `gorm:"not null"`
	CancellationReason     string

	// SLABreachedAt records the first time a breach was observed while the
	// order was open, making the breach fact survive cancellation.
	SLABreachedAt *time.Time

	LaborCost    float64 `gorm:"not null;default:0"`
	MaterialCost float64 `gorm:"not null;default:0"`

	LastModifiedAt     time.Time
	LastModifiedByUser int64

	// Version supports optimistic locking; every successful save increments it.
	Version int64 `gorm:"not null;default:1"`

	// Associations
	Hotel         Hotel                          `gorm:"constraint:OnDelete:CASCADE"`
	StatusHistory []OrderStatusHistory           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Assignments   []OrderAssignmentHistory       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Comments      []OrderComment                 `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Attachments   []OrderAttachment              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Schedule      *PreventiveMaintenanceSchedule `gorm:"foreignKey:ScheduleID"`
}
