package store

import "hotel-maintenance-backend/internal/model"

// OrderFilter narrows an order listing. Zero-valued fields are ignored.
// Overdue/breached filtering happens in the lifecycle layer, which owns the
// SLA arithmetic; the store only filters on persisted columns.
type OrderFilter struct {
	HotelID              int64
	AssignedDepartmentID int64
	AssignedToUserID     int64
	ScheduleID           int64
	Status               model.OrderStatus
	Limit                int
}
