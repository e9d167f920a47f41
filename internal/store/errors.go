package store

import "errors"

var (
	ErrHotelNotFound         = errors.New("hotel not found")
	ErrDepartmentNotFound    = errors.New("department not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrScheduleNotFound      = errors.New("schedule not found")
	ErrSLAConfigNotFound     = errors.New("sla configuration not found")
	ErrConcurrencyConflict   = errors.New("order was modified concurrently")
	ErrGenerationUnavailable = errors.New("order number sequence unavailable")
)
