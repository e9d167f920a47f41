package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hotel-maintenance-backend/internal/model"
)

// ScheduleOrderBuilder produces the order (and its initial status-history row)
// a due schedule should spawn. It runs inside the schedule's transaction and
// receives a transaction-scoped store; if it returns an error nothing is
// persisted and the schedule is not advanced.
type ScheduleOrderBuilder func(txStore Store, sched model.PreventiveMaintenanceSchedule) (*model.MaintenanceOrder, *model.OrderStatusHistory, error)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	// WithTx returns a store bound to the given transaction. Calls on the
	// returned store join that transaction instead of opening their own.
	WithTx(tx *gorm.DB) Store

	GetHotel(ctx context.Context, id int64) (model.Hotel, error)
	GetDepartment(ctx context.Context, id int64) (model.Department, error)

	GetOrder(ctx context.Context, id int64) (model.MaintenanceOrder, error)
	GetOrderByNumber(ctx context.Context, number string) (model.MaintenanceOrder, error)
	CreateOrder(ctx context.Context, order *model.MaintenanceOrder, initial *model.OrderStatusHistory) error
	UpdateOrder(ctx context.Context, order *model.MaintenanceOrder, history []model.OrderStatusHistory, assignment *model.OrderAssignmentHistory) error
	ListOrders(ctx context.Context, filter OrderFilter) ([]model.MaintenanceOrder, error)

	ListStatusHistory(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error)
	ListAssignmentHistory(ctx context.Context, orderID int64) ([]model.OrderAssignmentHistory, error)
	AppendComment(ctx context.Context, comment *model.OrderComment) error
	AppendAttachment(ctx context.Context, attachment *model.OrderAttachment) error

	NextOrderNumber(ctx context.Context, hotelID int64, year int) (int64, error)
	GetSLAConfiguration(ctx context.Context, hotelID int64, priority model.OrderPriority) (model.SLAConfiguration, error)

	GetSchedule(ctx context.Context, id int64) (model.PreventiveMaintenanceSchedule, error)
	ListSchedules(ctx context.Context, hotelID int64) ([]model.PreventiveMaintenanceSchedule, error)
	DueScheduleIDs(ctx context.Context, now time.Time) ([]int64, error)
	TickSchedule(ctx context.Context, scheduleID int64, now time.Time, build ScheduleOrderBuilder) (*model.MaintenanceOrder, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for callers that need ad-hoc queries
// (subscription handlers, tests).
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) WithTx(tx *gorm.DB) Store {
	return &gormStore{db: tx}
}

func (s *gormStore) GetHotel(ctx context.Context, id int64) (model.Hotel, error) {
	var hotel model.Hotel
	if err := s.db.WithContext(ctx).First(&hotel, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Hotel{}, ErrHotelNotFound
		}
		return model.Hotel{}, fmt.Errorf("failed to load hotel %d: %w", id, err)
	}
	return hotel, nil
}

func (s *gormStore) GetDepartment(ctx context.Context, id int64) (model.Department, error) {
	var dept model.Department
	if err := s.db.WithContext(ctx).First(&dept, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Department{}, ErrDepartmentNotFound
		}
		return model.Department{}, fmt.Errorf("failed to load department %d: %w", id, err)
	}
	return dept, nil
}

func (s *gormStore) GetOrder(ctx context.Context, id int64) (model.MaintenanceOrder, error) {
	var order model.MaintenanceOrder
	if err := s.db.WithContext(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.MaintenanceOrder{}, ErrOrderNotFound
		}
		return model.MaintenanceOrder{}, fmt.Errorf("failed to load order %d: %w", id, err)
	}
	return order, nil
}

func (s *gormStore) GetOrderByNumber(ctx context.Context, number string) (model.MaintenanceOrder, error) {
	var order model.MaintenanceOrder
	if err := s.db.WithContext(ctx).First(&order, "order_number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.MaintenanceOrder{}, ErrOrderNotFound
		}
		return model.MaintenanceOrder{}, fmt.Errorf("failed to load order %q: %w", number, err)
	}
	return order, nil
}

// CreateOrder persists a new order together with its initial status-history
// row as one atomic unit.
func (s *gormStore) CreateOrder(ctx context.Context, order *model.MaintenanceOrder, initial *model.OrderStatusHistory) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createOrderTx(tx, order, initial)
	})
}

func createOrderTx(tx *gorm.DB, order *model.MaintenanceOrder, initial *model.OrderStatusHistory) error {
	order.Version = 1
	if err := tx.Omit("Hotel", "StatusHistory", "Assignments", "Comments", "Attachments", "Schedule").Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order %s: %w", order.OrderNumber, err)
	}
	if initial != nil {
		initial.OrderID = order.ID
		if err := tx.Create(initial).Error; err != nil {
			return fmt.Errorf("failed to append status history for order %d: %w", order.ID, err)
		}
	}
	return nil
}

// UpdateOrder saves a mutated order snapshot with an optimistic version check
// and appends the given history rows in the same transaction. When assignment
// is non-nil the prior open assignment row is closed first. A stale snapshot
// yields ErrConcurrencyConflict and nothing is written.
func (s *gormStore) UpdateOrder(ctx context.Context, order *model.MaintenanceOrder, history []model.OrderStatusHistory, assignment *model.OrderAssignmentHistory) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		oldVersion := order.Version
		order.Version = oldVersion + 1

		res := tx.Model(&model.MaintenanceOrder{}).
			Where("id = ? AND version = ?", order.ID, oldVersion).
			Select("*").
			Omit("id", "order_number", "created_at", "created_by_user_id", "hotel_id").
			Updates(order)
		if res.Error != nil {
			order.Version = oldVersion
			return fmt.Errorf("failed to update order %d: %w", order.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			order.Version = oldVersion
			return ErrConcurrencyConflict
		}

		for i := range history {
			history[i].OrderID = order.ID
			if err := tx.Create(&history[i]).Error; err != nil {
				return fmt.Errorf("failed to append status history for order %d: %w", order.ID, err)
			}
		}

		if assignment != nil {
			assignment.OrderID = order.ID
			if err := tx.Model(&model.OrderAssignmentHistory{}).
				Where("order_id = ? AND unassigned_at IS NULL", order.ID).
				Update("unassigned_at", assignment.AssignedAt).Error; err != nil {
				return fmt.Errorf("failed to close open assignment for order %d: %w", order.ID, err)
			}
			if err := tx.Create(assignment).Error; err != nil {
				return fmt.Errorf("failed to append assignment history for order %d: %w", order.ID, err)
			}
		}
		return nil
	})
}

func (s *gormStore) ListOrders(ctx context.Context, filter OrderFilter) ([]model.MaintenanceOrder, error) {
	q := s.db.WithContext(ctx).Model(&model.MaintenanceOrder{})
	if filter.HotelID != 0 {
		q = q.Where("hotel_id = ?", filter.HotelID)
	}
	if filter.AssignedDepartmentID != 0 {
		q = q.Where("assigned_department_id = ?", filter.AssignedDepartmentID)
	}
	if filter.AssignedToUserID != 0 {
		q = q.Where("assigned_to_user_id = ?", filter.AssignedToUserID)
	}
	if filter.ScheduleID != 0 {
		q = q.Where("schedule_id = ?", filter.ScheduleID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var orders []model.MaintenanceOrder
	if err := q.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *gormStore) ListStatusHistory(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error) {
	var rows []model.OrderStatusHistory
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("changed_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list status history for order %d: %w", orderID, err)
	}
	return rows, nil
}

func (s *gormStore) ListAssignmentHistory(ctx context.Context, orderID int64) ([]model.OrderAssignmentHistory, error) {
	var rows []model.OrderAssignmentHistory
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("assigned_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignment history for order %d: %w", orderID, err)
	}
	return rows, nil
}

func (s *gormStore) AppendComment(ctx context.Context, comment *model.OrderComment) error {
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return fmt.Errorf("failed to append comment for order %d: %w", comment.OrderID, err)
	}
	return nil
}

func (s *gormStore) AppendAttachment(ctx context.Context, attachment *model.OrderAttachment) error {
	if err := s.db.WithContext(ctx).Create(attachment).Error; err != nil {
		return fmt.Errorf("failed to append attachment for order %d: %w", attachment.OrderID, err)
	}
	return nil
}

// NextOrderNumber atomically increments and returns the per-(hotel, year)
// sequence. The guarded UPDATE serializes concurrent callers on the sequence
// row; the first caller for a key races on the primary key instead and falls
// back to incrementing the row the winner created.
func (s *gormStore) NextOrderNumber(ctx context.Context, hotelID int64, year int) (int64, error) {
	var value int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.OrderNumberSequence{}).
			Where("hotel_id = ? AND year = ?", hotelID, year).
			Update("last_value", gorm.Expr("last_value + 1"))
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			seq := model.OrderNumberSequence{HotelID: hotelID, Year: year, LastValue: 1}
			if err := tx.Create(&seq).Error; err == nil {
				value = 1
				return nil
			}
			// Lost the creation race; the row exists now, increment it.
			res = tx.Model(&model.OrderNumberSequence{}).
				Where("hotel_id = ? AND year = ?", hotelID, year).
				Update("last_value", gorm.Expr("last_value + 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}

		var seq model.OrderNumberSequence
		if err := tx.Where("hotel_id = ? AND year = ?", hotelID, year).First(&seq).Error; err != nil {
			return err
		}
		value = seq.LastValue
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	return value, nil
}

func (s *gormStore) GetSLAConfiguration(ctx context.Context, hotelID int64, priority model.OrderPriority) (model.SLAConfiguration, error) {
	var cfg model.SLAConfiguration
	if err := s.db.WithContext(ctx).
		Where("hotel_id = ? AND priority = ?", hotelID, priority).
		First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.SLAConfiguration{}, ErrSLAConfigNotFound
		}
		return model.SLAConfiguration{}, fmt.Errorf("failed to load sla configuration: %w", err)
	}
	return cfg, nil
}

func (s *gormStore) GetSchedule(ctx context.Context, id int64) (model.PreventiveMaintenanceSchedule, error) {
	var sched model.PreventiveMaintenanceSchedule
	if err := s.db.WithContext(ctx).First(&sched, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.PreventiveMaintenanceSchedule{}, ErrScheduleNotFound
		}
		return model.PreventiveMaintenanceSchedule{}, fmt.Errorf("failed to load schedule %d: %w", id, err)
	}
	return sched, nil
}

func (s *gormStore) ListSchedules(ctx context.Context, hotelID int64) ([]model.PreventiveMaintenanceSchedule, error) {
	q := s.db.WithContext(ctx).Model(&model.PreventiveMaintenanceSchedule{})
	if hotelID != 0 {
		q = q.Where("hotel_id = ?", hotelID)
	}
	var scheds []model.PreventiveMaintenanceSchedule
	if err := q.Order("id ASC").Find(&scheds).Error; err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return scheds, nil
}

func (s *gormStore) DueScheduleIDs(ctx context.Context, now time.Time) ([]int64, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).
		Model(&model.PreventiveMaintenanceSchedule{}).
		Where("is_active = ? AND auto_generate_orders = ? AND next_due_date <= ?", true, true, now).
		Where("end_date IS NULL OR end_date >= ?", now).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}
	return ids, nil
}

// TickSchedule processes one due occurrence of a schedule as a single atomic
// unit: re-check dueness, create the spawned order plus its initial history,
// then advance NextDueDate by one interval. The advancement is guarded on the
// observed NextDueDate, so two concurrent ticks cannot both commit an order
// for the same occurrence. Returns (nil, nil) when the schedule is not due.
func (s *gormStore) TickSchedule(ctx context.Context, scheduleID int64, now time.Time, build ScheduleOrderBuilder) (*model.MaintenanceOrder, error) {
	var created *model.MaintenanceOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sched model.PreventiveMaintenanceSchedule
		if err := tx.First(&sched, scheduleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrScheduleNotFound
			}
			return fmt.Errorf("failed to load schedule %d: %w", scheduleID, err)
		}

		if !sched.IsActive || !sched.AutoGenerateOrders || sched.NextDueDate.After(now) {
			return nil
		}
		if sched.EndDate != nil && now.After(*sched.EndDate) {
			return nil
		}

		order, initial, err := build(s.WithTx(tx), sched)
		if err != nil {
			return err
		}
		if err := createOrderTx(tx, order, initial); err != nil {
			return err
		}

		next := sched.Frequency.NextAfter(sched.NextDueDate, sched.FrequencyValue)
		res := tx.Model(&model.PreventiveMaintenanceSchedule{}).
			Where("id = ? AND next_due_date = ?", sched.ID, sched.NextDueDate).
			Updates(map[string]any{"next_due_date": next, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("failed to advance schedule %d: %w", sched.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			// A concurrent tick already claimed this occurrence; rolling back
			// also discards the order created above.
			return ErrConcurrencyConflict
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
