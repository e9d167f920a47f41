// Package pm implements the preventive-maintenance recurrence engine. It
// periodically evaluates active schedules and spawns maintenance orders for
// every due occurrence, advancing each schedule by one interval at a time.
package pm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"hotel-maintenance-backend/config"
	"hotel-maintenance-backend/internal/lifecycle"
	"hotel-maintenance-backend/internal/model"
	"hotel-maintenance-backend/internal/store"
)

// Engine evaluates schedules on a timer and emits orders through the store's
// per-schedule transactional tick.
type Engine struct {
	cfg      *config.PMEngineConfig
	store    store.Store
	resolver *lifecycle.SLAResolver
	now      func() time.Time
}

// NewEngine creates the engine. nowFn defaults to time.Now in UTC.
func NewEngine(cfg *config.PMEngineConfig, s store.Store, resolver *lifecycle.SLAResolver, nowFn func() time.Time) *Engine {
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		cfg:      cfg,
		store:    s,
		resolver: resolver,
		now:      nowFn,
	}
}

// Run starts the evaluation loop. It ticks once immediately, then on every
// interval until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	if !e.cfg.Enabled {
		log.Println("PM engine is disabled. Not starting.")
		return
	}
	log.Println("Starting PM engine...")

	e.tickAndLog(ctx)

	timer := time.NewTimer(e.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("PM engine shutting down.")
			return
		case <-timer.C:
			e.tickAndLog(ctx)
			timer.Reset(e.cfg.Interval)
		}
	}
}

// TickNow evaluates every due schedule once at the engine's current clock
// reading. It backs the manual trigger endpoint.
func (e *Engine) TickNow(ctx context.Context) ([]model.MaintenanceOrder, error) {
	return e.TickOnce(ctx, e.now())
}

func (e *Engine) tickAndLog(ctx context.Context) {
	created, err := e.TickOnce(ctx, e.now())
	if err != nil {
		log.Printf("PM tick failed: %v", err)
		return
	}
	if len(created) > 0 {
		log.Printf("PM tick generated %d orders", len(created))
	}
}

// TickOnce evaluates every due schedule once and returns the newly created
// orders. A failing schedule is logged and skipped; it never aborts the
// others, and its NextDueDate stays put so the occurrence is retried on the
// next tick. Listing failures are the only errors returned.
func (e *Engine) TickOnce(ctx context.Context, now time.Time) ([]model.MaintenanceOrder, error) {
	ids, err := e.store.DueScheduleIDs(ctx, now)
	if err != nil {
		return nil, err
	}

	var created []model.MaintenanceOrder
	for _, id := range ids {
		// Resolve the SLA budget outside the schedule's transaction; the
		// resolver may hit the database and must not join the write path.
		sched, err := e.store.GetSchedule(ctx, id)
		if err != nil {
			log.Printf("Error loading schedule %d: %v", id, err)
			continue
		}
		budget := e.resolver.Resolve(ctx, sched.HotelID, effectivePriority(sched))

		order, err := e.store.TickSchedule(ctx, id, now, func(txStore store.Store, sched model.PreventiveMaintenanceSchedule) (*model.MaintenanceOrder, *model.OrderStatusHistory, error) {
			return e.buildOrder(ctx, txStore, sched, budget, now)
		})
		if err != nil {
			if errors.Is(err, store.ErrConcurrencyConflict) {
				// A concurrent tick claimed this occurrence.
				continue
			}
			log.Printf("Error generating order for schedule %d: %v", id, err)
			continue
		}
		if order != nil {
			created = append(created, *order)
		}
	}
	return created, nil
}

// buildOrder templates the order a due schedule should spawn. It runs inside
// the schedule's transaction via the transaction-scoped store, so the number
// sequence increment rolls back together with an aborted tick.
func (e *Engine) buildOrder(ctx context.Context, txStore store.Store, sched model.PreventiveMaintenanceSchedule, budget lifecycle.Budget, now time.Time) (*model.MaintenanceOrder, *model.OrderStatusHistory, error) {
	hotel, err := txStore.GetHotel(ctx, sched.HotelID)
	if err != nil {
		return nil, nil, err
	}
	number, err := lifecycle.NewOrderNumberGenerator(txStore).Generate(ctx, hotel, now.UTC().Year())
	if err != nil {
		return nil, nil, err
	}

	priority := effectivePriority(sched)

	expected := sched.NextDueDate.Add(time.Duration(sched.EstimatedDurationMinutes) * time.Minute)
	if sched.EstimatedDurationMinutes <= 0 {
		expected = sched.NextDueDate.Add(time.Duration(budget.ResolutionMinutes) * time.Minute)
	}

	scheduleID := sched.ID
	order := &model.MaintenanceOrder{
		OrderNumber:            number,
		HotelID:                sched.HotelID,
		RequestingDepartmentID: sched.DepartmentID,
		LocationID:             sched.LocationID,
		ScheduleID:             &scheduleID,
		Type:                   model.TypePreventive,
		Priority:               priority,
		Title:                  sched.Title,
		Description:            templateDescription(sched),
		Status:                 model.StatusNew,
		CreatedByUserID:        sched.CreatedByUserID,
		AssignedToUserID:       sched.AssignedToUserID,
		CreatedAt:              now,
		ExpectedCompletionDate: expected,
		LastModifiedAt:         now,
		LastModifiedByUser:     sched.CreatedByUserID,
	}
	initial := &model.OrderStatusHistory{
		OldStatus:       model.StatusNew,
		NewStatus:       model.StatusNew,
		ChangedByUserID: sched.CreatedByUserID,
		ChangedAt:       now,
		Notes:           fmt.Sprintf("Generated by schedule %d for occurrence %s", sched.ID, sched.NextDueDate.Format(time.RFC3339)),
	}
	return order, initial, nil
}

func effectivePriority(sched model.PreventiveMaintenanceSchedule) model.OrderPriority {
	if model.IsValidPriority(sched.Priority) {
		return sched.Priority
	}
	return model.PriorityMedium
}

func templateDescription(sched model.PreventiveMaintenanceSchedule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Preventive maintenance: %s", sched.Title)
	if sched.Description != "" {
		fmt.Fprintf(&b, "\n\n%s", sched.Description)
	}
	fmt.Fprintf(&b, "\n\nScheduled occurrence: %s", sched.NextDueDate.Format("2006-01-02"))
	return b.String()
}
