package pm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"hotel-maintenance-backend/config"
	"hotel-maintenance-backend/internal/db"
	"hotel-maintenance-backend/internal/lifecycle"
	"hotel-maintenance-backend/internal/model"
	"hotel-maintenance-backend/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, store.Store) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	// A single connection serializes transactions against the in-memory db.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	s := store.NewGormStore(gormDB)

	require.NoError(t, s.DB().Create(&model.Hotel{ID: 1, Code: "GRD", Name: "Grand"}).Error)
	require.NoError(t, s.DB().Create(&model.Department{ID: 1, HotelID: 1, Name: "Engineering", CanReceiveOrders: true}).Error)
	require.NoError(t, s.DB().Create(&model.Location{ID: 1, HotelID: 1, Name: "Boiler Room"}).Error)

	resolver := lifecycle.NewSLAResolver(s, config.SLAConfig{CacheTTLSeconds: 1, Defaults: config.DefaultSLABudgets()})
	cfg := &config.PMEngineConfig{Enabled: true, IntervalSeconds: 60, Interval: time.Minute}
	return NewEngine(cfg, s, resolver, nil), s
}

func monthlySchedule() *model.PreventiveMaintenanceSchedule {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &model.PreventiveMaintenanceSchedule{
		ID:                       1,
		HotelID:                  1,
		DepartmentID:             1,
		LocationID:               1,
		Title:                    "Boiler inspection",
		Description:              "Check pressure relief valve",
		Frequency:                model.FrequencyMonthly,
		FrequencyValue:           1,
		Priority:                 model.PriorityHigh,
		EstimatedDurationMinutes: 90,
		StartDate:                start,
		NextDueDate:              start,
		CreatedByUserID:          7,
		IsActive:                 true,
		AutoGenerateOrders:       true,
	}
}

func TestEngine_TickGeneratesOrderAndAdvancesSchedule(t *testing.T) {
	engine, s := newTestEngine(t)
	require.NoError(t, s.DB().Create(monthlySchedule()).Error)

	now := time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC)
	created, err := engine.TickOnce(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, created, 1)

	order := created[0]
	assert.Equal(t, "GRD-2024-1", order.OrderNumber)
	assert.Equal(t, model.TypePreventive, order.Type)
	assert.Equal(t, model.PriorityHigh, order.Priority)
	assert.Equal(t, model.StatusNew, order.Status)
	require.NotNil(t, order.ScheduleID)
	assert.Equal(t, int64(1), *order.ScheduleID)

	// Expected completion derives from the occurrence, not the tick time.
	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, due.Add(90*time.Minute), order.ExpectedCompletionDate)

	sched, err := s.GetSchedule(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), sched.NextDueDate.UTC())

	history, err := s.ListStatusHistory(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.StatusNew, history[0].NewStatus)
}

func TestEngine_TickIsIdempotentForAnOccurrence(t *testing.T) {
	engine, s := newTestEngine(t)
	require.NoError(t, s.DB().Create(monthlySchedule()).Error)

	now := time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC)
	created, err := engine.TickOnce(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, created, 1)

	// The same tick again finds the schedule advanced past now.
	created, err = engine.TickOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, created)

	orders, err := s.ListOrders(context.Background(), store.OrderFilter{HotelID: 1})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

// A long gap is caught up one occurrence per tick.
func TestEngine_AdvancesOneIntervalPerTick(t *testing.T) {
	engine, s := newTestEngine(t)
	require.NoError(t, s.DB().Create(monthlySchedule()).Error)

	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	created, err := engine.TickOnce(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, created, 1)

	sched, err := s.GetSchedule(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), sched.NextDueDate.UTC())

	// Still due, so the next tick emits the February occurrence.
	created, err = engine.TickOnce(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, created, 1)

	orders, err := s.ListOrders(context.Background(), store.OrderFilter{ScheduleID: 1})
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestEngine_SkipsInactiveAndEndedSchedules(t *testing.T) {
	engine, s := newTestEngine(t)

	inactive := monthlySchedule()
	inactive.ID = 1
	inactive.IsActive = false
	require.NoError(t, s.DB().Create(inactive).Error)

	manual := monthlySchedule()
	manual.ID = 2
	manual.AutoGenerateOrders = false
	require.NoError(t, s.DB().Create(manual).Error)

	ended := monthlySchedule()
	ended.ID = 3
	endDate := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	ended.EndDate = &endDate
	require.NoError(t, s.DB().Create(ended).Error)

	notDue := monthlySchedule()
	notDue.ID = 4
	notDue.NextDueDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.DB().Create(notDue).Error)

	created, err := engine.TickOnce(context.Background(), time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestEngine_MissingPriorityDefaultsToMedium(t *testing.T) {
	engine, s := newTestEngine(t)

	sched := monthlySchedule()
	sched.Priority = ""
	sched.EstimatedDurationMinutes = 0
	require.NoError(t, s.DB().Create(sched).Error)

	created, err := engine.TickOnce(context.Background(), time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, model.PriorityMedium, created[0].Priority)

	// Without an estimated duration the resolution budget fills in (Medium: 1440m).
	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, due.Add(1440*time.Minute), created[0].ExpectedCompletionDate)
}

// A failing generation leaves the schedule untouched so the occurrence is
// retried on the next tick.
func TestEngine_FailedGenerationIsRetried(t *testing.T) {
	engine, s := newTestEngine(t)

	sched := monthlySchedule()
	sched.HotelID = 99 // no such hotel, builder fails
	require.NoError(t, s.DB().Create(sched).Error)

	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	created, err := engine.TickOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, created)

	reloaded, err := s.GetSchedule(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), reloaded.NextDueDate.UTC())

	orders, err := s.ListOrders(context.Background(), store.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders, "rolled-back generation must not leave an order behind")

	// Once the hotel exists the same occurrence generates.
	require.NoError(t, s.DB().Create(&model.Hotel{ID: 99, Code: "ANX", Name: "Annex"}).Error)
	created, err = engine.TickOnce(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "ANX-2024-1", created[0].OrderNumber)
}

// TickNow must read the engine's injected clock, not the wall clock.
func TestEngine_TickNowUsesInjectedClock(t *testing.T) {
	_, s := newTestEngine(t)
	require.NoError(t, s.DB().Create(monthlySchedule()).Error)

	fixed := time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC)
	resolver := lifecycle.NewSLAResolver(s, config.SLAConfig{CacheTTLSeconds: 1, Defaults: config.DefaultSLABudgets()})
	cfg := &config.PMEngineConfig{Enabled: true, Interval: time.Minute}
	engine := NewEngine(cfg, s, resolver, func() time.Time { return fixed })

	created, err := engine.TickNow(context.Background())
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "GRD-2024-1", created[0].OrderNumber)
	assert.Equal(t, fixed, created[0].CreatedAt)

	// The schedule was ticked at the fixed instant, so the next occurrence
	// (2024-02-01) is not yet due and a second tick emits nothing.
	created, err = engine.TickNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestPMFrequency_NextAfter(t *testing.T) {
	due := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	testCases := []struct {
		freq  model.PMFrequency
		value int
		want  time.Time
	}{
		{model.FrequencyDaily, 1, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{model.FrequencyWeekly, 2, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)},
		{model.FrequencyMonthly, 1, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)}, // Jan 31 + 1 month normalizes
		{model.FrequencyQuarterly, 1, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{model.FrequencyYearly, 1, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)},
		{model.FrequencyCustom, 10, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)},
		{model.FrequencyDaily, 0, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}, // non-positive value treated as 1
	}
	for _, tc := range testCases {
		assert.Equalf(t, tc.want, tc.freq.NextAfter(due, tc.value), "%s/%d", tc.freq, tc.value)
	}
}
