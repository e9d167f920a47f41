package lifecycle

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
	"hotel-maintenance-backend/internal/model"
	"hotel-maintenance-backend/internal/store"
)

func newTestStore(t *testing.T) store.Store {
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
	return store.NewGormStore(gormDB)
}

func testSLAConfig() config.SLAConfig {
	return config.SLAConfig{CacheTTLSeconds: 1, Defaults: config.DefaultSLABudgets()}
}

func TestSLAResolver_HotelSpecificOverridesDefault(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.DB().Create(&model.SLAConfiguration{
		HotelID:           1,
		Priority:          model.PriorityCritical,
		ResponseMinutes:   15,
		ResolutionMinutes: 120,
	}).Error)

	r := NewSLAResolver(s, testSLAConfig())

	budget := r.Resolve(context.Background(), 1, model.PriorityCritical)
	assert.Equal(t, Budget{ResponseMinutes: 15, ResolutionMinutes: 120}, budget)

	// No row for High: falls back to the default table. Never fails.
	budget = r.Resolve(context.Background(), 1, model.PriorityHigh)
	assert.Equal(t, Budget{ResponseMinutes: 60, ResolutionMinutes: 480}, budget)

	// Another hotel without configuration gets defaults too.
	budget = r.Resolve(context.Background(), 2, model.PriorityCritical)
	assert.Equal(t, Budget{ResponseMinutes: 30, ResolutionMinutes: 240}, budget)
}

func TestSLAResolver_CachesLookups(t *testing.T) {
	s := newTestStore(t)
	r := NewSLAResolver(s, testSLAConfig())

	first := r.Resolve(context.Background(), 5, model.PriorityMedium)

	// A configuration row created after the first lookup is not visible until
	// the cache entry expires.
	require.NoError(t, s.DB().Create(&model.SLAConfiguration{
		HotelID:           5,
		Priority:          model.PriorityMedium,
		ResponseMinutes:   5,
		ResolutionMinutes: 10,
	}).Error)

	assert.Equal(t, first, r.Resolve(context.Background(), 5, model.PriorityMedium))
}

func TestEvaluate_DueDates(t *testing.T) {
	createdAt := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	order := model.MaintenanceOrder{Status: model.StatusNew, CreatedAt: createdAt}
	budget := Budget{ResponseMinutes: 30, ResolutionMinutes: 240}

	facts := Evaluate(order, budget, createdAt.Add(10*time.Minute))
	assert.Equal(t, createdAt.Add(30*time.Minute), facts.ResponseDueAt)
	assert.Equal(t, createdAt.Add(240*time.Minute), facts.ResolutionDueAt)
	assert.False(t, facts.IsOverdue)
	assert.False(t, facts.IsSLABreached)
}

// Critical order with a 30m/240m budget, still in progress 250 minutes after
// creation: both overdue and breached.
func TestEvaluate_OverdueAndBreachedWhileOpen(t *testing.T) {
	createdAt := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	order := model.MaintenanceOrder{Status: model.StatusInProgress, CreatedAt: createdAt}
	budget := Budget{ResponseMinutes: 30, ResolutionMinutes: 240}

	facts := Evaluate(order, budget, createdAt.Add(250*time.Minute))
	assert.True(t, facts.IsOverdue)
	assert.True(t, facts.IsSLABreached)
}

func TestEvaluate_CompletedLateIsBreachedButNotOverdue(t *testing.T) {
	createdAt := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	completedAt := createdAt.Add(300 * time.Minute)
	order := model.MaintenanceOrder{
		Status:               model.StatusCompleted,
		CreatedAt:            createdAt,
		ActualCompletionDate: &completedAt,
	}
	budget := Budget{ResponseMinutes: 30, ResolutionMinutes: 240}

	facts := Evaluate(order, budget, createdAt.Add(400*time.Minute))
	assert.False(t, facts.IsOverdue, "completed orders are never overdue")
	assert.True(t, facts.IsSLABreached, "late completion is a permanent breach")
}

func TestEvaluate_CompletedOnTimeNeverBreaches(t *testing.T) {
	createdAt := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	completedAt := createdAt.Add(100 * time.Minute)
	order := model.MaintenanceOrder{
		Status:               model.StatusCompleted,
		CreatedAt:            createdAt,
		ActualCompletionDate: &completedAt,
	}
	budget := Budget{ResponseMinutes: 30, ResolutionMinutes: 240}

	// Long after the deadline has passed, the on-time completion still holds.
	facts := Evaluate(order, budget, createdAt.Add(10000*time.Minute))
	assert.False(t, facts.IsOverdue)
	assert.False(t, facts.IsSLABreached)
}

// Breach is monotonic: the stamp keeps it true for orders that no longer
// carry a completion date, such as cancelled ones.
func TestEvaluate_BreachStampSurvivesCancellation(t *testing.T) {
	createdAt := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	breachedAt := createdAt.Add(250 * time.Minute)
	order := model.MaintenanceOrder{
		Status:        model.StatusCancelled,
		CreatedAt:     createdAt,
		IsCancelled:   true,
		SLABreachedAt: &breachedAt,
	}
	budget := Budget{ResponseMinutes: 30, ResolutionMinutes: 240}

	facts := Evaluate(order, budget, createdAt.Add(500*time.Minute))
	assert.False(t, facts.IsOverdue, "cancelled orders are not overdue")
	assert.True(t, facts.IsSLABreached)
}
