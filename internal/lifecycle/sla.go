package lifecycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/patrickmn/go-cache"

	"hotel-maintenance-backend/config"
	"hotel-maintenance-backend/internal/model"
	"hotel-maintenance-backend/internal/store"
)

// Budget is a response/resolution time allowance, in minutes.
type Budget struct {
	ResponseMinutes   int
	ResolutionMinutes int
}

// Facts are the derived SLA values for an order snapshot at a point in time.
// They are recomputed on every read, never mutated independently.
type Facts struct {
	ResponseDueAt   time.Time `json:"response_due_at"`
	ResolutionDueAt time.Time `json:"resolution_due_at"`
	IsOverdue       bool      `json:"is_overdue"`
	IsSLABreached   bool      `json:"is_sla_breached"`
}

// SLAResolver returns the applicable budget for a (hotel, priority) pair,
// falling back to the configured system-wide defaults when no hotel-specific
// row exists. Lookups are cached briefly since budgets change rarely but are
// consulted on every read.
type SLAResolver struct {
	store    store.Store
	cache    *cache.Cache
	cacheTTL time.Duration
	defaults map[model.OrderPriority]Budget
}

// NewSLAResolver creates a resolver over the given store and default table.
func NewSLAResolver(s store.Store, cfg config.SLAConfig) *SLAResolver {
	defaults := make(map[model.OrderPriority]Budget, len(cfg.Defaults))
	for priority, budget := range cfg.Defaults {
		defaults[model.OrderPriority(priority)] = Budget{
			ResponseMinutes:   budget.ResponseMinutes,
			ResolutionMinutes: budget.ResolutionMinutes,
		}
	}
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	return &SLAResolver{
		store:    s,
		cache:    cache.New(ttl, 2*ttl),
		cacheTTL: ttl,
		defaults: defaults,
	}
}

// Resolve never fails: a missing hotel-specific configuration or a store
// error both fall back to the default table.
func (r *SLAResolver) Resolve(ctx context.Context, hotelID int64, priority model.OrderPriority) Budget {
	key := fmt.Sprintf("%d/%s", hotelID, priority)
	if cached, found := r.cache.Get(key); found {
		return cached.(Budget)
	}

	budget, ok := r.lookup(ctx, hotelID, priority)
	if !ok {
		budget = r.fallback(priority)
	}
	r.cache.Set(key, budget, r.cacheTTL)
	return budget
}

func (r *SLAResolver) lookup(ctx context.Context, hotelID int64, priority model.OrderPriority) (Budget, bool) {
	cfg, err := r.store.GetSLAConfiguration(ctx, hotelID, priority)
	if err != nil {
		if err != store.ErrSLAConfigNotFound {
			log.Printf("Warning: sla configuration lookup failed for hotel %d priority %s: %v", hotelID, priority, err)
		}
		return Budget{}, false
	}
	return Budget{ResponseMinutes: cfg.ResponseMinutes, ResolutionMinutes: cfg.ResolutionMinutes}, true
}

func (r *SLAResolver) fallback(priority model.OrderPriority) Budget {
	if budget, ok := r.defaults[priority]; ok {
		return budget
	}
	// Unknown priorities get the most conservative budget on the books.
	return r.defaults[model.PriorityCritical]
}

// Evaluate computes the SLA facts for an order snapshot. It is pure: no
// locking, no side effects, deterministic for a given (order, budget, now).
//
// A breach is a permanent historical fact: an order that was ever open past
// its resolution deadline, or completed after it, stays breached even once
// closed. The SLABreachedAt stamp carries the fact across cancellation, where
// neither openness nor a completion date remains to derive it from.
func Evaluate(order model.MaintenanceOrder, budget Budget, now time.Time) Facts {
	responseDueAt := order.CreatedAt.Add(time.Duration(budget.ResponseMinutes) * time.Minute)
	resolutionDueAt := order.CreatedAt.Add(time.Duration(budget.ResolutionMinutes) * time.Minute)

	open := order.Status.IsOpen()
	overdue := open && now.After(resolutionDueAt)

	breached := order.SLABreachedAt != nil || overdue
	if !breached && order.ActualCompletionDate != nil {
		breached = order.ActualCompletionDate.After(resolutionDueAt)
	}

	return Facts{
		ResponseDueAt:   responseDueAt,
		ResolutionDueAt: resolutionDueAt,
		IsOverdue:       overdue,
		IsSLABreached:   breached,
	}
}
