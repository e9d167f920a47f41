package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"hotel-maintenance-backend/internal/model"
)

// allowedTransitions lists the permitted next statuses for each current
// status. Closed and Cancelled are terminal; Verified is mandatory between
// Completed and Closed.
var allowedTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.StatusNew:        {model.StatusAssigned, model.StatusCancelled},
	model.StatusAssigned:   {model.StatusInProgress, model.StatusCancelled},
	model.StatusInProgress: {model.StatusCompleted, model.StatusCancelled},
	model.StatusCompleted:  {model.StatusVerified, model.StatusInProgress, model.StatusCancelled},
	model.StatusVerified:   {model.StatusClosed},
	model.StatusClosed:     {},
	model.StatusCancelled:  {},
}

// CanTransition reports whether the transition table allows from -> to.
func CanTransition(from, to model.OrderStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates and applies a status change on the order, returning
// the history row the caller must persist atomically with the order.
//
// Entering Completed requires non-empty ResolutionNotes (set on the order
// beforehand) and stamps ActualCompletionDate; leaving the completed family
// (reopen, cancel) clears it so the completion-date invariant holds. Entering
// Cancelled requires a non-empty CancellationReason. The order is not mutated
// when an error is returned.
func Transition(order *model.MaintenanceOrder, to model.OrderStatus, actorUserID int64, notes string, now time.Time) (model.OrderStatusHistory, error) {
	from := order.Status
	if !CanTransition(from, to) {
		return model.OrderStatusHistory{}, &InvalidTransitionError{From: from, To: to}
	}

	switch to {
	case model.StatusCompleted:
		if strings.TrimSpace(order.ResolutionNotes) == "" {
			return model.OrderStatusHistory{}, fmt.Errorf("%w: resolution notes are required to complete an order", ErrValidationFailed)
		}
		completedAt := now
		order.ActualCompletionDate = &completedAt
	case model.StatusInProgress:
		// Reopening a completed order invalidates its completion timestamp.
		order.ActualCompletionDate = nil
	case model.StatusCancelled:
		if strings.TrimSpace(order.CancellationReason) == "" {
			return model.OrderStatusHistory{}, fmt.Errorf("%w: cancellation reason is required", ErrValidationFailed)
		}
		order.IsCancelled = true
		order.ActualCompletionDate = nil
	}

	order.Status = to
	order.LastModifiedAt = now
	order.LastModifiedByUser = actorUserID

	return model.OrderStatusHistory{
		OrderID:         order.ID,
		OldStatus:       from,
		NewStatus:       to,
		ChangedByUserID: actorUserID,
		ChangedAt:       now,
		Notes:           notes,
	}, nil
}
