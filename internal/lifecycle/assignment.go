package lifecycle

import (
	"fmt"
	"time"

	"hotel-maintenance-backend/internal/model"
)

// AssignmentInput carries one assignment command.
type AssignmentInput struct {
	DepartmentID     int64
	TechnicianUserID *int64
	ActorUserID      int64
	Notes            string

	// SuppressDuplicate skips the history row when the target matches the
	// current assignment. By default a confirming reassignment is still
	// recorded to keep the audit trail complete.
	SuppressDuplicate bool
}

// ApplyAssignment validates an assignment against the order state and
// mutates the order. It returns the assignment-history row to append (nil
// for a suppressed duplicate) and, when the order was still New, the
// status-history row of the promotion to Assigned. Both rows must be
// persisted atomically with the order. The order is unchanged on error.
func ApplyAssignment(order *model.MaintenanceOrder, dept model.Department, in AssignmentInput, now time.Time) (*model.OrderAssignmentHistory, *model.OrderStatusHistory, error) {
	if !order.Status.IsOpen() {
		return nil, nil, &InvalidTransitionError{From: order.Status, To: model.StatusAssigned}
	}
	if !dept.CanReceiveOrders {
		return nil, nil, fmt.Errorf("%w: department %d", ErrInvalidAssignmentTarget, dept.ID)
	}
	if dept.HotelID != order.HotelID {
		return nil, nil, fmt.Errorf("%w: department %d belongs to another hotel", ErrInvalidAssignmentTarget, dept.ID)
	}

	duplicate := order.AssignedDepartmentID != nil &&
		*order.AssignedDepartmentID == dept.ID &&
		equalUserRef(order.AssignedToUserID, in.TechnicianUserID)
	if duplicate && in.SuppressDuplicate {
		return nil, nil, nil
	}

	var promotion *model.OrderStatusHistory
	if order.Status == model.StatusNew {
		row, err := Transition(order, model.StatusAssigned, in.ActorUserID, in.Notes, now)
		if err != nil {
			return nil, nil, err
		}
		promotion = &row
	}

	deptID := dept.ID
	order.AssignedDepartmentID = &deptID
	order.AssignedToUserID = in.TechnicianUserID
	order.LastModifiedAt = now
	order.LastModifiedByUser = in.ActorUserID

	return &model.OrderAssignmentHistory{
		OrderID:              order.ID,
		AssignedDepartmentID: dept.ID,
		AssignedToUserID:     in.TechnicianUserID,
		AssignedByUserID:     in.ActorUserID,
		AssignedAt:           now,
	}, promotion, nil
}

func equalUserRef(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
