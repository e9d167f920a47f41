package lifecycle

import (
	"errors"
	"fmt"

	"hotel-maintenance-backend/internal/model"
)

var (
	// ErrInvalidTransition is the target for errors.Is checks against
	// InvalidTransitionError values.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidationFailed marks a command rejected because a required field
	// is missing or malformed. Wrapped errors name the field.
	ErrValidationFailed = errors.New("validation failed")

	// ErrInvalidAssignmentTarget marks an assignment to a department that
	// cannot receive orders or belongs to another hotel.
	ErrInvalidAssignmentTarget = errors.New("department cannot receive orders")

	// ErrNotAuthorized marks a command denied by the authorization collaborator.
	ErrNotAuthorized = errors.New("not authorized")
)

// InvalidTransitionError reports a status transition not present in the
// transition table.
type InvalidTransitionError struct {
	From model.OrderStatus
	To   model.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// Is makes errors.Is(err, ErrInvalidTransition) match.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
