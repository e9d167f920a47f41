package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hotel-maintenance-backend/internal/model"
	"hotel-maintenance-backend/internal/notification"
	"hotel-maintenance-backend/internal/store"
)

// Action names an external command for authorization purposes.
type Action string

const (
	ActionCreate       Action = "create"
	ActionAssign       Action = "assign"
	ActionUpdateStatus Action = "update_status"
	ActionVerify       Action = "verify"
	ActionCancel       Action = "cancel"
	ActionComment      Action = "comment"
	ActionAttach       Action = "attach"
)

// Authorizer decides whether a user may perform an action on a hotel's
// orders. Role and permission resolution live outside the core.
type Authorizer interface {
	Can(ctx context.Context, userID int64, action Action, hotelID int64) bool
}

// AllowAll authorizes everything; the default until a real policy is wired.
type AllowAll struct{}

func (AllowAll) Can(context.Context, int64, Action, int64) bool { return true }

// Dispatcher receives fire-and-forget order events. The notification worker
// pool implements it; the service never waits on delivery.
type Dispatcher interface {
	Dispatch(evt notification.Event)
}

// OrderView is an order snapshot plus its freshly computed SLA facts.
type OrderView struct {
	Order model.MaintenanceOrder `json:"order"`
	SLA   Facts                  `json:"sla"`
}

// CreateOrderInput carries the create command.
type CreateOrderInput struct {
	HotelID                int64
	RequestingDepartmentID int64
	LocationID             int64
	Type                   model.OrderType
	Priority               model.OrderPriority
	Title                  string
	Description            string
	CreatedByUserID        int64
	ScheduleID             *int64
	ExpectedCompletionDate *time.Time // Defaults to the resolution deadline.
}

// ListFilter narrows List results. Overdue/breached filtering is applied
// after load, since both derive from SLA arithmetic.
type ListFilter struct {
	store.OrderFilter
	OverdueOnly  bool
	BreachedOnly bool
}

// Service orchestrates the lifecycle components for each external command.
// It performs no business rule of its own beyond sequencing: load, authorize,
// delegate, persist, recompute SLA facts, notify.
type Service struct {
	store      store.Store
	resolver   *SLAResolver
	generator  *OrderNumberGenerator
	authorizer Authorizer
	dispatcher Dispatcher
	now        func() time.Time
}

// NewService wires the lifecycle service. dispatcher may be nil when no
// notification delivery is configured; nowFn defaults to time.Now in UTC.
func NewService(s store.Store, resolver *SLAResolver, authorizer Authorizer, dispatcher Dispatcher, nowFn func() time.Time) *Service {
	if authorizer == nil {
		authorizer = AllowAll{}
	}
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:      s,
		resolver:   resolver,
		generator:  NewOrderNumberGenerator(s),
		authorizer: authorizer,
		dispatcher: dispatcher,
		now:        nowFn,
	}
}

// Create validates the input, generates the order number, computes the
// initial deadlines and persists the order with its creation history row.
func (svc *Service) Create(ctx context.Context, in CreateOrderInput) (OrderView, error) {
	if !svc.authorizer.Can(ctx, in.CreatedByUserID, ActionCreate, in.HotelID) {
		return OrderView{}, ErrNotAuthorized
	}
	if strings.TrimSpace(in.Title) == "" {
		return OrderView{}, fmt.Errorf("%w: title is required", ErrValidationFailed)
	}
	if !model.IsValidOrderType(in.Type) {
		return OrderView{}, fmt.Errorf("%w: unknown order type %q", ErrValidationFailed, in.Type)
	}
	if !model.IsValidPriority(in.Priority) {
		return OrderView{}, fmt.Errorf("%w: unknown priority %q", ErrValidationFailed, in.Priority)
	}

	hotel, err := svc.store.GetHotel(ctx, in.HotelID)
	if err != nil {
		return OrderView{}, err
	}

	now := svc.now()
	number, err := svc.generator.Generate(ctx, hotel, now.UTC().Year())
	if err != nil {
		return OrderView{}, err
	}

	budget := svc.resolver.Resolve(ctx, in.HotelID, in.Priority)
	expected := now.Add(time.Duration(budget.ResolutionMinutes) * time.Minute)
	if in.ExpectedCompletionDate != nil {
		expected = *in.ExpectedCompletionDate
	}

	order := model.MaintenanceOrder{
		OrderNumber:            number,
		HotelID:                in.HotelID,
		RequestingDepartmentID: in.RequestingDepartmentID,
		LocationID:             in.LocationID,
		ScheduleID:             in.ScheduleID,
		Type:                   in.Type,
		Priority:               in.Priority,
		Title:                  in.Title,
		Description:            in.Description,
		Status:                 model.StatusNew,
		CreatedByUserID:        in.CreatedByUserID,
		CreatedAt:              now,
		ExpectedCompletionDate: expected,
		LastModifiedAt:         now,
		LastModifiedByUser:     in.CreatedByUserID,
	}
	initial := model.OrderStatusHistory{
		OldStatus:       model.StatusNew,
		NewStatus:       model.StatusNew,
		ChangedByUserID: in.CreatedByUserID,
		ChangedAt:       now,
		Notes:           "Order created",
	}

	if err := svc.store.CreateOrder(ctx, &order, &initial); err != nil {
		return OrderView{}, err
	}
	return OrderView{Order: order, SLA: Evaluate(order, budget, now)}, nil
}

// Assign binds the order to a department and optionally a technician,
// promoting New orders to Assigned.
func (svc *Service) Assign(ctx context.Context, orderID int64, in AssignmentInput) (OrderView, error) {
	order, err := svc.store.GetOrder(ctx, orderID)
	if err != nil {
		return OrderView{}, err
	}
	if !svc.authorizer.Can(ctx, in.ActorUserID, ActionAssign, order.HotelID) {
		return OrderView{}, ErrNotAuthorized
	}

	dept, err := svc.store.GetDepartment(ctx, in.DepartmentID)
	if err != nil {
		return OrderView{}, err
	}

	now := svc.now()
	budget := svc.resolver.Resolve(ctx, order.HotelID, order.Priority)
	breachEvent := svc.stampBreach(&order, budget, now)

	assignmentRow, promotion, err := ApplyAssignment(&order, dept, in, now)
	if err != nil {
		return OrderView{}, err
	}

	var history []model.OrderStatusHistory
	if promotion != nil {
		history = append(history, *promotion)
	}
	if assignmentRow != nil || promotion != nil || breachEvent {
		if err := svc.store.UpdateOrder(ctx, &order, history, assignmentRow); err != nil {
			return OrderView{}, err
		}
	}

	if assignmentRow != nil {
		svc.notify(notification.EventAssigned, order)
	}
	if breachEvent {
		svc.notify(notification.EventSLABreach, order)
	}
	return OrderView{Order: order, SLA: Evaluate(order, budget, now)}, nil
}

// UpdateStatus applies a generic transition. Completion and cancellation have
// dedicated commands carrying their required fields; routing them through
// here works too when notes carry the required text.
func (svc *Service) UpdateStatus(ctx context.Context, orderID int64, to model.OrderStatus, actorUserID int64, notes string) (OrderView, error) {
	return svc.transition(ctx, orderID, to, actorUserID, notes, func(order *model.MaintenanceOrder) {
		switch to {
		case model.StatusCompleted:
			if strings.TrimSpace(order.ResolutionNotes) == "" {
				order.ResolutionNotes = notes
			}
		case model.StatusCancelled:
			if strings.TrimSpace(order.CancellationReason) == "" {
				order.CancellationReason = notes
			}
		}
	})
}

// Complete marks the work done, requiring resolution notes and accepting
// final costs.
func (svc *Service) Complete(ctx context.Context, orderID int64, actorUserID int64, resolutionNotes string, laborCost, materialCost *float64) (OrderView, error) {
	if laborCost != nil && *laborCost < 0 {
		return OrderView{}, fmt.Errorf("%w: labor cost must be non-negative", ErrValidationFailed)
	}
	if materialCost != nil && *materialCost < 0 {
		return OrderView{}, fmt.Errorf("%w: material cost must be non-negative", ErrValidationFailed)
	}
	return svc.transition(ctx, orderID, model.StatusCompleted, actorUserID, resolutionNotes, func(order *model.MaintenanceOrder) {
		order.ResolutionNotes = resolutionNotes
		if laborCost != nil {
			order.LaborCost = *laborCost
		}
		if materialCost != nil {
			order.MaterialCost = *materialCost
		}
	})
}

// Verify confirms completed work.
func (svc *Service) Verify(ctx context.Context, orderID int64, actorUserID int64, notes string) (OrderView, error) {
	return svc.transition(ctx, orderID, model.StatusVerified, actorUserID, notes, nil)
}

// Close archives a verified order.
func (svc *Service) Close(ctx context.Context, orderID int64, actorUserID int64, notes string) (OrderView, error) {
	return svc.transition(ctx, orderID, model.StatusClosed, actorUserID, notes, nil)
}

// Cancel abandons the order, requiring a reason.
func (svc *Service) Cancel(ctx context.Context, orderID int64, actorUserID int64, reason string) (OrderView, error) {
	return svc.transition(ctx, orderID, model.StatusCancelled, actorUserID, reason, func(order *model.MaintenanceOrder) {
		order.CancellationReason = reason
	})
}

func (svc *Service) transition(ctx context.Context, orderID int64, to model.OrderStatus, actorUserID int64, notes string, mutate func(*model.MaintenanceOrder)) (OrderView, error) {
	order, err := svc.store.GetOrder(ctx, orderID)
	if err != nil {
		return OrderView{}, err
	}

	action := ActionUpdateStatus
	switch to {
	case model.StatusVerified:
		action = ActionVerify
	case model.StatusCancelled:
		action = ActionCancel
	}
	if !svc.authorizer.Can(ctx, actorUserID, action, order.HotelID) {
		return OrderView{}, ErrNotAuthorized
	}

	now := svc.now()
	budget := svc.resolver.Resolve(ctx, order.HotelID, order.Priority)
	breachEvent := svc.stampBreach(&order, budget, now)

	if mutate != nil {
		mutate(&order)
	}
	row, err := Transition(&order, to, actorUserID, notes, now)
	if err != nil {
		return OrderView{}, err
	}

	if err := svc.store.UpdateOrder(ctx, &order, []model.OrderStatusHistory{row}, nil); err != nil {
		return OrderView{}, err
	}

	if to == model.StatusCompleted {
		svc.notify(notification.EventCompleted, order)
	}
	if breachEvent {
		svc.notify(notification.EventSLABreach, order)
	}
	return OrderView{Order: order, SLA: Evaluate(order, budget, now)}, nil
}

// AddComment appends a free-text note to the order's ledger.
func (svc *Service) AddComment(ctx context.Context, orderID, userID int64, text string) (model.OrderComment, error) {
	if strings.TrimSpace(text) == "" {
		return model.OrderComment{}, fmt.Errorf("%w: comment text is required", ErrValidationFailed)
	}
	order, err := svc.store.GetOrder(ctx, orderID)
	if err != nil {
		return model.OrderComment{}, err
	}
	if !svc.authorizer.Can(ctx, userID, ActionComment, order.HotelID) {
		return model.OrderComment{}, ErrNotAuthorized
	}

	comment := model.OrderComment{
		OrderID:   order.ID,
		UserID:    userID,
		Comment:   text,
		CreatedAt: svc.now(),
	}
	if err := svc.store.AppendComment(ctx, &comment); err != nil {
		return model.OrderComment{}, err
	}
	return comment, nil
}

// AddAttachment records a stored file against the order. The bytes live in
// an external attachment store; the caller supplies the resulting key.
func (svc *Service) AddAttachment(ctx context.Context, orderID, userID int64, fileName, storageKey string, sizeBytes int64) (model.OrderAttachment, error) {
	if strings.TrimSpace(fileName) == "" || strings.TrimSpace(storageKey) == "" {
		return model.OrderAttachment{}, fmt.Errorf("%w: file name and storage key are required", ErrValidationFailed)
	}
	order, err := svc.store.GetOrder(ctx, orderID)
	if err != nil {
		return model.OrderAttachment{}, err
	}
	if !svc.authorizer.Can(ctx, userID, ActionAttach, order.HotelID) {
		return model.OrderAttachment{}, ErrNotAuthorized
	}

	attachment := model.OrderAttachment{
		OrderID:    order.ID,
		UserID:     userID,
		FileName:   fileName,
		StorageKey: storageKey,
		SizeBytes:  sizeBytes,
		CreatedAt:  svc.now(),
	}
	if err := svc.store.AppendAttachment(ctx, &attachment); err != nil {
		return model.OrderAttachment{}, err
	}
	return attachment, nil
}

// Get returns the order snapshot with freshly computed SLA facts.
func (svc *Service) Get(ctx context.Context, orderID int64) (OrderView, error) {
	order, err := svc.store.GetOrder(ctx, orderID)
	if err != nil {
		return OrderView{}, err
	}
	return svc.view(ctx, order), nil
}

// GetByNumber returns the order with the given order number.
func (svc *Service) GetByNumber(ctx context.Context, number string) (OrderView, error) {
	order, err := svc.store.GetOrderByNumber(ctx, number)
	if err != nil {
		return OrderView{}, err
	}
	return svc.view(ctx, order), nil
}

// List returns matching orders with their SLA facts, applying the derived
// overdue/breached filters after load. When a derived filter is active the
// limit is applied after filtering, so a page is never short while more
// matches exist.
func (svc *Service) List(ctx context.Context, filter ListFilter) ([]OrderView, error) {
	derived := filter.OverdueOnly || filter.BreachedOnly
	load := filter.OrderFilter
	if derived {
		load.Limit = 0
	}
	orders, err := svc.store.ListOrders(ctx, load)
	if err != nil {
		return nil, err
	}

	now := svc.now()
	views := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		budget := svc.resolver.Resolve(ctx, order.HotelID, order.Priority)
		facts := Evaluate(order, budget, now)
		if filter.OverdueOnly && !facts.IsOverdue {
			continue
		}
		if filter.BreachedOnly && !facts.IsSLABreached {
			continue
		}
		views = append(views, OrderView{Order: order, SLA: facts})
		if derived && filter.Limit > 0 && len(views) >= filter.Limit {
			break
		}
	}
	return views, nil
}

func (svc *Service) view(ctx context.Context, order model.MaintenanceOrder) OrderView {
	budget := svc.resolver.Resolve(ctx, order.HotelID, order.Priority)
	return OrderView{Order: order, SLA: Evaluate(order, budget, svc.now())}
}

// stampBreach records the first observed breach on the order so the fact
// survives cancellation. Returns true when this call observed it first.
func (svc *Service) stampBreach(order *model.MaintenanceOrder, budget Budget, now time.Time) bool {
	if order.SLABreachedAt != nil {
		return false
	}
	if !Evaluate(*order, budget, now).IsSLABreached {
		return false
	}
	breachedAt := now
	order.SLABreachedAt = &breachedAt
	return true
}

func (svc *Service) notify(kind notification.EventKind, order model.MaintenanceOrder) {
	if svc.dispatcher == nil || order.AssignedDepartmentID == nil {
		return
	}
	svc.dispatcher.Dispatch(notification.Event{
		Kind:         kind,
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		Title:        order.Title,
		DepartmentID: *order.AssignedDepartmentID,
	})
}
