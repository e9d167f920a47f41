package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hotel-maintenance-backend/internal/lifecycle"
	"hotel-maintenance-backend/internal/model"
	"hotel-maintenance-backend/internal/parse"
	"hotel-maintenance-backend/internal/store"
)

type createOrderRequest struct {
	HotelID                int64      `json:"hotel_id" binding:"required"`
	RequestingDepartmentID int64      `json:"requesting_department_id" binding:"required"`
	LocationID             int64      `json:"location_id" binding:"required"`
	Type                   string     `json:"type" binding:"required"`
	Priority               string     `json:"priority" binding:"required"`
	Title                  string     `json:"title" binding:"required"`
	Description            string     `json:"description"`
	ExpectedCompletionDate *time.Time `json:"expected_completion_date"`
}

// CreateOrder handles POST /api/orders.
func (h *Handler) CreateOrder(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.lifecycle.Create(c.Request.Context(), lifecycle.CreateOrderInput{
		HotelID:                req.HotelID,
		RequestingDepartmentID: req.RequestingDepartmentID,
		LocationID:             req.LocationID,
		Type:                   model.OrderType(req.Type),
		Priority:               model.OrderPriority(req.Priority),
		Title:                  req.Title,
		Description:            req.Description,
		CreatedByUserID:        actor,
		ExpectedCompletionDate: req.ExpectedCompletionDate,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// GetOrder handles GET /api/orders/:id, accepting either a numeric id or an
// order number.
func (h *Handler) GetOrder(c *gin.Context) {
	ref := c.Param("id")

	var view lifecycle.OrderView
	var err error
	if parse.IsOrderNumber(ref) {
		view, err = h.lifecycle.GetByNumber(c.Request.Context(), ref)
	} else {
		var id int64
		id, err = strconv.ParseInt(ref, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order reference"})
			return
		}
		view, err = h.lifecycle.Get(c.Request.Context(), id)
	}
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListOrders handles GET /api/orders with filter query parameters.
func (h *Handler) ListOrders(c *gin.Context) {
	filter := lifecycle.ListFilter{
		OrderFilter: store.OrderFilter{
			HotelID:              queryInt64(c, "hotel_id"),
			AssignedDepartmentID: queryInt64(c, "department_id"),
			AssignedToUserID:     queryInt64(c, "assignee_id"),
			ScheduleID:           queryInt64(c, "schedule_id"),
			Status:               model.OrderStatus(c.Query("status")),
			Limit:                int(queryInt64(c, "limit")),
		},
		OverdueOnly:  c.Query("overdue") == "true",
		BreachedOnly: c.Query("breached") == "true",
	}

	views, err := h.lifecycle.List(c.Request.Context(), filter)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// GetOrderHistory handles GET /api/orders/:id/history.
func (h *Handler) GetOrderHistory(c *gin.Context) {
	id, ok := pathOrderID(c)
	if !ok {
		return
	}
	rows, err := h.store.ListStatusHistory(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetOrderAssignments handles GET /api/orders/:id/assignments.
func (h *Handler) GetOrderAssignments(c *gin.Context) {
	id, ok := pathOrderID(c)
	if !ok {
		return
	}
	rows, err := h.store.ListAssignmentHistory(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

type assignRequest struct {
	DepartmentID      int64  `json:"department_id" binding:"required"`
	TechnicianUserID  *int64 `json:"technician_user_id"`
	Notes             string `json:"notes"`
	SuppressDuplicate bool   `json:"suppress_duplicate"`
}

// AssignOrder handles POST /api/orders/:id/assign.
func (h *Handler) AssignOrder(c *gin.Context) {
	id, ok := pathOrderID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.lifecycle.Assign(c.Request.Context(), id, lifecycle.AssignmentInput{
		DepartmentID:      req.DepartmentID,
		TechnicianUserID:  req.TechnicianUserID,
		ActorUserID:       actor,
		Notes:             req.Notes,
		SuppressDuplicate: req.SuppressDuplicate,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// UpdateOrderStatus handles POST /api/orders/:id/status.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := pathOrderID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.lifecycle.UpdateStatus(c.Request.Context(), id, model.OrderStatus(req.Status), actor, req.Notes)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type completeRequest struct {
	ResolutionNotes string   `json:"resolution_notes" binding:"required"`
	LaborCost       *float64 `json:"labor_cost"`
	MaterialCost    *float64 `json:"material_cost"`
}

// CompleteOrder handles POST /api/orders/:id/complete.
func (h *Handler) CompleteOrder(c *gin.Context) {
	id, ok := pathOrderID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.lifecycle.Complete(c.Request.Context(), id, actor, req.ResolutionNotes, req.LaborCost, req.MaterialCost)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type notesRequest struct {
	Notes string `json:"notes"`
}

// VerifyOrder handles POST /api/orders/:id/verify.
func (h *Handler) VerifyOrder(c *gin.Context) {
	h.simpleTransition(c, h.lifecycle.Verify)
}

// CloseOrder handles POST /api/orders/:id/close.
func (h *Handler) CloseOrder(c *gin.Context) {
	h.simpleTransition(c, h.lifecycle.Close)
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CancelOrder handles POST /api/orders/:id/cancel.
func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := pathOrderID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.lifecycle.Cancel(c.Request.Context(), id, actor, req.Reason)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type commentRequest struct {
	Comment string `json:"comment" binding:"required"`
}

// AddComment handles POST /api/orders/:id/comments.
func (h *Handler) AddComment(c *gin.Context) {
	id, ok := pathOrderID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.lifecycle.AddComment(c.Request.Context(), id, actor, req.Comment)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

type attachmentRequest struct {
	FileName   string `json:"file_name" binding:"required"`
	StorageKey string `json:"storage_key" binding:"required"`
	SizeBytes  int64  `json:"size_bytes"`
}

// AddAttachment handles POST /api/orders/:id/attachments. The file bytes are
// uploaded to the attachment store separately; this records the reference.
func (h *Handler) AddAttachment(c *gin.Context) {
	id, ok := pathOrderID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req attachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attachment, err := h.lifecycle.AddAttachment(c.Request.Context(), id, actor, req.FileName, req.StorageKey, req.SizeBytes)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, attachment)
}

func (h *Handler) simpleTransition(c *gin.Context, op func(ctx context.Context, orderID, actorUserID int64, notes string) (lifecycle.OrderView, error)) {
	id, ok := pathOrderID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req notesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	view, err := op(c.Request.Context(), id, actor, req.Notes)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func pathOrderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return 0, false
	}
	return id, true
}

func queryInt64(c *gin.Context, key string) int64 {
	v, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
