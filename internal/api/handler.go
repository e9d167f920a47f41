package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"hotel-maintenance-backend/internal/lifecycle"
	"hotel-maintenance-backend/internal/pm"
	"hotel-maintenance-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	lifecycle *lifecycle.Service
	engine    *pm.Engine
	webpush   *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, svc *lifecycle.Service, engine *pm.Engine, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:     s,
		lifecycle: svc,
		engine:    engine,
		webpush:   webpushOptions,
	}
}

// actorID extracts the acting user from the X-User-ID header. Identity
// resolution lives in the auth gateway in front of this service.
func actorID(c *gin.Context) (int64, bool) {
	raw := c.GetHeader("X-User-ID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing or invalid X-User-ID header"})
		return 0, false
	}
	return id, true
}

// renderError maps the domain error taxonomy onto HTTP statuses.
func renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrOrderNotFound),
		errors.Is(err, store.ErrScheduleNotFound),
		errors.Is(err, store.ErrHotelNotFound),
		errors.Is(err, store.ErrDepartmentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, store.ErrConcurrencyConflict):
		status = http.StatusConflict
	case errors.Is(err, lifecycle.ErrValidationFailed),
		errors.Is(err, lifecycle.ErrInvalidAssignmentTarget):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, lifecycle.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrGenerationUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
