package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListSchedules handles GET /api/schedules.
func (h *Handler) ListSchedules(c *gin.Context) {
	scheds, err := h.store.ListSchedules(c.Request.Context(), queryInt64(c, "hotel_id"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, scheds)
}

// TickSchedules handles POST /api/schedules/tick, forcing one evaluation
// pass outside the timer. Intended for operations tooling.
func (h *Handler) TickSchedules(c *gin.Context) {
	if h.engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pm engine is not configured"})
		return
	}
	created, err := h.engine.TickNow(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": len(created)})
}
