package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"hotel-maintenance-backend/internal/lifecycle"
	"hotel-maintenance-backend/internal/mw"
	"hotel-maintenance-backend/internal/pm"
	"hotel-maintenance-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, svc *lifecycle.Service, engine *pm.Engine, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, svc, engine, webpushOptions)

	// Rate limit: 10 requests per second with a burst of 5
	rateLimiter := mw.RateLimiter(rate.Limit(10), 5)

	// Cache: short TTL so recomputed overdue flags stay fresh.
	cacheStore := cache.New(30*time.Second, time.Minute)
	caching := mw.Cache(cacheStore, 30*time.Second)

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/orders", handler.CreateOrder)
		api.GET("/orders", caching, handler.ListOrders)
		api.GET("/orders/:id", handler.GetOrder)
		api.GET("/orders/:id/history", handler.GetOrderHistory)
		api.GET("/orders/:id/assignments", handler.GetOrderAssignments)
		api.POST("/orders/:id/assign", handler.AssignOrder)
		api.POST("/orders/:id/status", handler.UpdateOrderStatus)
		api.POST("/orders/:id/complete", handler.CompleteOrder)
		api.POST("/orders/:id/verify", handler.VerifyOrder)
		api.POST("/orders/:id/close", handler.CloseOrder)
		api.POST("/orders/:id/cancel", handler.CancelOrder)
		api.POST("/orders/:id/comments", handler.AddComment)
		api.POST("/orders/:id/attachments", handler.AddAttachment)

		api.GET("/schedules", caching, handler.ListSchedules)
		api.POST("/schedules/tick", handler.TickSchedules)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
