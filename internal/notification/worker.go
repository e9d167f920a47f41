package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"hotel-maintenance-backend/internal/model"
)

// EventKind names an order event worth pushing to subscribed staff.
type EventKind string

const (
	EventAssigned  EventKind = "assigned"
	EventCompleted EventKind = "completed"
	EventSLABreach EventKind = "sla_breach"
)

// Event is one notification job. DepartmentID selects the subscribers.
type Event struct {
	Kind         EventKind
	OrderID      int64
	OrderNumber  string
	Title        string
	DepartmentID int64
}

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers for sending notifications. Dispatch is
// fire-and-forget: callers never wait on delivery.
type WorkerPool struct {
	size    int
	jobs    chan Event
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, size*4),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case evt := <-wp.jobs:
			wp.sendForEvent(ctx, evt)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an event without blocking the caller. Events are dropped
// when the queue is full; delivery is best-effort by contract.
func (wp *WorkerPool) Dispatch(evt Event) {
	select {
	case wp.jobs <- evt:
	default:
		log.Printf("Notification queue full, dropping %s event for order %s", evt.Kind, evt.OrderNumber)
	}
}

// sendForEvent fetches the department's subscriptions and pushes the message.
func (wp *WorkerPool) sendForEvent(ctx context.Context, evt Event) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_department_mapping sdm ON sdm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sdm.department_id = ?", evt.DepartmentID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for department %d: %v", evt.DepartmentID, err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	message := formatMessage(evt)
	log.Printf("Sending %d notifications for order %s (%s)", len(subscriptions), evt.OrderNumber, evt.Kind)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func formatMessage(evt Event) string {
	switch evt.Kind {
	case EventAssigned:
		return fmt.Sprintf("Order %s assigned to your department: %s", evt.OrderNumber, evt.Title)
	case EventCompleted:
		return fmt.Sprintf("Order %s completed: %s", evt.OrderNumber, evt.Title)
	case EventSLABreach:
		return fmt.Sprintf("SLA breached on order %s: %s", evt.OrderNumber, evt.Title)
	}
	return fmt.Sprintf("Order %s updated: %s", evt.OrderNumber, evt.Title)
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == 410 {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
