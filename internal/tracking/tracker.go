// Package tracking turns order change events into user-visible status
// transition notices.
package tracking

import (
	"fmt"
	"sync"

	"stride/internal/domain"

	"github.com/google/uuid"
)

const notificationTitle = "Order Status Updated"

// Notification describes one observed status transition
type Notification struct {
	OrderID     uuid.UUID          `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	From        domain.OrderStatus `json:"from"`
	To          domain.OrderStatus `json:"to"`
	Title       string             `json:"title"`
	Message     string             `json:"message"`
}

func newNotification(order domain.Order, from domain.OrderStatus) Notification {
	return Notification{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		From:        from,
		To:          order.Status,
		Title:       notificationTitle,
		Message:     fmt.Sprintf("Order %s changed from %s to %s", order.OrderNumber, from.Label(), order.Status.Label()),
	}
}

// Tracker remembers the last known status of every order it has seen
type Tracker struct {
	mu       sync.Mutex
	seen     map[uuid.UUID]domain.OrderStatus
	onNotify func(Notification)
	onUpdate func(domain.Order)
}

// NewTracker creates a tracker. onNotify receives transition notices and
// onUpdate the changed order; either may be nil.
func NewTracker(onNotify func(Notification), onUpdate func(domain.Order)) *Tracker {
	return &Tracker{
		seen:     make(map[uuid.UUID]domain.OrderStatus),
		onNotify: onNotify,
		onUpdate: onUpdate,
	}
}

// Track records the current status of already displayed orders without notifying
func (t *Tracker) Track(orders []domain.Order) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, order := range orders {
		t.seen[order.ID] = order.Status
	}
}

// Handle processes a change event. The first sighting of an order is recorded
// silently; later events notify only when the status differs.
func (t *Tracker) Handle(order domain.Order) (Notification, bool) {
	t.mu.Lock()
	previous, seen := t.seen[order.ID]
	t.seen[order.ID] = order.Status
	t.mu.Unlock()

	if !seen || previous == order.Status {
		return Notification{}, false
	}

	n := newNotification(order, previous)
	if t.onNotify != nil {
		t.onNotify(n)
	}
	if t.onUpdate != nil {
		t.onUpdate(order)
	}
	return n, true
}

// Status returns the last known status of an order
func (t *Tracker) Status(orderID uuid.UUID) (domain.OrderStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	status, ok := t.seen[orderID]
	return status, ok
}

// Attach subscribes the tracker to a feed. Call the returned function to detach.
func (t *Tracker) Attach(feed Feed) (unsubscribe func()) {
	return feed.Subscribe(func(order domain.Order) {
		t.Handle(order)
	})
}
