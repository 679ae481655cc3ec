package tracking

import (
	"sync"

	"stride/internal/domain"
)

// Handler receives order change events
type Handler func(order domain.Order)

// Feed is a source of order change events
type Feed interface {
	Subscribe(handler Handler) (unsubscribe func())
}

// Hub fans order change events out to every subscriber
type Hub struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[uint64]Handler
}

func NewHub() *Hub {
	return &Hub{handlers: make(map[uint64]Handler)}
}

// Subscribe registers a handler. Unsubscribing more than once is harmless.
func (h *Hub) Subscribe(handler Handler) (unsubscribe func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	h.handlers[id] = handler
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers an event to the current subscribers, outside the hub lock
func (h *Hub) Publish(order domain.Order) {
	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		handlers = append(handlers, handler)
	}
	h.mu.RUnlock()

	for _, handler := range handlers {
		handler(order)
	}
}

// Subscribers reports how many handlers are attached
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}

type filteredFeed struct {
	feed Feed
	keep func(domain.Order) bool
}

// Filter narrows a feed to the events keep accepts
func Filter(feed Feed, keep func(domain.Order) bool) Feed {
	return filteredFeed{feed: feed, keep: keep}
}

func (f filteredFeed) Subscribe(handler Handler) func() {
	return f.feed.Subscribe(func(order domain.Order) {
		if f.keep(order) {
			handler(order)
		}
	})
}
