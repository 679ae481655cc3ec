package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"stride/internal/domain"
	"stride/internal/metrics"
	"stride/internal/middleware"
	"stride/internal/repository"
	"stride/internal/service"
	"stride/internal/tracking"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	streamBuffer      = 16
	streamKeepAlive   = 25 * time.Second
	eventNotification = "notification"
	eventOrder        = "order"
)

type OrderListResponse struct {
	Orders []domain.Order `json:"orders"`
	Count  int            `json:"count"`
}

// OrderStatusEvent is the body of an "order" stream event. Change
// notifications carry no line items or amounts, so only the fields a client
// may merge into its copy are sent.
type OrderStatusEvent struct {
	OrderID     uuid.UUID          `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	Status      domain.OrderStatus `json:"status"`
}

// streamEvent is one Server-Sent Event
type streamEvent struct {
	name string
	data any
}

type OrderHandler struct {
	orders  service.OrderService
	feed    tracking.Feed
	metrics *metrics.TrackingMetrics
	logger  *zap.Logger
}

func NewOrderHandler(orders service.OrderService, feed tracking.Feed, m *metrics.TrackingMetrics, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, feed: feed, metrics: m, logger: logger}
}

func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.History)
		r.Get("/events", h.Events)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.orders.History(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load order history", zap.String("user_id", userID.String()), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, OrderListResponse{Orders: orEmpty(orders), Count: len(orders)})
}

// Delete removes an order from the caller's history
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	if err := h.orders.DeleteFromHistory(r.Context(), orderID, userID); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("Failed to delete order", zap.String("order_id", orderID.String()), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete order")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events streams the caller's order status changes as Server-Sent Events.
// The current history is registered first so that only later transitions
// produce notifications.
func (h *OrderHandler) Events(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.orders.History(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load orders for tracking", zap.String("user_id", userID.String()), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load orders")
		return
	}

	events := make(chan streamEvent, streamBuffer)
	send := func(event streamEvent) {
		select {
		case events <- event:
		default:
			h.logger.Warn("Dropping order event for slow client",
				zap.String("user_id", userID.String()),
				zap.String("event", event.name),
			)
		}
	}

	tracker := tracking.NewTracker(
		func(n tracking.Notification) { send(streamEvent{name: eventNotification, data: n}) },
		func(o domain.Order) {
			send(streamEvent{name: eventOrder, data: OrderStatusEvent{OrderID: o.ID, OrderNumber: o.OrderNumber, Status: o.Status}})
		},
	)
	tracker.Track(orders)
	unsubscribe := tracker.Attach(tracking.Filter(h.feed, func(o domain.Order) bool {
		return o.UserID == userID
	}))
	defer unsubscribe()

	h.metrics.AddSubscribers(1)
	defer h.metrics.AddSubscribers(-1)

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Error("Streaming unsupported", zap.Error(err))
		return
	}

	h.logger.Debug("Order event stream opened", zap.String("user_id", userID.String()), zap.Int("orders", len(orders)))

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("Order event stream closed", zap.String("user_id", userID.String()))
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case event := <-events:
			if err := writeEvent(w, event); err != nil {
				h.logger.Debug("Order event write failed", zap.Error(err))
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event streamEvent) error {
	data, err := json.Marshal(event.data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.name, data)
	return err
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return uuid.Nil, false
	}
	return orderID, true
}
