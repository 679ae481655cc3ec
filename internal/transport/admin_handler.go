package transport

import (
	"errors"
	"net/http"

	"stride/internal/domain"
	"stride/internal/middleware"
	"stride/internal/repository"
	"stride/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}

type StatsResponse struct {
	TotalSales      string `json:"totalSales"`
	TotalOrders     int    `json:"totalOrders"`
	UniqueCustomers int    `json:"uniqueCustomers"`
}

type AdminHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

func NewAdminHandler(orders service.OrderService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{orders: orders, logger: logger}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin(h.logger))

		r.Get("/orders", h.ListOrders)
		r.Get("/stats", h.Stats)
		r.Patch("/orders/{id}/status", h.UpdateStatus)
		r.Post("/orders/{id}/toggle-delivery", h.ToggleDelivery)
	})
}

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, OrderListResponse{Orders: orEmpty(orders), Count: len(orders)})
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orders.Stats(r.Context())
	if err != nil {
		h.logger.Error("Failed to compute stats", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, StatsResponse{
		TotalSales:      stats.TotalSales.StringFixed(2),
		TotalOrders:     stats.TotalOrders,
		UniqueCustomers: stats.UniqueCustomers,
	})
}

func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), orderID, req.Status)
	h.respondOrder(w, order, err)
}

// ToggleDelivery flips an order between delivered and pending
func (h *AdminHandler) ToggleDelivery(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orders.ToggleDelivery(r.Context(), orderID)
	h.respondOrder(w, order, err)
}

func (h *AdminHandler) respondOrder(w http.ResponseWriter, order *domain.Order, err error) {
	switch {
	case err == nil:
		middleware.RespondWithJSON(w, http.StatusOK, order)
	case errors.Is(err, repository.ErrOrderNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, service.ErrInvalidStatus):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Failed to update order", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update order")
	}
}
