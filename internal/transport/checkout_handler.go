package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"stride/internal/checkout"
	"stride/internal/domain"
	"stride/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CheckoutResponse is the checkout state together with the order review
type CheckoutResponse struct {
	Phase        checkout.Phase         `json:"phase"`
	Processing   bool                   `json:"processing"`
	Shipping     *checkout.ShippingForm `json:"shipping,omitempty"`
	Cart         CartResponse           `json:"cart"`
	Confirmation *ConfirmationResponse  `json:"confirmation,omitempty"`
}

type ConfirmationResponse struct {
	OrderNumber string             `json:"orderNumber"`
	Items       []domain.OrderItem `json:"items"`
	Summary     PriceSummary       `json:"summary"`
	Persisted   bool               `json:"persisted"`
	Notified    bool               `json:"notified"`
}

func newConfirmationResponse(c checkout.Confirmation) *ConfirmationResponse {
	return &ConfirmationResponse{
		OrderNumber: c.OrderNumber,
		Items:       orEmpty(c.Items),
		Summary:     newPriceSummary(c.Breakdown),
		Persisted:   c.Persisted,
		Notified:    c.Notified,
	}
}

type CheckoutHandler struct {
	manager *checkout.Manager
	logger  *zap.Logger
}

func NewCheckoutHandler(manager *checkout.Manager, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{manager: manager, logger: logger}
}

// RegisterRoutes mounts checkout behind the session middleware. The
// rate limiter guards every mutating step.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, sessionMiddleware, rateLimit func(http.Handler) http.Handler) {
	r.Route("/api/checkout", func(r chi.Router) {
		r.Use(sessionMiddleware)
		r.Get("/", h.Begin)

		r.Group(func(r chi.Router) {
			r.Use(rateLimit)
			r.Post("/shipping", h.SubmitShipping)
			r.Post("/back", h.Back)
			r.Post("/payment", h.SubmitPayment)
			r.Delete("/", h.Reset)
		})
	})
}

func (h *CheckoutHandler) session(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	s, ok := sessionStore(w, r)
	if !ok {
		return nil, false
	}
	return h.manager.Session(middleware.GetSessionID(r.Context()), s), true
}

func (h *CheckoutHandler) respond(w http.ResponseWriter, r *http.Request, state checkout.State) {
	s, _ := middleware.GetStore(r.Context())
	response := CheckoutResponse{
		Phase:      state.Phase,
		Processing: state.Processing,
		Shipping:   state.Shipping,
		Cart:       newCartResponse(s.Items()),
	}
	if state.Confirmation != nil {
		response.Confirmation = newConfirmationResponse(*state.Confirmation)
	}
	middleware.RespondWithJSON(w, http.StatusOK, response)
}

// Begin enters checkout; an empty cart answers 409
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	state, err := session.Begin()
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, r, state)
}

func (h *CheckoutHandler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var form checkout.ShippingForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := session.SubmitShipping(form)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, r, state)
}

func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	state, err := session.Back()
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, r, state)
}

// SubmitPayment blocks for the simulated processing delay and answers with
// the confirmation
func (h *CheckoutHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var form checkout.PaymentForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := session.SubmitPayment(r.Context(), form); err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, r, session.State())
}

func (h *CheckoutHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Reset(middleware.GetSessionID(r.Context())); err != nil {
		h.respondError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "checkout reset"})
}

func (h *CheckoutHandler) respondError(w http.ResponseWriter, err error) {
	var fieldErrors checkout.ValidationErrors
	switch {
	case errors.As(err, &fieldErrors):
		h.logger.Debug("Checkout form rejected", zap.Error(err))
		formatted := make([]middleware.ValidationError, 0, len(fieldErrors))
		for _, fe := range fieldErrors {
			formatted = append(formatted, middleware.ValidationError{Field: fe.Field, Message: fe.Message})
		}
		middleware.RespondWithValidationErrors(w, formatted)
	case errors.Is(err, checkout.ErrEmptyCart):
		middleware.RespondWithError(w, http.StatusConflict, "Your cart is empty")
	case errors.Is(err, checkout.ErrProcessing), errors.Is(err, checkout.ErrInvalidPhase):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("Checkout failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "checkout failed")
	}
}
