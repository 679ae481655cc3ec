// Package checkout runs the shipping → payment → confirmation flow of a
// storefront session and finalizes the order.
package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"stride/internal/domain"
	"stride/internal/metrics"
	"stride/internal/store"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Phase is the active step of a checkout session
type Phase string

const (
	PhaseShipping     Phase = "shipping"
	PhasePayment      Phase = "payment"
	PhaseConfirmation Phase = "confirmation"
)

const (
	DefaultProcessingDelay = 2 * time.Second
	DefaultStepTimeout     = 10 * time.Second
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrProcessing   = errors.New("payment is already being processed")
	ErrInvalidPhase = errors.New("action is not allowed in the current checkout phase")
)

// Cart is the part of the session store checkout reads and drains
type Cart interface {
	Items() []domain.CartItem
	Deduct(items []domain.CartItem)
	User() (domain.Identity, bool)
}

// OrderStore persists placed orders
type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
}

// Notifier dispatches the order confirmation
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, confirmation domain.OrderConfirmation) error
}

// Confirmation is the outcome of a finalized checkout. Persisted and Notified
// report the remote steps, which never abort checkout.
type Confirmation struct {
	OrderNumber string             `json:"orderNumber"`
	Items       []domain.OrderItem `json:"items"`
	Breakdown   store.Breakdown    `json:"breakdown"`
	Persisted   bool               `json:"persisted"`
	Notified    bool               `json:"notified"`
}

// State is the data accumulated by a session. Phase selects the active step;
// moving back only changes the tag.
type State struct {
	Phase        Phase         `json:"phase"`
	Shipping     *ShippingForm `json:"shipping,omitempty"`
	Confirmation *Confirmation `json:"confirmation,omitempty"`
	Processing   bool          `json:"processing"`
}

// Config tunes finalization. StepTimeout bounds the persist and notify steps
// separately; zero means DefaultStepTimeout.
type Config struct {
	ProcessingDelay time.Duration
	StepTimeout     time.Duration
}

// Manager owns the collaborators shared by every checkout and keeps one
// transient session per storefront session
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	orders      OrderStore
	notifier    Notifier
	numbers     *OrderNumbers
	delay       time.Duration
	stepTimeout time.Duration
	validate    *validator.Validate
	metrics     *metrics.CheckoutMetrics
	logger      *zap.Logger
}

// NewManager creates a checkout manager. orders may be nil, in which case
// orders are never persisted.
func NewManager(orders OrderStore, notifier Notifier, numbers *OrderNumbers, cfg Config, m *metrics.CheckoutMetrics, logger *zap.Logger) *Manager {
	if numbers == nil {
		numbers = NewOrderNumbers()
	}
	if cfg.ProcessingDelay < 0 {
		cfg.ProcessingDelay = 0
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		orders:      orders,
		notifier:    notifier,
		numbers:     numbers,
		delay:       cfg.ProcessingDelay,
		stepTimeout: cfg.StepTimeout,
		validate:    newValidator(),
		metrics:     m,
		logger:      logger,
	}
}

// Session returns the checkout of a storefront session. A confirmed checkout
// is replaced by a fresh one once the cart holds items again.
func (m *Manager) Session(sessionID string, cart Cart) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok && !s.finishedWith(cart) {
		return s
	}

	s := &Session{manager: m, cart: cart, state: State{Phase: PhaseShipping}}
	m.sessions[sessionID] = s
	return s
}

// Reset abandons the checkout of a storefront session
func (m *Manager) Reset(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok {
		if s.State().Processing {
			return ErrProcessing
		}
		delete(m.sessions, sessionID)
	}
	return nil
}

// Forget drops the checkout of a storefront session whose state has been
// evicted. A payment still being processed completes on its own.
func (m *Manager) Forget(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Session is one pass through the checkout flow
type Session struct {
	mu      sync.Mutex
	manager *Manager
	cart    Cart
	state   State
}

// State returns a copy of the accumulated session data
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Begin applies the entry guard: an empty cart is a dead end unless the
// session is already confirmed
func (s *Session) Begin() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return State{}, err
	}
	return s.snapshot(), nil
}

// SubmitShipping validates the address and advances to payment. On failure
// the phase is unchanged and the error is ValidationErrors.
func (s *Session) SubmitShipping(form ShippingForm) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return State{}, err
	}
	if s.state.Processing {
		return State{}, ErrProcessing
	}
	if s.state.Phase == PhaseConfirmation {
		return State{}, ErrInvalidPhase
	}

	form = form.trimmed()
	if err := validateForm(s.manager.validate, form); err != nil {
		s.manager.metrics.IncRejected(string(PhaseShipping))
		return State{}, err
	}

	s.state.Shipping = &form
	s.state.Phase = PhasePayment
	return s.snapshot(), nil
}

// Back returns from payment to shipping, keeping the entered address
func (s *Session) Back() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Processing {
		return State{}, ErrProcessing
	}
	if s.state.Phase != PhasePayment {
		return State{}, ErrInvalidPhase
	}

	s.state.Phase = PhaseShipping
	return s.snapshot(), nil
}

// SubmitPayment validates the card details and finalizes the order. The
// payment is simulated; no processor is contacted. Finalization is not
// cancelled when ctx is.
func (s *Session) SubmitPayment(ctx context.Context, form PaymentForm) (Confirmation, error) {
	s.mu.Lock()
	if err := s.guard(); err != nil {
		s.mu.Unlock()
		return Confirmation{}, err
	}
	if s.state.Processing {
		s.mu.Unlock()
		return Confirmation{}, ErrProcessing
	}
	if s.state.Phase != PhasePayment || s.state.Shipping == nil {
		s.mu.Unlock()
		return Confirmation{}, ErrInvalidPhase
	}
	form = form.trimmed()
	if err := validateForm(s.manager.validate, form); err != nil {
		s.mu.Unlock()
		s.manager.metrics.IncRejected(string(PhasePayment))
		return Confirmation{}, err
	}
	s.state.Processing = true
	shipping := *s.state.Shipping
	items := s.cart.Items()
	s.mu.Unlock()

	confirmation := s.manager.finalize(context.WithoutCancel(ctx), s.cart, items, shipping)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Confirmation = &confirmation
	s.cart.Deduct(items)
	s.state.Phase = PhaseConfirmation
	s.state.Processing = false

	return confirmation, nil
}

func (s *Session) guard() error {
	if s.state.Phase != PhaseConfirmation && len(s.cart.Items()) == 0 {
		return ErrEmptyCart
	}
	return nil
}

func (s *Session) finishedWith(cart Cart) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart != cart || (s.state.Phase == PhaseConfirmation && len(cart.Items()) > 0)
}

func (s *Session) snapshot() State {
	state := s.state
	if state.Shipping != nil {
		shipping := *state.Shipping
		state.Shipping = &shipping
	}
	if state.Confirmation != nil {
		confirmation := *state.Confirmation
		state.Confirmation = &confirmation
	}
	return state
}

// finalize runs the delay, numbering, persistence and notification steps in
// order for the given cart lines. Remote failures are logged and reported in
// the confirmation.
func (m *Manager) finalize(ctx context.Context, cart Cart, cartItems []domain.CartItem, shipping ShippingForm) Confirmation {
	start := time.Now()
	defer func() { m.metrics.ObserveFinalize(time.Since(start)) }()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	number := m.numbers.Next()
	items := domain.SnapshotItems(cartItems)
	breakdown := store.PriceBreakdown(store.CartTotal(cartItems))
	address := domain.ShippingAddress{
		FirstName: shipping.FirstName,
		LastName:  shipping.LastName,
		Address:   shipping.Address,
		City:      shipping.City,
		State:     shipping.State,
		ZipCode:   shipping.ZipCode,
		Country:   shipping.Country,
	}

	confirmation := Confirmation{
		OrderNumber: number,
		Items:       items,
		Breakdown:   breakdown,
	}

	if user, ok := cart.User(); ok && m.orders != nil {
		order := &domain.Order{
			UserID:          user.ID,
			OrderNumber:     number,
			Status:          domain.StatusProcessing,
			Items:           items,
			Subtotal:        breakdown.Subtotal,
			Shipping:        breakdown.Shipping,
			Tax:             breakdown.Tax,
			Total:           breakdown.Total,
			ShippingAddress: address,
		}
		if err := m.persist(ctx, order); err != nil {
			m.metrics.IncStepFailure(metrics.StepPersist)
			m.logger.Error("Failed to save order",
				zap.String("order_number", number),
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
		} else {
			confirmation.Persisted = true
		}
	}

	if m.notifier != nil {
		err := m.notify(ctx, domain.OrderConfirmation{
			Email:           shipping.Email,
			OrderNumber:     number,
			CustomerName:    shipping.FirstName + " " + shipping.LastName,
			Items:           items,
			Subtotal:        breakdown.Subtotal.InexactFloat64(),
			Shipping:        breakdown.Shipping.InexactFloat64(),
			Tax:             breakdown.Tax.InexactFloat64(),
			Total:           breakdown.Total.InexactFloat64(),
			ShippingAddress: address,
		})
		if err != nil {
			m.metrics.IncStepFailure(metrics.StepNotify)
			m.logger.Error("Failed to send confirmation email",
				zap.String("order_number", number),
				zap.Error(err),
			)
		} else {
			confirmation.Notified = true
		}
	}

	m.metrics.IncCompleted()
	m.logger.Info("Order placed",
		zap.String("order_number", number),
		zap.Int("items", len(items)),
		zap.String("total", breakdown.Total.StringFixed(2)),
		zap.Bool("persisted", confirmation.Persisted),
		zap.Bool("notified", confirmation.Notified),
	)

	return confirmation
}

func (m *Manager) persist(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, m.stepTimeout)
	defer cancel()
	return m.orders.Create(ctx, order)
}

func (m *Manager) notify(ctx context.Context, confirmation domain.OrderConfirmation) error {
	ctx, cancel := context.WithTimeout(ctx, m.stepTimeout)
	defer cancel()
	return m.notifier.SendOrderConfirmation(ctx, confirmation)
}
