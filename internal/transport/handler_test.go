package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"stride/internal/catalog"
	"stride/internal/checkout"
	"stride/internal/domain"
	"stride/internal/middleware"
	"stride/internal/repository"
	"stride/internal/service"
	"stride/internal/store"
	"stride/internal/tracking"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

// In-memory repositories

type memoryUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: make(map[uuid.UUID]*domain.User)}
}

func (m *memoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memoryUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memoryUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memoryUserRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Name = name
	return nil
}

type memoryTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func newMemoryTokenRepository() *memoryTokenRepository {
	return &memoryTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *memoryTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *token
	m.tokens[token.Token] = &copied
	return nil
}

func (m *memoryTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if t.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	copied := *t
	return &copied, nil
}

func (m *memoryTokenRepository) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	t.Revoked = true
	return nil
}

func (m *memoryTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

type memoryOrderRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order
}

func newMemoryOrderRepository() *memoryOrderRepository {
	return &memoryOrderRepository{orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *memoryOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	order.UpdatedAt = order.CreatedAt
	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

func (m *memoryOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *memoryOrderRepository) list(keep func(*domain.Order) bool) []domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if keep(o) {
			orders = append(orders, *o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders
}

func (m *memoryOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	return m.list(func(o *domain.Order) bool { return o.UserID == userID }), nil
}

func (m *memoryOrderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	return m.list(func(*domain.Order) bool { return true }), nil
}

func (m *memoryOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	copied := *o
	return &copied, nil
}

func (m *memoryOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *memoryOrderRepository) DeleteForUser(ctx context.Context, id, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.UserID != userID {
		return repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *memoryOrderRepository) Stats(ctx context.Context) (repository.OrderStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := repository.OrderStats{TotalSales: decimal.Zero}
	customers := make(map[uuid.UUID]struct{})
	for _, o := range m.orders {
		stats.TotalSales = stats.TotalSales.Add(o.Total)
		stats.TotalOrders++
		customers[o.UserID] = struct{}{}
	}
	stats.UniqueCustomers = len(customers)
	return stats, nil
}

// testApp is the full HTTP surface wired to in-memory collaborators
type testApp struct {
	router   chi.Router
	redis    *miniredis.Miniredis
	sessions *store.Registry
	catalog  *catalog.Catalog
	users    *memoryUserRepository
	orders   *memoryOrderRepository
	hub      *tracking.Hub
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := zap.NewNop()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	products, err := catalog.Load("")
	require.NoError(t, err)

	app := &testApp{
		redis:    mr,
		sessions: store.NewRegistry(store.NewRedisPersister(client, time.Hour), logger),
		catalog:  products,
		users:    newMemoryUserRepository(),
		orders:   newMemoryOrderRepository(),
		hub:      tracking.NewHub(),
	}

	userService := service.NewUserService(app.users, newMemoryTokenRepository(), service.TokenConfig{Secret: testSecret})
	orderService := service.NewOrderService(app.orders, logger)
	manager := checkout.NewManager(app.orders, nil, nil, checkout.Config{}, nil, logger)

	authMiddleware := middleware.AuthMiddleware(userService, logger)
	sessionMiddleware := middleware.SessionMiddleware(app.sessions, logger)
	rateLimit := middleware.RateLimitMiddleware(client, middleware.RateLimitConfig{
		RequestsPerWindow: 20,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit:checkout",
	}, logger)

	r := chi.NewRouter()
	NewCatalogHandler(products, logger).RegisterRoutes(r)
	NewStoreHandler(products, logger).RegisterRoutes(r, sessionMiddleware)
	NewCheckoutHandler(manager, logger).RegisterRoutes(r, sessionMiddleware, rateLimit)
	NewUserHandler(userService, app.sessions, logger).RegisterRoutes(r, authMiddleware)
	NewOrderHandler(orderService, app.hub, nil, logger).RegisterRoutes(r, authMiddleware)
	NewAdminHandler(orderService, logger).RegisterRoutes(r, authMiddleware)
	app.router = r

	return app
}

// request describes one call against the test router
type request struct {
	method  string
	path    string
	body    any
	session string
	token   string
}

func (a *testApp) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if req.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(req.body))
	}

	httpReq := httptest.NewRequest(req.method, req.path, &body)
	httpReq.Header.Set("Content-Type", "application/json")
	if req.session != "" {
		httpReq.Header.Set(middleware.SessionHeader, req.session)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httpReq)
	return rec
}

// seedUser stores a user with the given role and password "password123"
func (a *testApp) seedUser(t *testing.T, name, email, role string) *domain.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         role,
	}
	require.NoError(t, a.users.Create(context.Background(), user))
	return user
}

func (a *testApp) login(t *testing.T, email, session string) LoginResponse {
	t.Helper()
	rec := a.do(t, request{
		method:  http.MethodPost,
		path:    "/api/users/login",
		body:    LoginRequest{Email: email, Password: "password123"},
		session: session,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[LoginResponse](t, rec)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) middleware.ErrorDetail {
	t.Helper()
	return decodeBody[middleware.ErrorResponse](t, rec).Error
}
