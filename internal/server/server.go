package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"stride/internal/catalog"
	"stride/internal/checkout"
	"stride/internal/config"
	"stride/internal/database"
	"stride/internal/metrics"
	custommiddleware "stride/internal/middleware"
	"stride/internal/service"
	"stride/internal/store"
	"stride/internal/tracking"
	"stride/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies are the collaborators the HTTP layer is built from
type Dependencies struct {
	DB       database.Service
	Redis    *redis.Client
	Sessions *store.Registry
	Catalog  *catalog.Catalog
	Users    service.UserService
	Orders   service.OrderService
	Checkout *checkout.Manager
	Feed     tracking.Feed
	Tracking *metrics.TrackingMetrics
	Metrics  *prometheus.Registry
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Dependencies
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.Env == "development"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	s := &Server{
		config: cfg,
		logger: logger,
		deps:   deps,
	}

	router.Get("/health", s.health)
	router.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))

	authMiddleware := custommiddleware.AuthMiddleware(deps.Users, logger)
	sessionMiddleware := custommiddleware.SessionMiddleware(deps.Sessions, logger)
	checkoutLimit := custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "ratelimit:checkout",
	}, logger)

	transport.NewCatalogHandler(deps.Catalog, logger).RegisterRoutes(router)
	transport.NewStoreHandler(deps.Catalog, logger).RegisterRoutes(router, sessionMiddleware)
	transport.NewCheckoutHandler(deps.Checkout, logger).RegisterRoutes(router, sessionMiddleware, checkoutLimit)
	transport.NewUserHandler(deps.Users, deps.Sessions, logger).RegisterRoutes(router, authMiddleware)
	transport.NewOrderHandler(deps.Orders, deps.Feed, deps.Tracking, logger).RegisterRoutes(router, authMiddleware)
	transport.NewAdminHandler(deps.Orders, logger).RegisterRoutes(router, authMiddleware)

	// WriteTimeout stays zero so order event streams are not cut off
	s.Server = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
	}

	return s
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	report := map[string]any{"status": "ok"}

	if s.deps.DB != nil {
		db := s.deps.DB.Health(r.Context())
		report["database"] = db
		if db["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
	}

	if s.deps.Redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := s.deps.Redis.Ping(ctx).Err(); err != nil {
			report["redis"] = map[string]string{"status": "down", "error": err.Error()}
			status = http.StatusServiceUnavailable
		} else {
			report["redis"] = map[string]string{"status": "up"}
		}
	}

	if status != http.StatusOK {
		report["status"] = "degraded"
	}
	custommiddleware.RespondWithJSON(w, status, report)
}

// Close releases the database and redis connections
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.deps.DB != nil {
		if err := s.deps.DB.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}
	if s.deps.Redis != nil {
		if err := s.deps.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
