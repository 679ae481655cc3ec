package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"stride/internal/catalog"
	"stride/internal/checkout"
	"stride/internal/config"
	"stride/internal/database"
	"stride/internal/logger"
	"stride/internal/metrics"
	"stride/internal/notify"
	"stride/internal/repository"
	"stride/internal/server"
	"stride/internal/service"
	"stride/internal/store"
	"stride/internal/tracking"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(ctx context.Context, stop context.CancelFunc, apiServer *server.Server, logger *zap.Logger, done chan bool) {
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")
	done <- true
}

func newNotifier(cfg config.NotifyConfig, log *zap.Logger) (checkout.Notifier, error) {
	if cfg.URL == "" {
		log.Warn("NOTIFY_URL not set, order confirmations will only be logged")
		return notify.NewLogNotifier(log), nil
	}
	notifier, err := notify.NewEmailNotifier(cfg.URL, cfg.Timeout,
		notify.WithAPIKey(cfg.APIKey),
		notify.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	return notifier, nil
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	log.Info("Starting storefront API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbService, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database health check", zap.Any("health", dbService.Health(ctx)))

	if err := database.RunMigrations(ctx, dbService.DB(), cfg.Server.MigrationsDir, log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("Redis is not reachable yet", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
	}

	products, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		log.Fatal("Failed to load catalog", zap.Error(err))
	}
	log.Info("Catalog loaded", zap.Int("products", len(products.All())))

	notifier, err := newNotifier(cfg.Notify, log)
	if err != nil {
		log.Fatal("Failed to configure notifier", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	trackingMetrics := metrics.NewTrackingMetrics(registry)

	db := dbService.DB()
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	userService := service.NewUserService(userRepo, refreshTokenRepo, service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
		RefreshTTL: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
	})
	orderService := service.NewOrderService(orderRepo, log)

	manager := checkout.NewManager(orderRepo, notifier, nil, checkout.Config{
		ProcessingDelay: cfg.Checkout.ProcessingDelay,
		StepTimeout:     cfg.Checkout.StepTimeout,
	}, checkoutMetrics, log)

	sessions := store.NewRegistry(store.NewRedisPersister(redisClient, cfg.Session.TTL), log,
		store.WithIdleTimeout(cfg.Session.IdleTimeout),
		store.WithEvictHook(manager.Forget),
	)
	go sessions.Run(ctx, time.Minute)

	hub := tracking.NewHub()
	listener := tracking.NewListener(cfg.Database.DSN(), hub, trackingMetrics, log)
	go func() {
		if err := listener.Run(ctx); err != nil {
			log.Error("Order notification listener stopped", zap.Error(err))
		}
	}()

	srv := server.NewServer(cfg, log, server.Dependencies{
		DB:       dbService,
		Redis:    redisClient,
		Sessions: sessions,
		Catalog:  products,
		Users:    userService,
		Orders:   orderService,
		Checkout: manager,
		Feed:     hub,
		Tracking: trackingMetrics,
		Metrics:  registry,
	})

	done := make(chan bool, 1)
	go gracefulShutdown(ctx, stop, srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
