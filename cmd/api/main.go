package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/table-order/api/internal/di"
	"github.com/table-order/api/internal/handlers"
	"github.com/table-order/api/internal/payments"
	"github.com/table-order/api/internal/platform/auth"
	"github.com/table-order/api/internal/platform/config"
	"github.com/table-order/api/internal/platform/idempotency"
	"github.com/table-order/api/internal/platform/observability"
	"github.com/table-order/api/internal/repositories/postgres"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("missing required configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}

	paymentsLogger := observability.FieldLogger(logger.Named("payments"))
	stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey: cfg.Stripe.APIKey,
		Logger: paymentsLogger,
		Clock:  time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise stripe provider", zap.Error(err))
	}

	webhookVerifier, err := payments.NewStripeWebhookVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance)
	if err != nil {
		logger.Fatal("failed to initialise webhook verifier", zap.Error(err))
	}

	container, err := di.NewContainer(cfg, di.ContainerDeps{
		Pool:     pool,
		Provider: stripeProvider,
		Verifier: webhookVerifier,
		Logger:   observability.FieldLogger(logger.Named("services")),
	})
	if err != nil {
		logger.Fatal("failed to wire services", zap.Error(err))
	}

	staffVerifier, err := auth.NewStaffVerifier(cfg.Auth.StaffTokenSecret, cfg.Auth.TokenIssuer)
	if err != nil {
		logger.Fatal("failed to initialise staff verifier", zap.Error(err))
	}

	idempotencyStore := idempotency.NewMemoryStore()
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			cleanupLogger := logger.Named("idempotency")
			for {
				select {
				case <-cleanupTicker.C:
					runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
					removed, err := idempotencyStore.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
					cancel()
					if err != nil {
						cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
						continue
					}
					if removed > 0 {
						cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	menuHandlers := handlers.NewMenuHandlers(container.Services.Catalog)
	orderHandlers := handlers.NewOrderHandlers(container.Services.Orders)
	staffHandlers := handlers.NewStaffHandlers(container.Services.Orders, container.Services.Sales, time.Now)
	webhookHandlers := handlers.NewWebhookHandlers(container.Services.Webhooks)
	healthHandlers := handlers.NewHealthHandlers(pool)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.RequestLogger(logger),
			observability.Recoverer(logger),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithMenuRoutes(menuHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes, idempotencyMiddleware),
		handlers.WithStaffRoutes(staffHandlers.Routes, staffVerifier.RequireStaff()),
		handlers.WithWebhookRoutes(webhookHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	case sig := <-stop:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	cleanupCancel()
	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	container.Close()
	logger.Info("server stopped")
}
