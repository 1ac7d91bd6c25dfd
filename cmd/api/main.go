package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/gateway"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/http/router"
	"leadflow_backend/internal/leads"
	"leadflow_backend/internal/realtime"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/dedupe"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout      = 10 * time.Second
	memoryDedupeCapacity = 10_000
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var backend *leads.Backend
	if err := withRetry(ctx, log, "lead store", 5, 2*time.Second, func() error {
		b, err := leads.OpenStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		backend = b
		return nil
	}); err != nil {
		return fmt.Errorf("open lead store: %w", err)
	}
	defer backend.Close()

	deduper, closeDeduper := initDeduper(ctx, cfg, log)
	defer closeDeduper()

	hub := realtime.NewHub(cfg.GetRealtimeBuffer(), log)
	defer hub.Close()

	gatewayClient := gateway.NewClient(cfg, log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule := leads.NewModule(leads.Deps{
		Store:         backend.Store,
		Gateway:       gatewayClient,
		Dedupe:        deduper,
		Publisher:     hub,
		Validator:     val,
		WebhookSecret: cfg.GetWebhookSecret(),
		Logger:        log,
		StoreTimeout:  cfg.GetStoreTimeout(),
	})

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: apphttp.HealthFunc(backend.Ping),
		Modules: []apphttp.Module{
			leadsModule,
			realtime.NewModule(hub, log),
			gateway.NewModule(gatewayClient, cfg.GetGatewayURL()),
		},
	}

	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		// Ends open SSE streams so Shutdown does not wait on them.
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// initDeduper uses Redis when configured so duplicate webhooks are caught
// across restarts and replicas, and falls back to process memory otherwise.
func initDeduper(ctx context.Context, cfg *config.Config, log *logger.Logger) (dedupe.Store, func()) {
	ttl := cfg.GetInboundDedupeTTL()
	if !cfg.IsRedisEnabled() {
		log.Warn("REDIS_URL not configured; inbound dedupe is per process")
		return dedupe.NewMemory(ttl, memoryDedupeCapacity), func() {}
	}

	client, err := dedupe.Dial(ctx, cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to connect to redis; falling back to in-memory dedupe", "error", err)
		return dedupe.NewMemory(ttl, memoryDedupeCapacity), func() {}
	}
	log.Info("redis dedupe enabled")
	return dedupe.NewRedis(client, ttl), func() { _ = client.Close() }
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("%s: %w", name, lastErr)
}
