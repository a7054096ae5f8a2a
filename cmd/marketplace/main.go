package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/efreitasn/marketplace/internal/config"
	"github.com/efreitasn/marketplace/internal/engine"
	"github.com/efreitasn/marketplace/internal/handler"
	"github.com/efreitasn/marketplace/internal/idempotency"
	"github.com/efreitasn/marketplace/internal/service"
	"github.com/efreitasn/marketplace/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledger, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", slog.String("driver", cfg.StoreDriver), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer ledger.Close()
	logger.Info("store opened", slog.String("driver", cfg.StoreDriver))

	// A nil interface, not a nil *idempotency.Guard, disables the check.
	var guard handler.IdempotencyGuard
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect redis", slog.String("addr", cfg.RedisAddr), slog.String("error", err.Error()))
			os.Exit(1)
		}
		guard = idempotency.NewGuard(rdb, cfg.IdempotencyTTL)
		logger.Info("idempotency enabled", slog.String("redis_addr", cfg.RedisAddr))
	}

	eng := engine.New()
	webhookSvc := service.NewWebhookService(store.NewWebhookStore(), cfg.WebhookTimeout, logger)

	router := handler.NewRouter(handler.Services{
		Items:    service.NewItemService(ledger, eng),
		Accounts: service.NewAccountService(ledger, eng, logger),
		Listings: service.NewListingService(ledger, eng, webhookSvc, logger),
		Webhooks: webhookSvc,
	}, guard, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Stop accepting requests, then let in-flight webhook deliveries finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	if err := webhookSvc.Wait(shutdownCtx); err != nil {
		logger.Warn("webhook deliveries still pending", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
}

// openStore returns the ledger selected by cfg.StoreDriver.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StorePebble:
		s, err := store.NewPebbleStore(cfg.PebblePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping mysql: %w", err)
		}
		s := store.NewMySQLStore(db)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	default:
		return store.NewMemoryStore(), nil
	}
}
