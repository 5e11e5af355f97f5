package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/orderstackhq/inventory-backend/api/routes"
	"github.com/orderstackhq/inventory-backend/internal/alerts"
	"github.com/orderstackhq/inventory-backend/internal/auditlog"
	"github.com/orderstackhq/inventory-backend/internal/inventory"
	"github.com/orderstackhq/inventory-backend/pkg/config"
	"github.com/orderstackhq/inventory-backend/pkg/db"
	"github.com/orderstackhq/inventory-backend/pkg/logger"
	"github.com/orderstackhq/inventory-backend/pkg/metrics"
	"github.com/orderstackhq/inventory-backend/pkg/migrate"
	"github.com/orderstackhq/inventory-backend/pkg/outbox"
	"github.com/orderstackhq/inventory-backend/pkg/pubsub"
	"github.com/orderstackhq/inventory-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	registry := prometheus.NewRegistry()
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	alertsService, err := alerts.NewService(dbClient.DB(), outboxService, logg, ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create alerts service", err)
		os.Exit(1)
	}

	auditlogService, err := auditlog.NewService(auditlog.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create change log service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(
		inventory.NewRepository(dbClient.DB()),
		auditlogService,
		alertsService,
		logg,
		ledgerMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:           cfg,
		Logger:           logg,
		InventoryService: inventoryService,
		AuditlogService:  auditlogService,
		DB:               dbClient,
		Redis:            redisClient,
		PubSub:           pubsubClient,
		IdempotencyStore: redisClient,
		RateLimitStore:   redisClient,
		Metrics:          registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
