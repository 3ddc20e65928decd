package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	appservice "github.com/edusight/edusight/internal/application/service"
	"github.com/edusight/edusight/internal/config"
	"github.com/edusight/edusight/internal/domain/models"
	domainservice "github.com/edusight/edusight/internal/domain/service"
	infraaudit "github.com/edusight/edusight/internal/infrastructure/audit"
	"github.com/edusight/edusight/internal/infrastructure/cache"
	"github.com/edusight/edusight/internal/infrastructure/monitoring"
	"github.com/edusight/edusight/internal/infrastructure/persistence/gormstore"
	httpiface "github.com/edusight/edusight/internal/interfaces/http"
	"github.com/edusight/edusight/internal/interfaces/http/handlers"
	"github.com/edusight/edusight/pkg/logger"
)

func main() {
	cfg, v, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	ctx := context.Background()

	tracing, err := monitoring.NewTracingManager(cfg, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize tracing", err)
	}
	metrics := monitoring.NewMetrics()

	// Shared stores: tenant registry and audit trail.
	registry, err := gormstore.OpenRegistry(cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to open tenant registry", err)
	}
	auditRepo, err := gormstore.OpenAudit(cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to open audit store", err)
	}
	for _, tenant := range models.KnownInstitutions() {
		if err := registry.Register(ctx, tenant); err != nil {
			appLogger.Fatal(ctx, "Failed to seed tenant registry", err)
		}
	}
	partitions := gormstore.NewPartitionManager(cfg.Database, registry, appLogger)
	defer partitions.Close()

	// Domain services.
	engine := domainservice.NewRiskEngine(cfg.Risk.Policy())
	guard := domainservice.NewAccessGuard(registry, appLogger)

	// Risk tunables follow the config file without a restart.
	config.WatchRisk(v, func(rc config.RiskConfig) {
		engine.SetPolicy(rc.Policy())
		appLogger.Info(ctx, "Risk policy reloaded")
	})

	statsCache := cache.NewStatsCache(cfg.Redis, appLogger)
	signer := infraaudit.NewSigner(cfg.Audit.HMACSecret)

	var mirror *infraaudit.KafkaMirror
	if cfg.Audit.KafkaEnabled {
		mirror = infraaudit.NewKafkaMirror(cfg.Audit, appLogger)
		defer mirror.Close()
	}

	sink := appservice.NewAuditSink(auditRepo, signer, mirror, metrics, appLogger)
	aggregation := appservice.NewAggregationService(
		guard, partitions, statsCache, sink, metrics, tracing, appLogger, cfg.Aggregation)
	students := appservice.NewStudentAppService(
		guard, engine, partitions, registry, statsCache, sink, metrics, appLogger)

	router := httpiface.NewRouter(
		cfg,
		appLogger,
		tracing,
		handlers.NewHealthHandler(registry),
		handlers.NewStatsHandler(aggregation),
		handlers.NewStudentHandler(students, aggregation),
		handlers.NewAuditHandler(sink),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Fatal(ctx, "HTTP server failed", err)
		}
	case sig := <-quit:
		appLogger.Info(ctx, "Shutdown signal received", logger.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := router.Stop(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "Server forced to shutdown", err)
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "Tracing shutdown failed", err)
	}
	appLogger.Info(ctx, "Server stopped")
}
