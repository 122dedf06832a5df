// main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inngest/inngestgo"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/aeo-insights/internal/analysis"
	"github.com/AI-Template-SDK/aeo-insights/internal/api"
	"github.com/AI-Template-SDK/aeo-insights/internal/config"
	"github.com/AI-Template-SDK/aeo-insights/internal/metrics"
	"github.com/AI-Template-SDK/aeo-insights/internal/providers"
	"github.com/AI-Template-SDK/aeo-insights/internal/providers/common"
	"github.com/AI-Template-SDK/aeo-insights/internal/store"
	"github.com/AI-Template-SDK/aeo-insights/services"
	"github.com/AI-Template-SDK/aeo-insights/workflows"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.Environment == "development" || cfg.Environment == "" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", api.ServiceName).Logger()
}

func main() {
	envMessage := "Loaded .env file"
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("dev.env"); err != nil {
			envMessage = "No .env or dev.env file loaded"
		} else {
			envMessage = "Loaded dev.env file for local development"
		}
	}

	cfg := config.Load()
	logger := newLogger(cfg)
	logger.Info().Msg(envMessage)
	logger.Info().
		Str("environment", cfg.Environment).
		Str("port", cfg.Port).
		Str("db_host", cfg.Database.Host).
		Str("db_name", cfg.Database.Name).
		Str("detector", cfg.Detector.Provider).
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Connect(ctx, cfg.Database, 5, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	resultStore := store.New(db, logger)
	if err := resultStore.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	if cfg.Environment == "development" || cfg.Environment == "" {
		os.Unsetenv("INNGEST_SIGNING_KEY")
		cfg.InngestSigningKey = ""
		logger.Info().Msg("Running in development mode - signing key verification disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	accounting := common.Accounting{Costs: services.NewCostService(), Observer: m, Logger: logger}
	registry, err := providers.NewAnalyzerRegistry(ctx, cfg, accounting, m)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create brand detector")
	}

	aggregateOpts := analysis.AggregateOptions{LegacyProminence: cfg.Analysis.LegacyProminence}
	kpiService := services.NewKPIService(registry, resultStore, aggregateOpts, m, logger)
	batchAnalyzer := services.NewBatchAnalyzer(kpiService, cfg.Analysis.Concurrency, cfg.Analysis.RequestsPerSec, logger)
	alerts := workflows.NewSlackNotifier(cfg.SlackWebhookURL)

	client, err := inngestgo.NewClient(
		inngestgo.ClientOpts{
			AppID:    api.ServiceName,
			EventKey: inngestgo.StrPtr(cfg.InngestEventKey),
			Env:      inngestgo.StrPtr(cfg.Environment),
		},
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Inngest client")
	}

	responseProcessor := workflows.NewResponseProcessor(kpiService, alerts, logger)
	responseProcessor.SetClient(client)
	responseProcessor.ProcessResponse()

	snapshotProcessor := workflows.NewSnapshotProcessor(kpiService, alerts, logger)
	snapshotProcessor.SetClient(client)
	snapshotProcessor.DailySnapshotRecompute()
	snapshotProcessor.RecomputeSnapshots()
	logger.Info().Msg("All processors initialized and functions registered")

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := api.New(api.Config{
		KPIService:    kpiService,
		BatchAnalyzer: batchAnalyzer,
		Inngest:       client.Serve(),
		Gatherer:      reg,
		Aggregate:     aggregateOpts,
		Logger:        logger,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Starting AEO insights service")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
