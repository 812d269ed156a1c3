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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/cmd/mainconfig"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/api/router"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/app/bootstrap"
	appconfig "github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/config"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting trade-in appraisal API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"email_provider", cfg.EmailProvider,
	)

	ctx := context.Background()
	registry, metricsHandler := setupMetrics()

	deps, err := buildDeps(ctx, cfg, registry, logger)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	pipeline, err := bootstrap.BuildPipeline(ctx, cfg, deps)
	if err != nil {
		logger.Error("failed to build lead pipeline", "error", err)
		os.Exit(1)
	}

	// Setup router
	r := router.New(newRouterConfig(cfg, pipeline, metricsHandler, logger))

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := pipeline.Close(); err != nil {
		logger.Warn("pipeline close failed", "error", err)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupMetrics() (*prometheus.Registry, http.Handler) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func buildDeps(ctx context.Context, cfg *appconfig.Config, registry prometheus.Registerer, logger *logging.Logger) (bootstrap.Deps, error) {
	deps := bootstrap.Deps{
		Registerer: registry,
		Logger:     logger,
	}
	if !mainconfig.NeedsAWS(cfg) {
		return deps, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return deps, err
	}
	deps.S3 = mainconfig.NewS3Client(awsCfg, cfg)
	if cfg.EmailProvider == "ses" {
		deps.SES = mainconfig.NewSESClient(awsCfg)
	}
	return deps, nil
}

func newRouterConfig(cfg *appconfig.Config, p *bootstrap.Pipeline, metricsHandler http.Handler, logger *logging.Logger) *router.Config {
	return &router.Config{
		Logger:             logger,
		IntakeHandler:      p.Intake,
		RelayHandler:       p.Relay,
		VINHandler:         p.VINRoutes,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		StaticDir:          cfg.StaticDir,
	}
}
