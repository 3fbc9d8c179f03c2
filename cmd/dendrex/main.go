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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dendrex/internal/config"
	logpkg "github.com/kailas-cloud/dendrex/internal/logger"
	"github.com/kailas-cloud/dendrex/internal/metrics"
	chiTransport "github.com/kailas-cloud/dendrex/internal/transport/chi"
	analysisuc "github.com/kailas-cloud/dendrex/internal/usecase/analysis"
	healthuc "github.com/kailas-cloud/dendrex/internal/usecase/health"
	"github.com/kailas-cloud/dendrex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting dendrex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Int("max_entities", cfg.Analysis.MaxEntities),
		zap.String("linkage", cfg.Analysis.Linkage),
	)

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	opts := cfg.AnalysisOptions()
	if err := opts.Validate(); err != nil {
		logger.Fatal("Invalid analysis options", zap.Error(err))
	}
	analysisSvc := analysisuc.New(opts, metrics.NewPipeline(), logger)

	// Fail fast if the pipeline cannot cluster the probe corpus
	if err := analysisSvc.SelfCheck(context.Background()); err != nil {
		logger.Fatal("Pipeline self-check failed", zap.Error(err))
	}

	healthSvc := healthuc.New(analysisSvc, nil)

	server := chiTransport.NewServer(analysisSvc, healthSvc, cfg.HTTP.MaxBodyBytes, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEvent(logger))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
