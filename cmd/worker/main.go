package main

import (
	"context"
	"log"

	"papermind/internal/activities"
	"papermind/internal/app"
	"papermind/internal/config"
	"papermind/internal/logging"
	"papermind/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	if cfg.TemporalAddress == "" {
		logger.Fatal("PAPERMIND_TEMPORAL_ADDRESS is required for the worker")
	}

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal("temporal dial failed", zap.Error(err))
	}
	defer c.Close()

	rt, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer rt.Close(context.Background())

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	var store activities.AnalysisStore
	if rt.Analyses != nil {
		store = rt.Analyses
	}
	activities.Register(w, activities.New(cfg, rt.Engine, store, logger))

	logger.Info("papermind worker listening",
		zap.String("temporal", cfg.TemporalAddress),
		zap.String("queue", cfg.TemporalTaskQueue),
		zap.String("llm_providers", cfg.LLMProviders))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("worker stopped", zap.Error(err))
	}
}
