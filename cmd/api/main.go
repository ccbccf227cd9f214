package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"papermind/internal/api"
	"papermind/internal/app"
	"papermind/internal/config"
	"papermind/internal/logging"

	"github.com/joho/godotenv"
	tclient "go.temporal.io/sdk/client"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := api.NewBroadcaster()
	rt, err := app.New(ctx, cfg, logger, progress)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}

	opts := []api.Option{api.WithBroadcaster(progress)}
	if rt.Analyses != nil {
		opts = append(opts, api.WithAnalysisReader(rt.Analyses), api.WithCallStats(rt.Audit))
	}
	if cfg.TemporalAddress != "" {
		tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
		if err != nil {
			logger.Fatal("temporal dial failed", zap.String("address", cfg.TemporalAddress), zap.Error(err))
		}
		defer tc.Close()
		opts = append(opts, api.WithTemporal(tc))
	}

	h := api.NewServer(cfg, rt.Engine, rt.Capability, logger, opts...)
	srv := &http.Server{Addr: cfg.APIAddr, Handler: h.Routes(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("papermind api listening",
		zap.String("addr", cfg.APIAddr),
		zap.String("llm_providers", cfg.LLMProviders),
		zap.Bool("durable", cfg.TemporalAddress != ""))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", zap.Error(err))
	}
	rt.Close(context.Background())
}
