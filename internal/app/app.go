// Package app wires the engine and its collaborators from configuration.
// The API server, the Temporal worker and the CLI all start from here.
package app

import (
	"context"
	"fmt"
	"time"

	"papermind/internal/config"
	"papermind/internal/logging"
	"papermind/internal/orchestrator"
	"papermind/internal/providers"
	"papermind/internal/sessions"
	"papermind/internal/storage"

	"go.uber.org/zap"
)

const dbConnectTimeout = 5 * time.Second

type Runtime struct {
	Capability providers.Capability
	Provider   providers.ProviderRef
	Pool       *sessions.Pool
	Engine     *orchestrator.Engine
	// Secondaries answer through the failover responder while the primary is unavailable.
	Secondaries []providers.ProviderRef

	// DB, Analyses and Audit stay nil unless PAPERMIND_POSTGRES_URL is set.
	DB       *storage.DB
	Analyses *storage.AnalysisRepo
	Audit    *storage.LLMAuditRepo
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger, reporters ...orchestrator.ProgressReporter) (*Runtime, error) {
	log = logging.OrNop(log)
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("build providers: %w", err)
	}
	capability, ref := pm.Primary()
	rt := &Runtime{Capability: capability, Provider: ref}

	options := make([]orchestrator.Option, 0, 3)
	if rest := pm.Secondaries(); len(rest) > 0 {
		caps := make([]providers.Capability, 0, len(rest))
		for _, nc := range rest {
			caps = append(caps, nc.Capability)
			rt.Secondaries = append(rt.Secondaries, nc.Ref)
		}
		options = append(options, orchestrator.WithFallbackResponder(orchestrator.NewFailoverResponder(caps, log)))
	}
	if len(reporters) > 0 {
		options = append(options, orchestrator.WithProgressReporter(orchestrator.MultiReporter(reporters)))
	}
	if cfg.PostgresURL != "" {
		dbCtx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
		defer cancel()
		db, err := storage.NewDB(dbCtx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(dbCtx); err != nil {
			db.Close()
			return nil, err
		}
		rt.DB = db
		rt.Analyses = storage.NewAnalysisRepo(db)
		rt.Audit = storage.NewLLMAuditRepo(db)
		options = append(options, orchestrator.WithCallRecorder(rt.Audit))
	}

	rt.Pool = sessions.NewPool(capability, cfg.SessionIdleTimeout, log)
	rt.Engine = orchestrator.New(capability, rt.Pool, orchestrator.Options{
		MaxRetries:        cfg.MaxRetries,
		PromptTimeout:     cfg.PromptTimeout,
		MaxParallelChunks: cfg.MaxParallelChunks,
		FocusMode:         cfg.FocusMode,
	}, log, options...)

	log.Info("runtime ready",
		zap.Stringer("provider", ref),
		zap.Stringers("chain", pm.Refs()),
		zap.String("model", capability.Info().Model),
		zap.Bool("postgres", rt.DB != nil),
		zap.Duration("idle_timeout", cfg.SessionIdleTimeout))
	return rt, nil
}

// Close destroys every live template session and releases the database pool.
func (r *Runtime) Close(ctx context.Context) {
	r.Pool.Close(ctx)
	if r.DB != nil {
		r.DB.Close()
	}
}
