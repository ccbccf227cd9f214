package activities

import (
	"context"
	"fmt"
	"path/filepath"

	"papermind/internal/config"
	"papermind/internal/extract"
	"papermind/internal/logging"
	"papermind/internal/models"
	"papermind/internal/orchestrator"
	"papermind/internal/render"
	"papermind/internal/storage"
	"papermind/internal/util"

	"go.temporal.io/sdk/activity"
	"go.uber.org/zap"
)

// ChunkAnalyzer is satisfied by orchestrator.Engine.
type ChunkAnalyzer interface {
	AnalyzeChunk(ctx context.Context, chunk models.Chunk) models.ChunkOutcome
}

type AnalysisStore interface {
	Save(ctx context.Context, rec storage.AnalysisRecord) error
}

type Activities struct {
	cfg      config.Config
	analyzer ChunkAnalyzer
	store    AnalysisStore
	log      *zap.Logger
}

// New wires the activities. store may be nil, in which case analysis records
// are written as JSON under the data output root.
func New(cfg config.Config, analyzer ChunkAnalyzer, store AnalysisStore, log *zap.Logger) *Activities {
	return &Activities{cfg: cfg, analyzer: analyzer, store: store, log: logging.OrNop(log).Named("activities")}
}

func (a *Activities) ExtractPaperActivity(ctx context.Context, in ExtractPaperInput) (ExtractPaperOutput, error) {
	_ = ctx
	doc, err := extract.FromPDF(in.PDFPath, in.URL)
	if err != nil {
		return ExtractPaperOutput{}, err
	}
	return ExtractPaperOutput{Paper: doc}, nil
}

// AnalyzeChunkActivity never fails on model errors; those come back as an
// unsuccessful outcome carrying the fallback fragment.
func (a *Activities) AnalyzeChunkActivity(ctx context.Context, in AnalyzeChunkInput) (models.ChunkOutcome, error) {
	activity.RecordHeartbeat(ctx, in.Chunk.ChunkInfo.ChunkIndex)
	ctx = orchestrator.WithAnalysisID(ctx, in.AnalysisID)
	out := a.analyzer.AnalyzeChunk(ctx, in.Chunk)
	a.log.Debug("chunk analyzed",
		zap.String("analysis_id", in.AnalysisID),
		zap.Int("chunk", out.Index),
		zap.Bool("success", out.Success))
	return out, nil
}

func (a *Activities) SaveAnalysisActivity(ctx context.Context, in SaveAnalysisInput) error {
	rec := storage.AnalysisRecord{
		AnalysisID:   in.AnalysisID,
		URL:          in.URL,
		Title:        in.Title,
		Status:       in.Status,
		FailedChunks: in.FailedChunks,
		Result:       in.Result,
	}
	if a.store != nil {
		return a.store.Save(ctx, rec)
	}
	path := filepath.Join(a.cfg.DataOutRoot, "analyses", in.AnalysisID, "analysis.json")
	if err := util.WriteJSONAtomic(path, rec); err != nil {
		return fmt.Errorf("write analysis record: %w", err)
	}
	return nil
}

func (a *Activities) WriteAnalysisArtifactsActivity(ctx context.Context, in WriteAnalysisArtifactsInput) (WriteAnalysisArtifactsOutput, error) {
	_ = ctx
	path := filepath.Join(a.cfg.DataOutRoot, "analyses", in.AnalysisID, "analysis.html")
	if err := util.WriteTextAtomic(path, render.Page(in.Paper, &in.Result)); err != nil {
		return WriteAnalysisArtifactsOutput{}, fmt.Errorf("write analysis page: %w", err)
	}
	return WriteAnalysisArtifactsOutput{HTMLPath: path}, nil
}
