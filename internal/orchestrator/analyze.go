package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"papermind/internal/cache"
	"papermind/internal/models"
	"papermind/internal/prompts"
	"papermind/internal/render"
	"papermind/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Analyze turns every section of doc into an HTML fragment, concurrently.
// It never fails: broken chunks become fallback fragments, and a structural
// failure yields a summary built from the title and abstract.
func (e *Engine) Analyze(ctx context.Context, doc models.PaperDocument) (res *models.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("analysis failed structurally",
				zap.String("url", doc.URL), zap.Error(fmt.Errorf("%w: %v", util.ErrStructuralFailure, r)))
			res = &models.AnalysisResult{Fallback: render.FallbackSummary(doc)}
		}
	}()

	key := cache.AnalysisKey(doc.URL)
	if cached, ok := e.analyses.Get(key); ok {
		e.log.Debug("analysis cache hit", zap.String("url", doc.URL))
		return cached
	}

	start := time.Now()
	chunks := util.ChunkPaper(doc, e.opts.SectionsPerChunk)
	total := len(chunks)
	e.log.Info("starting parallel analysis", zap.String("title", doc.Title), zap.Int("chunks", total))
	e.report(ctx, 0, total, "Starting parallel analysis...")

	// Chunks always run to completion, even if the caller goes away.
	runCtx := context.WithoutCancel(ctx)
	var (
		mu        sync.Mutex
		outcomes  = make([]models.ChunkOutcome, 0, total)
		completed int
	)
	var g errgroup.Group
	if e.opts.MaxParallelChunks > 0 {
		g.SetLimit(e.opts.MaxParallelChunks)
	}
	for _, chunk := range chunks {
		g.Go(func() error {
			out := e.AnalyzeChunk(runCtx, chunk)

			mu.Lock()
			outcomes = append(outcomes, out)
			completed++
			done := completed
			mu.Unlock()

			e.report(runCtx, done, total, chunkStatus(out, chunk, done, total))
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })
	sections := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		sections = append(sections, o.HTML)
	}

	elapsed := time.Since(start).Seconds()
	e.log.Info("analysis complete", zap.String("title", doc.Title), zap.Int("chunks", total),
		zap.Float64("seconds", elapsed), zap.Int("failed", countFailed(outcomes)))
	e.report(ctx, total, total, fmt.Sprintf("Complete in %.2fs!", elapsed))

	res = &models.AnalysisResult{Sections: sections}
	e.analyses.Set(key, res)
	return res
}

// AnalyzeChunk runs one chunk through prompt, model and post-processing.
// Failures and panics come back as an unsuccessful outcome carrying the fallback fragment.
func (e *Engine) AnalyzeChunk(ctx context.Context, chunk models.Chunk) (out models.ChunkOutcome) {
	idx := chunk.ChunkInfo.ChunkIndex
	defer func() {
		if r := recover(); r != nil {
			out = e.failedChunk(chunk, fmt.Errorf("chunk %d panicked: %v", idx, r))
		}
	}()

	textOnly := util.TextOnly(chunk)
	size := util.EstimateChunkSize(textOnly)
	fields := []zap.Field{
		zap.Int("chunk", idx+1), zap.Int("total", chunk.ChunkInfo.TotalChunks),
		zap.Int("chars", size.TotalChars), zap.Int("est_tokens", size.EstimatedTokens),
	}
	if size.IsLarge {
		e.log.Warn("large chunk may hit token limits", fields...)
	} else {
		e.log.Debug("analyzing chunk", fields...)
	}

	prompt := prompts.Analysis(textOnly)
	if e.opts.FocusMode {
		prompt = prompts.AnalysisFocus(textOnly)
	}
	raw, err := e.Invoke(ctx, prompt, models.CategoryAnalysis)
	if err != nil {
		return e.failedChunk(chunk, err)
	}
	html := render.InjectImages(render.StripCodeFence(raw), chunk)
	return models.ChunkOutcome{Index: idx, HTML: html, Success: true}
}

func (e *Engine) failedChunk(chunk models.Chunk, err error) models.ChunkOutcome {
	e.log.Error("chunk failed", zap.Int("chunk", chunk.ChunkInfo.ChunkIndex+1), zap.Error(err))
	return models.ChunkOutcome{
		Index:   chunk.ChunkInfo.ChunkIndex,
		HTML:    render.FallbackFragment(chunk, err),
		Success: false,
		Error:   err.Error(),
	}
}

// report runs on chunk goroutines as well, so a misbehaving reporter must not
// take the process down with it.
func (e *Engine) report(ctx context.Context, current, total int, msg string) {
	if e.progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("progress reporter panicked", zap.Int("current", current), zap.Int("total", total), zap.Any("panic", r))
		}
	}()
	update := models.ProgressUpdate{AnalysisID: AnalysisIDFrom(ctx), Current: current, Total: total, Message: msg}
	if err := e.progress.Report(ctx, update); err != nil {
		e.log.Warn("progress update not delivered", zap.Error(err))
	}
}

func chunkStatus(out models.ChunkOutcome, chunk models.Chunk, done, total int) string {
	if !out.Success {
		return fmt.Sprintf("Error in chunk %d, continuing...", chunk.ChunkInfo.ChunkIndex+1)
	}
	title := "Section"
	if s, ok := chunk.FirstSection(); ok && s.Title != "" {
		title = s.Title
	}
	return fmt.Sprintf("Completed %d/%d: %s", done, total, title)
}

func countFailed(outcomes []models.ChunkOutcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.Success {
			n++
		}
	}
	return n
}
