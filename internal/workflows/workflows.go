package workflows

import (
	"errors"
	"sort"
	"strings"
	"time"

	"papermind/internal/activities"
	"papermind/internal/models"
	"papermind/internal/render"
	"papermind/internal/storage"
	"papermind/internal/util"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetAnalysisProgress = "GetAnalysisProgress"

var errNoPaper = errors.New("paper or pdf_path is required")

// PaperAnalysisWorkflow is the durable counterpart of Engine.Analyze. Every
// chunk runs as its own activity and the fragments are reassembled in
// section order once all of them have settled.
func PaperAnalysisWorkflow(ctx workflow.Context, input PaperAnalysisInput) (PaperAnalysisOutput, error) {
	progress := AnalysisProgress{
		AnalysisID:  input.AnalysisID,
		Status:      storage.AnalysisStatusRunning,
		CurrentStep: "init",
		PerChunk:    map[int]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetAnalysisProgress, func() (AnalysisProgress, error) {
		return progress, nil
	}); err != nil {
		return PaperAnalysisOutput{}, err
	}

	ao := workflow.ActivityOptions{
		// the engine retries inside the activity, so one chunk may take
		// several prompt timeouts
		StartToCloseTimeout: 15 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	out := PaperAnalysisOutput{AnalysisID: input.AnalysisID}

	progress.CurrentStep = "load_paper"
	var doc models.PaperDocument
	switch {
	case input.Paper != nil:
		doc = *input.Paper
	case input.PDFPath != "":
		var extracted activities.ExtractPaperOutput
		err := workflow.ExecuteActivity(ctx, "ExtractPaperActivity", activities.ExtractPaperInput{PDFPath: input.PDFPath, URL: input.URL}).Get(ctx, &extracted)
		if err != nil {
			if !isNoTextError(err) {
				return PaperAnalysisOutput{}, err
			}
			progress.Status = storage.AnalysisStatusFailed
			progress.FailReason = "no extractable text found (OCR not enabled)"
			_ = workflow.ExecuteActivity(ctx, "SaveAnalysisActivity", activities.SaveAnalysisInput{
				AnalysisID: input.AnalysisID,
				URL:        input.URL,
				Status:     storage.AnalysisStatusFailed,
			}).Get(ctx, nil)
			out.Status = progress.Status
			out.FailReason = progress.FailReason
			return out, nil
		}
		doc = extracted.Paper
	default:
		return PaperAnalysisOutput{}, temporal.NewNonRetryableApplicationError(errNoPaper.Error(), "InvalidInput", errNoPaper)
	}
	progress.Title = doc.Title

	_ = workflow.ExecuteActivity(ctx, "SaveAnalysisActivity", activities.SaveAnalysisInput{
		AnalysisID: input.AnalysisID,
		URL:        doc.URL,
		Title:      doc.Title,
		Status:     storage.AnalysisStatusRunning,
	}).Get(ctx, nil)

	progress.CurrentStep = "analyze_chunks"
	chunks := util.ChunkPaper(doc, input.SectionsPerChunk)
	progress.Total = len(chunks)
	batch := input.MaxConcurrent
	if batch <= 0 || batch > len(chunks) {
		batch = len(chunks)
	}

	outcomes := make([]models.ChunkOutcome, 0, len(chunks))
	for i := 0; i < len(chunks); i += batch {
		end := i + batch
		if end > len(chunks) {
			end = len(chunks)
		}
		futures := make([]workflow.Future, 0, end-i)
		for _, chunk := range chunks[i:end] {
			progress.PerChunk[chunk.ChunkInfo.ChunkIndex] = "processing"
			futures = append(futures, workflow.ExecuteActivity(ctx, "AnalyzeChunkActivity", activities.AnalyzeChunkInput{
				AnalysisID: input.AnalysisID,
				Chunk:      chunk,
			}))
		}
		for idx, f := range futures {
			chunk := chunks[i+idx]
			var oc models.ChunkOutcome
			if err := f.Get(ctx, &oc); err != nil {
				oc = models.ChunkOutcome{
					Index: chunk.ChunkInfo.ChunkIndex,
					HTML:  render.FallbackFragment(chunk, err),
					Error: err.Error(),
				}
			}
			progress.Done++
			if oc.Success {
				progress.PerChunk[oc.Index] = "done"
			} else {
				progress.Failed++
				progress.PerChunk[oc.Index] = "failed"
			}
			outcomes = append(outcomes, oc)
		}
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })
	result := &models.AnalysisResult{Sections: make([]string, 0, len(outcomes))}
	for _, oc := range outcomes {
		result.Sections = append(result.Sections, oc.HTML)
	}

	progress.CurrentStep = "save_result"
	if err := workflow.ExecuteActivity(ctx, "SaveAnalysisActivity", activities.SaveAnalysisInput{
		AnalysisID:   input.AnalysisID,
		URL:          doc.URL,
		Title:        doc.Title,
		Status:       storage.AnalysisStatusCompleted,
		FailedChunks: progress.Failed,
		Result:       result,
	}).Get(ctx, nil); err != nil {
		return PaperAnalysisOutput{}, err
	}

	progress.CurrentStep = "write_artifacts"
	_ = workflow.ExecuteActivity(ctx, "WriteAnalysisArtifactsActivity", activities.WriteAnalysisArtifactsInput{
		AnalysisID: input.AnalysisID,
		Paper:      doc,
		Result:     *result,
	}).Get(ctx, nil)

	progress.CurrentStep = "done"
	progress.Status = storage.AnalysisStatusCompleted
	out.Status = progress.Status
	out.FailedChunks = progress.Failed
	out.Result = result
	return out, nil
}

func isNoTextError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "no extractable text")
}
