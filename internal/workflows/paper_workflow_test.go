package workflows

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"papermind/internal/activities"
	"papermind/internal/models"
	"papermind/internal/storage"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerAnalysisActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "ExtractPaperActivity", func(context.Context, activities.ExtractPaperInput) (activities.ExtractPaperOutput, error) {
		return activities.ExtractPaperOutput{}, nil
	})
	registerActivityName(env, "AnalyzeChunkActivity", func(context.Context, activities.AnalyzeChunkInput) (models.ChunkOutcome, error) {
		return models.ChunkOutcome{}, nil
	})
	registerActivityName(env, "SaveAnalysisActivity", func(context.Context, activities.SaveAnalysisInput) error { return nil })
	registerActivityName(env, "WriteAnalysisArtifactsActivity", func(context.Context, activities.WriteAnalysisArtifactsInput) (activities.WriteAnalysisArtifactsOutput, error) {
		return activities.WriteAnalysisArtifactsOutput{}, nil
	})
}

func paperWithSections(n int) *models.PaperDocument {
	doc := &models.PaperDocument{Title: "Paper", URL: "https://example.org/p", Abstract: models.Abstract{Text: "abs"}}
	for i := 0; i < n; i++ {
		doc.Sections = append(doc.Sections, models.Section{Title: fmt.Sprintf("S%d", i), Text: "body"})
	}
	return doc
}

func TestPaperAnalysisWorkflowOrdersSections(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(PaperAnalysisWorkflow)
	registerAnalysisActivities(env)

	var saved []activities.SaveAnalysisInput
	env.OnActivity("AnalyzeChunkActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.AnalyzeChunkInput) (models.ChunkOutcome, error) {
			idx := in.Chunk.ChunkInfo.ChunkIndex
			return models.ChunkOutcome{Index: idx, HTML: fmt.Sprintf("<section>%s</section>", in.Chunk.Sections[0].Title), Success: true}, nil
		})
	env.OnActivity("SaveAnalysisActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.SaveAnalysisInput) error {
			saved = append(saved, in)
			return nil
		})
	env.OnActivity("WriteAnalysisArtifactsActivity", mock.Anything, mock.Anything).Return(activities.WriteAnalysisArtifactsOutput{HTMLPath: "/tmp/a.html"}, nil)

	env.ExecuteWorkflow(PaperAnalysisWorkflow, PaperAnalysisInput{AnalysisID: "a1", Paper: paperWithSections(5), MaxConcurrent: 2})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out PaperAnalysisOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, storage.AnalysisStatusCompleted, out.Status)
	require.Zero(t, out.FailedChunks)
	require.Equal(t, []string{
		"<section>S0</section>",
		"<section>S1</section>",
		"<section>S2</section>",
		"<section>S3</section>",
		"<section>S4</section>",
	}, out.Result.Sections)

	require.Len(t, saved, 2)
	require.Equal(t, storage.AnalysisStatusRunning, saved[0].Status)
	require.Equal(t, storage.AnalysisStatusCompleted, saved[1].Status)
	require.Equal(t, out.Result.Sections, saved[1].Result.Sections)

	val, err := env.QueryWorkflow(QueryGetAnalysisProgress)
	require.NoError(t, err)
	var progress AnalysisProgress
	require.NoError(t, val.Get(&progress))
	require.Equal(t, 5, progress.Total)
	require.Equal(t, 5, progress.Done)
	require.Equal(t, "done", progress.CurrentStep)
}

func TestPaperAnalysisWorkflowActivityFailureBecomesFallback(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(PaperAnalysisWorkflow)
	registerAnalysisActivities(env)

	env.OnActivity("AnalyzeChunkActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.AnalyzeChunkInput) (models.ChunkOutcome, error) {
			idx := in.Chunk.ChunkInfo.ChunkIndex
			if idx == 1 {
				return models.ChunkOutcome{}, errors.New("worker lost")
			}
			return models.ChunkOutcome{Index: idx, HTML: "<section>ok</section>", Success: true}, nil
		})
	env.OnActivity("SaveAnalysisActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("WriteAnalysisArtifactsActivity", mock.Anything, mock.Anything).Return(activities.WriteAnalysisArtifactsOutput{}, errors.New("disk full"))

	env.ExecuteWorkflow(PaperAnalysisWorkflow, PaperAnalysisInput{AnalysisID: "a2", Paper: paperWithSections(3)})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out PaperAnalysisOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, 1, out.FailedChunks)
	require.Len(t, out.Result.Sections, 3)
	require.Equal(t, "<section>ok</section>", out.Result.Sections[0])
	require.Contains(t, out.Result.Sections[1], "error-chunk")
	require.Contains(t, out.Result.Sections[1], "<h3>S1</h3>")
	require.Equal(t, "<section>ok</section>", out.Result.Sections[2])
}

func TestPaperAnalysisWorkflowNoTextFailsGracefully(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(PaperAnalysisWorkflow)
	registerAnalysisActivities(env)

	env.OnActivity("ExtractPaperActivity", mock.Anything, activities.ExtractPaperInput{PDFPath: "/tmp/p.pdf"}).Return(activities.ExtractPaperOutput{}, errors.New("no extractable text found in PDF"))
	env.OnActivity("SaveAnalysisActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(PaperAnalysisWorkflow, PaperAnalysisInput{AnalysisID: "a3", PDFPath: "/tmp/p.pdf"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out PaperAnalysisOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, storage.AnalysisStatusFailed, out.Status)
	require.Contains(t, out.FailReason, "no extractable text")
	require.Nil(t, out.Result)
}

func TestPaperAnalysisWorkflowRequiresInput(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(PaperAnalysisWorkflow)
	registerAnalysisActivities(env)

	env.ExecuteWorkflow(PaperAnalysisWorkflow, PaperAnalysisInput{AnalysisID: "a4"})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}
