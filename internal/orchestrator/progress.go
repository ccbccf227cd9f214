package orchestrator

import (
	"context"

	"papermind/internal/models"
)

// ProgressReporter receives best-effort analysis progress. Errors are logged by the engine.
type ProgressReporter interface {
	Report(ctx context.Context, update models.ProgressUpdate) error
}

type ReporterFunc func(ctx context.Context, update models.ProgressUpdate) error

func (f ReporterFunc) Report(ctx context.Context, update models.ProgressUpdate) error {
	return f(ctx, update)
}

// MultiReporter fans an update out to every reporter and returns the first error.
type MultiReporter []ProgressReporter

func (m MultiReporter) Report(ctx context.Context, update models.ProgressUpdate) error {
	var first error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(ctx, update); err != nil && first == nil {
			first = err
		}
	}
	return first
}
