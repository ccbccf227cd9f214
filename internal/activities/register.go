package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ExtractPaperActivity)
	w.RegisterActivity(a.AnalyzeChunkActivity)
	w.RegisterActivity(a.SaveAnalysisActivity)
	w.RegisterActivity(a.WriteAnalysisArtifactsActivity)
}
