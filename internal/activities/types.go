package activities

import "papermind/internal/models"

type ExtractPaperInput struct {
	PDFPath string `json:"pdf_path"`
	URL     string `json:"url,omitempty"`
}

type ExtractPaperOutput struct {
	Paper models.PaperDocument `json:"paper"`
}

type AnalyzeChunkInput struct {
	AnalysisID string       `json:"analysis_id"`
	Chunk      models.Chunk `json:"chunk"`
}

type SaveAnalysisInput struct {
	AnalysisID   string                 `json:"analysis_id"`
	URL          string                 `json:"url"`
	Title        string                 `json:"title"`
	Status       string                 `json:"status"`
	FailedChunks int                    `json:"failed_chunks"`
	Result       *models.AnalysisResult `json:"result,omitempty"`
}

type WriteAnalysisArtifactsInput struct {
	AnalysisID string                `json:"analysis_id"`
	Paper      models.PaperDocument  `json:"paper"`
	Result     models.AnalysisResult `json:"result"`
}

type WriteAnalysisArtifactsOutput struct {
	HTMLPath string `json:"html_path"`
}
