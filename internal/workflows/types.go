package workflows

import "papermind/internal/models"

type PaperAnalysisInput struct {
	AnalysisID       string                `json:"analysis_id"`
	Paper            *models.PaperDocument `json:"paper,omitempty"`
	PDFPath          string                `json:"pdf_path,omitempty"`
	URL              string                `json:"url,omitempty"`
	SectionsPerChunk int                   `json:"sections_per_chunk,omitempty"`
	MaxConcurrent    int                   `json:"max_concurrent,omitempty"`
}

type PaperAnalysisOutput struct {
	AnalysisID   string                 `json:"analysis_id"`
	Status       string                 `json:"status"`
	FailedChunks int                    `json:"failed_chunks"`
	FailReason   string                 `json:"fail_reason,omitempty"`
	Result       *models.AnalysisResult `json:"result,omitempty"`
}

type AnalysisProgress struct {
	AnalysisID  string         `json:"analysis_id"`
	Title       string         `json:"title,omitempty"`
	Status      string         `json:"status"`
	CurrentStep string         `json:"current_step"`
	Total       int            `json:"total"`
	Done        int            `json:"done"`
	Failed      int            `json:"failed"`
	PerChunk    map[int]string `json:"per_chunk"`
	FailReason  string         `json:"fail_reason,omitempty"`
}
