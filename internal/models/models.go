package models

import (
	"bytes"
	"encoding/json"
)

type Category string

const (
	CategoryAnalysis Category = "analysis"
	CategoryQuestion Category = "question"
)

func Categories() []Category {
	return []Category{CategoryAnalysis, CategoryQuestion}
}

type ImageRef struct {
	Type string `json:"type"`
	HTML string `json:"html"`
}

type Abstract struct {
	Text   string     `json:"text"`
	Images []ImageRef `json:"images,omitempty"`
}

// UnmarshalJSON accepts both a bare string and an {text, images} object.
func (a *Abstract) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = Abstract{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Abstract{Text: s}
		return nil
	}
	type plain Abstract
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*a = Abstract(p)
	return nil
}

type Section struct {
	ID     string     `json:"id,omitempty"`
	Title  string     `json:"title"`
	Text   string     `json:"text"`
	Images []ImageRef `json:"images,omitempty"`
}

type PaperDocument struct {
	Title     string    `json:"title"`
	Abstract  Abstract  `json:"abstract"`
	URL       string    `json:"url"`
	Timestamp string    `json:"timestamp,omitempty"`
	Sections  []Section `json:"sections,omitempty"`
}

type ChunkInfo struct {
	ChunkIndex   int    `json:"chunkIndex"`
	TotalChunks  int    `json:"totalChunks"`
	SectionRange [2]int `json:"sectionRange"`
}

type Chunk struct {
	Title     string    `json:"title"`
	Abstract  Abstract  `json:"abstract"`
	URL       string    `json:"url"`
	Timestamp string    `json:"timestamp,omitempty"`
	Sections  []Section `json:"sections"`
	ChunkInfo ChunkInfo `json:"chunkInfo"`
}

// FirstSection returns the chunk's leading section, or false when it has none.
func (c Chunk) FirstSection() (Section, bool) {
	if len(c.Sections) == 0 {
		return Section{}, false
	}
	return c.Sections[0], true
}

type ChunkSize struct {
	TotalChars      int  `json:"total_chars"`
	TextChars       int  `json:"text_chars"`
	ImageCount      int  `json:"image_count"`
	EstimatedTokens int  `json:"estimated_tokens"`
	IsLarge         bool `json:"is_large"`
}

type ChunkOutcome struct {
	Index   int    `json:"index"`
	HTML    string `json:"html"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type FallbackSummary struct {
	Overview     string   `json:"overview"`
	KeyPoints    []string `json:"keyPoints"`
	Methodology  string   `json:"methodology"`
	Results      string   `json:"results"`
	Implications string   `json:"implications"`
}

// AnalysisResult holds one HTML fragment per section, in section order.
// Fallback is only set when the whole pipeline failed structurally.
type AnalysisResult struct {
	Sections []string         `json:"sections"`
	Fallback *FallbackSummary `json:"fallback,omitempty"`
}

func (r *AnalysisResult) Degraded() bool {
	return r != nil && r.Fallback != nil
}

type ProgressUpdate struct {
	AnalysisID string `json:"analysis_id,omitempty"`
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	Message    string `json:"message"`
}

// LLMCall is one prompt attempt as recorded in the audit log.
type LLMCall struct {
	CallID       string `json:"call_id"`
	Operation    string `json:"operation"`
	AnalysisID   string `json:"analysis_id,omitempty"`
	ProviderName string `json:"provider_name"`
	Model        string `json:"model"`
	PromptHash   string `json:"prompt_hash"`
	Attempt      int    `json:"attempt"`
	Status       string `json:"status"`
	ErrorType    string `json:"error_type,omitempty"`
	Error        string `json:"error,omitempty"`
	LatencyMS    int64  `json:"latency_ms"`
}

const (
	CallStatusOK     = "ok"
	CallStatusFailed = "failed"
)
