package util

import (
	"encoding/json"
	"strings"

	"papermind/internal/models"
)

const (
	LargeChunkChars = 50000
	charsPerToken   = 4
)

// ChunkPaper splits doc.Sections into contiguous groups of sectionsPerChunk.
// A document without sections comes back as a single chunk wrapping it unchanged.
func ChunkPaper(doc models.PaperDocument, sectionsPerChunk int) []models.Chunk {
	if sectionsPerChunk <= 0 {
		sectionsPerChunk = 1
	}
	if len(doc.Sections) == 0 {
		return []models.Chunk{{
			Title:     doc.Title,
			Abstract:  doc.Abstract,
			URL:       doc.URL,
			Timestamp: doc.Timestamp,
			Sections:  doc.Sections,
			ChunkInfo: models.ChunkInfo{ChunkIndex: 0, TotalChunks: 1},
		}}
	}
	n := len(doc.Sections)
	total := (n + sectionsPerChunk - 1) / sectionsPerChunk
	out := make([]models.Chunk, 0, total)
	for i := 0; i < n; i += sectionsPerChunk {
		end := i + sectionsPerChunk
		if end > n {
			end = n
		}
		out = append(out, models.Chunk{
			Title:     doc.Title,
			Abstract:  doc.Abstract,
			URL:       doc.URL,
			Timestamp: doc.Timestamp,
			Sections:  doc.Sections[i:end],
			ChunkInfo: models.ChunkInfo{
				ChunkIndex:   i / sectionsPerChunk,
				TotalChunks:  total,
				SectionRange: [2]int{i, end},
			},
		})
	}
	return out
}

// TextOnly returns a copy of chunk whose abstract and sections carry no images.
func TextOnly(chunk models.Chunk) models.Chunk {
	chunk.Abstract = models.Abstract{Text: chunk.Abstract.Text}
	sections := make([]models.Section, len(chunk.Sections))
	for i, s := range chunk.Sections {
		sections[i] = models.Section{ID: s.ID, Title: s.Title, Text: s.Text}
	}
	chunk.Sections = sections
	return chunk
}

func EstimateChunkSize(chunk models.Chunk) models.ChunkSize {
	b, _ := json.Marshal(chunk)
	texts := make([]string, 0, len(chunk.Sections))
	images := 0
	for _, s := range chunk.Sections {
		texts = append(texts, s.Text)
		images += len(s.Images)
	}
	total := len(b)
	return models.ChunkSize{
		TotalChars:      total,
		TextChars:       len(strings.Join(texts, " ")),
		ImageCount:      images,
		EstimatedTokens: (total + charsPerToken - 1) / charsPerToken,
		IsLarge:         total > LargeChunkChars,
	}
}
