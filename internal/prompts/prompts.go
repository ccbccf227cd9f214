package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"papermind/internal/models"
)

const Version = "v1"

const analysisSystemTemplate = `You rebuild research papers into a readable web page, one section at a time.
For every request you return exactly one self-contained HTML <section> element and nothing else.
Use only the text you are given. Never invent facts, numbers, images or links.
No scripts, iframes, inline styles or external resources.`

const questionSystemTemplate = `You are a research assistant answering questions about a single paper.
Ground every answer in the title and abstract you are given, and say so when they do not contain the answer.
Keep answers short and plain.`

const analysisTemplate = `Rewrite the paper section below as one HTML element.

Output structure (omit empty blocks):
<section class="paper-chunk" data-section-id="{id}" data-section-title="{title}" data-paper-title="{paper title}">
  <header><h3>{section title}</h3></header>
  <div class="essentials"><ul>
    <li><strong>Label:</strong> two or three sentences explaining it.</li>
  </ul></div>
  <details class="more"><summary>Details</summary><ul><li>...</li></ul></details>
  <footer>{source link when a url is given}</footer>
</section>

Extract in priority order: the section's contribution, mechanisms and definitions, architecture,
concrete settings, key equations (verbatim, inline math in <code class="math">, block math in
<pre class="math">), numeric results, implementation details, design rationale.
Aim for 8-15 essentials and 5-10 details. Skip literature digressions and boilerplate.
Do not include images or data URIs.

Input (JSON):
%s

Now output the HTML element.`

const analysisFocusTemplate = `Rewrite the paper section below as one compact HTML element for a reader who needs
short, scannable content.

Output structure (omit empty blocks):
<section class="paper-chunk focus" data-section-title="{title}">
  <header><h3>{section title}</h3></header>
  <p class="tldr"><strong>TL;DR:</strong> one sentence.</p>
  <div class="essentials"><ul>
    <li><strong>Label:</strong> one short sentence.</li>
  </ul></div>
  <footer>{source link when a url is given}</footer>
</section>

Use at most 5 bullets with short words and no nested lists. Bold the single most important term
in each bullet. Use only the given text. Do not include images or data URIs.

Input (JSON):
%s

Now output the HTML element.`

func SystemInstructions(c models.Category) string {
	if c == models.CategoryAnalysis {
		return analysisSystemTemplate
	}
	return questionSystemTemplate
}

// Analysis builds the per-chunk prompt. The chunk should already be text-only.
func Analysis(chunk models.Chunk) string {
	return fmt.Sprintf(analysisTemplate, Payload(chunk))
}

func AnalysisFocus(chunk models.Chunk) string {
	return fmt.Sprintf(analysisFocusTemplate, Payload(chunk))
}

func Question(question string, doc models.PaperDocument) string {
	return fmt.Sprintf(`Based on this research paper, answer the following question: %q

Paper context:
Title: %s
Abstract: %s

Answer clearly from the paper's content. If the paper does not answer it, say so.`,
		question, doc.Title, doc.Abstract.Text)
}

func ProcessText(instruction, text string) string {
	return fmt.Sprintf("%s\n\nText: %q", strings.TrimSpace(instruction), text)
}

func Diagram(concept string, doc models.PaperDocument) string {
	return fmt.Sprintf(`Describe a diagram or flowchart that explains this concept: %q

Paper: %s
Abstract: %s

Cover the main components, how they relate, the flow or process steps, and the key labels.`,
		concept, doc.Title, doc.Abstract.Text)
}

func Explain(text string) string {
	return fmt.Sprintf("Explain this highlighted text in simple terms, focusing on the key concepts and why they matter:\n\n%q", text)
}

func Simplify(text string) string {
	return fmt.Sprintf("Rewrite this highlighted text so a general audience can follow it:\n\n%q", text)
}

func Summarize(text string) string {
	return fmt.Sprintf("Summarize this highlighted text in a few sentences, keeping the main points:\n\n%q", text)
}

func QuickSummary(abstract string) string {
	return fmt.Sprintf("Summarize this research paper abstract:\n\n%s\n\nGive a brief overview of the main contribution and key findings.", strings.TrimSpace(abstract))
}

type chunkPayload struct {
	Title     string           `json:"title"`
	Abstract  models.Abstract  `json:"abstract"`
	URL       string           `json:"url,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Sections  []models.Section `json:"sections"`
}

// Payload serializes the chunk for the model, leaving out chunk bookkeeping.
func Payload(chunk models.Chunk) string {
	b, err := json.Marshal(chunkPayload{
		Title:     chunk.Title,
		Abstract:  chunk.Abstract,
		URL:       chunk.URL,
		Timestamp: chunk.Timestamp,
		Sections:  chunk.Sections,
	})
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ParsePayload recovers the chunk embedded by Analysis or AnalysisFocus.
func ParsePayload(prompt string) (models.Chunk, bool) {
	start := strings.Index(prompt, `{"title"`)
	end := strings.LastIndex(prompt, "}")
	if start < 0 || end <= start {
		return models.Chunk{}, false
	}
	var p chunkPayload
	if err := json.Unmarshal([]byte(prompt[start:end+1]), &p); err != nil {
		return models.Chunk{}, false
	}
	return models.Chunk{Title: p.Title, Abstract: p.Abstract, URL: p.URL, Timestamp: p.Timestamp, Sections: p.Sections}, true
}
