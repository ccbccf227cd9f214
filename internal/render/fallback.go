package render

import (
	"fmt"
	"html"
	"strings"

	"papermind/internal/models"
	"papermind/internal/util"
)

const excerptRunes = 1000

// FallbackFragment is the card shown in place of a section the model could not process.
func FallbackFragment(chunk models.Chunk, cause error) string {
	title := "Section"
	excerpt := "No text available"
	if s, ok := chunk.FirstSection(); ok {
		if strings.TrimSpace(s.Title) != "" {
			title = s.Title
		}
		if s.Text != "" {
			excerpt = util.Truncate(s.Text, excerptRunes)
		}
	}
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	t := html.EscapeString(title)
	return fmt.Sprintf(`<section class="paper-chunk error-chunk" data-section-title="%s">
  <header>
    <h3>%s</h3>
  </header>
  <div class="essentials">
    <p class="error-message">This section failed to process. %s</p>
    <details>
      <summary>View original text</summary>
      <p>%s...</p>
    </details>
  </div>
</section>`, t, t, html.EscapeString(msg), html.EscapeString(excerpt))
}

var genericKeyPoints = []string{
	"Key findings from the research",
	"Methodology employed",
	"Results obtained",
}

// FallbackSummary builds a model-free summary from the title and abstract.
func FallbackSummary(doc models.PaperDocument) *models.FallbackSummary {
	points := make([]string, 0, 4)
	for _, s := range strings.Split(doc.Abstract.Text, ".") {
		s = strings.TrimSpace(s)
		if len(s) > 20 {
			points = append(points, s)
		}
		if len(points) == 4 {
			break
		}
	}
	if len(points) == 0 {
		points = append(points, genericKeyPoints...)
	}
	return &models.FallbackSummary{
		Overview:     fmt.Sprintf("This paper titled %q presents research findings in the field. The abstract provides an overview of the study's objectives and methodology.", doc.Title),
		KeyPoints:    points,
		Methodology:  "The paper describes a systematic research approach with clear methodology for data collection and analysis.",
		Results:      "The research presents significant findings that contribute to the field's understanding of the topic.",
		Implications: "This work has important implications for future research and practical applications in the field.",
	}
}
