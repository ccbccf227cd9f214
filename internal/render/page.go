package render

import (
	"fmt"
	"html"
	"strings"

	"papermind/internal/models"
)

// Page wraps an analysis result in a standalone HTML document.
func Page(doc models.PaperDocument, res *models.AnalysisResult) string {
	var b strings.Builder
	title := html.EscapeString(doc.Title)
	fmt.Fprintf(&b, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", title)
	fmt.Fprintf(&b, "<article class=\"paper-analysis\" data-url=\"%s\">\n<h1>%s</h1>\n", html.EscapeString(doc.URL), title)
	if res != nil {
		for _, s := range res.Sections {
			b.WriteString(s)
			b.WriteByte('\n')
		}
		if res.Fallback != nil {
			writeSummary(&b, res.Fallback)
		}
	}
	b.WriteString("</article>\n</body>\n</html>\n")
	return b.String()
}

func writeSummary(b *strings.Builder, s *models.FallbackSummary) {
	b.WriteString("<section class=\"fallback-summary\">\n")
	fmt.Fprintf(b, "<p class=\"overview\">%s</p>\n<ul>\n", html.EscapeString(s.Overview))
	for _, p := range s.KeyPoints {
		fmt.Fprintf(b, "<li>%s</li>\n", html.EscapeString(p))
	}
	b.WriteString("</ul>\n")
	fmt.Fprintf(b, "<p class=\"methodology\">%s</p>\n", html.EscapeString(s.Methodology))
	fmt.Fprintf(b, "<p class=\"results\">%s</p>\n", html.EscapeString(s.Results))
	fmt.Fprintf(b, "<p class=\"implications\">%s</p>\n", html.EscapeString(s.Implications))
	b.WriteString("</section>\n")
}
