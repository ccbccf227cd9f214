package render

import (
	"errors"
	"strings"
	"testing"

	"papermind/internal/models"

	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"```html\nX\n```":              "X",
		"```\nX\n```":                  "X",
		"X":                            "X",
		"```HTML\n<section/>\n```":     "<section/>",
		"```html<section/>```":         "<section/>",
		"```<section/>\n```":           "<section/>",
		"```html\n<section/>":          "<section/>",
		"  \n```html\n<p>a</p>\n```\n": "<p>a</p>",
	}
	for in, want := range cases {
		require.Equal(t, want, StripCodeFence(in), "input %q", in)
	}
	require.Equal(t, "  plain  ", StripCodeFence("  plain  "))
}

func chunkWithImages(imgs ...string) models.Chunk {
	sec := models.Section{Title: "Method", Text: "body"}
	for _, h := range imgs {
		sec.Images = append(sec.Images, models.ImageRef{Type: "figure", HTML: h})
	}
	return models.Chunk{Sections: []models.Section{sec}}
}

func TestInjectImagesBeforeFooter(t *testing.T) {
	out := InjectImages("<section><footer></footer></section>", chunkWithImages("<A/>", "<B/>"))
	require.Equal(t, `<section><footer><div class="section-images"><A/><B/></div></footer></section>`, out)
}

func TestInjectImagesFallbacks(t *testing.T) {
	c := chunkWithImages("<A/>")
	require.Equal(t, `<section><p/><div class="section-images"><A/></div></section>`, InjectImages("<section><p/></section>", c))
	require.Equal(t, `<p/><div class="section-images"><A/></div>`, InjectImages("<p/>", c))
	require.Equal(t, "<section></section>", InjectImages("<section></section>", chunkWithImages()))
}

func TestFallbackFragment(t *testing.T) {
	c := models.Chunk{Sections: []models.Section{{Title: "Results & Discussion", Text: strings.Repeat("x", 1500)}}}
	out := FallbackFragment(c, errors.New("model timed out"))
	require.Contains(t, out, `data-section-title="Results &amp; Discussion"`)
	require.Contains(t, out, "<h3>Results &amp; Discussion</h3>")
	require.Contains(t, out, "model timed out")
	require.Contains(t, out, strings.Repeat("x", 1000)+"...")
	require.NotContains(t, out, strings.Repeat("x", 1001))

	empty := FallbackFragment(models.Chunk{}, nil)
	require.Contains(t, empty, "<h3>Section</h3>")
	require.Contains(t, empty, "No text available...")
}

func TestFallbackSummary(t *testing.T) {
	doc := models.PaperDocument{
		Title:    "Attention",
		Abstract: models.Abstract{Text: "We propose a new simple network architecture. It is short. Experiments on two translation tasks show superiority."},
	}
	s := FallbackSummary(doc)
	require.Contains(t, s.Overview, `"Attention"`)
	require.Equal(t, []string{
		"We propose a new simple network architecture",
		"Experiments on two translation tasks show superiority",
	}, s.KeyPoints)

	require.Equal(t, genericKeyPoints, FallbackSummary(models.PaperDocument{Title: "T"}).KeyPoints)
}

func TestPage(t *testing.T) {
	doc := models.PaperDocument{Title: "A <b> Study", URL: "https://x/1"}
	out := Page(doc, &models.AnalysisResult{Sections: []string{"<section>one</section>", "<section>two</section>"}})
	require.Contains(t, out, "<title>A &lt;b&gt; Study</title>")
	require.Less(t, strings.Index(out, "one"), strings.Index(out, "two"))
	require.NotContains(t, out, "fallback-summary")

	degraded := Page(doc, &models.AnalysisResult{Fallback: FallbackSummary(doc)})
	require.Contains(t, degraded, `class="fallback-summary"`)
	require.Contains(t, degraded, "Methodology employed")
}
