package render

import (
	"strings"

	"papermind/internal/models"
)

// InjectImages puts the chunk's figures back into the generated fragment,
// before the first </footer>, else the first </section>, else at the end.
func InjectImages(html string, chunk models.Chunk) string {
	var figures strings.Builder
	for _, s := range chunk.Sections {
		for _, img := range s.Images {
			figures.WriteString(img.HTML)
		}
	}
	if figures.Len() == 0 {
		return html
	}
	block := `<div class="section-images">` + figures.String() + `</div>`
	for _, tag := range []string{"</footer>", "</section>"} {
		if i := strings.Index(html, tag); i >= 0 {
			return html[:i] + block + html[i:]
		}
	}
	return html + block
}
