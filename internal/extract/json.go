package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"papermind/internal/models"
)

var ErrEmptyPaper = errors.New("paper has no title, abstract or sections")

// LoadJSON decodes a paper in the shape the browser extension posts. The
// abstract may be a bare string or an {text, images} object.
func LoadJSON(r io.Reader) (models.PaperDocument, error) {
	var doc models.PaperDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return models.PaperDocument{}, fmt.Errorf("decode paper: %w", err)
	}
	if err := Validate(doc); err != nil {
		return models.PaperDocument{}, err
	}
	return doc, nil
}

func Validate(doc models.PaperDocument) error {
	if strings.TrimSpace(doc.Title) == "" && strings.TrimSpace(doc.Abstract.Text) == "" && len(doc.Sections) == 0 {
		return ErrEmptyPaper
	}
	return nil
}
