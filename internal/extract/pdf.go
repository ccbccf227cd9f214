package extract

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"papermind/internal/models"
	"papermind/internal/util"

	"github.com/ledongthuc/pdf"
)

const maxTitleRunes = 300

// FromPDF extracts a document from the PDF at path. Without a url the
// document is keyed by the file's content hash, so re-analyzing the same
// file under another name still hits the cache.
func FromPDF(path, url string) (models.PaperDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.PaperDocument{}, fmt.Errorf("open pdf: %w", err)
	}
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return models.PaperDocument{}, fmt.Errorf("open pdf: %w", err)
	}

	reader, err := r.GetPlainText()
	if err != nil {
		return models.PaperDocument{}, fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return models.PaperDocument{}, fmt.Errorf("read extracted text: %w", err)
	}
	text := util.SanitizeText(strings.TrimSpace(buf.String()))
	if text == "" {
		return models.PaperDocument{}, util.ErrNoExtractableText
	}
	if url == "" {
		url = contentURL(raw)
	}
	doc := ParseText(text, url)
	doc.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return doc, nil
}

func contentURL(raw []byte) string {
	return "sha256:" + util.SHA256Hex(raw)
}

var (
	numberedHeading = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+([A-Z][^.!?]{1,80})$`)
	romanHeading    = regexp.MustCompile(`^([IVXL]+)\.\s+([A-Z][A-Za-z0-9 ,:&\-]{1,80})$`)
	abstractHeading = regexp.MustCompile(`(?i)^abstract\b[\s.:\-]*`)
)

var plainHeadings = map[string]struct{}{
	"introduction":     {},
	"background":       {},
	"related work":     {},
	"method":           {},
	"methods":          {},
	"methodology":      {},
	"experiments":      {},
	"results":          {},
	"discussion":       {},
	"conclusion":       {},
	"conclusions":      {},
	"acknowledgments":  {},
	"acknowledgements": {},
	"references":       {},
	"appendix":         {},
}

// ParseText turns extracted plain text into a paper document. The first
// non-empty line is the title, text following an "Abstract" heading is the
// abstract, and numbered or well-known headings open new sections.
func ParseText(text, url string) models.PaperDocument {
	doc := models.PaperDocument{URL: url}
	var (
		abstract   strings.Builder
		body       strings.Builder
		current    *models.Section
		inAbstract bool
	)
	flush := func() {
		if current == nil {
			body.Reset()
			return
		}
		current.Text = strings.TrimSpace(body.String())
		doc.Sections = append(doc.Sections, *current)
		current = nil
		body.Reset()
	}
	appendLine := func(b *strings.Builder, line string) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(line)
	}

	s := bufio.NewScanner(strings.NewReader(text))
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if doc.Title == "" {
			doc.Title = util.Truncate(line, maxTitleRunes)
			continue
		}
		if current == nil && !inAbstract && abstract.Len() == 0 {
			if loc := abstractHeading.FindStringIndex(line); loc != nil {
				inAbstract = true
				body.Reset()
				if rest := strings.TrimSpace(line[loc[1]:]); rest != "" {
					appendLine(&abstract, rest)
				}
				continue
			}
		}
		if id, title, ok := heading(line); ok {
			inAbstract = false
			flush()
			current = &models.Section{ID: id, Title: title}
			continue
		}
		switch {
		case inAbstract:
			appendLine(&abstract, line)
		case current != nil:
			appendLine(&body, line)
		default:
			// author and affiliation lines; dropped once a heading shows up
			appendLine(&body, line)
		}
	}
	if current == nil && body.Len() > 0 {
		current = &models.Section{Title: "Full Text"}
	}
	flush()
	doc.Abstract = models.Abstract{Text: strings.TrimSpace(abstract.String())}
	return doc
}

func heading(line string) (id, title string, ok bool) {
	if len(line) > 100 {
		return "", "", false
	}
	if m := numberedHeading.FindStringSubmatch(line); m != nil {
		return m[1], line, true
	}
	if m := romanHeading.FindStringSubmatch(line); m != nil {
		return m[1], line, true
	}
	if _, known := plainHeadings[strings.ToLower(strings.TrimRight(line, ":"))]; known {
		return "", line, true
	}
	return "", "", false
}
