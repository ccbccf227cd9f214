package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePaper = `Attention Is Mostly What You Need
Jane Roe, John Doe
University of Somewhere

Abstract
We study attention.
It works well.

1 Introduction
Transformers are everywhere.
2.1 Experimental Setup
We train on eight GPUs.
IV. RESULTS
Accuracy improved by 3 points.
References
[1] Vaswani et al.
`

func TestParseTextHeadings(t *testing.T) {
	doc := ParseText(samplePaper, "https://arxiv.org/abs/1")
	require.Equal(t, "Attention Is Mostly What You Need", doc.Title)
	require.Equal(t, "https://arxiv.org/abs/1", doc.URL)
	require.Equal(t, "We study attention. It works well.", doc.Abstract.Text)

	require.Len(t, doc.Sections, 4)
	require.Equal(t, "1", doc.Sections[0].ID)
	require.Equal(t, "1 Introduction", doc.Sections[0].Title)
	require.Equal(t, "Transformers are everywhere.", doc.Sections[0].Text)
	require.Equal(t, "2.1", doc.Sections[1].ID)
	require.Equal(t, "IV", doc.Sections[2].ID)
	require.Equal(t, "Accuracy improved by 3 points.", doc.Sections[2].Text)
	require.Equal(t, "References", doc.Sections[3].Title)
}

func TestParseTextInlineAbstract(t *testing.T) {
	doc := ParseText("Title\nAbstract: short summary here.\n1 Intro\nbody", "u")
	require.Equal(t, "short summary here.", doc.Abstract.Text)
	require.Len(t, doc.Sections, 1)
}

func TestParseTextWithoutHeadings(t *testing.T) {
	doc := ParseText("Notes\nfirst line\nsecond line", "u")
	require.Equal(t, "Notes", doc.Title)
	require.Len(t, doc.Sections, 1)
	require.Equal(t, "Full Text", doc.Sections[0].Title)
	require.Equal(t, "first line second line", doc.Sections[0].Text)
}

func TestParseTextIgnoresSentencesThatLookNumbered(t *testing.T) {
	doc := ParseText("T\n1 Intro\n3 of the runs failed.\n", "u")
	require.Len(t, doc.Sections, 1)
	require.Equal(t, "3 of the runs failed.", doc.Sections[0].Text)
}

func TestLoadJSON(t *testing.T) {
	doc, err := LoadJSON(strings.NewReader(`{"title":"P","abstract":"plain","url":"u","sections":[{"title":"S","text":"t"}]}`))
	require.NoError(t, err)
	require.Equal(t, "plain", doc.Abstract.Text)
	require.Len(t, doc.Sections, 1)

	doc, err = LoadJSON(strings.NewReader(`{"title":"P","abstract":{"text":"obj","images":[{"type":"figure","html":"<img>"}]}}`))
	require.NoError(t, err)
	require.Equal(t, "obj", doc.Abstract.Text)
	require.Len(t, doc.Abstract.Images, 1)

	_, err = LoadJSON(strings.NewReader(`{}`))
	require.ErrorIs(t, err, ErrEmptyPaper)

	_, err = LoadJSON(strings.NewReader(`{`))
	require.Error(t, err)
}

func TestContentURLIsStable(t *testing.T) {
	a := contentURL([]byte("%PDF-1.4 same bytes"))
	require.Equal(t, a, contentURL([]byte("%PDF-1.4 same bytes")))
	require.NotEqual(t, a, contentURL([]byte("%PDF-1.4 other bytes")))
	require.True(t, strings.HasPrefix(a, "sha256:"))
	require.Len(t, a, len("sha256:")+64)
}

func TestFromPDFMissingFile(t *testing.T) {
	_, err := FromPDF(t.TempDir()+"/missing.pdf", "")
	require.ErrorContains(t, err, "open pdf")
}
