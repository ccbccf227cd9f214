package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPaperURL(t *testing.T) {
	cases := map[string]bool{
		"https://arxiv.org/abs/1706.03762":                 true,
		"https://www.nature.com/articles/s41586-021-03819": true,
		"https://link.springer.com/article/10.1007/x":      true,
		"https://dl.acm.org/doi/10.1145/3442188":           true,
		"http://IEEEXPLORE.ieee.org/document/1":            true,
		"https://scholar.google.com/scholar?q=attention":   true,
		"https://scholar.google.com.evil.example/":         false,
		"https://notarxiv.org/abs/1":                       false,
		"https://example.org/?next=arxiv.org":              false,
		"file:///tmp/arxiv.org.pdf":                        false,
		"sha256:abc":                                       false,
		"":                                                 false,
	}
	for raw, want := range cases {
		assert.Equal(t, want, IsPaperURL(raw), raw)
	}
}
