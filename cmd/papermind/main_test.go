package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"papermind/internal/config"
	"papermind/internal/models"

	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{LLMProviders: "mock", SessionIdleTimeout: time.Minute, MaxRetries: 1, LogLevel: "warn"}
}

func writePaper(t *testing.T) string {
	t.Helper()
	doc := models.PaperDocument{
		Title:    "Sparse Attention",
		URL:      "https://example.org/cli",
		Abstract: models.Abstract{Text: "We make attention sparse."},
		Sections: []models.Section{{Title: "Introduction", Text: "Attention is quadratic."}, {Title: "Method", Text: "Drop pairs."}},
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "paper.json")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd(testConfig())
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestAnalyzeWritesReport(t *testing.T) {
	paper := writePaper(t)
	dir := t.TempDir()
	outPath := filepath.Join(dir, "report.html")
	jsonPath := filepath.Join(dir, "report.json")

	_, stderr, err := execute(t, "analyze", "--paper", paper, "--out", outPath, "--json", jsonPath)
	require.NoError(t, err)
	require.Contains(t, stderr, "[0/2] Starting parallel analysis...")
	require.Contains(t, stderr, "wrote "+outPath)

	page, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Less(t, strings.Index(string(page), "Introduction"), strings.Index(string(page), "Method"))

	var res models.AnalysisResult
	b, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &res))
	require.Len(t, res.Sections, 2)
}

func TestAnalyzeRequiresInput(t *testing.T) {
	_, _, err := execute(t, "analyze")
	require.Error(t, err)
}

func TestAskAndText(t *testing.T) {
	paper := writePaper(t)
	out, _, err := execute(t, "ask", "--paper", paper, "What", "is", "new?")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "Mock response:"))

	out, _, err = execute(t, "text", "--action", "simplify", "dense", "prose")
	require.NoError(t, err)
	require.NotEmpty(t, strings.TrimSpace(out))

	_, _, err = execute(t, "text", "--action", "translate", "x")
	require.Error(t, err)
}

func TestDiagramToFile(t *testing.T) {
	paper := writePaper(t)
	outPath := filepath.Join(t.TempDir(), "d.mmd")
	_, _, err := execute(t, "diagram", "--paper", paper, "--out", outPath, "attention")
	require.NoError(t, err)
	b, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.NotEmpty(t, b)
}
