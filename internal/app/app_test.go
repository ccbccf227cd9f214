package app

import (
	"context"
	"testing"
	"time"

	"papermind/internal/config"
	"papermind/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func TestNewWithMockProvider(t *testing.T) {
	cfg := config.Config{LLMProviders: "mock", SessionIdleTimeout: time.Minute, MaxRetries: 1}
	rt, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer rt.Close(context.Background())

	require.Equal(t, "mock", rt.Provider.Name)
	require.Nil(t, rt.DB)
	require.Nil(t, rt.Analyses)
	require.Nil(t, rt.Audit)
	require.Empty(t, rt.Secondaries)

	res := rt.Engine.Analyze(context.Background(), models.PaperDocument{
		Title:    "P",
		URL:      "https://example.org/app",
		Sections: []models.Section{{Title: "Intro", Text: "hello"}},
	})
	require.Len(t, res.Sections, 1)
	require.True(t, rt.Pool.Has(models.CategoryAnalysis))
}

func TestNewWiresSecondaryProviders(t *testing.T) {
	cfg := config.Config{LLMProviders: "mock|openai:backup|mock", SessionIdleTimeout: time.Minute}
	rt, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer rt.Close(context.Background())

	require.Equal(t, "mock", rt.Provider.Name)
	require.Len(t, rt.Secondaries, 1)
	require.Equal(t, "openai:backup", rt.Secondaries[0].String())
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.Config{LLMProviders: "nope"}, nil)
	require.Error(t, err)
}
