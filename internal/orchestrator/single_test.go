package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"papermind/internal/models"
	"papermind/internal/providers"

	"github.com/stretchr/testify/require"
)

func TestAskQuestionCachesAnswers(t *testing.T) {
	mock := providers.NewMockCapability()
	e, _ := newTestEngine(t, mock, Options{MaxRetries: 2})
	doc := paper("p-q", "Intro")

	a1 := e.AskQuestion(context.Background(), "What is studied?", doc)
	a2 := e.AskQuestion(context.Background(), "What is studied?", doc)
	require.Equal(t, a1, a2)
	require.True(t, strings.HasPrefix(a1, "Mock response:"))
	require.Equal(t, 1, mock.Stats().Prompts)

	e.AskQuestion(context.Background(), "Another?", doc)
	require.Equal(t, 2, mock.Stats().Prompts)
}

func TestAskQuestionApologizesOnFailure(t *testing.T) {
	mock := &providers.MockCapability{Respond: func(string) (string, error) { return "", errors.New("down") }}
	e, _ := newTestEngine(t, mock, Options{MaxRetries: 0})
	doc := paper("p-q2", "Intro")

	require.Equal(t, QuestionApology, e.AskQuestion(context.Background(), "Why?", doc))
	// failures are not cached
	mock.Respond = nil
	require.NotEqual(t, QuestionApology, e.AskQuestion(context.Background(), "Why?", doc))
}

func TestProcessTextAndDiagramFallbacks(t *testing.T) {
	mock := &providers.MockCapability{Respond: func(string) (string, error) { return "", errors.New("down") }}
	e, _ := newTestEngine(t, mock, Options{MaxRetries: 0})

	require.Equal(t, TextApology, e.ProcessText(context.Background(), "Translate to French", "hello"))
	require.Equal(t, TextApology, e.Highlight(context.Background(), ActionSummarize, "hello"))
	require.Nil(t, e.GenerateDiagram(context.Background(), "attention", paper("p-d")))
}

func TestDiagramAndHighlightSucceed(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	mock := &providers.MockCapability{Respond: func(prompt string) (string, error) {
		mu.Lock()
		seen = append(seen, prompt)
		mu.Unlock()
		return "  done  ", nil
	}}
	e, _ := newTestEngine(t, mock, Options{MaxRetries: 0})
	ctx := context.Background()

	d := e.GenerateDiagram(ctx, "attention", paper("p-d2"))
	require.NotNil(t, d)
	require.Equal(t, "done", *d)

	for _, a := range []HighlightAction{ActionExplain, ActionSimplify, ActionSummarize} {
		require.Equal(t, "done", e.Highlight(ctx, a, "the selected words"))
	}
	require.Equal(t, "done", e.QuickSummary(ctx, "An abstract."))
	require.Len(t, seen, 5)
	require.Contains(t, seen[1], "Explain")
	require.Contains(t, seen[2], "general audience")
	require.Contains(t, seen[3], "Summarize")
}

func TestHighlightActionValid(t *testing.T) {
	require.True(t, ActionExplain.Valid())
	require.False(t, HighlightAction("translate").Valid())
}

func TestUnavailableCapabilityAnswersExtractively(t *testing.T) {
	mock := &providers.MockCapability{Unavailable: true}
	e, _ := newTestEngine(t, mock, Options{MaxRetries: 2})
	doc := paper("p-off", "Intro")
	doc.Abstract.Text = "Transformers replace recurrence. Attention lets every token see every other token."

	answer := e.AskQuestion(context.Background(), "How does attention work?", doc)
	require.Contains(t, answer, unavailableNotice)
	require.Contains(t, answer, "Attention lets every token")

	res := e.Analyze(context.Background(), doc)
	require.Contains(t, res.Sections[0], "offline-chunk")
	require.Contains(t, res.Sections[0], "Body of Intro with details.")
	require.Equal(t, providers.MockStats{}, mock.Stats())
}

type callSink struct {
	mu    sync.Mutex
	calls []models.LLMCall
}

func (s *callSink) RecordCall(ctx context.Context, call models.LLMCall) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return nil
}

func TestCallsAreRecordedPerAttempt(t *testing.T) {
	mock := &providers.MockCapability{Respond: func(string) (string, error) { return "", errors.New("429 rate limit") }}
	sink := &callSink{}
	e, _ := newTestEngine(t, mock, Options{MaxRetries: 2}, WithCallRecorder(sink))

	ctx := WithAnalysisID(context.Background(), "an-9")
	_, err := e.Invoke(ctx, "hello", models.CategoryQuestion)
	require.Error(t, err)
	require.Len(t, sink.calls, 3)
	for i, c := range sink.calls {
		require.Equal(t, i, c.Attempt)
		require.Equal(t, models.CallStatusFailed, c.Status)
		require.Equal(t, string(providers.ErrorRate), c.ErrorType)
		require.Equal(t, "an-9", c.AnalysisID)
		require.Equal(t, "mock", c.ProviderName)
		require.Len(t, c.PromptHash, 16)
		require.NotEmpty(t, c.CallID)
	}
}
