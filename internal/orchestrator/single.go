package orchestrator

import (
	"context"
	"strings"

	"papermind/internal/cache"
	"papermind/internal/models"
	"papermind/internal/prompts"

	"go.uber.org/zap"
)

const (
	QuestionApology = "I'm sorry, I couldn't process your question at this time. Please try again."
	TextApology     = "I'm sorry, I couldn't process that text at this time."
)

type HighlightAction string

const (
	ActionExplain   HighlightAction = "explain"
	ActionSimplify  HighlightAction = "simplify"
	ActionSummarize HighlightAction = "summarize"
)

func (a HighlightAction) Valid() bool {
	switch a {
	case ActionExplain, ActionSimplify, ActionSummarize:
		return true
	}
	return false
}

// AskQuestion answers from the paper's title and abstract. Answers are cached per question and url.
func (e *Engine) AskQuestion(ctx context.Context, question string, doc models.PaperDocument) string {
	key := cache.QuestionKey(question, doc.URL)
	if answer, ok := e.answers.Get(key); ok {
		return answer
	}
	answer, err := e.Invoke(ctx, prompts.Question(question, doc), models.CategoryQuestion)
	if err != nil {
		e.log.Error("answer question failed", zap.String("url", doc.URL), zap.Error(err))
		return QuestionApology
	}
	answer = strings.TrimSpace(answer)
	e.answers.Set(key, answer)
	return answer
}

func (e *Engine) ProcessText(ctx context.Context, instruction, text string) string {
	return e.singleShot(ctx, "process text", prompts.ProcessText(instruction, text))
}

// Highlight runs one of the highlight actions over a text selection.
func (e *Engine) Highlight(ctx context.Context, action HighlightAction, text string) string {
	switch action {
	case ActionSimplify:
		return e.SimplifyText(ctx, text)
	case ActionSummarize:
		return e.SummarizeText(ctx, text)
	default:
		return e.ExplainText(ctx, text)
	}
}

func (e *Engine) ExplainText(ctx context.Context, text string) string {
	return e.singleShot(ctx, "explain text", prompts.Explain(text))
}

func (e *Engine) SimplifyText(ctx context.Context, text string) string {
	return e.singleShot(ctx, "simplify text", prompts.Simplify(text))
}

func (e *Engine) SummarizeText(ctx context.Context, text string) string {
	return e.singleShot(ctx, "summarize text", prompts.Summarize(text))
}

func (e *Engine) QuickSummary(ctx context.Context, abstract string) string {
	return e.singleShot(ctx, "quick summary", prompts.QuickSummary(abstract))
}

// GenerateDiagram describes a diagram for concept, or returns nil when the model call fails.
func (e *Engine) GenerateDiagram(ctx context.Context, concept string, doc models.PaperDocument) *string {
	out, err := e.Invoke(ctx, prompts.Diagram(concept, doc), models.CategoryQuestion)
	if err != nil {
		e.log.Error("generate diagram failed", zap.String("concept", concept), zap.Error(err))
		return nil
	}
	out = strings.TrimSpace(out)
	return &out
}

func (e *Engine) singleShot(ctx context.Context, op, prompt string) string {
	out, err := e.Invoke(ctx, prompt, models.CategoryQuestion)
	if err != nil {
		e.log.Error(op+" failed", zap.Error(err))
		return TextApology
	}
	return strings.TrimSpace(out)
}
