package orchestrator

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"papermind/internal/models"
	"papermind/internal/prompts"
	"papermind/internal/providers"
	"papermind/internal/util"

	"go.uber.org/zap"
)

const unavailableNotice = "AI features are unavailable right now."

// ExtractiveResponder answers from the prompt's own text: section prompts
// get a plain excerpt card, everything else gets the best matching excerpt.
type ExtractiveResponder struct{}

func (ExtractiveResponder) Respond(ctx context.Context, prompt string, c models.Category) (string, error) {
	_ = ctx
	if c == models.CategoryAnalysis {
		if chunk, ok := prompts.ParsePayload(prompt); ok {
			return excerptCard(chunk), nil
		}
	}
	// Prompts quote the question or selection first and append any paper context after it.
	query, rest := splitQuoted(prompt)
	var snippet string
	switch {
	case query != "" && strings.TrimSpace(rest) != "":
		snippet = util.EvidenceSnippet(rest, query, 360)
	case query != "":
		snippet = util.DisplaySnippet(query, 360)
	default:
		snippet = util.DisplaySnippet(prompt, 360)
	}
	if snippet == "" {
		return unavailableNotice, nil
	}
	return unavailableNotice + " Relevant excerpt: " + snippet, nil
}

// FailoverResponder asks each secondary backend in order with a one-shot
// session and falls through to Last when none of them answers.
type FailoverResponder struct {
	Secondaries []providers.Capability
	Last        FallbackResponder
	Log         *zap.Logger
}

func NewFailoverResponder(secondaries []providers.Capability, log *zap.Logger) *FailoverResponder {
	if log == nil {
		log = zap.NewNop()
	}
	return &FailoverResponder{Secondaries: secondaries, Last: ExtractiveResponder{}, Log: log.Named("failover")}
}

func (f *FailoverResponder) Respond(ctx context.Context, prompt string, c models.Category) (string, error) {
	for _, capability := range f.Secondaries {
		if !capability.Available(ctx) {
			continue
		}
		out, err := oneShot(ctx, capability, prompt, c)
		if err == nil {
			f.Log.Info("answered by secondary provider", zap.String("provider", capability.Name()), zap.String("category", string(c)))
			return out, nil
		}
		f.Log.Warn("secondary provider failed", zap.String("provider", capability.Name()), zap.Error(err))
	}
	return f.Last.Respond(ctx, prompt, c)
}

func oneShot(ctx context.Context, capability providers.Capability, prompt string, c models.Category) (string, error) {
	instructions := []providers.Message{{Role: providers.RoleSystem, Content: prompts.SystemInstructions(c)}}
	s, err := capability.CreateSession(ctx, instructions, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", util.ErrSessionCreation, err)
	}
	defer func() { _ = s.Destroy(context.WithoutCancel(ctx)) }()
	out, err := s.Prompt(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", util.ErrPrompt, err)
	}
	return out, nil
}

func excerptCard(chunk models.Chunk) string {
	var b strings.Builder
	for _, s := range chunk.Sections {
		t := html.EscapeString(s.Title)
		fmt.Fprintf(&b, `<section class="paper-chunk offline-chunk" data-section-title="%s">`, t)
		fmt.Fprintf(&b, `<header><h3>%s</h3></header>`, t)
		fmt.Fprintf(&b, `<div class="essentials"><p>%s</p></div>`, html.EscapeString(util.DisplaySnippet(s.Text, 600)))
		b.WriteString(`<footer></footer></section>`)
	}
	if b.Len() == 0 {
		return fmt.Sprintf(`<section class="paper-chunk offline-chunk"><p>%s</p></section>`, unavailableNotice)
	}
	return b.String()
}

func splitQuoted(s string) (quoted, rest string) {
	i := strings.IndexByte(s, '"')
	if i < 0 {
		return "", s
	}
	q, err := strconv.QuotedPrefix(s[i:])
	if err != nil {
		return "", s
	}
	out, err := strconv.Unquote(q)
	if err != nil {
		return "", s
	}
	return out, s[i+len(q):]
}
