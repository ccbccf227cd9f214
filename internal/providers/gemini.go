package providers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GeminiCapability keeps history client-side and sends it whole on each GenerateContent call.
type GeminiCapability struct {
	alias  string
	apiKey string
	model  string

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiCapability(alias, model string) *GeminiCapability {
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.0-flash-lite"
	}
	return &GeminiCapability{alias: alias, apiKey: resolveGeminiKey(alias), model: model}
}

func (g *GeminiCapability) Name() string { return "gemini" }

func (g *GeminiCapability) Info() ProviderInfo {
	return ProviderInfo{Name: "gemini", Model: g.model, Key: g.alias}
}

func (g *GeminiCapability) Available(ctx context.Context) bool {
	_ = ctx
	return g.apiKey != ""
}

func (g *GeminiCapability) CreateSession(ctx context.Context, instructions []Message, onProgress ProgressFunc) (Session, error) {
	if _, err := g.ensureClient(ctx); err != nil {
		return nil, err
	}
	// Hosted model: nothing to download.
	if onProgress != nil {
		onProgress(1)
	}
	return newHistorySession(g, instructions, nil), nil
}

func (g *GeminiCapability) ensureClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	if g.apiKey == "" {
		return nil, fmt.Errorf("gemini key missing for alias %q", g.alias)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g.client = client
	return client, nil
}

func (g *GeminiCapability) complete(ctx context.Context, messages []Message) (string, error) {
	client, err := g.ensureClient(ctx)
	if err != nil {
		return "", err
	}
	contents := geminiContents(messages)
	var cfg *genai.GenerateContentConfig
	if sys := systemText(messages); sys != "" {
		cfg = &genai.GenerateContentConfig{SystemInstruction: genai.NewContentFromText(sys, genai.RoleUser)}
	}
	resp, err := client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate request failed: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func geminiContents(messages []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleUser))
		case RoleAssistant:
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleModel))
		}
	}
	return out
}

func resolveGeminiKey(alias string) string {
	if alias != "" {
		if v := os.Getenv("PAPERMIND_GEMINI_KEY_" + strings.ToUpper(alias)); v != "" {
			return v
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		return v
	}
	return os.Getenv("GOOGLE_API_KEY")
}
