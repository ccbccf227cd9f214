package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// OllamaCapability runs sessions against a local Ollama server.
// The model is pulled on first use, which is the one-time download phase.
type OllamaCapability struct {
	alias  string
	model  string
	client *api.Client

	mu         sync.Mutex
	modelReady bool
	live       int
}

func NewOllamaCapability(alias, baseURL, model string) (*OllamaCapability, error) {
	host := envconfig.Host()
	if strings.TrimSpace(baseURL) != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/"))
		if err != nil {
			return nil, fmt.Errorf("parse ollama base url: %w", err)
		}
		host = u
	}
	return &OllamaCapability{
		alias:  alias,
		model:  resolveOllamaModel(alias, model),
		client: api.NewClient(host, &http.Client{Timeout: 5 * time.Minute}),
	}, nil
}

func (o *OllamaCapability) Name() string { return "ollama" }

func (o *OllamaCapability) Info() ProviderInfo {
	return ProviderInfo{Name: "ollama", Model: o.model, Key: o.alias}
}

func (o *OllamaCapability) Available(ctx context.Context) bool {
	return o.client.Heartbeat(ctx) == nil
}

func (o *OllamaCapability) CreateSession(ctx context.Context, instructions []Message, onProgress ProgressFunc) (Session, error) {
	if err := o.ensureModel(ctx, onProgress); err != nil {
		return nil, err
	}
	return newHistorySession(o, instructions, o), nil
}

func (o *OllamaCapability) ensureModel(ctx context.Context, onProgress ProgressFunc) error {
	o.mu.Lock()
	ready := o.modelReady
	o.mu.Unlock()
	if ready {
		return nil
	}

	list, err := o.client.List(ctx)
	if err != nil {
		return fmt.Errorf("ollama list models: %w", err)
	}
	for _, m := range list.Models {
		if sameModel(m.Name, o.model) || sameModel(m.Model, o.model) {
			o.markReady()
			return nil
		}
	}

	err = o.client.Pull(ctx, &api.PullRequest{Model: o.model}, func(p api.ProgressResponse) error {
		if onProgress != nil && p.Total > 0 {
			onProgress(float64(p.Completed) / float64(p.Total))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ollama pull %s: %w", o.model, err)
	}
	if onProgress != nil {
		onProgress(1)
	}
	o.markReady()
	return nil
}

func (o *OllamaCapability) markReady() {
	o.mu.Lock()
	o.modelReady = true
	o.mu.Unlock()
}

func (o *OllamaCapability) complete(ctx context.Context, messages []Message) (string, error) {
	msgs := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, api.Message{Role: m.Role, Content: m.Content})
	}
	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: msgs,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": 0.2,
		},
	}
	var out strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		_, err := out.WriteString(resp.Message.Content)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat request failed: %w", err)
	}
	return out.String(), nil
}

func (o *OllamaCapability) opened() {
	o.mu.Lock()
	o.live++
	o.mu.Unlock()
}

// closed unloads the model from server memory once no session uses it.
func (o *OllamaCapability) closed(ctx context.Context) error {
	o.mu.Lock()
	if o.live > 0 {
		o.live--
	}
	idle := o.live == 0
	o.mu.Unlock()
	if !idle {
		return nil
	}
	req := &api.ChatRequest{Model: o.model, KeepAlive: &api.Duration{Duration: 0}}
	if err := o.client.Chat(ctx, req, func(api.ChatResponse) error { return nil }); err != nil {
		return fmt.Errorf("ollama unload %s: %w", o.model, err)
	}
	return nil
}

func resolveOllamaModel(alias, fallback string) string {
	alias = strings.TrimSpace(alias)
	// Allow a direct model in the provider list, e.g. ollama:llama3.2:3b
	if alias != "" && (strings.ContainsAny(alias, ":.-/")) {
		return alias
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return "gemma3:1b"
}

func sameModel(a, b string) bool {
	norm := func(s string) string {
		s = strings.TrimSpace(strings.ToLower(s))
		if !strings.Contains(s, ":") {
			s += ":latest"
		}
		return s
	}
	return norm(a) == norm(b)
}
