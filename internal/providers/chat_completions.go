package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// chatCompletions is a session backend for OpenAI-compatible /chat/completions endpoints.
type chatCompletions struct {
	name     string
	endpoint string
	keyName  string
	apiKey   string
	model    string
	client   *http.Client
}

func newChatCompletions(name, endpoint, keyName, apiKey, model string) *chatCompletions {
	return &chatCompletions{
		name:     name,
		endpoint: endpoint,
		keyName:  keyName,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *chatCompletions) Name() string { return c.name }

func (c *chatCompletions) Info() ProviderInfo {
	return ProviderInfo{Name: c.name, Model: c.model, Key: c.keyName}
}

func (c *chatCompletions) Available(ctx context.Context) bool {
	_ = ctx
	return c.apiKey != ""
}

func (c *chatCompletions) CreateSession(ctx context.Context, instructions []Message, onProgress ProgressFunc) (Session, error) {
	_ = ctx
	if c.apiKey == "" {
		return nil, fmt.Errorf("%s key missing for alias %q", c.name, c.keyName)
	}
	if onProgress != nil {
		onProgress(1)
	}
	return newHistorySession(c, instructions, nil), nil
}

func (c *chatCompletions) complete(ctx context.Context, messages []Message) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"model":    c.model,
		"messages": messages,
	})
	if err != nil {
		return "", fmt.Errorf("encode %s request: %w", c.name, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", c.name, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s generate request failed: %w", c.name, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s generate error %d: %s", c.name, resp.StatusCode, string(body))
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode %s response: %w", c.name, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s returned empty choices", c.name)
	}
	return parsed.Choices[0].Message.Content, nil
}
