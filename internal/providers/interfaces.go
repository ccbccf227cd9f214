package providers

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrSessionDestroyed = errors.New("session already destroyed")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

// ProgressFunc observes a one-time model download; loaded is a fraction in [0, 1].
type ProgressFunc func(loaded float64)

// Capability is a language-model backend that can open conversational sessions.
type Capability interface {
	Name() string
	Info() ProviderInfo
	// Available reports whether sessions can be created right now.
	Available(ctx context.Context) bool
	CreateSession(ctx context.Context, instructions []Message, onProgress ProgressFunc) (Session, error)
}

// Session is a conversation primed with system instructions.
// A clone carries the same history and is independent from then on.
type Session interface {
	Clone(ctx context.Context) (Session, error)
	Prompt(ctx context.Context, text string) (string, error)
	// Destroy is idempotent.
	Destroy(ctx context.Context) error
}
