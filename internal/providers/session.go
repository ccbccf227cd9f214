package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// completer sends a full message list to a backend and returns the assistant reply.
type completer interface {
	complete(ctx context.Context, messages []Message) (string, error)
}

// lifecycle observes sessions opening and closing; backends use it to release server-side resources.
type lifecycle interface {
	opened()
	closed(ctx context.Context) error
}

// historySession keeps the conversation client-side and replays it on every prompt.
type historySession struct {
	backend completer
	hooks   lifecycle

	mu        sync.Mutex
	history   []Message
	destroyed bool
}

func newHistorySession(backend completer, instructions []Message, hooks lifecycle) *historySession {
	h := make([]Message, len(instructions))
	copy(h, instructions)
	if hooks != nil {
		hooks.opened()
	}
	return &historySession{backend: backend, history: h, hooks: hooks}
}

func (s *historySession) Clone(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil, ErrSessionDestroyed
	}
	return newHistorySession(s.backend, s.history, s.hooks), nil
}

func (s *historySession) Prompt(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return "", ErrSessionDestroyed
	}
	msgs := make([]Message, len(s.history), len(s.history)+1)
	copy(msgs, s.history)
	s.mu.Unlock()

	msgs = append(msgs, Message{Role: RoleUser, Content: text})
	out, err := s.backend.complete(ctx, msgs)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("empty model response")
	}

	s.mu.Lock()
	s.history = append(s.history, Message{Role: RoleUser, Content: text}, Message{Role: RoleAssistant, Content: out})
	s.mu.Unlock()
	return out, nil
}

func (s *historySession) Destroy(ctx context.Context) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return nil
	}
	s.destroyed = true
	s.history = nil
	s.mu.Unlock()
	if s.hooks != nil {
		return s.hooks.closed(ctx)
	}
	return nil
}

func systemText(messages []Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
