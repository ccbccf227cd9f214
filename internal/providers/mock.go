package providers

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"papermind/internal/prompts"
)

// MockCapability is an in-process backend with deterministic replies.
// The exported fields inject failures; set them before the first session is created.
type MockCapability struct {
	Unavailable bool
	CreateErr   error
	CloneErr    error
	DestroyErr  error
	// Respond overrides the default reply.
	Respond func(prompt string) (string, error)

	mu    sync.Mutex
	stats MockStats
}

type MockStats struct {
	Created   int
	Cloned    int
	Destroyed int
	Prompts   int
	Live      int
}

func NewMockCapability() *MockCapability {
	return &MockCapability{}
}

func (m *MockCapability) Name() string { return "mock" }

func (m *MockCapability) Info() ProviderInfo {
	return ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}
}

func (m *MockCapability) Available(ctx context.Context) bool {
	_ = ctx
	return !m.Unavailable
}

func (m *MockCapability) Stats() MockStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *MockCapability) CreateSession(ctx context.Context, instructions []Message, onProgress ProgressFunc) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if onProgress != nil {
		onProgress(0.5)
		onProgress(1)
	}
	m.mu.Lock()
	m.stats.Created++
	m.stats.Live++
	m.mu.Unlock()
	return &mockSession{owner: m, system: systemText(instructions)}, nil
}

type mockSession struct {
	owner  *MockCapability
	system string

	mu        sync.Mutex
	destroyed bool
}

func (s *mockSession) Clone(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	dead := s.destroyed
	s.mu.Unlock()
	if dead {
		return nil, ErrSessionDestroyed
	}
	if s.owner.CloneErr != nil {
		return nil, s.owner.CloneErr
	}
	s.owner.mu.Lock()
	s.owner.stats.Cloned++
	s.owner.stats.Live++
	s.owner.mu.Unlock()
	return &mockSession{owner: s.owner, system: s.system}, nil
}

func (s *mockSession) Prompt(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	dead := s.destroyed
	s.mu.Unlock()
	if dead {
		return "", ErrSessionDestroyed
	}
	s.owner.mu.Lock()
	s.owner.stats.Prompts++
	s.owner.mu.Unlock()
	if s.owner.Respond != nil {
		return s.owner.Respond(text)
	}
	return MockReply(text), nil
}

func (s *mockSession) Destroy(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return nil
	}
	s.destroyed = true
	s.mu.Unlock()
	s.owner.mu.Lock()
	s.owner.stats.Destroyed++
	s.owner.stats.Live--
	s.owner.mu.Unlock()
	return s.owner.DestroyErr
}

// MockReply renders a fenced HTML card per section when the prompt carries a
// paper payload, and a short deterministic sentence otherwise.
func MockReply(prompt string) string {
	if chunk, ok := prompts.ParsePayload(prompt); ok && len(chunk.Sections) > 0 {
		var b strings.Builder
		b.WriteString("```html\n")
		for _, s := range chunk.Sections {
			fmt.Fprintf(&b, "<section class=\"paper-chunk\" data-section-title=\"%s\">\n", html.EscapeString(s.Title))
			fmt.Fprintf(&b, "<header><h3>%s</h3></header>\n", html.EscapeString(s.Title))
			fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(firstWords(s.Text, 24)))
			b.WriteString("<footer></footer>\n</section>\n")
		}
		b.WriteString("```")
		return b.String()
	}
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	return "Mock response: " + firstWords(last, 16)
}

func firstWords(s string, n int) string {
	f := strings.Fields(s)
	if len(f) > n {
		f = f[:n]
	}
	return strings.Join(f, " ")
}
