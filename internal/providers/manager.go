package providers

import (
	"fmt"

	"papermind/internal/config"
)

type NamedCapability struct {
	Ref        ProviderRef
	Capability Capability
}

// Manager builds the configured backends. Sessions are pooled against Primary;
// the rest of the chain serves as failover when Primary is unavailable.
type Manager struct {
	caps []NamedCapability
}

func NewManager(cfg config.Config) (*Manager, error) {
	m := &Manager{}
	for _, ref := range ParseProviderList(cfg.LLMProviders) {
		c, err := buildCapability(ref, cfg)
		if err != nil {
			return nil, err
		}
		m.caps = append(m.caps, NamedCapability{Ref: ref, Capability: c})
	}
	return m, nil
}

func (m *Manager) Primary() (Capability, ProviderRef) {
	return m.caps[0].Capability, m.caps[0].Ref
}

func (m *Manager) Secondaries() []NamedCapability {
	return append([]NamedCapability(nil), m.caps[1:]...)
}

func (m *Manager) Refs() []ProviderRef {
	out := make([]ProviderRef, 0, len(m.caps))
	for _, c := range m.caps {
		out = append(out, c.Ref)
	}
	return out
}

func buildCapability(ref ProviderRef, cfg config.Config) (Capability, error) {
	switch ref.Name {
	case "mock":
		return NewMockCapability(), nil
	case "ollama":
		return NewOllamaCapability(ref.Alias, cfg.OllamaBaseURL, cfg.OllamaModel)
	case "gemini":
		return NewGeminiCapability(ref.Alias, cfg.GeminiModel), nil
	case "openai":
		return NewOpenAICapability(ref.Alias), nil
	case "groq":
		return NewGroqCapability(ref.Alias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
