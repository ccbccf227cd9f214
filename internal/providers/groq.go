package providers

import (
	"os"
	"strings"
)

// NewGroqCapability uses Groq's OpenAI-compatible API.
func NewGroqCapability(keyName string) Capability {
	model := os.Getenv("PAPERMIND_GROQ_MODEL")
	if strings.TrimSpace(model) == "" {
		model = "llama-3.1-8b-instant"
	}
	return newChatCompletions("groq", "https://api.groq.com/openai/v1/chat/completions", keyName, resolveGroqKey(keyName), model)
}

func resolveGroqKey(alias string) string {
	if alias != "" {
		if v := os.Getenv("PAPERMIND_GROQ_KEY_" + strings.ToUpper(alias)); v != "" {
			return v
		}
	}
	return os.Getenv("GROQ_API_KEY")
}
