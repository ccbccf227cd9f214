package providers

import (
	"os"
	"strings"
)

func NewOpenAICapability(keyName string) Capability {
	model := strings.TrimSpace(os.Getenv("PAPERMIND_OPENAI_MODEL"))
	if model == "" {
		model = "gpt-4o-mini"
	}
	return newChatCompletions("openai", "https://api.openai.com/v1/chat/completions", keyName, resolveOpenAIKey(keyName), model)
}

func resolveOpenAIKey(alias string) string {
	if alias != "" {
		if k := os.Getenv("PAPERMIND_OPENAI_KEY_" + strings.ToUpper(alias)); k != "" {
			return k
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}
