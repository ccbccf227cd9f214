package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIAddr            string
	LLMProviders       string
	OllamaBaseURL      string
	OllamaModel        string
	GeminiModel        string
	SessionIdleTimeout time.Duration
	PromptTimeout      time.Duration
	MaxRetries         int
	MaxParallelChunks  int
	FocusMode          bool
	PostgresURL        string
	TemporalAddress    string
	TemporalTaskQueue  string
	DataOutRoot        string
	LogLevel           string
	LogJSON            bool
}

func Load() Config {
	return Config{
		APIAddr:            getenv("PAPERMIND_API_ADDR", ":8080"),
		LLMProviders:       getenv("PAPERMIND_LLM_PROVIDERS", "mock"),
		OllamaBaseURL:      getenv("PAPERMIND_OLLAMA_BASE_URL", ""),
		OllamaModel:        getenv("PAPERMIND_OLLAMA_MODEL", "gemma3:1b"),
		GeminiModel:        getenv("PAPERMIND_GEMINI_MODEL", "gemini-2.0-flash-lite"),
		SessionIdleTimeout: time.Duration(getenvInt("PAPERMIND_SESSION_IDLE_TIMEOUT_SECONDS", 300)) * time.Second,
		PromptTimeout:      time.Duration(getenvInt("PAPERMIND_PROMPT_TIMEOUT_SECONDS", 120)) * time.Second,
		MaxRetries:         getenvInt("PAPERMIND_MAX_RETRIES", 2),
		MaxParallelChunks:  getenvInt("PAPERMIND_MAX_PARALLEL_CHUNKS", 0),
		FocusMode:          getenvBool("PAPERMIND_FOCUS_MODE", false),
		PostgresURL:        getenv("PAPERMIND_POSTGRES_URL", ""),
		TemporalAddress:    getenv("PAPERMIND_TEMPORAL_ADDRESS", ""),
		TemporalTaskQueue:  getenv("PAPERMIND_TEMPORAL_TASK_QUEUE", "papermind"),
		DataOutRoot:        getenv("PAPERMIND_DATA_OUT", "./data/out"),
		LogLevel:           getenv("PAPERMIND_LOG_LEVEL", "info"),
		LogJSON:            getenvBool("PAPERMIND_LOG_JSON", false),
	}
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(k string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
