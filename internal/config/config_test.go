package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PAPERMIND_LLM_PROVIDERS", "")
	t.Setenv("PAPERMIND_SESSION_IDLE_TIMEOUT_SECONDS", "")
	t.Setenv("PAPERMIND_MAX_RETRIES", "")
	cfg := Load()
	require.Equal(t, "mock", cfg.LLMProviders)
	require.Equal(t, 5*time.Minute, cfg.SessionIdleTimeout)
	require.Equal(t, 2, cfg.MaxRetries)
	require.False(t, cfg.FocusMode)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PAPERMIND_SESSION_IDLE_TIMEOUT_SECONDS", "30")
	t.Setenv("PAPERMIND_FOCUS_MODE", "true")
	t.Setenv("PAPERMIND_MAX_PARALLEL_CHUNKS", "not-a-number")
	cfg := Load()
	require.Equal(t, 30*time.Second, cfg.SessionIdleTimeout)
	require.True(t, cfg.FocusMode)
	require.Equal(t, 0, cfg.MaxParallelChunks)
}
