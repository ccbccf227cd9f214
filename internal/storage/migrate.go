package storage

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS llm_calls (
  call_id UUID PRIMARY KEY,
  operation TEXT NOT NULL,
  analysis_id TEXT,
  provider_name TEXT NOT NULL,
  model TEXT NOT NULL,
  prompt_hash TEXT NOT NULL,
  attempt INT NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  error_type TEXT,
  error TEXT,
  latency_ms BIGINT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS llm_calls_analysis_idx ON llm_calls (analysis_id)`,
	`CREATE TABLE IF NOT EXISTS analyses (
  analysis_id TEXT PRIMARY KEY,
  url TEXT NOT NULL,
  title TEXT,
  status TEXT NOT NULL,
  failed_chunks INT NOT NULL DEFAULT 0,
  result JSONB,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS analyses_url_idx ON analyses (url, updated_at DESC)`,
}

// Migrate creates the tables if they are missing. Every statement is idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
