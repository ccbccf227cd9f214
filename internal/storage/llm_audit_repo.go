package storage

import (
	"context"
	"fmt"

	"papermind/internal/models"
)

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec models.LLMCall) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO llm_calls(call_id, operation, analysis_id, provider_name, model, prompt_hash, attempt, status, error_type, error, latency_ms)
VALUES (COALESCE(NULLIF($1,'')::uuid, gen_random_uuid()), $2, NULLIF($3,''), $4, $5, $6, $7, $8, NULLIF($9,''), NULLIF($10,''), $11)`,
		rec.CallID, rec.Operation, rec.AnalysisID, rec.ProviderName, rec.Model, rec.PromptHash, rec.Attempt, rec.Status, rec.ErrorType, rec.Error, rec.LatencyMS)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}

// RecordCall lets the repo serve as the orchestrator's call recorder.
func (r *LLMAuditRepo) RecordCall(ctx context.Context, call models.LLMCall) error {
	return r.Insert(ctx, call)
}

type CallStats struct {
	Operation string `json:"operation"`
	Status    string `json:"status"`
	Calls     int64  `json:"calls"`
	AvgMS     int64  `json:"avg_ms"`
}

func (r *LLMAuditRepo) StatsByAnalysis(ctx context.Context, analysisID string) ([]CallStats, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT operation, status, COUNT(*), COALESCE(AVG(latency_ms),0)::bigint
FROM llm_calls
WHERE analysis_id=$1
GROUP BY operation, status
ORDER BY operation, status`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("query llm call stats: %w", err)
	}
	defer rows.Close()

	out := make([]CallStats, 0)
	for rows.Next() {
		var s CallStats
		if err := rows.Scan(&s.Operation, &s.Status, &s.Calls, &s.AvgMS); err != nil {
			return nil, fmt.Errorf("scan llm call stats: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate llm call stats: %w", err)
	}
	return out, nil
}
