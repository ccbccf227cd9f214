package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"papermind/internal/models"
	"papermind/internal/util"

	"github.com/jackc/pgx/v5"
)

var ErrAnalysisNotFound = errors.New("analysis not found")

const (
	AnalysisStatusRunning   = "running"
	AnalysisStatusCompleted = "completed"
	AnalysisStatusFailed    = "failed"
)

type AnalysisRecord struct {
	AnalysisID   string                 `json:"analysis_id"`
	URL          string                 `json:"url"`
	Title        string                 `json:"title"`
	Status       string                 `json:"status"`
	FailedChunks int                    `json:"failed_chunks"`
	Result       *models.AnalysisResult `json:"result,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

type AnalysisRepo struct {
	db *DB
}

func NewAnalysisRepo(db *DB) *AnalysisRepo {
	return &AnalysisRepo{db: db}
}

func (r *AnalysisRepo) Save(ctx context.Context, rec AnalysisRecord) error {
	var result []byte
	if rec.Result != nil {
		b, err := json.Marshal(rec.Result)
		if err != nil {
			return fmt.Errorf("encode analysis result: %w", err)
		}
		result = b
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO analyses (analysis_id, url, title, status, failed_chunks, result)
VALUES ($1, $2, NULLIF($3,''), $4, $5, $6)
ON CONFLICT (analysis_id)
DO UPDATE SET
  status = EXCLUDED.status,
  failed_chunks = EXCLUDED.failed_chunks,
  result = COALESCE(EXCLUDED.result, analyses.result),
  updated_at = NOW()`,
		rec.AnalysisID, rec.URL, util.SanitizeText(rec.Title), rec.Status, rec.FailedChunks, result)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepo) Get(ctx context.Context, analysisID string) (AnalysisRecord, error) {
	var (
		rec    AnalysisRecord
		result []byte
	)
	err := r.db.Pool.QueryRow(ctx, `
SELECT analysis_id, url, COALESCE(title,''), status, failed_chunks, result, created_at, updated_at
FROM analyses WHERE analysis_id=$1`, analysisID).
		Scan(&rec.AnalysisID, &rec.URL, &rec.Title, &rec.Status, &rec.FailedChunks, &result, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return AnalysisRecord{}, ErrAnalysisNotFound
	}
	if err != nil {
		return AnalysisRecord{}, fmt.Errorf("get analysis: %w", err)
	}
	if len(result) > 0 {
		var res models.AnalysisResult
		if err := json.Unmarshal(result, &res); err != nil {
			return AnalysisRecord{}, fmt.Errorf("decode analysis result: %w", err)
		}
		rec.Result = &res
	}
	return rec, nil
}

// LatestByURL returns the newest completed analysis for a paper url.
func (r *AnalysisRepo) LatestByURL(ctx context.Context, url string) (AnalysisRecord, error) {
	var id string
	err := r.db.Pool.QueryRow(ctx, `
SELECT analysis_id FROM analyses
WHERE url=$1 AND status=$2
ORDER BY updated_at DESC LIMIT 1`, url, AnalysisStatusCompleted).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return AnalysisRecord{}, ErrAnalysisNotFound
	}
	if err != nil {
		return AnalysisRecord{}, fmt.Errorf("find analysis by url: %w", err)
	}
	return r.Get(ctx, id)
}
