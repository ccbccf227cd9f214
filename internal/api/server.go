package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"papermind/internal/config"
	"papermind/internal/extract"
	"papermind/internal/logging"
	"papermind/internal/models"
	"papermind/internal/orchestrator"
	"papermind/internal/providers"
	"papermind/internal/storage"
	"papermind/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
	"go.uber.org/zap"
)

const sseKeepAlive = 15 * time.Second

// Engine is the in-process surface the handlers call; *orchestrator.Engine satisfies it.
type Engine interface {
	Analyze(ctx context.Context, doc models.PaperDocument) *models.AnalysisResult
	AskQuestion(ctx context.Context, question string, doc models.PaperDocument) string
	ProcessText(ctx context.Context, instruction, text string) string
	Highlight(ctx context.Context, action orchestrator.HighlightAction, text string) string
	GenerateDiagram(ctx context.Context, concept string, doc models.PaperDocument) *string
	QuickSummary(ctx context.Context, abstract string) string
}

// WorkflowClient is the part of the Temporal client used for durable analyses.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options tclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tclient.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
}

type AnalysisReader interface {
	Get(ctx context.Context, analysisID string) (storage.AnalysisRecord, error)
	LatestByURL(ctx context.Context, url string) (storage.AnalysisRecord, error)
}

// CallStatsReader summarizes the model calls made for one analysis.
type CallStatsReader interface {
	StatsByAnalysis(ctx context.Context, analysisID string) ([]storage.CallStats, error)
}

type Server struct {
	cfg        config.Config
	engine     Engine
	capability providers.Capability
	progress   *Broadcaster
	temporal   WorkflowClient
	analyses   AnalysisReader
	calls      CallStatsReader
	log        *zap.Logger
}

type Option func(*Server)

func WithBroadcaster(b *Broadcaster) Option { return func(s *Server) { s.progress = b } }

func WithTemporal(c WorkflowClient) Option { return func(s *Server) { s.temporal = c } }

func WithAnalysisReader(r AnalysisReader) Option { return func(s *Server) { s.analyses = r } }

func WithCallStats(r CallStatsReader) Option { return func(s *Server) { s.calls = r } }

func NewServer(cfg config.Config, engine Engine, capability providers.Capability, log *zap.Logger, opts ...Option) *Server {
	s := &Server{cfg: cfg, engine: engine, capability: capability, log: logging.OrNop(log).Named("api")}
	for _, opt := range opts {
		opt(s)
	}
	if s.progress == nil {
		s.progress = NewBroadcaster()
	}
	return s
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/detect", s.handleDetect)
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/ask", s.handleAsk)
	mux.HandleFunc("/process-text", s.handleProcessText)
	mux.HandleFunc("/highlight", s.handleHighlight)
	mux.HandleFunc("/diagram", s.handleDiagram)
	mux.HandleFunc("/quick-summary", s.handleQuickSummary)
	mux.HandleFunc("/progress", s.handleProgress)
	mux.HandleFunc("/analyses", s.handleAnalyses)
	mux.HandleFunc("/analyses/", s.handleAnalysisScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	info := s.capability.Info()
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"capability": info.Name,
		"model":      info.Model,
		"available":  s.capability.Available(ctx),
		"durable":    s.temporal != nil,
	})
}

// handleDetect tells the extension whether the current tab looks like a paper.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	raw := r.URL.Query().Get("url")
	if strings.TrimSpace(raw) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("url is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": raw, "is_paper": extract.IsPaperURL(raw)})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Paper *models.PaperDocument `json:"paper"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Paper == nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("paper is required"))
		return
	}
	if err := extract.Validate(*req.Paper); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	analysisID := uuid.NewString()
	s.progress.Begin(analysisID)
	ctx := orchestrator.WithAnalysisID(r.Context(), analysisID)
	s.log.Info("analyze request", zap.String("analysis_id", analysisID), zap.String("url", req.Paper.URL),
		zap.Bool("known_host", extract.IsPaperURL(req.Paper.URL)), zap.Int("sections", len(req.Paper.Sections)))
	result := s.engine.Analyze(ctx, *req.Paper)
	writeJSON(w, http.StatusOK, map[string]any{"analysis_id": analysisID, "summary": result})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Question string               `json:"question"`
		Paper    models.PaperDocument `json:"paper"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"answer": s.engine.AskQuestion(r.Context(), req.Question, req.Paper)})
}

func (s *Server) handleProcessText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Instruction string `json:"instruction"`
		Text        string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("text is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": s.engine.ProcessText(r.Context(), req.Instruction, req.Text)})
}

func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Action string `json:"action"`
		Text   string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	action := orchestrator.HighlightAction(strings.ToLower(strings.TrimSpace(req.Action)))
	if !action.Valid() {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("unknown highlight action %q", req.Action))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("text is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": s.engine.Highlight(r.Context(), action, req.Text)})
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Concept string               `json:"concept"`
		Paper   models.PaperDocument `json:"paper"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Concept) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("concept is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"diagram": s.engine.GenerateDiagram(r.Context(), req.Concept, req.Paper)})
}

func (s *Server) handleQuickSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Abstract string `json:"abstract"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": s.engine.QuickSummary(r.Context(), req.Abstract)})
}

// handleProgress streams ProgressUpdate values as server-sent events until
// the client disconnects.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}
	updates, cancel := s.progress.Subscribe(r.URL.Query().Get("analysis_id"))
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case u := <-updates:
			b, err := json.Marshal(u)
			if err != nil {
				s.log.Warn("encode progress update", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: progress\ndata: %s\n\n", b); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Paper   *models.PaperDocument `json:"paper"`
		PDFPath string                `json:"pdf_path"`
		URL     string                `json:"url"`
		Force   bool                  `json:"force"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Paper == nil && strings.TrimSpace(req.PDFPath) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("paper or pdf_path is required"))
		return
	}
	if !req.Force {
		if rec, ok := s.completedFor(r.Context(), paperURL(req.Paper, req.URL)); ok {
			writeJSON(w, http.StatusOK, map[string]any{"analysis_id": rec.AnalysisID, "reused": true, "analysis": rec})
			return
		}
	}
	if s.temporal == nil {
		writeErr(w, http.StatusServiceUnavailable, errDurableDisabled)
		return
	}
	analysisID := uuid.NewString()
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                    workflowID(analysisID),
		TaskQueue:             s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, workflows.PaperAnalysisWorkflow, workflows.PaperAnalysisInput{
		AnalysisID:    analysisID,
		Paper:         req.Paper,
		PDFPath:       req.PDFPath,
		URL:           req.URL,
		MaxConcurrent: s.cfg.MaxParallelChunks,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"analysis_id": analysisID, "workflow_id": we.GetID(), "run_id": we.GetRunID()})
}

func (s *Server) handleAnalysisScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	analysisID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/analyses/"), "/")
	if analysisID == "" || strings.Contains(analysisID, "/") {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if s.temporal == nil && s.analyses == nil {
		writeErr(w, http.StatusServiceUnavailable, errDurableDisabled)
		return
	}

	var queryErr error
	if s.temporal != nil {
		resp, err := s.temporal.QueryWorkflow(r.Context(), workflowID(analysisID), "", workflows.QueryGetAnalysisProgress)
		if err == nil {
			var prog workflows.AnalysisProgress
			if err := resp.Get(&prog); err != nil {
				writeErr(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, s.withCalls(r.Context(), analysisID, map[string]any{"progress": prog}))
			return
		}
		queryErr = err
	}
	if s.analyses != nil {
		rec, err := s.analyses.Get(r.Context(), analysisID)
		if err == nil {
			writeJSON(w, http.StatusOK, s.withCalls(r.Context(), analysisID, map[string]any{"analysis": rec}))
			return
		}
		if !errors.Is(err, storage.ErrAnalysisNotFound) {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		queryErr = err
	}
	writeErr(w, http.StatusNotFound, queryErr)
}

// completedFor finds a finished analysis of the same paper. Lookup errors
// are logged and treated as a miss so a flaky database never blocks new work.
func (s *Server) completedFor(ctx context.Context, url string) (storage.AnalysisRecord, bool) {
	if s.analyses == nil || url == "" {
		return storage.AnalysisRecord{}, false
	}
	rec, err := s.analyses.LatestByURL(ctx, url)
	if err != nil {
		if !errors.Is(err, storage.ErrAnalysisNotFound) {
			s.log.Warn("lookup previous analysis failed", zap.String("url", url), zap.Error(err))
		}
		return storage.AnalysisRecord{}, false
	}
	return rec, true
}

func (s *Server) withCalls(ctx context.Context, analysisID string, body map[string]any) map[string]any {
	if s.calls == nil {
		return body
	}
	stats, err := s.calls.StatsByAnalysis(ctx, analysisID)
	if err != nil {
		s.log.Warn("load llm call stats failed", zap.String("analysis_id", analysisID), zap.Error(err))
		return body
	}
	body["calls"] = stats
	return body
}

func paperURL(doc *models.PaperDocument, fallback string) string {
	if doc != nil && strings.TrimSpace(doc.URL) != "" {
		return strings.TrimSpace(doc.URL)
	}
	return strings.TrimSpace(fallback)
}

var errDurableDisabled = errors.New("durable analysis not configured")

func workflowID(analysisID string) string {
	return "analysis-" + analysisID
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "PM-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status == http.StatusServiceUnavailable:
		return apiError{
			Code:    "PM-API-5030",
			Message: "Durable analysis is not configured. Set PAPERMIND_TEMPORAL_ADDRESS and retry.",
		}
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "PM-DB-5001",
				Message: "Database schema is not initialized. Restart the service to run migrations.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "PM-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "PM-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "PM-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "PM-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "PM-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "PM-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(raw, "paper is required"), strings.Contains(raw, "paper or pdf_path is required"):
			msg = "A paper document is required."
		case errors.Is(err, extract.ErrEmptyPaper):
			msg = "The paper has no title, abstract or sections."
		case strings.Contains(raw, "question is required"):
			msg = "A question is required."
		case strings.Contains(raw, "text is required"):
			msg = "Text is required."
		case strings.Contains(raw, "url is required"):
			msg = "A url is required."
		case strings.Contains(raw, "concept is required"):
			msg = "A concept is required."
		case strings.Contains(raw, "unknown highlight action"):
			msg = "Action must be one of explain, simplify or summarize."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
