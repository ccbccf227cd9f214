package orchestrator

import (
	"context"
	"fmt"
	"time"

	"papermind/internal/cache"
	"papermind/internal/models"
	"papermind/internal/prompts"
	"papermind/internal/providers"
	"papermind/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultMaxRetries = 2

// SessionPool is the part of sessions.Pool the engine needs.
type SessionPool interface {
	CloneForTask(ctx context.Context, c models.Category) (providers.Session, error)
	Recreate(ctx context.Context, c models.Category) error
}

// CallRecorder receives one record per prompt attempt.
type CallRecorder interface {
	RecordCall(ctx context.Context, call models.LLMCall) error
}

// FallbackResponder answers without a model when the capability is unavailable.
type FallbackResponder interface {
	Respond(ctx context.Context, prompt string, c models.Category) (string, error)
}

type Options struct {
	MaxRetries        int
	PromptTimeout     time.Duration
	MaxParallelChunks int
	SectionsPerChunk  int
	FocusMode         bool
}

type Option func(*Engine)

func WithProgressReporter(r ProgressReporter) Option {
	return func(e *Engine) { e.progress = r }
}

func WithCallRecorder(r CallRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func WithFallbackResponder(r FallbackResponder) Option {
	return func(e *Engine) { e.fallback = r }
}

type Engine struct {
	capability providers.Capability
	pool       SessionPool
	opts       Options
	log        *zap.Logger

	analyses *cache.Memory[*models.AnalysisResult]
	answers  *cache.Memory[string]

	progress ProgressReporter
	recorder CallRecorder
	fallback FallbackResponder
}

func New(capability providers.Capability, pool SessionPool, opts Options, log *zap.Logger, options ...Option) *Engine {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.SectionsPerChunk <= 0 {
		opts.SectionsPerChunk = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		capability: capability,
		pool:       pool,
		opts:       opts,
		log:        log.Named("orchestrator"),
		analyses:   cache.NewMemory[*models.AnalysisResult](),
		answers:    cache.NewMemory[string](),
		fallback:   ExtractiveResponder{},
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// Invoke sends prompt through a disposable clone of the category's template,
// recreating the template and retrying up to MaxRetries times on failure.
func (e *Engine) Invoke(ctx context.Context, prompt string, c models.Category) (string, error) {
	if !e.capability.Available(ctx) {
		e.log.Warn("model capability unavailable, using fallback responder",
			zap.String("provider", e.capability.Name()), zap.String("category", string(c)))
		return e.fallback.Respond(ctx, prompt, c)
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		out, err := e.attempt(ctx, prompt, c, attempt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt >= e.opts.MaxRetries {
			break
		}
		e.log.Warn("prompt attempt failed, recreating template",
			zap.String("category", string(c)), zap.Int("attempt", attempt), zap.Error(err))
		if rerr := e.pool.Recreate(ctx, c); rerr != nil {
			e.log.Warn("recreate template failed", zap.String("category", string(c)), zap.Error(rerr))
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %w", util.ErrAllRetriesExhausted, e.opts.MaxRetries+1, lastErr)
}

func (e *Engine) attempt(ctx context.Context, prompt string, c models.Category, attempt int) (string, error) {
	start := time.Now()
	session, err := e.pool.CloneForTask(ctx, c)
	if err != nil {
		e.record(ctx, prompt, c, attempt, start, err)
		return "", err
	}
	defer func() {
		if derr := session.Destroy(context.WithoutCancel(ctx)); derr != nil {
			e.log.Debug("destroy clone failed", zap.String("category", string(c)), zap.Error(derr))
		}
	}()

	callCtx := ctx
	if e.opts.PromptTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.opts.PromptTimeout)
		defer cancel()
	}
	out, err := session.Prompt(callCtx, prompt)
	if err != nil {
		err = fmt.Errorf("%w: %w", util.ErrPrompt, err)
	}
	e.record(ctx, prompt, c, attempt, start, err)
	return out, err
}

func (e *Engine) record(ctx context.Context, prompt string, c models.Category, attempt int, start time.Time, err error) {
	if e.recorder == nil {
		return
	}
	info := e.capability.Info()
	call := models.LLMCall{
		CallID:       uuid.NewString(),
		Operation:    string(c),
		AnalysisID:   AnalysisIDFrom(ctx),
		ProviderName: info.Name,
		Model:        info.Model,
		PromptHash:   util.PromptDigest(prompts.Version, prompt),
		Attempt:      attempt,
		Status:       models.CallStatusOK,
		LatencyMS:    time.Since(start).Milliseconds(),
	}
	if err != nil {
		call.Status = models.CallStatusFailed
		call.ErrorType = string(providers.ClassifyError(err))
		call.Error = util.SanitizeText(err.Error())
	}
	if rerr := e.recorder.RecordCall(ctx, call); rerr != nil {
		e.log.Warn("record llm call failed", zap.Error(rerr))
	}
}

type analysisIDKey struct{}

// WithAnalysisID tags ctx so progress updates and audit rows can be correlated.
func WithAnalysisID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, analysisIDKey{}, id)
}

func AnalysisIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(analysisIDKey{}).(string)
	return id
}
