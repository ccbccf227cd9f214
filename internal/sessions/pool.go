package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"papermind/internal/models"
	"papermind/internal/prompts"
	"papermind/internal/providers"
	"papermind/internal/util"

	"go.uber.org/zap"
)

const DefaultIdleTimeout = 5 * time.Minute

// Pool keeps one template session per category and hands out clones.
// Template mutations, clones and idle teardown are serialized on one mutex.
type Pool struct {
	capability  providers.Capability
	idleTimeout time.Duration
	log         *zap.Logger

	mu        sync.Mutex
	templates map[models.Category]providers.Session
	idle      *time.Timer
	idleGen   uint64
	closed    bool
}

func NewPool(c providers.Capability, idleTimeout time.Duration, log *zap.Logger) *Pool {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		capability:  c,
		idleTimeout: idleTimeout,
		log:         log.Named("sessions"),
		templates:   map[models.Category]providers.Session{},
	}
}

// EnsureTemplate returns the category's template, creating it on first use.
// Every call counts as activity for the idle timer.
func (p *Pool) EnsureTemplate(ctx context.Context, c models.Category) (providers.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ensureLocked(ctx, c)
}

// CloneForTask returns a fresh clone of the category's template. The caller owns it.
func (p *Pool) CloneForTask(ctx context.Context, c models.Category) (providers.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tmpl, err := p.ensureLocked(ctx, c)
	if err != nil {
		return nil, err
	}
	clone, err := tmpl.Clone(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w (%s): %w", util.ErrClone, c, err)
	}
	return clone, nil
}

// Destroy drops the category's template. Teardown errors are logged.
func (p *Pool) Destroy(ctx context.Context, c models.Category) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyLocked(ctx, c)
}

// DestroyAll drops every template and stops the idle timer.
func (p *Pool) DestroyAll(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyAllLocked(ctx)
}

// Recreate replaces the category's template with a new one.
func (p *Pool) Recreate(ctx context.Context, c models.Category) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyLocked(ctx, c)
	_, err := p.ensureLocked(ctx, c)
	return err
}

// Has reports whether a template currently exists for c.
func (p *Pool) Has(c models.Category) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.templates[c]
	return ok
}

// Close tears everything down. The pool must not be used afterwards.
func (p *Pool) Close(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyAllLocked(ctx)
	p.closed = true
}

func (p *Pool) ensureLocked(ctx context.Context, c models.Category) (providers.Session, error) {
	if p.closed {
		return nil, fmt.Errorf("%w (%s): pool closed", util.ErrSessionCreation, c)
	}
	p.touchLocked()
	if s, ok := p.templates[c]; ok {
		return s, nil
	}
	instructions := []providers.Message{{Role: providers.RoleSystem, Content: prompts.SystemInstructions(c)}}
	s, err := p.capability.CreateSession(ctx, instructions, p.progressObserver(c))
	if err != nil {
		return nil, fmt.Errorf("%w (%s): %w", util.ErrSessionCreation, c, err)
	}
	p.templates[c] = s
	p.log.Info("template session created", zap.String("category", string(c)), zap.String("provider", p.capability.Name()))
	return s, nil
}

func (p *Pool) progressObserver(c models.Category) providers.ProgressFunc {
	last := -1
	return func(loaded float64) {
		pct := int(loaded * 100)
		if pct == last {
			return
		}
		last = pct
		p.log.Info("model download progress", zap.String("category", string(c)), zap.Int("percent", pct))
	}
}

func (p *Pool) destroyLocked(ctx context.Context, c models.Category) {
	s, ok := p.templates[c]
	if !ok {
		return
	}
	delete(p.templates, c)
	if err := s.Destroy(ctx); err != nil {
		p.log.Warn("destroy template session failed", zap.String("category", string(c)), zap.Error(err))
		return
	}
	p.log.Debug("template session destroyed", zap.String("category", string(c)))
}

func (p *Pool) destroyAllLocked(ctx context.Context) {
	for _, c := range models.Categories() {
		p.destroyLocked(ctx, c)
	}
	p.stopIdleLocked()
}

// touchLocked restarts the idle countdown. A timer that fires after being
// superseded sees a newer generation and does nothing.
func (p *Pool) touchLocked() {
	p.stopIdleLocked()
	gen := p.idleGen
	p.idle = time.AfterFunc(p.idleTimeout, func() { p.onIdle(gen) })
}

func (p *Pool) stopIdleLocked() {
	p.idleGen++
	if p.idle != nil {
		p.idle.Stop()
		p.idle = nil
	}
}

func (p *Pool) onIdle(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.idleGen {
		return
	}
	p.log.Info("sessions idle, destroying templates", zap.Duration("idle_timeout", p.idleTimeout))
	p.destroyAllLocked(context.Background())
}
