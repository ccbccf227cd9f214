package api

import (
	"context"
	"sync"

	"papermind/internal/models"
)

const subscriberBuffer = 64

// Broadcaster fans analysis progress out to server-sent-event subscribers.
// It satisfies orchestrator.ProgressReporter.
type Broadcaster struct {
	mu      sync.Mutex
	current string
	nextID  int
	subs    map[int]*subscriber
}

type subscriber struct {
	analysisID string
	ch         chan models.ProgressUpdate
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: map[int]*subscriber{}}
}

// Begin marks id as the most recent analysis; default subscribers follow it.
func (b *Broadcaster) Begin(id string) {
	b.mu.Lock()
	b.current = id
	b.mu.Unlock()
}

func (b *Broadcaster) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Subscribe returns a channel of updates for analysisID, or for whichever
// analysis is most recent when analysisID is empty. Slow subscribers miss
// updates rather than blocking the engine.
func (b *Broadcaster) Subscribe(analysisID string) (<-chan models.ProgressUpdate, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	sub := &subscriber{analysisID: analysisID, ch: make(chan models.ProgressUpdate, subscriberBuffer)}
	b.subs[id] = sub
	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *Broadcaster) Report(_ context.Context, update models.ProgressUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		want := sub.analysisID
		if want == "" {
			want = b.current
		}
		if update.AnalysisID != "" && update.AnalysisID != want {
			continue
		}
		select {
		case sub.ch <- update:
		default:
		}
	}
	return nil
}
