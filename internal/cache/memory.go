package cache

import "sync"

func AnalysisKey(url string) string {
	return "analysis_" + url
}

func QuestionKey(question, url string) string {
	return "question_" + question + "_" + url
}

// Memory is an unbounded map that lives as long as the process. Nothing is evicted.
type Memory[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

func NewMemory[V any]() *Memory[V] {
	return &Memory[V]{items: map[string]V{}}
}

func (m *Memory[V]) Get(key string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

// Set overwrites any previous value for key.
func (m *Memory[V]) Set(key string, v V) {
	m.mu.Lock()
	m.items[key] = v
	m.mu.Unlock()
}

func (m *Memory[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
