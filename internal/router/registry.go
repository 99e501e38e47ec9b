package router

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rickgao/meshlink/internal/model"
)

// handlerEntry wraps a handler so a dispatch snapshot can see removals.
type handlerEntry struct {
	fn      model.Handler
	removed atomic.Bool
}

// Stats contains runtime statistics.
type Stats struct {
	Topics     int
	Handlers   int
	Dispatched int64
	Missed     int64
}

// Registry maps topics to ordered handler lists. It is safe for concurrent use.
type Registry struct {
	logger *slog.Logger

	mu     sync.RWMutex
	topics map[string][]*handlerEntry

	dispatched atomic.Int64
	missed     atomic.Int64
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		topics: make(map[string][]*handlerEntry),
	}
}

// Set replaces all handlers of topic with fn.
func (r *Registry) Set(topic string, fn model.Handler) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.topics[topic] {
		e.removed.Store(true)
	}
	r.topics[topic] = []*handlerEntry{{fn: fn}}
	r.logger.Debug("handler set", "topic", topic)
}

// Add appends fn to the handlers of topic.
func (r *Registry) Add(topic string, fn model.Handler) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.topics[topic] = append(r.topics[topic], &handlerEntry{fn: fn})
	r.logger.Debug("handler added", "topic", topic, "count", len(r.topics[topic]))
}

// Remove drops the most recently added handler of topic. When only one
// handler is left the topic is cleared. Handlers are positional: the one
// removed is not necessarily the one a caller registered last.
func (r *Registry) Remove(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, ok := r.topics[topic]
	if !ok {
		return
	}
	if len(entries) > 1 {
		last := entries[len(entries)-1]
		last.removed.Store(true)
		entries[len(entries)-1] = nil
		r.topics[topic] = entries[:len(entries)-1]
		return
	}
	for _, e := range entries {
		e.removed.Store(true)
	}
	delete(r.topics, topic)
}

// Has reports whether topic has at least one handler.
func (r *Registry) Has(topic string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic]) > 0
}

// Len returns the number of handlers registered for topic.
func (r *Registry) Len(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}

// Dispatch invokes every handler registered for msg.Subject and reports
// whether any was registered. Handlers run without the lock held, so they
// may modify the registry.
func (r *Registry) Dispatch(msg model.Message) bool {
	r.mu.RLock()
	entries := r.topics[msg.Subject]
	snapshot := make([]*handlerEntry, len(entries))
	copy(snapshot, entries)
	r.mu.RUnlock()

	if len(snapshot) == 0 {
		r.missed.Add(1)
		return false
	}

	for _, e := range snapshot {
		if e.removed.Load() {
			continue
		}
		e.fn(msg)
	}
	r.dispatched.Add(1)
	return true
}

// Stats returns current statistics.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var handlers int
	for _, entries := range r.topics {
		handlers += len(entries)
	}
	return Stats{
		Topics:     len(r.topics),
		Handlers:   handlers,
		Dispatched: r.dispatched.Load(),
		Missed:     r.missed.Load(),
	}
}
