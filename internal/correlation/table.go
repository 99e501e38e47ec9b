// Package correlation tracks in-flight requests awaiting their response.
//
// Each entry maps a correlation id to a one-shot callback. An entry leaves the
// table exactly once: when its response is taken, when it expires, or when the
// table is full and it is the oldest entry.
package correlation

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rickgao/meshlink/internal/model"
)

// Defaults for the pending request bound.
const (
	DefaultTTL      = 2 * time.Minute
	DefaultCapacity = 10000
)

// Config bounds the table.
type Config struct {
	TTL      time.Duration // Max time a request waits for its response (0 = DefaultTTL)
	Capacity int           // Max in-flight requests (0 = DefaultCapacity)
}

// EvictFunc is called when an entry leaves the table without a response.
type EvictFunc func(id string)

type entry struct {
	callback model.Handler
	taken    atomic.Bool
}

// Table maps correlation ids to pending callbacks.
type Table struct {
	lru     *expirable.LRU[string, *entry]
	logger  *slog.Logger
	onEvict EvictFunc

	evicted atomic.Int64
}

// NewTable creates a correlation table. onEvict may be nil.
func NewTable(cfg Config, onEvict EvictFunc, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}

	t := &Table{
		logger:  logger,
		onEvict: onEvict,
	}
	t.lru = expirable.NewLRU[string, *entry](cfg.Capacity, t.evict, cfg.TTL)
	return t
}

// evict runs for every removal, including Take. Entries that were taken are
// not reported.
func (t *Table) evict(id string, e *entry) {
	if e.taken.Load() {
		return
	}
	t.evicted.Add(1)
	t.logger.Warn("pending request dropped without response", "id", id)
	if t.onEvict != nil {
		t.onEvict(id)
	}
}

// Put registers cb under id, replacing any callback already stored there.
func (t *Table) Put(id string, cb model.Handler) {
	if old, ok := t.lru.Peek(id); ok {
		// Overwrite on id reuse: the old callback will never fire.
		old.taken.Store(true)
	}
	t.lru.Add(id, &entry{callback: cb})
}

// Take removes and returns the callback for id.
func (t *Table) Take(id string) (model.Handler, bool) {
	if id == "" {
		return nil, false
	}
	e, ok := t.lru.Peek(id)
	if !ok {
		return nil, false
	}
	if !e.taken.CompareAndSwap(false, true) {
		return nil, false
	}
	t.lru.Remove(id)
	return e.callback, true
}

// Remove discards the callback for id without reporting an eviction.
func (t *Table) Remove(id string) {
	if e, ok := t.lru.Peek(id); ok {
		e.taken.Store(true)
		t.lru.Remove(id)
	}
}

// Has reports whether id is pending.
func (t *Table) Has(id string) bool {
	_, ok := t.lru.Peek(id)
	return ok
}

// Len returns the number of pending requests.
func (t *Table) Len() int {
	return t.lru.Len()
}

// Evicted returns how many requests left the table without a response.
func (t *Table) Evicted() int64 {
	return t.evicted.Load()
}

// Purge drops every pending request, reporting each as evicted, and returns
// how many were dropped.
func (t *Table) Purge() int {
	n := t.lru.Len()
	t.lru.Purge()
	return n
}
