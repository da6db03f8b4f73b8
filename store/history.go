package store

import (
	"errors"
	"slices"
	"sync"

	"github.com/tailored-agentic-units/datastore/entity"
	"github.com/tailored-agentic-units/datastore/observability"
)

// History keeps an undo stack of snapshots for one store. Backup pushes the
// current state and Undo pops and restores the most recent entry. History is
// safe for concurrent use.
type History[T entity.Entity] struct {
	store    *Store[T]
	stack    []*Snapshot[T]
	maxDepth int
	mu       sync.Mutex
}

// HistoryOption configures a History.
type HistoryOption func(*historyOptions)

type historyOptions struct {
	maxDepth int
}

// WithMaxDepth bounds the stack to n entries, dropping the oldest first.
// Zero or less means unbounded.
func WithMaxDepth(n int) HistoryOption {
	return func(o *historyOptions) {
		o.maxDepth = n
	}
}

// NewHistory creates an empty History for s.
func NewHistory[T entity.Entity](s *Store[T], opts ...HistoryOption) *History[T] {
	var o historyOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &History[T]{store: s, maxDepth: o.maxDepth}
}

// Backup captures the store's current state and pushes it.
func (h *History[T]) Backup() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap, err := h.store.save()
	if err != nil {
		return err
	}
	h.stack = append(h.stack, snap)
	if h.maxDepth > 0 && len(h.stack) > h.maxDepth {
		h.stack = slices.Delete(h.stack, 0, len(h.stack)-h.maxDepth)
	}

	h.store.emit(EventBackup, observability.LevelVerbose, "history.Backup", map[string]any{
		"snapshot": snap.id,
		"depth":    len(h.stack),
	})
	return nil
}

// Undo restores the most recent snapshot and removes it. An empty history
// is a no-op. Entries the store rejects as foreign are discarded and the
// next most recent is tried. Any other failure leaves the entry in place.
func (h *History[T]) Undo() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for len(h.stack) > 0 {
		top := len(h.stack) - 1
		snap := h.stack[top]

		err := h.store.restore(snap)
		if err != nil && !errors.Is(err, ErrTypeMismatch) {
			return err
		}

		h.stack[top] = nil
		h.stack = h.stack[:top]

		if err != nil {
			h.store.emit(EventSkip, observability.LevelWarning, "history.Undo", map[string]any{
				"snapshot": snap.id,
			})
			continue
		}

		h.store.emit(EventUndo, observability.LevelInfo, "history.Undo", map[string]any{
			"snapshot": snap.id,
			"depth":    len(h.stack),
		})
		return nil
	}
	return nil
}

// Len returns the number of snapshots held.
func (h *History[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.stack)
}

// Snapshots returns the held snapshots, oldest first.
func (h *History[T]) Snapshots() []*Snapshot[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.stack)
}
