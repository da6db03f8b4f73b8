package store

import "time"

// Cloner is implemented by entities that copy themselves. Stores whose
// entity type implements it use Clone for snapshots. Other entities are
// copied field by field through reflection, unexported fields included;
// channels, functions, and unsafe pointers inside an entity are shared
// between the live state and its snapshots, and a mutex is copied in
// whatever state it holds. Entities with such fields should implement Cloner.
type Cloner[T any] interface {
	Clone() T
}

// Snapshot is an immutable deep copy of a store's state. It is created by
// History.Backup and only the store that produced it can restore it.
type Snapshot[T any] struct {
	id      string
	owner   string
	takenAt time.Time
	data    map[string]T
}

// ID returns the snapshot identifier.
func (s *Snapshot[T]) ID() string { return s.id }

// TakenAt returns the capture time.
func (s *Snapshot[T]) TakenAt() time.Time { return s.takenAt }

// Len returns the number of entities captured.
func (s *Snapshot[T]) Len() int { return len(s.data) }

// Data returns a deep copy of the captured state.
func (s *Snapshot[T]) Data() map[string]T {
	return copyState(s.data)
}

// copyState deep-copies a state map, preferring Cloner over reflection.
func copyState[T any](src map[string]T) map[string]T {
	dst := make(map[string]T, len(src))
	var zero T
	if _, ok := any(zero).(Cloner[T]); ok {
		for k, v := range src {
			dst[k] = any(v).(Cloner[T]).Clone()
		}
		return dst
	}
	for k, v := range src {
		dst[k] = deepCopy(v)
	}
	return dst
}
