// Package store provides a concurrent, file-backed keyed collection of
// entities with snapshot and undo support.
//
// A Store holds its state in memory and loads it from disk on first access.
// Mutations are only written back by SaveChanges, which replaces the whole
// file. Reads share a lock; Create, Update, and Delete check and mutate
// atomically with respect to every other writer.
//
//	contacts, err := store.Open[*Contact]("contacts", dir)
//	c, err := contacts.Create(&Contact{Name: "Ada"})
//	_, err = contacts.SaveChanges(ctx)
package store

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/datastore/codec"
	"github.com/tailored-agentic-units/datastore/entity"
	"github.com/tailored-agentic-units/datastore/observability"
	"github.com/tailored-agentic-units/datastore/persist"
)

// Store is an in-memory keyed collection of T persisted to a single file.
// All methods are safe for concurrent use. T is normally a pointer to a
// struct embedding entity.Base; the store keeps the values it is given and
// returns them without copying.
type Store[T entity.Entity] struct {
	id       string
	name     string
	file     *persist.File[T]
	observer observability.Observer

	lock   upgradeableLock
	state  map[string]T
	loaded atomic.Bool
	initMu sync.Mutex
	closed atomic.Bool
}

// Option configures a Store.
type Option func(*options)

type options struct {
	observers []observability.Observer
	codec     codec.Codec
}

// WithObserver routes store and persistence events to obs. It takes
// precedence over Config.Observer. Repeated observers all receive every
// event.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithLogger routes events to logger through a SlogObserver.
func WithLogger(logger *slog.Logger) Option {
	return WithObserver(observability.NewSlogObserver(logger))
}

// WithCodec overrides the codec named in Config.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// New creates a Store from configuration. A nil cfg uses DefaultConfig. An
// empty Persist.Name defaults to the entity type name pluralized, and an
// empty Persist.Directory to os.TempDir(). Nothing is read from disk until
// the first operation.
func New[T entity.Entity](cfg *Config, opts ...Option) (*Store[T], error) {
	c := DefaultConfig()
	if cfg != nil {
		c.Merge(cfg)
	}
	if c.Persist.Name == "" {
		c.Persist.Name = entity.TypeName[T]() + "s"
	}

	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	var obs observability.Observer
	switch len(o.observers) {
	case 0:
		var err error
		obs, err = observability.GetObserver(c.Observer)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	case 1:
		obs = o.observers[0]
	default:
		obs = observability.NewMultiObserver(o.observers...)
	}

	persistOpts := []persist.Option{persist.WithObserver(obs)}
	if o.codec != nil {
		persistOpts = append(persistOpts, persist.WithCodec(o.codec))
	}
	file, err := persist.New[T](c.Persist, persistOpts...)
	if err != nil {
		return nil, err
	}

	return &Store[T]{
		id:       entity.NewID().String(),
		name:     c.Persist.Name,
		file:     file,
		observer: obs,
	}, nil
}

// Open creates a Store with default configuration for the given name and
// optional directory.
func Open[T entity.Entity](name string, directory ...string) (*Store[T], error) {
	cfg := DefaultConfig()
	cfg.Persist.Name = name
	if len(directory) > 0 {
		cfg.Persist.Directory = directory[0]
	}
	return New[T](&cfg)
}

// Name returns the logical store name.
func (s *Store[T]) Name() string { return s.name }

// Path returns the path of the store file.
func (s *Store[T]) Path() string { return s.file.Path() }

// Count returns the number of entities.
func (s *Store[T]) Count() (int, error) {
	if err := s.ensureLoaded(); err != nil {
		return 0, err
	}
	var n int
	err := s.lock.read(func() error {
		if err := s.alive(); err != nil {
			return err
		}
		n = len(s.state)
		return nil
	})
	return n, err
}

// GetAll returns every entity, ordered by key.
func (s *Store[T]) GetAll() ([]T, error) {
	return s.collect(nil)
}

// Get returns the entities matching predicate, ordered by key. predicate
// runs under the read lock and must not call back into the store's
// mutating methods.
func (s *Store[T]) Get(predicate func(T) bool) ([]T, error) {
	if predicate == nil {
		return nil, fmt.Errorf("%w: predicate is nil", ErrInvalidArgument)
	}
	return s.collect(predicate)
}

// GetSingle returns the one entity matching predicate. ok is false when
// nothing matches; more than one match fails with ErrAmbiguousResult.
func (s *Store[T]) GetSingle(predicate func(T) bool) (result T, ok bool, err error) {
	matches, err := s.Get(predicate)
	if err != nil {
		return result, false, err
	}
	switch len(matches) {
	case 0:
		return result, false, nil
	case 1:
		return matches[0], true, nil
	default:
		return result, false, fmt.Errorf("%w: %d entities", ErrAmbiguousResult, len(matches))
	}
}

// GetByID returns the entity stored under key. A malformed key fails with
// ErrInvalidArgument; an absent key returns ok false.
func (s *Store[T]) GetByID(key string) (result T, ok bool, err error) {
	id, err := parseKey(key)
	if err != nil {
		return result, false, err
	}
	if err := s.ensureLoaded(); err != nil {
		return result, false, err
	}
	err = s.lock.read(func() error {
		if err := s.alive(); err != nil {
			return err
		}
		result, ok = s.state[entity.Key(id)]
		return nil
	})
	return result, ok, err
}

// Create inserts e and returns it. An empty identifier is replaced with a
// fresh one before insertion; an identifier already present fails with
// ErrDuplicateKey.
func (s *Store[T]) Create(e T) (T, error) {
	var zero T
	if entity.IsNil(e) {
		return zero, fmt.Errorf("%w: entity is nil", ErrInvalidArgument)
	}
	if v, ok := any(e).(entity.IDValidator); ok {
		if err := v.ValidateID(); err != nil {
			return zero, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
	}
	if err := s.ensureLoaded(); err != nil {
		return zero, err
	}

	id := e.GetID()
	if entity.IsEmptyID(id) {
		id = entity.NewID()
		e.SetID(id)
	}
	key := entity.Key(id)

	err := s.lock.upgradeable(
		func() error {
			if err := s.alive(); err != nil {
				return err
			}
			if _, exists := s.state[key]; exists {
				return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
			}
			return nil
		},
		func() { s.state[key] = e },
	)
	if err != nil {
		return zero, err
	}

	s.emit(EventCreate, observability.LevelVerbose, "store.Create", map[string]any{"key": key})
	return e, nil
}

// Update replaces the entity stored under key with e, forcing e's
// identifier to key. An absent key fails with ErrNotFound.
func (s *Store[T]) Update(key string, e T) (T, error) {
	var zero T
	if entity.IsNil(e) {
		return zero, fmt.Errorf("%w: entity is nil", ErrInvalidArgument)
	}
	id, err := parseKey(key)
	if err != nil {
		return zero, err
	}
	if err := s.ensureLoaded(); err != nil {
		return zero, err
	}
	key = entity.Key(id)

	err = s.lock.upgradeable(
		func() error {
			if err := s.alive(); err != nil {
				return err
			}
			if _, exists := s.state[key]; !exists {
				return fmt.Errorf("%w: %s", ErrNotFound, key)
			}
			return nil
		},
		func() {
			e.SetID(id)
			s.state[key] = e
		},
	)
	if err != nil {
		return zero, err
	}

	s.emit(EventUpdate, observability.LevelVerbose, "store.Update", map[string]any{"key": key})
	return e, nil
}

// Delete removes the entity stored under key. An absent key fails with
// ErrNotFound.
func (s *Store[T]) Delete(key string) (bool, error) {
	id, err := parseKey(key)
	if err != nil {
		return false, err
	}
	if err := s.ensureLoaded(); err != nil {
		return false, err
	}
	key = entity.Key(id)

	err = s.lock.upgradeable(
		func() error {
			if err := s.alive(); err != nil {
				return err
			}
			if _, exists := s.state[key]; !exists {
				return fmt.Errorf("%w: %s", ErrNotFound, key)
			}
			return nil
		},
		func() { delete(s.state, key) },
	)
	if err != nil {
		return false, err
	}

	s.emit(EventDelete, observability.LevelVerbose, "store.Delete", map[string]any{"key": key})
	return true, nil
}

// Truncate removes every entity.
func (s *Store[T]) Truncate() (bool, error) {
	if err := s.ensureLoaded(); err != nil {
		return false, err
	}
	var removed int
	err := s.lock.write(func() error {
		if err := s.alive(); err != nil {
			return err
		}
		removed = len(s.state)
		s.state = make(map[string]T)
		return nil
	})
	if err != nil {
		return false, err
	}

	s.emit(EventTruncate, observability.LevelInfo, "store.Truncate", map[string]any{"removed": removed})
	return true, nil
}

// SaveChanges writes the current state to the store file, replacing it.
// Writers are excluded for the duration, including any in-use retry.
func (s *Store[T]) SaveChanges(ctx context.Context) (bool, error) {
	if err := s.ensureLoaded(); err != nil {
		return false, err
	}
	start := time.Now()
	var entries int
	err := s.lock.write(func() error {
		if err := s.alive(); err != nil {
			return err
		}
		entries = len(s.state)
		return s.file.Write(ctx, s.state)
	})
	if err != nil {
		return false, err
	}

	s.emitCtx(ctx, EventSave, observability.LevelInfo, "store.SaveChanges", map[string]any{
		"entries":  entries,
		"path":     s.file.Path(),
		"duration": time.Since(start),
	})
	return true, nil
}

// Close releases the in-memory state. Unsaved changes are discarded and
// every later operation fails with ErrClosed. Close is idempotent.
func (s *Store[T]) Close() error {
	closed := false
	s.lock.write(func() error {
		if s.closed.Swap(true) {
			return nil
		}
		s.state = nil
		closed = true
		return nil
	})
	if closed {
		s.emit(EventClose, observability.LevelVerbose, "store.Close", nil)
	}
	return nil
}

// save captures a deep copy of the current state.
func (s *Store[T]) save() (*Snapshot[T], error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	var data map[string]T
	err := s.lock.read(func() error {
		if err := s.alive(); err != nil {
			return err
		}
		data = copyState(s.state)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.name, err)
	}

	snap := &Snapshot[T]{
		id:      entity.NewID().String(),
		owner:   s.id,
		takenAt: time.Now(),
		data:    data,
	}
	s.emit(EventSnapshot, observability.LevelVerbose, "store.save", map[string]any{
		"snapshot": snap.id,
		"entries":  len(data),
	})
	return snap, nil
}

// restore replaces the state wholesale with a copy of snap. Snapshots taken
// from any other store instance fail with ErrTypeMismatch.
func (s *Store[T]) restore(snap *Snapshot[T]) error {
	if snap == nil {
		return fmt.Errorf("%w: snapshot is nil", ErrInvalidArgument)
	}
	if snap.owner != s.id {
		return fmt.Errorf("%w: snapshot %s", ErrTypeMismatch, snap.id)
	}
	// A lazy load after the restore would overwrite it.
	if err := s.ensureLoaded(); err != nil {
		return err
	}

	data := copyState(snap.data)
	err := s.lock.write(func() error {
		if err := s.alive(); err != nil {
			return err
		}
		s.state = data
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(EventRestore, observability.LevelInfo, "store.restore", map[string]any{
		"snapshot": snap.id,
		"entries":  len(data),
	})
	return nil
}

// ensureLoaded reads the store file on first access. Concurrent first
// accesses load once; a failed load is retried by the next access.
func (s *Store[T]) ensureLoaded() error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.loaded.Load() {
		return nil
	}

	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.loaded.Load() {
		return nil
	}

	data, err := s.file.Load(context.Background())
	if err != nil {
		return err
	}
	err = s.lock.write(func() error {
		if err := s.alive(); err != nil {
			return err
		}
		s.state = data
		return nil
	})
	if err != nil {
		return err
	}
	s.loaded.Store(true)

	s.emit(EventLoad, observability.LevelVerbose, "store.load", map[string]any{"entries": len(data)})
	return nil
}

func (s *Store[T]) alive() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (s *Store[T]) collect(predicate func(T) bool) ([]T, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	var result []T
	err := s.lock.read(func() error {
		if err := s.alive(); err != nil {
			return err
		}
		result = make([]T, 0, len(s.state))
		for _, key := range slices.Sorted(maps.Keys(s.state)) {
			v := s.state[key]
			if predicate == nil || predicate(v) {
				result = append(result, v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store[T]) emit(eventType observability.EventType, level observability.Level, source string, data map[string]any) {
	s.emitCtx(context.Background(), eventType, level, source, data)
}

func (s *Store[T]) emitCtx(ctx context.Context, eventType observability.EventType, level observability.Level, source string, data map[string]any) {
	observability.Emit(ctx, s.observer, observability.Event{
		Type:   eventType,
		Level:  level,
		Source: source,
		Store:  s.name,
		Data:   data,
	})
}

func parseKey(key string) (uuid.UUID, error) {
	id, err := entity.ParseKey(key)
	if err != nil {
		return id, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return id, nil
}
