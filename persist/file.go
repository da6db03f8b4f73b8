// Package persist writes and reads one store's full keyed collection as a
// compressed, codec-encoded file. Every write replaces the whole file.
package persist

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/tailored-agentic-units/datastore/codec"
	"github.com/tailored-agentic-units/datastore/observability"
)

const (
	bufferSize = 8192
	fileMode   = 0o644

	opWrite = "write"
	opLoad  = "load"
)

// File owns a validated (directory, name) pair and persists a map of
// entities to it. File is safe for concurrent use; callers that need the
// in-memory map and the file to agree serialize access themselves.
type File[T any] struct {
	dir      string
	name     string
	path     string
	lockPath string
	codec    codec.Codec
	level    int
	timeout  time.Duration
	observer observability.Observer
}

// Option configures a File.
type Option func(*options)

type options struct {
	codec    codec.Codec
	observer observability.Observer
}

// WithCodec overrides the codec named in Config.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithObserver routes persistence events to obs.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// New validates cfg and returns a File. An empty Directory selects
// os.TempDir(); the file itself is not touched until the first Write or Load.
func New[T any](cfg Config, opts ...Option) (*File[T], error) {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if err := validateName(cfg.Name); err != nil {
		return nil, err
	}

	dir := cfg.Directory
	if dir == "" {
		dir = os.TempDir()
	} else if err := validatePath("directory", dir); err != nil {
		return nil, err
	}

	c := o.codec
	if c == nil {
		var err error
		c, err = codec.Get(cfg.Codec)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}

	level, err := cfg.compressionLevel()
	if err != nil {
		return nil, err
	}

	obs := o.observer
	if obs == nil {
		obs = observability.NoOpObserver{}
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.%s.gz", cfg.Name, c.Extension()))
	return &File[T]{
		dir:      dir,
		name:     cfg.Name,
		path:     path,
		lockPath: path + ".lock",
		codec:    c,
		level:    level,
		timeout:  cfg.retryTimeout(),
		observer: obs,
	}, nil
}

// Path returns the full path of the store file.
func (f *File[T]) Path() string { return f.path }

// Name returns the logical store name.
func (f *File[T]) Name() string { return f.name }

// Directory returns the directory holding the store file.
func (f *File[T]) Directory() string { return f.dir }

// Codec returns the codec used for the payload.
func (f *File[T]) Codec() codec.Codec { return f.codec }

// Write encodes data, compresses it, and atomically replaces the store file.
// While another process holds the file, the attempt is repeated without
// backoff until the retry timeout elapses.
func (f *File[T]) Write(ctx context.Context, data map[string]T) error {
	start := time.Now()
	var size int64
	err := f.retry(ctx, opWrite, func() error {
		n, err := f.write(data)
		size = n
		return err
	})
	f.record(ctx, opWrite, start, err)
	if err != nil {
		return err
	}

	fileSizeBytes.WithLabelValues(f.name).Set(float64(size))
	observability.Emit(ctx, f.observer, observability.Event{
		Type:   EventWrite,
		Level:  observability.LevelVerbose,
		Source: "persist.Write",
		Store:  f.name,
		Data: map[string]any{
			"entries":  len(data),
			"bytes":    size,
			"duration": time.Since(start),
		},
	})
	return nil
}

// Load reads and decodes the store file. A missing file is first use: an
// empty map is persisted, establishing the file, and returned.
func (f *File[T]) Load(ctx context.Context) (map[string]T, error) {
	start := time.Now()
	var (
		data    map[string]T
		created bool
	)
	err := f.retry(ctx, opLoad, func() error {
		loaded, err := f.load()
		if errors.Is(err, fs.ErrNotExist) {
			loaded = make(map[string]T)
			if _, err = f.write(loaded); err == nil {
				created = true
			}
		}
		data = loaded
		return err
	})
	f.record(ctx, opLoad, start, err)
	if err != nil {
		return nil, err
	}

	eventType := EventLoad
	if created {
		eventType = EventCreate
	}
	observability.Emit(ctx, f.observer, observability.Event{
		Type:   eventType,
		Level:  observability.LevelVerbose,
		Source: "persist.Load",
		Store:  f.name,
		Data: map[string]any{
			"entries":  len(data),
			"path":     f.path,
			"duration": time.Since(start),
		},
	})
	return data, nil
}

// retry runs attempt until it succeeds, fails with anything other than an
// in-use error, or the in-use condition outlasts the timeout. The clock
// starts at the first in-use failure.
func (f *File[T]) retry(ctx context.Context, op string, attempt func() error) error {
	var deadline time.Time
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %s %s: %w", ErrIO, op, f.path, err)
		}

		err := attempt()
		if err == nil {
			return nil
		}
		if !inUse(err) {
			return fmt.Errorf("%w: %s %s: %w", ErrIO, op, f.path, err)
		}

		now := time.Now()
		if deadline.IsZero() {
			deadline = now.Add(f.timeout)
			observability.Emit(ctx, f.observer, observability.Event{
				Type:   EventRetry,
				Level:  observability.LevelWarning,
				Source: "persist." + op,
				Store:  f.name,
				Data:   map[string]any{"path": f.path, "timeout": f.timeout},
			})
		}
		if now.After(deadline) {
			return fmt.Errorf("%w: %w: %s %s after %v", ErrIO, ErrFileInUse, op, f.path, f.timeout)
		}
		retriesTotal.WithLabelValues(f.name, op).Inc()
		runtime.Gosched()
	}
}

func (f *File[T]) record(ctx context.Context, op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		observability.Emit(ctx, f.observer, observability.Event{
			Type:   EventError,
			Level:  observability.LevelError,
			Source: "persist." + op,
			Store:  f.name,
			Data:   map[string]any{"path": f.path, "error": err.Error()},
		})
	}
	operationsTotal.WithLabelValues(f.name, op, status).Inc()
	operationDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

func (f *File[T]) write(data map[string]T) (int64, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return 0, err
	}

	lock, err := f.acquire(true)
	if err != nil {
		return 0, err
	}
	defer f.release(lock)

	tmp, err := os.CreateTemp(f.dir, "."+f.name+".tmp-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	counter := &countingWriter{w: tmp}
	buffered := bufio.NewWriterSize(counter, bufferSize)
	gz, err := gzip.NewWriterLevel(buffered, f.level)
	if err != nil {
		return 0, err
	}
	if err := f.codec.Encode(gz, data); err != nil {
		gz.Close()
		return 0, fmt.Errorf("encode: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, err
	}
	if err := buffered.Flush(); err != nil {
		return 0, err
	}
	if err := tmp.Chmod(fileMode); err != nil {
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return 0, err
	}
	cleanup = false

	return counter.count, nil
}

func (f *File[T]) load() (map[string]T, error) {
	if _, err := os.Stat(f.path); err != nil {
		return nil, err
	}

	lock, err := f.acquire(false)
	if err != nil {
		return nil, err
	}
	defer f.release(lock)

	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	gz, err := gzip.NewReader(bufio.NewReaderSize(file, bufferSize))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	defer gz.Close()

	var data map[string]T
	if err := f.codec.Decode(gz, &data); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if data == nil {
		data = make(map[string]T)
	}
	return data, nil
}

// acquire opens the sidecar lock file and takes a shared or exclusive
// advisory lock on it.
func (f *File[T]) acquire(exclusive bool) (*os.File, error) {
	lock, err := os.OpenFile(f.lockPath, os.O_CREATE|os.O_RDWR, fileMode)
	if err != nil {
		return nil, err
	}
	if err := tryLock(lock, exclusive); err != nil {
		lock.Close()
		return nil, err
	}
	return lock, nil
}

func (f *File[T]) release(lock *os.File) {
	unlock(lock)
	lock.Close()
}

type countingWriter struct {
	w     io.Writer
	count int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.count += int64(n)
	return n, err
}

func validateName(name string) error {
	if err := validatePath("name", name); err != nil {
		return err
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: name %q must not contain path separators", ErrInvalidArgument, name)
	}
	return nil
}

func validatePath(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidArgument, field)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("%w: %s %q contains invalid characters", ErrInvalidArgument, field, value)
	}
	return nil
}
