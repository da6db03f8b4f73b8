// Package codec serializes a keyed collection of entities to and from a byte
// stream. Codecs are pluggable and looked up by name from a process-wide
// registry.
package codec

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// ErrUnknownCodec is returned by Get for names that were never registered.
var ErrUnknownCodec = errors.New("unknown codec")

// Codec encodes and decodes values to a structured representation.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Name is the registry name of the codec.
	Name() string
	// Extension is the file extension, without a leading dot, of the
	// uncompressed payload.
	Extension() string
	// Encode writes the representation of v to w.
	Encode(w io.Writer, v any) error
	// Decode reads one representation from r into the value v points to.
	Decode(r io.Reader, v any) error
}

// Default is the codec used when no name is configured.
const Default = "json"

var codecs = xsync.NewMapOf[string, Codec]()

func init() {
	Register(JSON{})
	Register(YAML{})
	Register(Proto{})
}

// Register adds or replaces a codec under c.Name().
func Register(c Codec) {
	codecs.Store(c.Name(), c)
}

// Get returns the codec registered under name. An empty name resolves to
// Default.
func Get(name string) (Codec, error) {
	if name == "" {
		name = Default
	}
	c, ok := codecs.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}
	return c, nil
}

// Names returns the registered codec names in sorted order.
func Names() []string {
	names := make([]string, 0, codecs.Size())
	codecs.Range(func(name string, _ Codec) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}
