// Package entity defines the identity contract shared by every value kept in
// a datastore. The store reads and assigns identifiers through this contract
// and never depends on any other entity behavior.
package entity

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidKey is returned when a key is empty, malformed, or the nil
// identifier.
var ErrInvalidKey = errors.New("invalid key")

// Entity is any value exposing a gettable and settable unique identifier.
type Entity interface {
	GetID() uuid.UUID
	SetID(id uuid.UUID)
}

// IDValidator is implemented by entities whose stored identifier can be
// malformed. GetID reports such an identifier as empty; ValidateID tells it
// apart from one that is absent.
type IDValidator interface {
	ValidateID() error
}

// Base is an embeddable Entity implementation. Embed it in a struct and store
// pointers to that struct. YAML needs the inline tag to flatten the id.
//
//	type Contact struct {
//	    entity.Base `yaml:",inline"`
//	    Name string `json:"name" yaml:"name"`
//	}
type Base struct {
	ID uuid.UUID `json:"id" yaml:"id"`
}

func (b *Base) GetID() uuid.UUID { return b.ID }

func (b *Base) SetID(id uuid.UUID) { b.ID = id }

// NewID returns a fresh time-ordered identifier.
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// Key renders id in the canonical form used as a map key.
func Key(id uuid.UUID) string {
	return id.String()
}

// IsEmptyID reports whether id is the zero identifier.
func IsEmptyID(id uuid.UUID) bool {
	return id == uuid.Nil
}

// ParseKey validates key and returns the identifier it names. Empty,
// whitespace-only, malformed, and nil identifiers are rejected.
func ParseKey(key string) (uuid.UUID, error) {
	if strings.TrimSpace(key) == "" {
		return uuid.Nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	id, err := uuid.Parse(key)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q: %v", ErrInvalidKey, key, err)
	}
	if IsEmptyID(id) {
		return uuid.Nil, fmt.Errorf("%w: %q is the nil identifier", ErrInvalidKey, key)
	}
	return id, nil
}

// IsNil reports whether v is absent: a nil interface, or a nil pointer, map,
// slice, or interface value.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// TypeName returns the name of T with pointer indirections removed.
func TypeName[T any]() string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "Entity"
	}
	return t.Name()
}
