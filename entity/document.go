package entity

import (
	"fmt"

	"github.com/google/uuid"
)

// IDField is the member holding a Document's identifier. It matches the
// serialized name of Base.ID, so files written for typed entities can be
// read back as documents.
const IDField = "id"

// Document is a schemaless entity. Its identifier lives under IDField in
// canonical string form.
type Document map[string]any

// NewDocument returns an empty document with no identifier.
func NewDocument() Document {
	return Document{}
}

func (d Document) GetID() uuid.UUID {
	raw, ok := d[IDField]
	if !ok {
		return uuid.Nil
	}
	switch v := raw.(type) {
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil
		}
		return id
	case uuid.UUID:
		return v
	case fmt.Stringer:
		id, err := uuid.Parse(v.String())
		if err != nil {
			return uuid.Nil
		}
		return id
	}
	return uuid.Nil
}

// ValidateID fails with ErrInvalidKey when IDField holds a value that is not
// an identifier. An absent, nil, or empty member is valid and means the
// document has no identifier yet.
func (d Document) ValidateID() error {
	raw, ok := d[IDField]
	if !ok || raw == nil {
		return nil
	}
	var text string
	switch v := raw.(type) {
	case uuid.UUID:
		return nil
	case string:
		text = v
	case fmt.Stringer:
		text = v.String()
	default:
		return fmt.Errorf("%w: %s holds %T", ErrInvalidKey, IDField, raw)
	}
	if text == "" {
		return nil
	}
	if _, err := uuid.Parse(text); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidKey, text, err)
	}
	return nil
}

func (d Document) SetID(id uuid.UUID) {
	d[IDField] = id.String()
}

// Clone returns a copy of d. Nested maps and slices are copied recursively.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case Document:
		return Document(cloneValue(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}
