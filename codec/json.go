package codec

import (
	"encoding/json"
	"io"
)

// JSON encodes values as compact JSON.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Extension() string { return "json" }

func (JSON) Encode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func (JSON) Decode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}
