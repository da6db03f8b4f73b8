package codec

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAML encodes values as a YAML document.
type YAML struct{}

func (YAML) Name() string { return "yaml" }

func (YAML) Extension() string { return "yaml" }

func (YAML) Encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (YAML) Decode(r io.Reader, v any) error {
	err := yaml.NewDecoder(r).Decode(v)
	if err == io.EOF {
		return nil
	}
	return err
}
