package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailored-agentic-units/datastore/persist"
	"gopkg.in/yaml.v3"
)

// Config holds store initialization parameters.
type Config struct {
	Persist  persist.Config `json:"persist" yaml:"persist"`
	Observer string         `json:"observer,omitempty" yaml:"observer,omitempty"` // Registered observer name.
}

// DefaultConfig returns the default store configuration. The file name is
// left empty and derived from the entity type by New.
func DefaultConfig() Config {
	return Config{
		Persist:  persist.DefaultConfig(),
		Observer: "noop",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	c.Persist.Merge(&source.Persist)

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// LoadConfig reads a config file, merges it with defaults, and returns the
// resulting Config. Files ending in .yaml or .yml are parsed as YAML,
// anything else as JSON.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	default:
		err = json.Unmarshal(data, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
