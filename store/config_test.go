package store_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tailored-agentic-units/datastore/persist"
	"github.com/tailored-agentic-units/datastore/store"
)

func TestDefaultConfig(t *testing.T) {
	cfg := store.DefaultConfig()

	if cfg.Observer != "noop" {
		t.Errorf("Observer = %q, want %q", cfg.Observer, "noop")
	}
	if cfg.Persist.Codec != "json" {
		t.Errorf("Persist.Codec = %q, want %q", cfg.Persist.Codec, "json")
	}
	if time.Duration(cfg.Persist.RetryTimeout) != persist.DefaultRetryTimeout {
		t.Errorf("Persist.RetryTimeout = %v, want %v", time.Duration(cfg.Persist.RetryTimeout), persist.DefaultRetryTimeout)
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := store.DefaultConfig()
	cfg.Merge(&store.Config{
		Persist:  persist.Config{Name: "contacts"},
		Observer: "slog",
	})

	if cfg.Observer != "slog" {
		t.Errorf("Observer = %q, want %q", cfg.Observer, "slog")
	}
	if cfg.Persist.Name != "contacts" {
		t.Errorf("Persist.Name = %q, want %q", cfg.Persist.Name, "contacts")
	}
	if cfg.Persist.Codec != "json" {
		t.Errorf("Persist.Codec = %q, want default preserved", cfg.Persist.Codec)
	}
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantName string
		wantCode string
	}{
		{
			name:     "json",
			file:     "config.json",
			content:  `{"persist":{"name":"contacts","codec":"proto","retry_timeout":"2s"},"observer":"slog"}`,
			wantName: "contacts",
			wantCode: "proto",
		},
		{
			name:     "yaml",
			file:     "config.yaml",
			content:  "persist:\n  name: notes\n  codec: yaml\n  retry_timeout: 2s\nobserver: slog\n",
			wantName: "notes",
			wantCode: "yaml",
		},
		{
			name:     "yml",
			file:     "config.yml",
			content:  "persist:\n  name: notes\n  retry_timeout: 2s\nobserver: slog\n",
			wantName: "notes",
			wantCode: "json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}

			cfg, err := store.LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			if cfg.Persist.Name != tt.wantName {
				t.Errorf("Persist.Name = %q, want %q", cfg.Persist.Name, tt.wantName)
			}
			if cfg.Persist.Codec != tt.wantCode {
				t.Errorf("Persist.Codec = %q, want %q", cfg.Persist.Codec, tt.wantCode)
			}
			if time.Duration(cfg.Persist.RetryTimeout) != 2*time.Second {
				t.Errorf("Persist.RetryTimeout = %v, want 2s", time.Duration(cfg.Persist.RetryTimeout))
			}
			if cfg.Observer != "slog" {
				t.Errorf("Observer = %q, want %q", cfg.Observer, "slog")
			}
		})
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := store.LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadConfig() should fail for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := store.LoadConfig(path); err == nil {
		t.Error("LoadConfig() should fail for invalid JSON")
	}
}
