package persist

import (
	"compress/gzip"
	"fmt"
	"time"
)

// DefaultRetryTimeout bounds how long a file held by another process is
// retried before the failure is surfaced.
const DefaultRetryTimeout = 10 * time.Second

// Config holds file persistence parameters.
type Config struct {
	Directory        string   `json:"directory,omitempty" yaml:"directory,omitempty"`                 // Empty selects os.TempDir().
	Name             string   `json:"name,omitempty" yaml:"name,omitempty"`                           // Logical store file name, without extension.
	Codec            string   `json:"codec,omitempty" yaml:"codec,omitempty"`                         // Registered codec name; empty selects codec.Default.
	CompressionLevel int      `json:"compression_level,omitempty" yaml:"compression_level,omitempty"` // gzip level 1-9; 0 selects gzip.DefaultCompression.
	RetryTimeout     Duration `json:"retry_timeout,omitempty" yaml:"retry_timeout,omitempty"`
}

// DefaultConfig returns the default persistence configuration.
func DefaultConfig() Config {
	return Config{
		Codec:            "json",
		CompressionLevel: gzip.DefaultCompression,
		RetryTimeout:     Duration(DefaultRetryTimeout),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Directory != "" {
		c.Directory = source.Directory
	}
	if source.Name != "" {
		c.Name = source.Name
	}
	if source.Codec != "" {
		c.Codec = source.Codec
	}
	if source.CompressionLevel != 0 {
		c.CompressionLevel = source.CompressionLevel
	}
	if source.RetryTimeout > 0 {
		c.RetryTimeout = source.RetryTimeout
	}
}

func (c *Config) compressionLevel() (int, error) {
	level := c.CompressionLevel
	if level == 0 {
		return gzip.DefaultCompression, nil
	}
	if level != gzip.DefaultCompression && (level < gzip.BestSpeed || level > gzip.BestCompression) {
		return 0, fmt.Errorf("%w: compression level must be 1-9, got %d", ErrInvalidArgument, level)
	}
	return level, nil
}

func (c *Config) retryTimeout() time.Duration {
	if c.RetryTimeout <= 0 {
		return DefaultRetryTimeout
	}
	return time.Duration(c.RetryTimeout)
}

// Duration is a time.Duration read from and written as text ("10s", "250ms").
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}
