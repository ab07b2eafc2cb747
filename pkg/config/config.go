// Package config provides the configuration of a conversion run.
//
// The configuration is organized into logical sections:
//   - Input: where the CSV comes from and how lines are split
//   - Output: where the binary goes and how it is packaged
//   - Encoding: row alignment for GPU consumers
//   - Storage: credentials for s3:// and gs:// locations
//   - Observability: logging, metrics and tracing
//
// Example usage:
//
//	cfg := config.NewDefault()
//	cfg.Input.Path = "data.csv"
//	cfg.Output.Path = "data.mrmr"
//	cfg.Encoding.GPU = true
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"

	"github.com/ajitpratap0/mrmr/pkg/compression"
	"github.com/ajitpratap0/mrmr/pkg/errors"
	"github.com/ajitpratap0/mrmr/pkg/format"
)

// GPUAlignment is the row multiple required by the GPU build of fast-mRMR
const GPUAlignment = 16

// Config is the complete configuration of one conversion
type Config struct {
	Input         InputConfig         `yaml:"input" json:"input" mapstructure:"input"`
	Output        OutputConfig        `yaml:"output" json:"output" mapstructure:"output"`
	Encoding      EncodingConfig      `yaml:"encoding" json:"encoding" mapstructure:"encoding"`
	Storage       StorageConfig       `yaml:"storage" json:"storage" mapstructure:"storage"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`
}

// InputConfig describes the source table
type InputConfig struct {
	// Path is a local path or an s3:// or gs:// URL
	Path string `yaml:"path" json:"path" mapstructure:"path"`
	// Delimiter separates fields; exactly one byte
	Delimiter string `yaml:"delimiter" json:"delimiter" mapstructure:"delimiter"`
	// MaxLineBytes bounds the length of a single line
	MaxLineBytes int `yaml:"max_line_bytes" json:"max_line_bytes" mapstructure:"max_line_bytes"`
}

// OutputConfig describes the produced binary
type OutputConfig struct {
	// Path is a local path or an s3:// or gs:// URL
	Path string `yaml:"path" json:"path" mapstructure:"path"`
	// Compression wraps the finished binary in one compressed stream
	Compression string `yaml:"compression" json:"compression" mapstructure:"compression"`
	// Dictionary, when set, receives a JSON sidecar with the category mapping
	Dictionary string `yaml:"dictionary" json:"dictionary" mapstructure:"dictionary"`
	// ByteOrder of the header: native, little or big
	ByteOrder string `yaml:"byte_order" json:"byte_order" mapstructure:"byte_order"`
	// BufferSize of the output writer in bytes
	BufferSize int `yaml:"buffer_size" json:"buffer_size" mapstructure:"buffer_size"`
}

// EncodingConfig controls how rows are emitted
type EncodingConfig struct {
	// GPU drops trailing rows so the row count is a multiple of GPUAlignment
	GPU bool `yaml:"gpu" json:"gpu" mapstructure:"gpu"`
}

// StorageConfig holds remote object storage settings
type StorageConfig struct {
	// Region for S3; empty uses the AWS default chain
	Region string `yaml:"region" json:"region" mapstructure:"region"`
	// CredentialsFile for GCS; empty uses application default credentials
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file" mapstructure:"credentials_file"`
	// TempDir stages remote inputs and outputs; empty uses the OS default
	TempDir string `yaml:"temp_dir" json:"temp_dir" mapstructure:"temp_dir"`
}

// ObservabilityConfig contains logging, metrics and tracing settings
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
	// LogFormat is console or json
	LogFormat string `yaml:"log_format" json:"log_format" mapstructure:"log_format"`
	// MetricsFile receives Prometheus text exposition after the run
	MetricsFile string `yaml:"metrics_file" json:"metrics_file" mapstructure:"metrics_file"`
	// Trace exports one span per conversion pass to stderr
	Trace bool `yaml:"trace" json:"trace" mapstructure:"trace"`
}

// NewDefault creates a Config with defaults for everything but the paths
func NewDefault() *Config {
	return &Config{
		Input: InputConfig{
			Delimiter:    ",",
			MaxLineBytes: 1 << 20, // 1MB
		},
		Output: OutputConfig{
			Compression: string(compression.None),
			ByteOrder:   "native",
			BufferSize:  64 * 1024,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.Input.Path == "" {
		return errors.New(errors.ErrorTypeUsage, "input path is required")
	}
	if c.Output.Path == "" {
		return errors.New(errors.ErrorTypeUsage, "output path is required")
	}
	if len(c.Input.Delimiter) != 1 {
		return errors.New(errors.ErrorTypeConfig, "delimiter must be exactly one byte").
			WithDetail("delimiter", c.Input.Delimiter)
	}
	if d := c.Input.Delimiter[0]; d == '\n' || d == '\r' {
		return errors.New(errors.ErrorTypeConfig, "delimiter cannot be a line terminator")
	}
	if c.Input.MaxLineBytes <= 0 {
		return errors.New(errors.ErrorTypeConfig, "max_line_bytes must be positive")
	}
	if c.Output.BufferSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "buffer_size must be positive")
	}
	if _, err := compression.ParseAlgorithm(c.Output.Compression); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid compression")
	}
	if _, ok := format.EngineByName(c.Output.ByteOrder); !ok {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("unknown byte order %q", c.Output.ByteOrder))
	}
	if c.Output.Dictionary != "" && c.Output.Dictionary == c.Output.Path {
		return errors.New(errors.ErrorTypeConfig, "dictionary path must differ from output path")
	}
	return nil
}

// DelimiterByte returns the field separator
func (i *InputConfig) DelimiterByte() byte {
	if i.Delimiter == "" {
		return ','
	}
	return i.Delimiter[0]
}

// Alignment returns the required row multiple, 0 when rows are not aligned
func (e *EncodingConfig) Alignment() uint64 {
	if e.GPU {
		return GPUAlignment
	}
	return 0
}

// Engine returns the byte order for the header
func (o *OutputConfig) Engine() format.EndianEngine {
	e, ok := format.EngineByName(o.ByteOrder)
	if !ok {
		return format.NativeEngine()
	}
	return e
}
