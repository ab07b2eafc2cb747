// Package compression wraps a finished binary dataset in a single compressed
// stream, and unwraps it again for inspection.
//
// # Algorithm Selection
//
//   - LZ4: extremely fast, decent compression
//   - Snappy/S2: fast, moderate compression
//   - Zstd: best ratio, good speed
//   - Gzip: widest compatibility
//
// # Basic Usage
//
//	comp, err := compression.NewCompressor(&compression.Config{
//	    Algorithm: compression.Zstd,
//	    Level:     compression.Default,
//	})
//	err = comp.CompressStream(dst, src)
//
// Category grids are small integers with long runs, so every algorithm here
// compresses them well.
package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy framed compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
)

// Algorithms lists every supported algorithm
var Algorithms = []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2}

// ParseAlgorithm resolves a user supplied name; the empty string means None
func ParseAlgorithm(name string) (Algorithm, error) {
	if name == "" {
		return None, nil
	}
	a := Algorithm(strings.ToLower(name))
	for _, known := range Algorithms {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unsupported compression algorithm: %s", name)
}

// Extension returns the conventional file suffix, empty for None
func (a Algorithm) Extension() string {
	switch a {
	case Gzip:
		return ".gz"
	case Snappy:
		return ".sz"
	case LZ4:
		return ".lz4"
	case Zstd:
		return ".zst"
	case S2:
		return ".s2"
	default:
		return ""
	}
}

// AlgorithmForPath guesses the algorithm from a file name suffix, None when
// no known suffix matches
func AlgorithmForPath(name string) Algorithm {
	lower := strings.ToLower(name)
	for _, a := range Algorithms {
		if ext := a.Extension(); ext != "" && strings.HasSuffix(lower, ext) {
			return a
		}
	}
	return None
}

// Level controls the trade-off between speed and ratio
type Level int

const (
	// Fastest prioritizes speed over compression ratio
	Fastest Level = 1
	// Default balances speed and compression
	Default Level = 5
	// Better improves compression at cost of speed
	Better Level = 7
	// Best maximizes compression ratio
	Best Level = 9
)

// String returns the level name
func (l Level) String() string {
	switch l {
	case Fastest:
		return "Fastest"
	case Default:
		return "Default"
	case Better:
		return "Better"
	case Best:
		return "Best"
	default:
		return "Unknown"
	}
}

// Compressor compresses and decompresses streams
type Compressor interface {
	// CompressStream compresses from src to dst and finishes the stream
	CompressStream(dst io.Writer, src io.Reader) error

	// DecompressStream decompresses from src to dst
	DecompressStream(dst io.Writer, src io.Reader) error

	// Algorithm returns the compression algorithm used
	Algorithm() Algorithm
}

// Config represents compressor configuration
type Config struct {
	Algorithm Algorithm // Compression algorithm to use
	Level     Level     // Compression level
}

// DefaultConfig returns a configuration that does not compress
func DefaultConfig() *Config {
	return &Config{
		Algorithm: None,
		Level:     Default,
	}
}

// NewCompressor creates a compressor; a nil config means no compression
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Algorithm {
	case None, "":
		return noneCompressor{}, nil
	case Gzip:
		return gzipCompressor{level: mapGzipLevel(config.Level)}, nil
	case Snappy:
		return snappyCompressor{}, nil
	case LZ4:
		return lz4Compressor{level: mapLZ4Level(config.Level)}, nil
	case Zstd:
		return zstdCompressor{level: mapZstdLevel(config.Level)}, nil
	case S2:
		return s2Compressor{}, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", config.Algorithm)
	}
}

// Decompress is a convenience wrapper for in-memory data
func Decompress(c Compressor, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.DecompressStream(&buf, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// None compressor (no compression)
type noneCompressor struct{}

func (noneCompressor) Algorithm() Algorithm { return None }

func (noneCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	return err
}

func (noneCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	return err
}

// Gzip compressor
type gzipCompressor struct {
	level int
}

func (gzipCompressor) Algorithm() Algorithm { return Gzip }

func (gc gzipCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	w, err := gzip.NewWriterLevel(dst, gc.level)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (gzipCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	r, err := gzip.NewReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	_, err = io.Copy(dst, r) //nolint:gosec // G110: inputs are our own outputs
	return err
}

// Snappy compressor
type snappyCompressor struct{}

func (snappyCompressor) Algorithm() Algorithm { return Snappy }

func (snappyCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	w := snappy.NewBufferedWriter(dst)
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (snappyCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, snappy.NewReader(src))
	return err
}

// LZ4 compressor
type lz4Compressor struct {
	level lz4.CompressionLevel
}

func (lz4Compressor) Algorithm() Algorithm { return LZ4 }

func (lc lz4Compressor) CompressStream(dst io.Writer, src io.Reader) error {
	w := lz4.NewWriter(dst)

	if err := w.Apply(lz4.CompressionLevelOption(lc.level)); err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (lz4Compressor) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, lz4.NewReader(src))
	return err
}

// Zstd compressor
type zstdCompressor struct {
	level zstd.EncoderLevel
}

func (zstdCompressor) Algorithm() Algorithm { return Zstd }

func (zc zstdCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zc.level))
	if err != nil {
		return err
	}
	if _, err := io.Copy(enc, src); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func (zstdCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return err
	}
	defer dec.Close()

	_, err = io.Copy(dst, dec)
	return err
}

// S2 compressor (Snappy-compatible but better compression)
type s2Compressor struct{}

func (s2Compressor) Algorithm() Algorithm { return S2 }

func (s2Compressor) CompressStream(dst io.Writer, src io.Reader) error {
	w := s2.NewWriter(dst)
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (s2Compressor) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, s2.NewReader(src))
	return err
}

// Helper functions to map compression levels

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
