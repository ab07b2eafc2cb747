// Package format reads and writes the fast-mRMR binary dataset layout.
//
// Layout:
//
//	offset 0  uint32  samples   (row count)
//	offset 4  uint32  features  (column count)
//	offset 8  samples*features bytes, row-major category codes
//
// Integers use the byte order of an EndianEngine, the host order by default.
// There is no footer, checksum or version tag.
package format

import (
	"bufio"
	"io"
	"math"

	"github.com/ajitpratap0/mrmr/pkg/errors"
)

// HeaderSize is the fixed size of the header in bytes
const HeaderSize = 8

var (
	// ErrInvalidHeaderSize is returned when fewer than HeaderSize bytes are available
	ErrInvalidHeaderSize = errors.Sentinel(errors.ErrorTypeData, "invalid header size")
	// ErrTruncatedGrid is returned when the grid is shorter than the header promises
	ErrTruncatedGrid = errors.Sentinel(errors.ErrorTypeData, "truncated grid")
	// ErrTrailingData is returned when bytes follow the grid
	ErrTrailingData = errors.Sentinel(errors.ErrorTypeData, "trailing data after grid")
)

// Header is the fixed-size header at the start of a dataset
type Header struct {
	// Samples is the number of rows in the grid, byte offset 0-3
	Samples uint32
	// Features is the number of codes per row, byte offset 4-7
	Features uint32
}

// NewHeader builds a header, rejecting dimensions that do not fit 32 bits
func NewHeader(samples, features uint64) (Header, error) {
	if samples > math.MaxUint32 || features > math.MaxUint32 {
		return Header{}, errors.New(errors.ErrorTypeOverflow, "dataset dimensions exceed 32 bits").
			WithDetail("samples", samples).
			WithDetail("features", features)
	}
	return Header{Samples: uint32(samples), Features: uint32(features)}, nil
}

// GridSize returns the number of code bytes following the header
func (h Header) GridSize() int64 {
	return int64(h.Samples) * int64(h.Features)
}

// Size returns the total encoded size of a dataset with this header
func (h Header) Size() int64 {
	return HeaderSize + h.GridSize()
}

// Bytes serializes the header
func (h Header) Bytes(engine EndianEngine) []byte {
	b := make([]byte, 0, HeaderSize)
	b = engine.AppendUint32(b, h.Samples)
	b = engine.AppendUint32(b, h.Features)
	return b
}

// ParseHeader parses a header from the first HeaderSize bytes of data
func ParseHeader(data []byte, engine EndianEngine) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrInvalidHeaderSize
	}
	return Header{
		Samples:  engine.Uint32(data[0:4]),
		Features: engine.Uint32(data[4:8]),
	}, nil
}

// Writer emits a dataset: one header followed by code bytes
type Writer struct {
	w       *bufio.Writer
	engine  EndianEngine
	header  Header
	written int64
	started bool
}

// NewWriter wraps w with a buffer of bufSize bytes
func NewWriter(w io.Writer, engine EndianEngine, bufSize int) *Writer {
	if engine == nil {
		engine = NativeEngine()
	}
	return &Writer{w: bufio.NewWriterSize(w, bufSize), engine: engine}
}

// WriteHeader writes the header. It must be called exactly once, before any code.
func (w *Writer) WriteHeader(h Header) error {
	if w.started {
		return errors.New(errors.ErrorTypeInternal, "header already written")
	}
	if _, err := w.w.Write(h.Bytes(w.engine)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write header")
	}
	w.header = h
	w.started = true
	return nil
}

// WriteCode appends one code to the grid
func (w *Writer) WriteCode(code byte) error {
	if !w.started {
		return errors.New(errors.ErrorTypeInternal, "code written before header")
	}
	if err := w.w.WriteByte(code); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write code")
	}
	w.written++
	return nil
}

// Written returns the number of grid bytes written so far
func (w *Writer) Written() int64 {
	return w.written
}

// Flush flushes buffered bytes and checks the grid matches the header
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush output")
	}
	if w.started && w.written != w.header.GridSize() {
		return errors.New(errors.ErrorTypeInternal, "grid size does not match header").
			WithDetail("expected", w.header.GridSize()).
			WithDetail("written", w.written)
	}
	return nil
}

// Dataset is a fully decoded binary dataset
type Dataset struct {
	Header Header
	Grid   []byte
}

// Row returns the codes of row i
func (d *Dataset) Row(i int) []byte {
	f := int(d.Header.Features)
	return d.Grid[i*f : (i+1)*f]
}

// DistinctCodes returns the number of distinct codes in each column
func (d *Dataset) DistinctCodes() []int {
	f := int(d.Header.Features)
	seen := make([][256]bool, f)
	out := make([]int, f)
	for i, code := range d.Grid {
		col := i % f
		if !seen[col][code] {
			seen[col][code] = true
			out[col]++
		}
	}
	return out
}

// ReadDataset decodes a complete dataset from r and verifies its length
func ReadDataset(r io.Reader, engine EndianEngine) (*Dataset, error) {
	if engine == nil {
		engine = NativeEngine()
	}

	var hb [HeaderSize]byte
	if _, err := io.ReadFull(r, hb[:]); err != nil {
		return nil, errors.Wrap(ErrInvalidHeaderSize, errors.ErrorTypeData, "failed to read header").
			WithDetail("cause", err.Error())
	}
	h, err := ParseHeader(hb[:], engine)
	if err != nil {
		return nil, err
	}

	grid := make([]byte, h.GridSize())
	n, err := io.ReadFull(r, grid)
	if err != nil {
		return nil, errors.Wrap(ErrTruncatedGrid, errors.ErrorTypeData, "grid shorter than header").
			WithDetail("expected", h.GridSize()).
			WithDetail("read", n)
	}

	var extra [1]byte
	if m, _ := r.Read(extra[:]); m > 0 {
		return nil, ErrTrailingData
	}

	return &Dataset{Header: h, Grid: grid}, nil
}
