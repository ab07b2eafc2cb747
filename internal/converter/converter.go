// Package converter turns a delimited text table into the fast-mRMR binary
// layout: an 8-byte header of (samples, features) followed by one category
// code per cell, row-major.
//
// The input is read twice. The first pass counts features from the header
// line and counts data rows; the second pass rewinds, writes the header and
// encodes exactly the number of rows announced in it. Memory use is bounded
// by the category dictionaries, never by the input size.
package converter

import (
	"bufio"
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/mrmr/pkg/category"
	"github.com/ajitpratap0/mrmr/pkg/errors"
	"github.com/ajitpratap0/mrmr/pkg/format"
	"github.com/ajitpratap0/mrmr/pkg/observability"
	"github.com/ajitpratap0/mrmr/pkg/tokenizer"
)

// cancelCheckInterval is how many lines are read between context checks
const cancelCheckInterval = 4096

var (
	// ErrNoHeader is returned when the input has no first line
	ErrNoHeader = errors.Sentinel(errors.ErrorTypeData, "input has no header line")
	// ErrColumnMismatch is returned when a data row does not have one token per feature
	ErrColumnMismatch = errors.Sentinel(errors.ErrorTypeData, "column count mismatch")
	// ErrInputChanged is returned when the second pass finds fewer rows than the first
	ErrInputChanged = errors.Sentinel(errors.ErrorTypeData, "input changed between passes")
	// ErrLineTooLong is returned when a line exceeds Options.MaxLineBytes
	ErrLineTooLong = errors.Sentinel(errors.ErrorTypeData, "line exceeds maximum length")
)

// Options configures a conversion
type Options struct {
	// Delimiter separates tokens within a line
	Delimiter byte
	// Alignment truncates the row count to a multiple of itself; 0 disables it
	Alignment uint64
	// MaxLineBytes bounds the scanner buffer
	MaxLineBytes int
	// Engine encodes the header integers
	Engine format.EndianEngine
	// BufferSize of the output writer
	BufferSize int
	Logger     *zap.Logger
}

// DefaultOptions returns comma separated, unaligned, native byte order options
func DefaultOptions() Options {
	return Options{
		Delimiter:    tokenizer.DefaultDelimiter,
		MaxLineBytes: 1 << 20,
		Engine:       format.NativeEngine(),
		BufferSize:   64 * 1024,
		Logger:       zap.NewNop(),
	}
}

func (o *Options) normalize() {
	def := DefaultOptions()
	if o.Delimiter == 0 {
		o.Delimiter = def.Delimiter
	}
	if o.MaxLineBytes <= 0 {
		o.MaxLineBytes = def.MaxLineBytes
	}
	if o.Engine == nil {
		o.Engine = def.Engine
	}
	if o.BufferSize <= 0 {
		o.BufferSize = def.BufferSize
	}
	if o.Logger == nil {
		o.Logger = def.Logger
	}
}

// Counts is the outcome of the counting pass
type Counts struct {
	Features int
	Rows     uint64
}

// Result describes a finished conversion
type Result struct {
	Header format.Header
	// TotalRows is the number of data rows before alignment
	TotalRows uint64
	// Dropped is the number of trailing rows left out for alignment
	Dropped uint64
	// Names are the header line tokens
	Names   []string
	Encoder *category.Encoder
	// Written is the number of bytes emitted, header included
	Written        int64
	CountDuration  time.Duration
	EncodeDuration time.Duration
}

// Align truncates rows to a multiple of alignment and returns the kept and dropped counts
func Align(rows, alignment uint64) (kept, dropped uint64) {
	if alignment == 0 {
		return rows, 0
	}
	dropped = rows % alignment
	return rows - dropped, dropped
}

// Convert runs both passes over in and writes the binary dataset to out
func Convert(ctx context.Context, in io.ReadSeeker, out io.Writer, opts Options) (*Result, error) {
	opts.normalize()
	log := opts.Logger

	result := &Result{}

	start := time.Now()
	var counts Counts
	err := observability.Trace(ctx, "count", func(ctx context.Context, span *observability.Span) error {
		var err error
		counts, err = Count(ctx, in, opts)
		span.SetAttribute("features", counts.Features)
		span.SetAttribute("rows", counts.Rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	result.CountDuration = time.Since(start)
	result.TotalRows = counts.Rows

	kept, dropped := Align(counts.Rows, opts.Alignment)
	result.Dropped = dropped
	if dropped > 0 {
		log.Info("dropping trailing rows for alignment",
			zap.Uint64("rows", counts.Rows),
			zap.Uint64("dropped", dropped),
			zap.Uint64("alignment", opts.Alignment))
	}

	header, err := format.NewHeader(kept, uint64(counts.Features))
	if err != nil {
		return nil, err
	}
	result.Header = header

	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to rewind input")
	}

	start = time.Now()
	err = observability.Trace(ctx, "encode", func(ctx context.Context, span *observability.Span) error {
		enc, names, written, err := Encode(ctx, in, out, header, opts)
		result.Encoder = enc
		result.Names = names
		result.Written = written
		span.SetAttribute("samples", header.Samples)
		span.SetAttribute("bytes", written)
		return err
	})
	if err != nil {
		return nil, err
	}
	result.EncodeDuration = time.Since(start)

	log.Debug("conversion finished",
		zap.Uint32("samples", header.Samples),
		zap.Uint32("features", header.Features),
		zap.Int64("bytes", result.Written),
		zap.Duration("count", result.CountDuration),
		zap.Duration("encode", result.EncodeDuration))

	return result, nil
}

// Count reads the header line to count features and every following line to count rows
func Count(ctx context.Context, r io.Reader, opts Options) (Counts, error) {
	opts.normalize()
	sc := newScanner(r, opts.MaxLineBytes)

	if !sc.Scan() {
		if err := scanError(sc, 1); err != nil {
			return Counts{}, err
		}
		return Counts{}, ErrNoHeader
	}

	counts := Counts{Features: tokenizer.Count(sc.Text(), opts.Delimiter)}
	for sc.Scan() {
		counts.Rows++
		if counts.Rows%cancelCheckInterval == 0 {
			if err := checkContext(ctx); err != nil {
				return Counts{}, err
			}
		}
	}
	if err := scanError(sc, counts.Rows+2); err != nil {
		return Counts{}, err
	}
	return counts, checkContext(ctx)
}

// Encode skips the header line, writes h, then encodes exactly h.Samples rows.
// It returns the encoder state, the header names and the bytes written.
func Encode(ctx context.Context, r io.Reader, w io.Writer, h format.Header, opts Options) (*category.Encoder, []string, int64, error) {
	opts.normalize()
	sc := newScanner(r, opts.MaxLineBytes)

	if !sc.Scan() {
		if err := scanError(sc, 1); err != nil {
			return nil, nil, 0, err
		}
		return nil, nil, 0, ErrNoHeader
	}
	names, err := splitAll(sc.Text(), opts.Delimiter)
	if err != nil {
		return nil, nil, 0, err
	}
	if len(names) != int(h.Features) {
		return nil, nil, 0, errors.Wrap(ErrInputChanged, errors.ErrorTypeData, "header line changed").
			WithDetail("expected", h.Features).
			WithDetail("actual", len(names))
	}

	enc := category.NewEncoder(int(h.Features))
	bw := format.NewWriter(w, opts.Engine, opts.BufferSize)
	if err := bw.WriteHeader(h); err != nil {
		return nil, nil, 0, err
	}

	features := int(h.Features)
	tok := tokenizer.New("", opts.Delimiter)
	for row := uint64(0); row < uint64(h.Samples); row++ {
		line := row + 2
		if !sc.Scan() {
			if err := scanError(sc, line); err != nil {
				return nil, nil, 0, err
			}
			return nil, nil, 0, errors.Wrap(ErrInputChanged, errors.ErrorTypeData, "input ended early").
				WithDetail("line", line).
				WithDetail("expected_rows", h.Samples)
		}
		if row%cancelCheckInterval == 0 {
			if err := checkContext(ctx); err != nil {
				return nil, nil, 0, err
			}
		}

		text := sc.Text()
		if n := tokenizer.Count(text, opts.Delimiter); n != features {
			return nil, nil, 0, errors.Wrap(ErrColumnMismatch, errors.ErrorTypeData, "row does not match header").
				WithDetail("line", line).
				WithDetail("expected", features).
				WithDetail("actual", n)
		}

		tok.Reset(text)
		for col := 0; col < features; col++ {
			token, err := tok.NextToken()
			if err != nil {
				return nil, nil, 0, err
			}
			code, err := enc.Encode(col, token)
			if err != nil {
				if e, ok := err.(*errors.Error); ok {
					e.WithDetail("line", line)
				}
				return nil, nil, 0, err
			}
			if err := bw.WriteCode(code); err != nil {
				return nil, nil, 0, err
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return nil, nil, 0, err
	}
	return enc, names, format.HeaderSize + bw.Written(), nil
}

func newScanner(r io.Reader, maxLine int) *bufio.Scanner {
	initial := 64 * 1024
	if maxLine < initial {
		initial = maxLine
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, initial), maxLine)
	return sc
}

func scanError(sc *bufio.Scanner, line uint64) error {
	err := sc.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, bufio.ErrTooLong) {
		return errors.Wrap(ErrLineTooLong, errors.ErrorTypeData, "cannot read line").
			WithDetail("line", line)
	}
	return errors.Wrap(err, errors.ErrorTypeFile, "failed to read input").
		WithDetail("line", line)
}

func splitAll(line string, delim byte) ([]string, error) {
	out := make([]string, 0, tokenizer.Count(line, delim))
	tok := tokenizer.New(line, delim)
	for tok.HasMoreTokens() {
		t, err := tok.NextToken()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeCanceled, "conversion canceled")
	}
	return nil
}
