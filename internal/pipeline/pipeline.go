// Package pipeline runs a complete conversion: it stages the input, drives
// the two-pass converter, optionally compresses the result, writes the
// dictionary sidecar and publishes every artifact atomically.
//
// # Basic Usage
//
//	p := pipeline.New(cfg, stager, collector, logger)
//	summary, err := p.Run(ctx)
//
// Nothing is created at the destination until the whole dataset has been
// encoded. A missing input fails before any output file exists, and a failed
// run removes its staging files.
package pipeline

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/mrmr/internal/converter"
	"github.com/ajitpratap0/mrmr/pkg/compression"
	"github.com/ajitpratap0/mrmr/pkg/config"
	"github.com/ajitpratap0/mrmr/pkg/errors"
	"github.com/ajitpratap0/mrmr/pkg/format"
	"github.com/ajitpratap0/mrmr/pkg/manifest"
	"github.com/ajitpratap0/mrmr/pkg/metrics"
	"github.com/ajitpratap0/mrmr/pkg/observability"
	"github.com/ajitpratap0/mrmr/pkg/storage"
)

const (
	datasetContentType  = "application/octet-stream"
	manifestContentType = "application/json"
)

// Pipeline converts one input into one output
type Pipeline struct {
	cfg       *config.Config
	stager    *storage.Stager
	collector *metrics.Collector
	logger    *zap.Logger
}

// New creates a pipeline. The config must already be validated.
func New(cfg *config.Config, stager *storage.Stager, collector *metrics.Collector, logger *zap.Logger) *Pipeline {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Pipeline{
		cfg:       cfg,
		stager:    stager,
		collector: collector,
		logger:    logger.With(zap.String("component", "pipeline")),
	}
}

type locations struct {
	input      storage.Location
	output     storage.Location
	dictionary *storage.Location
}

func (p *Pipeline) resolve() (locations, error) {
	var locs locations
	var err error

	if locs.input, err = storage.ParseLocation(p.cfg.Input.Path); err != nil {
		return locs, err
	}
	if locs.output, err = storage.ParseLocation(p.cfg.Output.Path); err != nil {
		return locs, err
	}
	if p.cfg.Output.Dictionary != "" {
		dict, err := storage.ParseLocation(p.cfg.Output.Dictionary)
		if err != nil {
			return locs, err
		}
		locs.dictionary = &dict
	}
	return locs, nil
}

// Run executes the conversion and records its outcome in the collector
func (p *Pipeline) Run(ctx context.Context) (summary *Summary, err error) {
	start := time.Now()
	defer func() {
		p.collector.RecordStatus(err)
		if memErr := p.collector.SampleMemory(); memErr != nil {
			p.logger.Debug("memory sample failed", zap.Error(memErr))
		}
	}()

	err = observability.Trace(ctx, "convert", func(ctx context.Context, span *observability.Span) error {
		var runErr error
		summary, runErr = p.run(ctx)
		if summary != nil {
			span.SetAttribute("input", summary.Input)
			span.SetAttribute("output", summary.Output)
			span.SetAttribute("samples", summary.Samples)
			span.SetAttribute("features", summary.Features)
			span.SetAttribute("dropped", summary.Dropped)
			if summary.Dropped > 0 {
				span.AddEvent("samples dropped for alignment",
					attribute.Int64("dropped", int64(summary.Dropped)),
					attribute.Int64("kept", int64(summary.Samples)))
			}
		}
		return runErr
	})
	if err != nil {
		return nil, err
	}

	summary.Duration = time.Since(start)
	p.logger.Info("conversion completed",
		zap.String("input", summary.Input),
		zap.String("output", summary.Output),
		zap.Uint32("samples", summary.Samples),
		zap.Uint32("features", summary.Features),
		zap.Uint64("dropped", summary.Dropped),
		zap.Int64("bytes", summary.OutputBytes),
		zap.String("xxh64", summary.Checksum),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context) (*Summary, error) {
	locs, err := p.resolve()
	if err != nil {
		return nil, err
	}
	algorithm, err := compression.ParseAlgorithm(p.cfg.Output.Compression)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid compression")
	}

	// The input is opened first so a missing input never touches the output
	in, err := p.stager.OpenInput(ctx, locs.input)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	out, err := p.stager.CreateOutput(locs.output)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	if ext := algorithm.Extension(); ext != "" && !strings.HasSuffix(strings.ToLower(locs.output.Base()), ext) {
		p.logger.Warn("output name does not carry the compression suffix",
			zap.String("output", locs.output.String()),
			zap.String("suffix", ext))
	}

	p.logger.Info("converting",
		zap.String("input", locs.input.String()),
		zap.String("output", locs.output.String()),
		zap.Bool("gpu", p.cfg.Encoding.GPU),
		zap.String("compression", string(algorithm)))

	// Raw bytes go straight to the output unless they need compressing first
	raw := out.File
	var scratch *storage.StagedFile
	if algorithm != compression.None {
		scratch, err = p.stager.CreateScratch(locs.output.Base() + ".raw")
		if err != nil {
			return nil, err
		}
		defer scratch.Close()
		raw = scratch.File
	}

	digest := manifest.NewDigest()
	result, err := converter.Convert(ctx, in, io.MultiWriter(raw, digest), p.converterOptions())
	if err != nil {
		return nil, err
	}
	p.collector.ObservePass("count", result.CountDuration)
	p.collector.ObservePass("encode", result.EncodeDuration)
	p.collector.AddBytes("dataset", result.Written)

	if scratch != nil {
		if err := p.compress(ctx, algorithm, scratch.File, out.File); err != nil {
			return nil, err
		}
	}

	outputBytes, err := sizeOf(out.File)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Input:       locs.input.String(),
		Output:      locs.output.String(),
		Samples:     result.Header.Samples,
		Features:    result.Header.Features,
		TotalRows:   result.TotalRows,
		Dropped:     result.Dropped,
		RawBytes:    result.Written,
		OutputBytes: outputBytes,
		Checksum:    manifest.Checksum(digest.Sum64()),
		Compression: string(algorithm),
	}

	var dictFile *storage.StagedFile
	if locs.dictionary != nil {
		dictFile, err = p.writeManifest(*locs.dictionary, result, summary)
		if err != nil {
			return nil, err
		}
		defer dictFile.Close()
	}

	if err := p.stager.Commit(ctx, out, locs.output, datasetContentType); err != nil {
		return nil, err
	}
	if dictFile != nil {
		if err := p.stager.Commit(ctx, dictFile, *locs.dictionary, manifestContentType); err != nil {
			return nil, err
		}
		summary.Dictionary = locs.dictionary.String()
	}

	p.collector.RecordResult(uint64(result.Header.Samples), result.Dropped, result.Encoder.Cardinalities())
	p.collector.AddBytes("output", outputBytes)
	return summary, nil
}

func (p *Pipeline) converterOptions() converter.Options {
	return converter.Options{
		Delimiter:    p.cfg.Input.DelimiterByte(),
		Alignment:    p.cfg.Encoding.Alignment(),
		MaxLineBytes: p.cfg.Input.MaxLineBytes,
		Engine:       p.cfg.Output.Engine(),
		BufferSize:   p.cfg.Output.BufferSize,
		Logger:       p.logger,
	}
}

func (p *Pipeline) compress(ctx context.Context, algorithm compression.Algorithm, src, dst *os.File) error {
	timer := metrics.NewTimer("compress")
	err := observability.Trace(ctx, timer.Name(), func(_ context.Context, span *observability.Span) error {
		level := compression.Default
		span.SetAttribute("algorithm", string(algorithm))
		span.SetAttribute("level", level.String())

		comp, err := compression.NewCompressor(&compression.Config{
			Algorithm: algorithm,
			Level:     level,
		})
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "failed to create compressor")
		}
		if _, err := src.Seek(0, io.SeekStart); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to rewind dataset")
		}
		if err := comp.CompressStream(dst, src); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to compress dataset").
				WithDetail("algorithm", string(algorithm))
		}
		return nil
	})
	p.collector.ObservePass(timer.Name(), timer.Stop())
	return err
}

func (p *Pipeline) writeManifest(loc storage.Location, result *converter.Result, summary *Summary) (*storage.StagedFile, error) {
	f, err := p.stager.CreateOutput(loc)
	if err != nil {
		return nil, err
	}

	m := &manifest.Manifest{
		Version:     manifest.Version,
		Source:      summary.Input,
		Samples:     result.Header.Samples,
		Features:    result.Header.Features,
		Dropped:     result.Dropped,
		ByteOrder:   format.EngineName(p.cfg.Output.Engine()),
		Compression: summary.Compression,
		Size:        result.Written,
		Checksum:    summary.Checksum,
		Columns:     manifest.ColumnsFrom(result.Names, result.Encoder),
	}
	if err := manifest.Write(f, m); err != nil {
		_ = f.Close()
		return nil, err
	}

	n, err := sizeOf(f.File)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	p.collector.AddBytes("manifest", n)
	return f, nil
}

func sizeOf(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat output")
	}
	return info.Size(), nil
}
