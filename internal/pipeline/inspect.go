package pipeline

import (
	"bytes"
	"context"
	"io"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/ajitpratap0/mrmr/pkg/compression"
	"github.com/ajitpratap0/mrmr/pkg/errors"
	"github.com/ajitpratap0/mrmr/pkg/format"
	"github.com/ajitpratap0/mrmr/pkg/manifest"
	"github.com/ajitpratap0/mrmr/pkg/storage"
)

// InspectOptions controls how a dataset is read back
type InspectOptions struct {
	// Compression of the dataset; empty takes it from the manifest, or none
	Compression string
	// ByteOrder of the header; empty takes it from the manifest, or native
	ByteOrder string
	// Manifest, when set, is read and checked against the dataset
	Manifest string
	// Head is the number of leading rows copied into the report
	Head int
}

// Inspect loads a dataset fully into memory, validates its length against
// its header and counts the distinct codes of every column. Without an
// explicit or recorded compression the file suffix decides.
func Inspect(ctx context.Context, stager *storage.Stager, location string, opts InspectOptions, logger *zap.Logger) (*InspectReport, error) {
	loc, err := storage.ParseLocation(location)
	if err != nil {
		return nil, err
	}

	var m *manifest.Manifest
	if opts.Manifest != "" {
		if m, err = readManifest(ctx, stager, opts.Manifest); err != nil {
			return nil, err
		}
		if opts.Compression == "" {
			opts.Compression = m.Compression
		}
		if opts.ByteOrder == "" {
			opts.ByteOrder = m.ByteOrder
		}
	}

	algorithm := compression.AlgorithmForPath(loc.Base())
	if opts.Compression != "" {
		if algorithm, err = compression.ParseAlgorithm(opts.Compression); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid compression")
		}
	}
	engine, ok := format.EngineByName(opts.ByteOrder)
	if !ok {
		return nil, errors.New(errors.ErrorTypeConfig, "unknown byte order").
			WithDetail("byte_order", opts.ByteOrder)
	}

	f, err := stager.OpenInput(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	comp, err := compression.NewCompressor(&compression.Config{Algorithm: algorithm, Level: compression.Default})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create decompressor")
	}
	stored, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read dataset").
			WithDetail("location", loc.String())
	}
	data, err := compression.Decompress(comp, stored)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decompress dataset").
			WithDetail("algorithm", string(algorithm))
	}

	ds, err := format.ReadDataset(bytes.NewReader(data), engine)
	if err != nil {
		return nil, err
	}

	report := &InspectReport{
		Location:    loc.String(),
		Header:      ds.Header,
		Size:        int64(len(data)),
		Checksum:    manifest.Checksum(xxhash.Sum64(data)),
		Distinct:    ds.DistinctCodes(),
		Compression: string(algorithm),
	}
	for i := 0; i < opts.Head && i < int(ds.Header.Samples); i++ {
		row := ds.Row(i)
		codes := make([]int, len(row))
		for j, c := range row {
			codes[j] = int(c)
		}
		report.Rows = append(report.Rows, codes)
	}

	if m != nil {
		if m.Samples != ds.Header.Samples || m.Features != ds.Header.Features {
			return nil, errors.New(errors.ErrorTypeData, "dataset dimensions do not match manifest").
				WithDetail("manifest_samples", m.Samples).
				WithDetail("manifest_features", m.Features).
				WithDetail("samples", ds.Header.Samples).
				WithDetail("features", ds.Header.Features)
		}
		if err := m.Verify(data); err != nil {
			return nil, err
		}
		for i, col := range m.Columns {
			if report.Distinct[i] > len(col.Categories) {
				return nil, errors.New(errors.ErrorTypeData, "column uses codes missing from manifest").
					WithDetail("column", i)
			}
		}
		report.Verified = true
	}

	logger.Debug("dataset inspected",
		zap.String("location", report.Location),
		zap.Uint32("samples", ds.Header.Samples),
		zap.Uint32("features", ds.Header.Features),
		zap.Bool("verified", report.Verified))
	return report, nil
}

func readManifest(ctx context.Context, stager *storage.Stager, location string) (*manifest.Manifest, error) {
	loc, err := storage.ParseLocation(location)
	if err != nil {
		return nil, err
	}
	f, err := stager.OpenInput(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return manifest.Read(f)
}
