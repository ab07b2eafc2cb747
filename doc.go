// Package mrmr converts delimited text files into the binary dataset layout
// consumed by fast-mRMR feature selection.
//
// Every column is treated as categorical. The distinct values of a column are
// numbered 0, 1, 2, ... in the order they first appear and each cell is
// written as a single byte, so a column holds at most 256 categories.
//
// # Output Layout
//
//	offset 0  uint32  samples
//	offset 4  uint32  features
//	offset 8  samples*features bytes, row-major
//
// Both header fields use the byte order of the converting machine unless
// --byte-order selects little or big endian. With --gpu the sample count is
// rounded down to a multiple of 16 and the trailing rows are not written.
//
// # Quick Start
//
//	mrmr-reader -f data.csv -o data.mrmr
//	mrmr-reader -f data.csv -o data.mrmr --gpu
//	mrmr-reader -f s3://bucket/data.csv -o gs://bucket/data.mrmr.zst \
//	    --compress zstd --dictionary gs://bucket/data.json
//	mrmr-reader inspect data.mrmr.zst --dictionary data.json
//
// # Key Packages
//
//	internal/converter - Two-pass count and encode of a seekable input
//	internal/pipeline  - Staging, compression, sidecar and metrics around a run
//	pkg/tokenizer      - Single-byte delimiter splitting
//	pkg/category       - Per-column first-seen category dictionaries
//	pkg/format         - Header and grid writer/reader, byte order engines
//	pkg/manifest       - JSON sidecar mapping codes back to categories
//	pkg/storage        - Local, S3 and GCS locations with temp-and-rename commits
//	pkg/compression    - gzip, snappy, lz4, zstd and s2 streams
//	pkg/config         - YAML, environment and flag configuration
//	pkg/errors         - Structured error handling
//	pkg/logger         - Structured logging
//	pkg/metrics        - Prometheus metrics and textfile export
//	pkg/observability  - OpenTelemetry tracing
//
// # Configuration
//
// Settings are merged from defaults, a YAML file passed with --config,
// MRMR_* environment variables (for example MRMR_OUTPUT_PATH) and flags, with
// later sources taking precedence. A .env file in the working directory is
// loaded first. YAML values support ${VAR_NAME} substitution.
package mrmr
