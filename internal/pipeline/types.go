package pipeline

import (
	"time"

	"github.com/ajitpratap0/mrmr/pkg/format"
)

// Summary reports a finished conversion
type Summary struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	// Dictionary is empty when no sidecar was written
	Dictionary string `json:"dictionary,omitempty"`

	Samples   uint32 `json:"samples"`
	Features  uint32 `json:"features"`
	TotalRows uint64 `json:"total_rows"`
	Dropped   uint64 `json:"dropped_rows"`

	// RawBytes is the size of the uncompressed dataset
	RawBytes int64 `json:"raw_bytes"`
	// OutputBytes is the size of the published artifact
	OutputBytes int64  `json:"output_bytes"`
	Checksum    string `json:"xxh64"`
	Compression string `json:"compression"`

	Duration time.Duration `json:"duration"`
}

// InspectReport describes a dataset read back from disk
type InspectReport struct {
	Location    string        `json:"location"`
	Header      format.Header `json:"header"`
	Size        int64         `json:"size"`
	Checksum    string        `json:"xxh64"`
	Distinct    []int         `json:"distinct_codes"`
	Compression string        `json:"compression"`
	// Rows holds the leading rows requested with InspectOptions.Head
	Rows [][]int `json:"rows,omitempty"`
	// Verified is set when a manifest was supplied and matched
	Verified bool `json:"verified"`
}
