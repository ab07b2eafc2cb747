// Package manifest describes a converted dataset in a JSON sidecar: its
// dimensions, the category strings behind every code, and a checksum of the
// uncompressed binary.
package manifest

import (
	"fmt"
	"io"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/ajitpratap0/mrmr/pkg/category"
	"github.com/ajitpratap0/mrmr/pkg/errors"
	"github.com/ajitpratap0/mrmr/pkg/json"
)

// Version of the sidecar layout
const Version = 1

// Column maps the codes of one feature back to the source strings.
// Categories[c] is the token that was assigned code c.
type Column struct {
	Index      int      `json:"index"`
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// Manifest is the sidecar document
type Manifest struct {
	Version     int      `json:"version"`
	Source      string   `json:"source,omitempty"`
	Samples     uint32   `json:"samples"`
	Features    uint32   `json:"features"`
	Dropped     uint64   `json:"dropped_rows"`
	ByteOrder   string   `json:"byte_order"`
	Compression string   `json:"compression"`
	Size        int64    `json:"size"`
	Checksum    string   `json:"xxh64"`
	Columns     []Column `json:"columns"`
}

// Checksum formats an xxh64 digest as 16 hex digits
func Checksum(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

// NewDigest returns the hash used for Manifest.Checksum
func NewDigest() *xxhash.Digest {
	return xxhash.New()
}

// ColumnsFrom builds the column list from header names and an encoder.
// Missing names fall back to the column index.
func ColumnsFrom(names []string, enc *category.Encoder) []Column {
	cols := make([]Column, enc.Features())
	for i := range cols {
		name := strconv.Itoa(i)
		if i < len(names) {
			name = names[i]
		}
		cols[i] = Column{
			Index:      i,
			Name:       name,
			Categories: enc.Column(i).Categories(),
		}
	}
	return cols
}

// Validate checks internal consistency
func (m *Manifest) Validate() error {
	if m.Version != Version {
		return errors.New(errors.ErrorTypeData, "unsupported manifest version").
			WithDetail("version", m.Version)
	}
	if len(m.Columns) != int(m.Features) {
		return errors.New(errors.ErrorTypeData, "column list does not match feature count").
			WithDetail("columns", len(m.Columns)).
			WithDetail("features", m.Features)
	}
	for i, c := range m.Columns {
		if c.Index != i {
			return errors.New(errors.ErrorTypeData, "columns out of order").WithDetail("index", c.Index)
		}
		if len(c.Categories) > category.MaxCategories {
			return errors.New(errors.ErrorTypeData, "too many categories").WithDetail("column", i)
		}
	}
	if _, err := strconv.ParseUint(m.Checksum, 16, 64); err != nil || len(m.Checksum) != 16 {
		return errors.New(errors.ErrorTypeData, "malformed checksum").WithDetail("xxh64", m.Checksum)
	}
	return nil
}

// Verify hashes data and compares it with the recorded checksum and size
func (m *Manifest) Verify(data []byte) error {
	if int64(len(data)) != m.Size {
		return errors.New(errors.ErrorTypeData, "dataset size does not match manifest").
			WithDetail("expected", m.Size).
			WithDetail("actual", len(data))
	}
	if got := Checksum(xxhash.Sum64(data)); got != m.Checksum {
		return errors.New(errors.ErrorTypeData, "dataset checksum does not match manifest").
			WithDetail("expected", m.Checksum).
			WithDetail("actual", got)
	}
	return nil
}

// Write encodes m as indented JSON
func Write(w io.Writer, m *Manifest) error {
	if err := json.MarshalToWriter(w, m); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write manifest")
	}
	return nil
}

// Read decodes and validates a manifest
func Read(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r, true).Decode(&m); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode manifest")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
