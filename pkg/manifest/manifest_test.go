package manifest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mrmr/pkg/category"
	"github.com/ajitpratap0/mrmr/pkg/errors"
)

func encoderFor(t *testing.T, rows [][]string) *category.Encoder {
	t.Helper()
	enc := category.NewEncoder(len(rows[0]))
	for _, row := range rows {
		for c, tok := range row {
			_, err := enc.Encode(c, tok)
			require.NoError(t, err)
		}
	}
	return enc
}

func TestColumnsFrom(t *testing.T) {
	enc := encoderFor(t, [][]string{{"x", "p"}, {"y", "p"}, {"x", "q"}})

	cols := ColumnsFrom([]string{"first"}, enc)
	require.Len(t, cols, 2)
	assert.Equal(t, Column{Index: 0, Name: "first", Categories: []string{"x", "y"}}, cols[0])
	assert.Equal(t, Column{Index: 1, Name: "1", Categories: []string{"p", "q"}}, cols[1])
}

func TestWriteRead(t *testing.T) {
	data := []byte{2, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	digest := NewDigest()
	_, _ = digest.Write(data)

	m := &Manifest{
		Version:     Version,
		Source:      "in.csv",
		Samples:     2,
		Features:    1,
		ByteOrder:   "little",
		Compression: "none",
		Size:        int64(len(data)),
		Checksum:    Checksum(digest.Sum64()),
		Columns:     []Column{{Index: 0, Name: "a", Categories: []string{"x", "y"}}},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m))
	assert.Contains(t, buf.String(), `"xxh64": "`)

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, m, got)
	assert.NoError(t, got.Verify(data))

	corrupted := append([]byte(nil), data...)
	corrupted[9] = 0
	assert.True(t, errors.IsType(got.Verify(corrupted), errors.ErrorTypeData))
	assert.Error(t, got.Verify(data[:8]))
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, "0000000000000001", Checksum(1))
	assert.Len(t, Checksum(xxhash.Sum64String("abc")), 16)
}

func TestValidate(t *testing.T) {
	valid := func() *Manifest {
		return &Manifest{
			Version:  Version,
			Features: 1,
			Checksum: Checksum(42),
			Columns:  []Column{{Index: 0, Name: "a"}},
		}
	}

	tests := []struct {
		name   string
		mutate func(m *Manifest)
	}{
		{name: "version", mutate: func(m *Manifest) { m.Version = 99 }},
		{name: "feature count", mutate: func(m *Manifest) { m.Features = 2 }},
		{name: "order", mutate: func(m *Manifest) { m.Columns[0].Index = 3 }},
		{name: "checksum", mutate: func(m *Manifest) { m.Checksum = "zz" }},
		{name: "categories", mutate: func(m *Manifest) { m.Columns[0].Categories = make([]string, category.MaxCategories+1) }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(m)
			assert.Error(t, m.Validate())
		})
	}
}

func TestRead_Rejects(t *testing.T) {
	_, err := Read(strings.NewReader("{"))
	assert.Error(t, err)

	_, err = Read(strings.NewReader(`{"version":1,"unknown":true}`))
	assert.Error(t, err)
}
