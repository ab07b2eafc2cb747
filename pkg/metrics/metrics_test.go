package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mrmr/pkg/errors"
)

func TestCollector_RecordResult(t *testing.T) {
	c := NewCollector()
	c.RecordResult(32, 3, []int{2, 5})

	assert.Equal(t, 32.0, testutil.ToFloat64(c.rowsEncoded))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.rowsDropped))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.features))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.categories.WithLabelValues("1")))
}

func TestCollector_RecordStatus(t *testing.T) {
	c := NewCollector()
	c.RecordStatus(nil)
	c.RecordStatus(errors.New(errors.ErrorTypeOverflow, "too many"))
	c.RecordStatus(errors.New(errors.ErrorTypeOverflow, "too many"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.conversions.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.conversions.WithLabelValues("overflow")))
	assert.Greater(t, testutil.ToFloat64(c.lastSuccess), 0.0)
}

func TestCollector_SampleMemory(t *testing.T) {
	c := NewCollector()
	require.NoError(t, c.SampleMemory())
	assert.Greater(t, testutil.ToFloat64(c.residentSet), 0.0)
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := NewCollector()
	c.ObservePass("count", 10*time.Millisecond)
	c.AddBytes("dataset", 1024)

	path := filepath.Join(t.TempDir(), "mrmr.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `mrmr_bytes_written_total{artifact="dataset"} 1024`)
	assert.Contains(t, string(data), `mrmr_pass_duration_seconds_count{pass="count"} 1`)

	err = c.WriteTextfile(filepath.Join(t.TempDir(), "missing", "mrmr.prom"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestTimer(t *testing.T) {
	timer := NewTimer("encode")
	assert.Equal(t, "encode", timer.Name())
	first := timer.Stop()
	assert.GreaterOrEqual(t, timer.Stop(), first)
}
