// Package metrics records conversion statistics as Prometheus metrics.
//
// A conversion is a short-lived batch job, so metrics are not served over
// HTTP. Each run owns a Collector with its own registry and, when asked,
// dumps it in the text exposition format for the node_exporter textfile
// collector.
//
// # Basic Usage
//
//	collector := metrics.NewCollector()
//	timer := metrics.NewTimer("encode")
//	result, err := convert(...)
//	collector.ObservePass(timer.Name(), timer.Stop())
//	collector.RecordResult(result.Samples, result.Dropped, result.Cardinalities)
//	collector.RecordStatus(err)
//	_ = collector.WriteTextfile("/var/lib/node_exporter/mrmr.prom")
package metrics

import (
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/ajitpratap0/mrmr/pkg/errors"
)

const namespace = "mrmr"

// Collector holds the metrics of one conversion
type Collector struct {
	registry     *prometheus.Registry
	rowsEncoded  prometheus.Counter
	rowsDropped  prometheus.Counter
	features     prometheus.Gauge
	categories   *prometheus.GaugeVec
	passDuration *prometheus.HistogramVec
	bytesWritten *prometheus.CounterVec
	conversions  *prometheus.CounterVec
	residentSet  prometheus.Gauge
	lastSuccess  prometheus.Gauge
}

// NewCollector creates a collector with a private registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		rowsEncoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_encoded_total",
			Help:      "Data rows written to the binary dataset",
		}),
		rowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Trailing rows dropped for GPU alignment",
		}),
		features: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "features",
			Help:      "Feature columns in the last dataset",
		}),
		categories: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "column_categories",
			Help:      "Distinct categories per feature column",
		}, []string{"column"}),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Wall time of each conversion pass",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"pass"}),
		bytesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Bytes written per artifact",
		}, []string{"artifact"}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Finished conversions by outcome",
		}, []string{"status"}),
		residentSet: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_resident_memory_bytes",
			Help:      "Resident set size sampled at the end of the run",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful conversion",
		}),
	}

	c.registry.MustRegister(
		c.rowsEncoded,
		c.rowsDropped,
		c.features,
		c.categories,
		c.passDuration,
		c.bytesWritten,
		c.conversions,
		c.residentSet,
		c.lastSuccess,
	)
	return c
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordResult records the shape of a finished dataset
func (c *Collector) RecordResult(samples, dropped uint64, cardinalities []int) {
	c.rowsEncoded.Add(float64(samples))
	c.rowsDropped.Add(float64(dropped))
	c.features.Set(float64(len(cardinalities)))
	for i, n := range cardinalities {
		c.categories.WithLabelValues(strconv.Itoa(i)).Set(float64(n))
	}
}

// ObservePass records how long one pass took
func (c *Collector) ObservePass(pass string, d time.Duration) {
	c.passDuration.WithLabelValues(pass).Observe(d.Seconds())
}

// AddBytes counts bytes written for an artifact such as "dataset" or "manifest"
func (c *Collector) AddBytes(artifact string, n int64) {
	c.bytesWritten.WithLabelValues(artifact).Add(float64(n))
}

// RecordStatus counts the outcome of a conversion, labelled by error type
func (c *Collector) RecordStatus(err error) {
	if err == nil {
		c.conversions.WithLabelValues("success").Inc()
		c.lastSuccess.SetToCurrentTime()
		return
	}
	c.conversions.WithLabelValues(string(errors.TypeOf(err))).Inc()
}

// SampleMemory records the current resident set size of this process
func (c *Collector) SampleMemory() error {
	p, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pid fits in int32
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to inspect process")
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to read memory info")
	}
	c.residentSet.Set(float64(info.RSS))
	return nil
}

// WriteTextfile writes every metric to path in the text exposition format
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write metrics file").
			WithDetail("path", path)
	}
	return nil
}

// Timer measures the duration of a named operation
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the operation name
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It can be called repeatedly.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
