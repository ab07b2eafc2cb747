package observability

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "mrmr-test"})
	require.NoError(t, err)

	err = Trace(context.Background(), "noop", func(ctx context.Context, span *Span) error {
		span.SetAttribute("rows", 3)
		assert.False(t, GetTracer() == nil)
		return nil
	})
	assert.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(TracingConfig{
		Enabled:        true,
		ServiceName:    "mrmr-test",
		ServiceVersion: "test",
		Writer:         &buf,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = InitTracing(TracingConfig{ServiceName: "mrmr-test"})
	})

	failure := stderrors.New("boom")
	err = Trace(context.Background(), "convert", func(ctx context.Context, span *Span) error {
		span.SetAttribute("samples", uint32(32))
		span.SetAttribute("dropped", uint64(3))
		span.SetAttribute("gpu", true)
		span.AddEvent("samples dropped for alignment", attribute.Int64("dropped", 3))
		return Trace(ctx, "count", func(context.Context, *Span) error { return failure })
	})
	assert.ErrorIs(t, err, failure)

	require.NoError(t, shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"Name":"convert"`)
	assert.Contains(t, out, `"Name":"count"`)
	assert.Contains(t, out, `"samples"`)
	assert.Contains(t, out, `"Name":"samples dropped for alignment"`)
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "mrmr-test")
}
