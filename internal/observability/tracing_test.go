package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSamplerFor(t *testing.T) {
	t.Parallel()

	assert.Contains(t, samplerFor(0).Description(), "root:AlwaysOffSampler")
	assert.Contains(t, samplerFor(-1).Description(), "root:AlwaysOffSampler")
	assert.Contains(t, samplerFor(1).Description(), "root:AlwaysOnSampler")
	assert.Contains(t, samplerFor(0.25).Description(), "root:TraceIDRatioBased{0.25}")
}

func TestNewSpanExporter_Errors(t *testing.T) {
	t.Parallel()

	_, err := newSpanExporter(TracingConfig{Exporter: "zipkin"})
	assert.ErrorContains(t, err, "unknown tracing exporter")

	_, err = newSpanExporter(TracingConfig{Exporter: "otlp"})
	assert.ErrorContains(t, err, "OTLP_ENDPOINT")
}

func restoreTracing(t *testing.T) {
	t.Helper()
	prevTracer := Tracer
	prevProvider := otel.GetTracerProvider()
	t.Cleanup(func() {
		Tracer = prevTracer
		otel.SetTracerProvider(prevProvider)
	})
}

func TestInitTracing_Disabled(t *testing.T) {
	restoreTracing(t)

	shutdown, err := InitTracing(TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := Tracer.Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestInitTracing_StdoutExport(t *testing.T) {
	restoreTracing(t)

	var buf bytes.Buffer
	shutdown, err := InitTracing(TracingConfig{
		ServiceName:  "quill-test",
		Environment:  "test",
		Enabled:      true,
		SamplerRatio: 1,
		Writer:       &buf,
	})
	require.NoError(t, err)

	_, end := StartSpan(context.Background(), "post.create")
	end(errors.New("boom"))
	require.NoError(t, shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"Name":"post.create"`)
	assert.Contains(t, out, "quill-test")
	assert.Contains(t, out, "boom")
}
