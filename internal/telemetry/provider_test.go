package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewResource(t *testing.T) {
	cfg := NewDefaultConfig()

	res, err := newResource(cfg)
	require.NoError(t, err)
	require.NotNil(t, res)

	var foundServiceName bool
	for _, attr := range res.Attributes() {
		if string(attr.Key) == "service.name" {
			assert.Equal(t, cfg.ServiceName, attr.Value.AsString())
			foundServiceName = true
		}
	}
	assert.True(t, foundServiceName, "service.name attribute not found")
}

// restoreGlobals puts back the global providers New replaces.
func restoreGlobals(t *testing.T) {
	t.Helper()
	tp, mp, prop := otel.GetTracerProvider(), otel.GetMeterProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		otel.SetTextMapPropagator(prop)
	})
}

func TestNew_WithTraceExporter(t *testing.T) {
	restoreGlobals(t)
	exp := tracetest.NewInMemoryExporter()
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Metrics.Enabled = false

	tel, err := New(context.Background(), cfg, WithTraceExporter(exp))
	require.NoError(t, err)
	assert.True(t, tel.IsEnabled())
	assert.False(t, tel.Health().Degraded)

	_, span := tel.Tracer("test").Start(context.Background(), "checkout")
	span.End()
	require.NoError(t, tel.ForceFlush(context.Background()))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "checkout", spans[0].Name)

	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_NeverSample(t *testing.T) {
	restoreGlobals(t)
	exp := tracetest.NewInMemoryExporter()
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Metrics.Enabled = false
	cfg.Sampling.Rate = 0

	tel, err := New(context.Background(), cfg, WithTraceExporter(exp))
	require.NoError(t, err)

	_, span := tel.Tracer("test").Start(context.Background(), "dropped")
	span.End()
	require.NoError(t, tel.ForceFlush(context.Background()))

	assert.Empty(t, exp.GetSpans())
}

func TestOptions(t *testing.T) {
	var o options
	assert.Nil(t, o.traceExporter)
	assert.Nil(t, o.metricExporter)

	exp := tracetest.NewInMemoryExporter()
	WithTraceExporter(exp)(&o)
	WithMetricExporter(nil)(&o)
	assert.Equal(t, exp, o.traceExporter)
	assert.Nil(t, o.metricExporter)
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "collector:4318", stripScheme("https://collector:4318"))
	assert.Equal(t, "collector:4318", stripScheme("http://collector:4318"))
	assert.Equal(t, "collector:4317", stripScheme("collector:4317"))
}
