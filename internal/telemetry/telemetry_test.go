package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/noop"
)

func TestNew_DisabledTelemetry(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, tel)

	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.NotNil(t, tel.TracerProvider())
	assert.NotNil(t, tel.MeterProvider())
	assert.False(t, tel.IsEnabled())

	health := tel.Health()
	assert.True(t, health.Healthy)
	assert.False(t, health.Degraded)
	assert.Empty(t, health.Reasons)
}

func TestNew_InvalidConfig(t *testing.T) {
	tel, err := New(context.Background(), &Config{Enabled: true})
	require.Error(t, err)
	assert.Nil(t, tel)
	assert.Contains(t, err.Error(), "invalid telemetry config")
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry

	assert.NotPanics(t, func() {
		_ = tel.Tracer("test")
		_ = tel.Meter("test")
		_ = tel.TracerProvider()
		_ = tel.MeterProvider()
		_ = tel.LoggerProvider()
		_ = tel.IsEnabled()
		_ = tel.Shutdown(context.Background())
		_ = tel.ForceFlush(context.Background())
		tel.SetLoggerProvider(nil)
	})

	health := tel.Health()
	assert.False(t, health.Healthy)
	assert.True(t, health.Degraded)
}

func TestTelemetry_ShutdownMarksUnhealthy(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tel.Shutdown(ctx))
	assert.False(t, tel.Health().Healthy)
}

func TestTelemetry_SetDegradedKeepsReasons(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)

	tel.setDegraded("tracer provider: %v", "dial failed")
	health := tel.Health()
	assert.True(t, health.Degraded)
	assert.Equal(t, []string{"tracer provider: dial failed"}, health.Reasons)
}

func TestTelemetry_SetLoggerProvider(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, tel.LoggerProvider())

	lp := noop.NewLoggerProvider()
	tel.SetLoggerProvider(lp)
	assert.Equal(t, lp, tel.LoggerProvider())
}

func TestTestTelemetry_Spans(t *testing.T) {
	tt := NewTestTelemetry()
	tracer := tt.TracerProvider().Tracer("test")

	_, parent := tracer.Start(context.Background(), "parent")
	parent.SetAttributes(attribute.Int("count", 2), attribute.Bool("done", true))
	parent.End()

	tt.AssertSpanExists(t, "parent")
	tt.AssertSpanAttribute(t, "parent", "count", int64(2))
	tt.AssertSpanAttribute(t, "parent", "done", true)
	assert.Nil(t, tt.SpanByName("missing"))
	assert.Equal(t, []string{"parent"}, tt.spanNames())
}

func TestTestTelemetry_MetricNames(t *testing.T) {
	tt := NewTestTelemetry()
	counter, err := tt.MeterProvider().Meter("test").Int64Counter("test.counter")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	names, err := tt.MetricNames(context.Background())
	require.NoError(t, err)
	assert.Contains(t, names, "test.counter")

	require.NoError(t, tt.ForceFlush(context.Background()))
	require.NoError(t, tt.MetricReader.Shutdown(context.Background()))
}
