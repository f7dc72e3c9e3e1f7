package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestHTTPMetrics_Middleware(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	m := NewHTTPMetrics(mp, nil)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.POST("/api/analyze-leave-letters", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "leave_letters array required")
	})

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/health"},
		{http.MethodPost, "/api/analyze-leave-letters"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, nil))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = m
		}
	}
	require.Contains(t, found, "leavelens.http.requests_total")
	require.Contains(t, found, "leavelens.http.request_duration_seconds")
	require.Contains(t, found, "leavelens.http.response_size_bytes")
	require.Contains(t, found, "leavelens.http.active_requests")

	sum, ok := found["leavelens.http.requests_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	byStatus := map[int64]int64{}
	for _, dp := range sum.DataPoints {
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		byStatus[status.AsInt64()] += dp.Value
	}
	assert.Equal(t, map[int64]int64{200: 2, 400: 1}, byStatus)

	active, ok := found["leavelens.http.active_requests"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	for _, dp := range active.DataPoints {
		assert.Zero(t, dp.Value)
	}

	hist, ok := found["leavelens.http.request_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unmatched"},
		{"/health", "/health"},
		{"/api/analyze-leave-letters", "/api/analyze-leave-letters"},
		{"/api/*", "/api/*"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, routeLabel(tt.input))
	}
}
