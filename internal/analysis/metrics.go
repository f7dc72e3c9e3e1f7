package analysis

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/leavelens/internal/anomaly"
)

const instrumentationName = "github.com/fyrsmithlabs/leavelens/internal/analysis"

// Metrics holds analysis instruments.
type Metrics struct {
	duration  metric.Float64Histogram
	batchSize metric.Int64Histogram
	anomalies metric.Int64Counter
	failures  metric.Int64Counter
}

func newMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	m := &Metrics{}
	var err error

	m.duration, err = meter.Float64Histogram(
		"leavelens.analysis.duration_seconds",
		metric.WithDescription("Duration of a full batch analysis, embedding included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.batchSize, err = meter.Int64Histogram(
		"leavelens.analysis.batch_size",
		metric.WithDescription("Number of leave records per analysis"),
		metric.WithUnit("{record}"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500),
	)
	if err != nil {
		logger.Warn("failed to create batch size histogram", zap.Error(err))
	}

	m.anomalies, err = meter.Int64Counter(
		"leavelens.analysis.anomalies_total",
		metric.WithDescription("Anomalies detected, by type and risk level"),
		metric.WithUnit("{anomaly}"),
	)
	if err != nil {
		logger.Warn("failed to create anomalies counter", zap.Error(err))
	}

	m.failures, err = meter.Int64Counter(
		"leavelens.analysis.failures_total",
		metric.WithDescription("Failed analyses, by error class"),
		metric.WithUnit("{analysis}"),
	)
	if err != nil {
		logger.Warn("failed to create failures counter", zap.Error(err))
	}

	return m
}

func (m *Metrics) recordSuccess(ctx context.Context, records int, elapsed time.Duration, found []anomaly.Anomaly) {
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds())
	}
	if m.batchSize != nil {
		m.batchSize.Record(ctx, int64(records))
	}
	if m.anomalies != nil {
		for _, a := range found {
			m.anomalies.Add(ctx, 1, metric.WithAttributes(
				attribute.String("type", string(a.Type)),
				attribute.String("risk_level", string(a.RiskLevel)),
			))
		}
	}
}

func (m *Metrics) recordFailure(ctx context.Context, class string) {
	if m.failures != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("error_class", class)))
	}
}
