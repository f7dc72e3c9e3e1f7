// Package analysis runs the batch pipeline over leave records: embed the
// reasons, cluster them, score pairwise similarity, detect anomalies and
// summarise the result.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/leavelens/internal/anomaly"
	"github.com/fyrsmithlabs/leavelens/internal/cluster"
	"github.com/fyrsmithlabs/leavelens/internal/insight"
	"github.com/fyrsmithlabs/leavelens/internal/leave"
	"github.com/fyrsmithlabs/leavelens/internal/logging"
	"github.com/fyrsmithlabs/leavelens/internal/similarity"
)

// Embedder turns reasons into vectors. Output must preserve input order and
// length.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Analyzer runs batch analyses. It keeps no per-request state and is safe
// for concurrent use as long as the Embedder is.
type Analyzer struct {
	embedder  Embedder
	clusterer *cluster.Engine
	detector  *anomaly.Detector
	logger    *logging.Logger
	tracer    trace.Tracer
	meter     metric.Meter
	metrics   *Metrics
	newID     func() string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClusterEngine replaces the default clustering engine.
func WithClusterEngine(e *cluster.Engine) Option {
	return func(a *Analyzer) { a.clusterer = e }
}

// WithDetectorConfig sets the anomaly thresholds.
func WithDetectorConfig(cfg anomaly.Config) Option {
	return func(a *Analyzer) { a.detector = anomaly.New(cfg) }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithTracerProvider sets the tracer provider used for analysis spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Analyzer) { a.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider sets the meter provider used for analysis metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(a *Analyzer) { a.meter = mp.Meter(instrumentationName) }
}

// WithIDGenerator overrides report ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(a *Analyzer) { a.newID = fn }
}

// New creates an Analyzer backed by embedder.
func New(embedder Embedder, opts ...Option) (*Analyzer, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidInput)
	}
	a := &Analyzer{
		embedder: embedder,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.clusterer == nil {
		a.clusterer = cluster.New(cluster.DefaultConfig())
	}
	if a.detector == nil {
		a.detector = anomaly.New(anomaly.DefaultConfig())
	}
	if a.logger == nil {
		a.logger = logging.Nop()
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer(instrumentationName)
	}
	if a.meter == nil {
		a.meter = otel.Meter(instrumentationName)
	}
	a.metrics = newMetrics(a.meter, a.logger.Underlying())
	return a, nil
}

// Analyze runs the full pipeline over records. Invalid batches fail with
// ErrInvalidInput before any embedding work starts.
func (a *Analyzer) Analyze(ctx context.Context, records []leave.Record) (*Report, error) {
	start := time.Now()
	id := a.newID()
	ctx = logging.WithAnalysisID(ctx, id)

	ctx, span := a.tracer.Start(ctx, "analysis.Analyze",
		trace.WithAttributes(
			attribute.String("analysis.id", id),
			attribute.Int("analysis.records", len(records)),
		),
	)
	defer span.End()

	report, err := a.analyze(ctx, id, records)
	if err != nil {
		class := errorClass(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, class)
		a.metrics.recordFailure(ctx, class)
		a.logger.Warn(ctx, "analysis failed",
			zap.Int("records", len(records)),
			zap.String("error_class", class),
			zap.Error(err),
		)
		return nil, err
	}

	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int("analysis.categories", report.Statistics.TotalCategories),
		attribute.Int("analysis.anomalies", report.Statistics.TotalAnomalies),
	)
	a.metrics.recordSuccess(ctx, len(records), elapsed, report.Anomalies)
	a.logger.Info(ctx, "analysis completed",
		zap.Int("records", len(records)),
		zap.Int("categories", report.Statistics.TotalCategories),
		zap.Int("anomalies", report.Statistics.TotalAnomalies),
		zap.Int("high_risk", report.Statistics.HighRiskAnomalies),
		zap.Duration("duration", elapsed),
	)
	return report, nil
}

func (a *Analyzer) analyze(ctx context.Context, id string, records []leave.Record) (*Report, error) {
	reasons, err := validate(records)
	if err != nil {
		return nil, err
	}

	vectors, err := a.embed(ctx, reasons)
	if err != nil {
		return nil, err
	}

	var clusters cluster.Assignment
	err = a.stage(ctx, "cluster", func(context.Context) error {
		var cerr error
		clusters, cerr = a.clusterer.Cluster(vectors, 0)
		return cerr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: clustering: %w", ErrInternal, err)
	}

	var sim *similarity.Matrix
	err = a.stage(ctx, "similarity", func(context.Context) error {
		var serr error
		sim, serr = similarity.Compute(vectors)
		return serr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: similarity: %w", ErrInternal, err)
	}

	var found []anomaly.Anomaly
	err = a.stage(ctx, "detect", func(context.Context) error {
		var derr error
		found, derr = a.detector.Detect(records, sim, clusters)
		return derr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: detection: %w", ErrInternal, err)
	}
	if found == nil {
		found = []anomaly.Anomaly{}
	}

	var (
		categories []Category
		insights   []string
	)
	err = a.stage(ctx, "summarize", func(context.Context) error {
		categories = groupCategories(records, clusters, sim)
		insights = insight.Summarize(records, clusters, found)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: summarizing: %w", ErrInternal, err)
	}

	return &Report{
		ID:                id,
		GroupedCategories: categories,
		Anomalies:         found,
		Insights:          insights,
		Statistics:        computeStatistics(records, categories, found),
	}, nil
}

// embed calls the provider and checks that the vectors line up with the
// reasons.
func (a *Analyzer) embed(ctx context.Context, reasons []string) ([][]float32, error) {
	var vectors [][]float32
	err := a.stage(ctx, "embed", func(ctx context.Context) error {
		var eerr error
		vectors, eerr = a.embedder.EmbedBatch(ctx, reasons)
		return eerr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding reasons: %w", ErrCollaborator, err)
	}
	if len(vectors) != len(reasons) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d reasons", ErrInternal, len(vectors), len(reasons))
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrInternal, i, len(v), dim)
		}
	}
	return vectors, nil
}

// stage runs fn inside a child span named after the pipeline step.
func (a *Analyzer) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := a.tracer.Start(ctx, "analysis."+name)
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// validate checks the batch and returns the reasons in record order.
func validate(records []leave.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: leave_letters must be a non-empty array", ErrInvalidInput)
	}
	reasons := make([]string, len(records))
	anyReason := false
	for i, r := range records {
		if !r.HasReason() {
			return nil, fmt.Errorf("%w: record %d has no reason field", ErrInvalidInput, i)
		}
		reasons[i] = r.ReasonText()
		if strings.TrimSpace(reasons[i]) != "" {
			anyReason = true
		}
	}
	if !anyReason {
		return nil, fmt.Errorf("%w: no leave reasons found in letters", ErrInvalidInput)
	}
	return reasons, nil
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrCollaborator):
		return "collaborator"
	default:
		return "internal"
	}
}
