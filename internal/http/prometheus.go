package http

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// scrapeMetrics backs the /metrics endpoint. OTLP remains the primary
// export path; this registry serves pull-based deployments.
type scrapeMetrics struct {
	registry *prometheus.Registry
	letters  *prometheus.CounterVec
	analyses *prometheus.CounterVec
	batch    prometheus.Histogram
}

func newScrapeMetrics(registry *prometheus.Registry) *scrapeMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &scrapeMetrics{
		registry: registry,
		letters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leavelens_letters_processed_total",
				Help: "Total number of uploaded leave letters processed",
			},
			[]string{"outcome"},
		),
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leavelens_analyses_total",
				Help: "Total number of batch analyses",
			},
			[]string{"outcome"},
		),
		batch: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "leavelens_analysis_batch_letters",
				Help:    "Number of letters per analysed batch",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.letters,
		m.analyses,
		m.batch,
	)
	return m
}

// outcome labels a handler result as ok, rejected (4xx) or failed (5xx).
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if status, _ := errorResponse(err); status < 500 {
		return "rejected"
	}
	return "failed"
}

func (m *scrapeMetrics) observeLetter(err error) {
	m.letters.WithLabelValues(outcome(err)).Inc()
}

func (m *scrapeMetrics) observeAnalysis(letters int, err error) {
	m.analyses.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		m.batch.Observe(float64(letters))
	}
}

func (m *scrapeMetrics) handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
