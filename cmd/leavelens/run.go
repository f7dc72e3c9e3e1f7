package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/leavelens/internal/analysis"
	"github.com/fyrsmithlabs/leavelens/internal/anomaly"
	"github.com/fyrsmithlabs/leavelens/internal/cluster"
	"github.com/fyrsmithlabs/leavelens/internal/config"
	"github.com/fyrsmithlabs/leavelens/internal/embeddings"
	"github.com/fyrsmithlabs/leavelens/internal/extraction"
	httpserver "github.com/fyrsmithlabs/leavelens/internal/http"
	"github.com/fyrsmithlabs/leavelens/internal/logging"
	"github.com/fyrsmithlabs/leavelens/internal/ocr"
	"github.com/fyrsmithlabs/leavelens/internal/telemetry"
	"go.uber.org/zap"
)

// run starts the leavelens server and blocks until ctx is cancelled.
//
// Initialization order:
//  1. Telemetry and logger
//  2. Embedding provider (lazy, warmed in the background)
//  3. OCR client, extractor and analyzer
//  4. HTTP server, shut down gracefully on cancellation
func run(ctx context.Context, cfg *config.Config) error {
	tel, err := telemetry.New(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		_ = tel.Shutdown(context.Background())
	}()

	logCfg, err := logging.ConfigFromObservability(cfg.Observability)
	if err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Strings("reasons", h.Reasons))
	}

	logger.Info(ctx, "starting leavelens",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("service", cfg.Observability.ServiceName),
		zap.String("embeddings_provider", cfg.Embeddings.Provider),
		zap.String("embeddings_model", cfg.Embeddings.Model),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()),
	)

	app, err := newApp(cfg, tel, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn(context.Background(), "closing embedding provider", zap.Error(err))
		}
	}()
	go app.warm(ctx)

	srv, err := httpserver.NewServer(app.analyzer, app.processor, logger,
		httpserver.ConfigFrom(cfg.Server, cfg.Observability.ServiceName),
		httpserver.WithMeterProvider(tel.MeterProvider()),
	)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "server shutdown error", zap.Error(err))
		return err
	}

	logger.Info(shutdownCtx, "server stopped gracefully")
	return nil
}

// app holds the wired pipeline components.
type app struct {
	embedder  *embeddings.Lazy
	analyzer  *analysis.Analyzer
	processor *extraction.Processor
	logger    *logging.Logger
}

func newApp(cfg *config.Config, tel *telemetry.Telemetry, logger *logging.Logger) (*app, error) {
	providerCfg := embeddings.ProviderConfigFrom(cfg.Embeddings)
	providerCfg.Logger = logger.Underlying()
	providerCfg.MeterProvider = tel.MeterProvider()
	embedder := embeddings.NewLazy(providerCfg)

	analyzer, err := analysis.New(embedder,
		analysis.WithClusterEngine(cluster.New(clusterConfig(cfg.Analysis))),
		analysis.WithDetectorConfig(detectorConfig(cfg.Analysis)),
		analysis.WithLogger(logger.Named("analysis")),
		analysis.WithTracerProvider(tel.TracerProvider()),
		analysis.WithMeterProvider(tel.MeterProvider()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	recognizer, err := ocr.NewClient(ocr.ClientConfig{
		BaseURL:       cfg.OCR.BaseURL,
		Timeout:       cfg.OCR.Timeout.Duration(),
		MinConfidence: cfg.OCR.MinConfidence,
	}, ocr.WithTracerProvider(tel.TracerProvider()))
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR client: %w", err)
	}
	extractor, err := extraction.New(extraction.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	processor := extraction.NewProcessor(recognizer, extractor,
		extraction.WithLogger(logger.Named("extraction")),
		extraction.WithTracerProvider(tel.TracerProvider()),
	)

	return &app{
		embedder:  embedder,
		analyzer:  analyzer,
		processor: processor,
		logger:    logger,
	}, nil
}

// warm loads the embedding model so the first analysis does not pay for it.
// Failure is not fatal; the provider retries on first use.
func (a *app) warm(ctx context.Context) {
	start := time.Now()
	if err := a.embedder.Warm(); err != nil {
		a.logger.Warn(ctx, "embedding provider warm-up failed", zap.Error(err))
		return
	}
	a.logger.Info(ctx, "embedding provider ready",
		zap.Int("dimension", a.embedder.Dimension()),
		zap.Duration("duration", time.Since(start)),
	)
}

func (a *app) Close() error {
	return a.embedder.Close()
}

func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	obs := cfg.Observability
	tc.Enabled = obs.EnableTelemetry
	if obs.ServiceName != "" {
		tc.ServiceName = obs.ServiceName
	}
	tc.ServiceVersion = version
	if obs.OTLPEndpoint != "" {
		tc.Endpoint = obs.OTLPEndpoint
	}
	if obs.OTLPProtocol != "" {
		tc.Protocol = obs.OTLPProtocol
	}
	tc.Insecure = obs.OTLPInsecure
	tc.Sampling.Rate = obs.SamplingRate
	return tc
}

func clusterConfig(a config.AnalysisConfig) cluster.Config {
	c := cluster.DefaultConfig()
	if a.ClusterSeed != 0 {
		c.Seed = a.ClusterSeed
	}
	if a.ClusterRestarts > 0 {
		c.Restarts = a.ClusterRestarts
	}
	if a.ClusterDivisor > 0 {
		lo, hi := a.ClusterMinCategories, a.ClusterMaxCategories
		if lo < 1 {
			lo = 2
		}
		if hi < lo {
			hi = max(lo, 10)
		}
		c.Policy = cluster.ClampPolicy(a.ClusterDivisor, lo, hi)
	}
	return c
}

func detectorConfig(a config.AnalysisConfig) anomaly.Config {
	c := anomaly.DefaultConfig()
	c.HighSimilarity = a.HighSimilarity
	c.RepeatedSimilarity = a.RepeatedSimilarity
	c.RepeatedCount = a.RepeatedCount
	c.LargeGroupSize = a.LargeGroupSize
	c.VagueKeywordCount = a.VagueKeywordCount
	c.MinReasonLength = a.MinReasonLength
	if a.IdentityFallback != "" {
		c.IdentityFallback = anomaly.IdentityFallback(a.IdentityFallback)
	}
	return c
}
