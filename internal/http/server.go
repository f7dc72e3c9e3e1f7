// Package http serves the leavelens HTTP API.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fyrsmithlabs/leavelens/internal/analysis"
	"github.com/fyrsmithlabs/leavelens/internal/config"
	"github.com/fyrsmithlabs/leavelens/internal/extraction"
	"github.com/fyrsmithlabs/leavelens/internal/leave"
	"github.com/fyrsmithlabs/leavelens/internal/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Analyzer runs batch analysis.
type Analyzer interface {
	Analyze(ctx context.Context, records []leave.Record) (*analysis.Report, error)
}

// LetterProcessor turns an uploaded document into a leave record.
type LetterProcessor interface {
	Process(ctx context.Context, payload string) (*extraction.Result, error)
}

// Server provides the leavelens HTTP endpoints.
type Server struct {
	echo      *echo.Echo
	analyzer  Analyzer
	processor LetterProcessor
	logger    *logging.Logger
	config    *Config
	metrics   *HTTPMetrics
	scrape    *scrapeMetrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host        string
	Port        int
	ServiceName string
	// BodyLimit is an echo size string such as "20M". Empty disables it.
	BodyLimit string
	// RateLimit is requests per second per client on /api routes. Zero
	// disables rate limiting.
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
}

// ConfigFrom builds a server Config from the application config.
func ConfigFrom(srv config.ServerConfig, serviceName string) *Config {
	return &Config{
		Host:        srv.Host,
		Port:        srv.Port,
		ServiceName: serviceName,
		BodyLimit:   srv.BodyLimit,
		RateLimit:   srv.RateLimit,
		RateBurst:   srv.RateBurst,
		CORSOrigins: srv.CORSOrigins,
	}
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	meterProvider metric.MeterProvider
	registry      *prometheus.Registry
}

// WithMeterProvider sets the provider for request metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *serverOptions) { o.meterProvider = mp }
}

// WithRegistry sets the registry served on /metrics.
func WithRegistry(r *prometheus.Registry) Option {
	return func(o *serverOptions) { o.registry = r }
}

// NewServer creates a new HTTP server.
func NewServer(analyzer Analyzer, processor LetterProcessor, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer cannot be nil")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:        "0.0.0.0",
			Port:        5001,
			ServiceName: "attendance-analysis",
		}
	}

	o := serverOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		analyzer:  analyzer,
		processor: processor,
		logger:    logger,
		config:    cfg,
		metrics:   NewHTTPMetrics(o.meterProvider, logger.Underlying()),
		scrape:    newScrapeMetrics(o.registry),
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.logger.Error(c.Request().Context(), "panic recovered",
				zap.Error(err),
				zap.ByteString("stack", stack),
			)
			return err
		},
	}))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := logging.WithRequestID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	}))
	e.Use(s.requestLogger())
	e.Use(s.metrics.Middleware())
	if len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		}))
	}
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", s.scrape.handler())

	api := s.echo.Group("/api")
	if s.config.RateLimit > 0 {
		api.Use(newClientLimiter(s.config.RateLimit, s.config.RateBurst).middleware(s.logRateLimited))
	}
	api.POST("/process-leave-letter", s.handleProcess)
	api.POST("/analyze-leave-letters", s.handleAnalyze)
}

// requestLogger logs one line per request. Health and scrape traffic is
// logged at debug.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", routeLabel(c.Path())),
				zap.Int("status", c.Response().Status),
				zap.Int64("bytes_out", c.Response().Size),
				zap.Duration("duration", time.Since(start)),
			}
			switch c.Path() {
			case "/health", "/metrics":
				s.logger.Debug(req.Context(), "http request", fields...)
			default:
				s.logger.Info(req.Context(), "http request", fields...)
			}
			return nil
		}
	}
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Service: s.config.ServiceName})
}

// handleProcess extracts a leave record from an uploaded letter.
func (s *Server) handleProcess(c echo.Context) error {
	var req ProcessRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.File) == "" {
		return badRequest("File data required")
	}

	res, err := s.processor.Process(c.Request().Context(), req.File)
	if err != nil {
		err = classify(err, "Failed to process leave letter")
	}
	s.scrape.observeLetter(err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ProcessResponse{
		Success: true,
		Data:    res.Record,
		RawText: res.RawText,
	})
}

// handleAnalyze runs batch analysis over submitted leave letters.
func (s *Server) handleAnalyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	records, err := parseLetters(req.LeaveLetters)
	if err != nil {
		return err
	}

	report, err := s.analyzer.Analyze(c.Request().Context(), records)
	if err != nil {
		err = classify(err, "Analysis failed")
	}
	s.scrape.observeAnalysis(len(records), err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AnalyzeResponse{Success: true, Report: report})
}

// parseLetters validates the shape of leave_letters. Semantic checks such
// as missing reasons are left to the analyzer.
func parseLetters(raw json.RawMessage) ([]leave.Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, badRequest("leave_letters array required")
	}
	if raw[0] != '[' {
		return nil, badRequest("leave_letters must be a non-empty array")
	}
	var records []leave.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, badRequest("leave_letters entries must be objects with string fields")
	}
	if len(records) == 0 {
		return nil, badRequest("leave_letters must be a non-empty array")
	}
	return records, nil
}

// decodeBody reads a JSON object body into v. An empty body leaves v
// untouched so the handler reports the missing field.
func decodeBody(c echo.Context, v any) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return badRequest("Unable to read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return badRequest("Invalid JSON body")
	}
	return nil
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
