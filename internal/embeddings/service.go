package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fyrsmithlabs/leavelens/internal/config"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentBatches bounds in-flight requests to the TEI server.
const maxConcurrentBatches = 4

// Config holds configuration for the TEI service.
type Config struct {
	// BaseURL is the TEI server, e.g. http://localhost:8080.
	BaseURL string
	Model   string
	// APIKey is sent as a bearer token when set.
	APIKey config.Secret
	// BatchSize splits large inputs. TEI rejects batches above its
	// --max-client-batch-size, 32 by default.
	BatchSize int
	Timeout   time.Duration
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("%w: batch size must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// Service embeds texts with a TEI server.
type Service struct {
	config    Config
	client    *http.Client
	metrics   *Metrics
	dimension atomic.Int64
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ServiceOption {
	return func(s *Service) { s.client = c }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a TEI client.
func NewService(cfg Config, opts ...ServiceOption) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 32
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	s := &Service{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
	s.dimension.Store(int64(detectDimensionFromModel(cfg.Model)))
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil, nil)
	}
	return s, nil
}

type teiRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

// EmbedBatch embeds texts in chunks of BatchSize, sending up to
// maxConcurrentBatches chunks at once. Output order matches input order.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		s.metrics.RecordGeneration(ctx, s.config.Model, "embed_batch", time.Since(start), len(texts), genErr)
	}()

	if len(texts) == 0 {
		genErr = fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
		return nil, genErr
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBatches)
	for lo := 0; lo < len(texts); lo += s.config.BatchSize {
		hi := min(lo+s.config.BatchSize, len(texts))
		g.Go(func() error {
			vectors, err := s.embedChunk(gctx, texts[lo:hi])
			if err != nil {
				return err
			}
			if len(vectors) != hi-lo {
				return fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), hi-lo)
			}
			copy(out[lo:hi], vectors)
			return nil
		})
	}
	if genErr = g.Wait(); genErr != nil {
		return nil, genErr
	}
	s.dimension.Store(int64(len(out[0])))
	return out, nil
}

func (s *Service) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(teiRequest{Inputs: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey.IsSet() {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey.Value())
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrEmbeddingFailed, err)
	}
	return vectors, nil
}

// Dimension returns the dimension of the last response, or the dimension
// inferred from the model name before the first call.
func (s *Service) Dimension() int {
	return int(s.dimension.Load())
}

// Close is a no-op; the service holds no resources beyond its HTTP client.
func (s *Service) Close() error {
	return nil
}
