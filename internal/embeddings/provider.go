package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/leavelens/internal/config"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Provider generates one vector per input text, in input order.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is "fastembed" or "tei".
	Provider string
	Model    string
	// BaseURL and APIKey are only used by TEI.
	BaseURL string
	APIKey  config.Secret
	// CacheDir and MaxLength are only used by FastEmbed.
	CacheDir  string
	MaxLength int
	BatchSize int
	Timeout   time.Duration

	Logger        *zap.Logger
	MeterProvider metric.MeterProvider
}

// ProviderConfigFrom maps the application's embeddings section.
func ProviderConfigFrom(cfg config.EmbeddingsConfig) ProviderConfig {
	return ProviderConfig{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		CacheDir:  cfg.CacheDir,
		MaxLength: cfg.MaxLength,
		BatchSize: cfg.BatchSize,
	}
}

// detectDimensionFromModel returns the embedding dimension for a model name,
// falling back to 384.
func detectDimensionFromModel(model string) int {
	if dim, ok := modelDimension(model); ok {
		return dim
	}
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "large"):
		return 1024
	case strings.Contains(lower, "base"), strings.Contains(lower, "mpnet"):
		return 768
	default:
		return 384
	}
}

// knownDimensions covers the models FastEmbed ships, under their common
// names.
var knownDimensions = map[string]int{
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"BAAI/bge-small-zh-v1.5":                 512,
	"sentence-transformers/all-MiniLM-L6-v2": 384,
	"all-MiniLM-L6-v2":                       384,
	"fast-bge-small-en-v1.5":                 384,
	"fast-bge-small-en":                      384,
	"fast-bge-base-en-v1.5":                  768,
	"fast-bge-base-en":                       768,
	"fast-bge-small-zh-v1.5":                 512,
	"fast-all-MiniLM-L6-v2":                  384,
}

func modelDimension(model string) (int, bool) {
	dim, ok := knownDimensions[model]
	return dim, ok
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := NewMetrics(cfg.MeterProvider, logger)

	switch cfg.Provider {
	case "fastembed", "":
		p, err := NewFastEmbedProvider(FastEmbedConfig{
			Model:     cfg.Model,
			CacheDir:  cfg.CacheDir,
			MaxLength: cfg.MaxLength,
			BatchSize: cfg.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		return &instrumented{Provider: p, model: cfg.Model, metrics: metrics}, nil
	case "tei":
		svc, err := NewService(Config{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			BatchSize: cfg.BatchSize,
			Timeout:   cfg.Timeout,
		}, WithMetrics(metrics))
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// instrumented records generation metrics around a provider that does not
// record its own.
type instrumented struct {
	Provider
	model   string
	metrics *Metrics
}

func (p *instrumented) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, err := p.Provider.EmbedBatch(ctx, texts)
	p.metrics.RecordGeneration(ctx, p.model, "embed_batch", time.Since(start), len(texts), err)
	return vectors, err
}
