// Package config loads leavelens configuration from environment variables
// and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete leavelens configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Observability ObservabilityConfig `koanf:"observability"`
	Embeddings    EmbeddingsConfig    `koanf:"embeddings"`
	OCR           OCRConfig           `koanf:"ocr"`
	Analysis      AnalysisConfig      `koanf:"analysis"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int      `koanf:"http_port"`
	Host            string   `koanf:"host"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	// BodyLimit caps request bodies, e.g. "10M". Base64 scans are large.
	BodyLimit string `koanf:"body_limit"`
	// RateLimit is requests per second per client IP on /api routes.
	// Zero disables rate limiting.
	RateLimit   float64  `koanf:"rate_limit"`
	RateBurst   int      `koanf:"rate_burst"`
	CORSOrigins []string `koanf:"cors_origins"`
}

// ObservabilityConfig holds logging and OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool    `koanf:"enable_telemetry"`
	ServiceName     string  `koanf:"service_name"`
	OTLPEndpoint    string  `koanf:"otlp_endpoint"`
	OTLPProtocol    string  `koanf:"otlp_protocol"`
	OTLPInsecure    bool    `koanf:"otlp_insecure"`
	SamplingRate    float64 `koanf:"sampling_rate"`
	LogLevel        string  `koanf:"log_level"`
	LogFormat       string  `koanf:"log_format"`
}

// EmbeddingsConfig selects and configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "fastembed" (local ONNX) or "tei" (HTTP).
	Provider  string `koanf:"provider"`
	Model     string `koanf:"model"`
	BaseURL   string `koanf:"base_url"`
	APIKey    Secret `koanf:"api_key"`
	CacheDir  string `koanf:"cache_dir"`
	MaxLength int    `koanf:"max_length"`
	BatchSize int    `koanf:"batch_size"`
}

// OCRConfig configures the external OCR service.
type OCRConfig struct {
	BaseURL       string   `koanf:"base_url"`
	Timeout       Duration `koanf:"timeout"`
	MinConfidence float64  `koanf:"min_confidence"`
}

// AnalysisConfig holds detection thresholds and clustering settings.
type AnalysisConfig struct {
	HighSimilarity       float64 `koanf:"high_similarity"`
	RepeatedSimilarity   float64 `koanf:"repeated_similarity"`
	RepeatedCount        int     `koanf:"repeated_count"`
	LargeGroupSize       int     `koanf:"large_group_size"`
	VagueKeywordCount    int     `koanf:"vague_keyword_count"`
	MinReasonLength      int     `koanf:"min_reason_length"`
	IdentityFallback     string  `koanf:"identity_fallback"`
	ClusterSeed          int64   `koanf:"cluster_seed"`
	ClusterRestarts      int     `koanf:"cluster_restarts"`
	ClusterDivisor       int     `koanf:"cluster_divisor"`
	ClusterMinCategories int     `koanf:"cluster_min_categories"`
	ClusterMaxCategories int     `koanf:"cluster_max_categories"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5001,
			Host:            "0.0.0.0",
			ShutdownTimeout: Duration(10 * time.Second),
			BodyLimit:       "20M",
			RateLimit:       20,
			RateBurst:       40,
			CORSOrigins:     []string{"*"},
		},
		Observability: ObservabilityConfig{
			EnableTelemetry: false,
			ServiceName:     "attendance-analysis",
			OTLPEndpoint:    "localhost:4317",
			OTLPProtocol:    "grpc",
			OTLPInsecure:    true,
			SamplingRate:    1.0,
			LogLevel:        "info",
			LogFormat:       "json",
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "fastembed",
			Model:     "sentence-transformers/all-MiniLM-L6-v2",
			BaseURL:   "http://localhost:8080",
			MaxLength: 512,
			BatchSize: 64,
		},
		OCR: OCRConfig{
			BaseURL:       "http://localhost:8866",
			Timeout:       Duration(60 * time.Second),
			MinConfidence: 0.5,
		},
		Analysis: AnalysisConfig{
			HighSimilarity:       0.85,
			RepeatedSimilarity:   0.75,
			RepeatedCount:        3,
			LargeGroupSize:       5,
			VagueKeywordCount:    2,
			MinReasonLength:      30,
			IdentityFallback:     "shared",
			ClusterSeed:          42,
			ClusterRestarts:      10,
			ClusterDivisor:       3,
			ClusterMinCategories: 2,
			ClusterMaxCategories: 10,
		},
	}
}

// Load returns the defaults overridden by environment variables.
//
// Environment variables:
//   - PORT or SERVER_HTTP_PORT: HTTP port (default: 5001)
//   - SERVER_HOST: bind address (default: 0.0.0.0)
//   - SERVER_SHUTDOWN_TIMEOUT: graceful shutdown timeout (default: 10s)
//   - OTEL_ENABLE: enable OpenTelemetry export (default: false)
//   - OTEL_SERVICE_NAME: service name (default: attendance-analysis)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: collector endpoint (default: localhost:4317)
//   - LOG_LEVEL, LOG_FORMAT: logging (default: info, json)
//   - EMBEDDINGS_PROVIDER, EMBEDDINGS_MODEL, EMBEDDINGS_BASE_URL
//   - OCR_BASE_URL, OCR_TIMEOUT, OCR_MIN_CONFIDENCE
//
// Analysis thresholds are only configurable through LoadWithFile.
func Load() *Config {
	cfg := Default()

	cfg.Server.Port = getEnvInt("PORT", getEnvInt("SERVER_HTTP_PORT", cfg.Server.Port))
	cfg.Server.Host = getEnvString("SERVER_HOST", cfg.Server.Host)
	cfg.Server.ShutdownTimeout = Duration(getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout.Duration()))
	if origins := os.Getenv("SERVER_CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = strings.Split(origins, ",")
	}

	cfg.Observability.EnableTelemetry = getEnvBool("OTEL_ENABLE", cfg.Observability.EnableTelemetry)
	cfg.Observability.ServiceName = getEnvString("OTEL_SERVICE_NAME", cfg.Observability.ServiceName)
	cfg.Observability.OTLPEndpoint = getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Observability.OTLPEndpoint)
	cfg.Observability.LogLevel = getEnvString("LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.LogFormat = getEnvString("LOG_FORMAT", cfg.Observability.LogFormat)

	cfg.Embeddings.Provider = getEnvString("EMBEDDINGS_PROVIDER", cfg.Embeddings.Provider)
	cfg.Embeddings.Model = getEnvString("EMBEDDINGS_MODEL", cfg.Embeddings.Model)
	cfg.Embeddings.BaseURL = getEnvString("EMBEDDINGS_BASE_URL", cfg.Embeddings.BaseURL)
	cfg.Embeddings.CacheDir = getEnvString("EMBEDDINGS_CACHE_DIR", cfg.Embeddings.CacheDir)
	cfg.Embeddings.APIKey = Secret(getEnvString("EMBEDDINGS_API_KEY", cfg.Embeddings.APIKey.Value()))

	cfg.OCR.BaseURL = getEnvString("OCR_BASE_URL", cfg.OCR.BaseURL)
	cfg.OCR.Timeout = Duration(getEnvDuration("OCR_TIMEOUT", cfg.OCR.Timeout.Duration()))
	cfg.OCR.MinConfidence = getEnvFloat("OCR_MIN_CONFIDENCE", cfg.OCR.MinConfidence)

	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		return errors.New("rate limit cannot be negative")
	}
	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}
	switch c.Embeddings.Provider {
	case "fastembed", "tei":
	default:
		return fmt.Errorf("unknown embeddings provider %q (want fastembed or tei)", c.Embeddings.Provider)
	}
	if c.Embeddings.Provider == "tei" && c.Embeddings.BaseURL == "" {
		return errors.New("embeddings base_url required for tei provider")
	}
	if c.OCR.MinConfidence < 0 || c.OCR.MinConfidence > 1 {
		return fmt.Errorf("ocr min_confidence must be between 0 and 1, got %v", c.OCR.MinConfidence)
	}
	return c.Analysis.validate()
}

func (a AnalysisConfig) validate() error {
	for name, v := range map[string]float64{
		"high_similarity":     a.HighSimilarity,
		"repeated_similarity": a.RepeatedSimilarity,
	} {
		if v < -1 || v > 1 {
			return fmt.Errorf("analysis %s must be within [-1, 1], got %v", name, v)
		}
	}
	if a.RepeatedCount != 0 && a.RepeatedCount < 2 {
		return fmt.Errorf("analysis repeated_count must be at least 2, got %d", a.RepeatedCount)
	}
	switch a.IdentityFallback {
	case "", "shared", "per-record":
	default:
		return fmt.Errorf("analysis identity_fallback must be shared or per-record, got %q", a.IdentityFallback)
	}
	if a.ClusterMinCategories > a.ClusterMaxCategories {
		return fmt.Errorf("analysis cluster_min_categories (%d) exceeds cluster_max_categories (%d)",
			a.ClusterMinCategories, a.ClusterMaxCategories)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
