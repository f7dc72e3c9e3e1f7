package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/fyrsmithlabs/leavelens/internal/ocr"

// DefaultMinConfidence drops lines the engine is unsure about.
const DefaultMinConfidence = 0.5

// ClientConfig configures the OCR service client.
type ClientConfig struct {
	// BaseURL is the OCR service, e.g. http://localhost:8866.
	BaseURL string
	Timeout time.Duration
	// MinConfidence keeps lines scoring strictly above it.
	MinConfidence float64
}

// Client calls an OCR service over HTTP.
type Client struct {
	cfg    ClientConfig
	http   *http.Client
	tracer trace.Tracer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

// WithTracerProvider sets the tracer provider for recognition spans.
func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(cl *Client) { cl.tracer = tp.Tracer(instrumentationName) }
}

// NewClient creates an OCR client.
func NewClient(cfg ClientConfig, opts ...ClientOption) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ocr base URL required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence >= 1 {
		return nil, fmt.Errorf("ocr min confidence must be in [0, 1), got %v", cfg.MinConfidence)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(instrumentationName)
	}
	return c, nil
}

type recognizeRequest struct {
	Document    string `json:"document"`
	ContentType string `json:"content_type"`
}

// recognizeResponse is one entry per page; PDFs are rasterised by the
// service.
type recognizeResponse struct {
	Pages []struct {
		Lines []struct {
			Text       string   `json:"text"`
			Confidence *float64 `json:"confidence"`
		} `json:"lines"`
	} `json:"pages"`
}

// Recognize sends doc to POST {base_url}/ocr and returns the confident
// lines. Lines without a confidence score are kept.
func (c *Client) Recognize(ctx context.Context, doc Document) (string, error) {
	ctx, span := c.tracer.Start(ctx, "ocr.Recognize", trace.WithAttributes(
		attribute.String("ocr.document.kind", string(doc.Kind)),
		attribute.Int("ocr.document.bytes", len(doc.Data)),
	))
	defer span.End()

	text, pages, err := c.recognize(ctx, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recognition failed")
		return "", err
	}
	span.SetAttributes(attribute.Int("ocr.pages", pages))
	return text, nil
}

func (c *Client) recognize(ctx context.Context, doc Document) (string, int, error) {
	body, err := json.Marshal(recognizeRequest{
		Document:    base64.StdEncoding.EncodeToString(doc.Data),
		ContentType: doc.Kind.ContentType(),
	})
	if err != nil {
		return "", 0, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/ocr", bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", 0, fmt.Errorf("%w: status %d: %s", ErrRecognitionFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("%w: decoding response: %v", ErrRecognitionFailed, err)
	}
	if len(out.Pages) == 0 {
		return "", 0, fmt.Errorf("%w: no pages recognised", ErrRecognitionFailed)
	}

	pages := make([]string, 0, len(out.Pages))
	for _, p := range out.Pages {
		lines := make([]string, 0, len(p.Lines))
		for _, l := range p.Lines {
			if l.Confidence != nil && *l.Confidence <= c.cfg.MinConfidence {
				continue
			}
			lines = append(lines, l.Text)
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return strings.Join(pages, "\n"), len(out.Pages), nil
}
