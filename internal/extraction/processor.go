package extraction

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/leavelens/internal/leave"
	"github.com/fyrsmithlabs/leavelens/internal/logging"
	"github.com/fyrsmithlabs/leavelens/internal/ocr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/leavelens/internal/extraction"

// Result is a processed upload.
type Result struct {
	Record leave.Record
	// RawText is the cleaned OCR text the record was extracted from.
	RawText string
}

// Processor decodes an uploaded letter, recognises its text and extracts
// the leave fields.
type Processor struct {
	recognizer ocr.Recognizer
	extractor  *Extractor
	logger     *logging.Logger
	tracer     trace.Tracer
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = l }
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) ProcessorOption {
	return func(p *Processor) { p.tracer = tp.Tracer(instrumentationName) }
}

// NewProcessor creates a Processor.
func NewProcessor(recognizer ocr.Recognizer, extractor *Extractor, opts ...ProcessorOption) *Processor {
	p := &Processor{recognizer: recognizer, extractor: extractor}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.Nop()
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(instrumentationName)
	}
	return p
}

// Process handles one base64 or data URL payload. Decoding failures wrap
// ocr.ErrInvalidPayload or ocr.ErrUnsupportedDocument; recognition
// failures wrap ocr.ErrRecognitionFailed.
func (p *Processor) Process(ctx context.Context, payload string) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "extraction.Process")
	defer span.End()

	doc, err := ocr.DecodePayload(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("document.kind", string(doc.Kind)))

	text, err := p.recognizer.Recognize(ctx, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recognition failed")
		p.logger.Warn(ctx, "text recognition failed",
			zap.String("document_kind", string(doc.Kind)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("recognizing %s document: %w", doc.Kind, err)
	}

	cleaned := CleanText(text)
	rec := p.extractor.Extract(cleaned)

	span.SetAttributes(
		attribute.Bool("extraction.name_found", rec.StudentName != nil),
		attribute.Bool("extraction.roll_found", rec.RollNumber != nil),
		attribute.Bool("extraction.date_found", rec.Date != nil),
	)
	p.logger.Debug(ctx, "letter processed",
		zap.String("document_kind", string(doc.Kind)),
		zap.Int("text_length", len(cleaned)),
		zap.Bool("name_found", rec.StudentName != nil),
		zap.Bool("roll_found", rec.RollNumber != nil),
		zap.Bool("date_found", rec.Date != nil),
	)
	return &Result{Record: rec, RawText: cleaned}, nil
}
