package logging

import (
	"context"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type requestCtxKey struct{}
type analysisCtxKey struct{}
type loggerCtxKey struct{}

const maxIDLen = 128

// idPattern allows alphanumerics, hyphen and underscore.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ContextFields returns the correlation fields carried by ctx.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 5)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if id := AnalysisIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("analysis.id", id))
	}
	return fields
}

// validID reports whether id is safe to log as a correlation ID.
func validID(id string) bool {
	return id != "" && len(id) <= maxIDLen && idPattern.MatchString(id)
}

// WithRequestID stores a request ID. Request IDs may come from client
// headers, so invalid values are dropped and ctx is returned unchanged.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if !validID(requestID) {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestCtxKey{}).(string)
	return id
}

// WithAnalysisID stores the ID of the analysis in progress. Invalid values
// are dropped.
func WithAnalysisID(ctx context.Context, analysisID string) context.Context {
	if !validID(analysisID) {
		return ctx
	}
	return context.WithValue(ctx, analysisCtxKey{}, analysisID)
}

// AnalysisIDFromContext returns the analysis ID, or "".
func AnalysisIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(analysisCtxKey{}).(string)
	return id
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return Nop()
}
