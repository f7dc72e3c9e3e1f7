// Package logging provides structured, context-aware logging on top of zap.
//
// It adds:
//   - a Trace level below Debug
//   - stdout and OpenTelemetry outputs (via the otelzap bridge)
//   - request and analysis correlation fields taken from the context
//   - redaction of credentials and student personal data
//   - per-level sampling; errors are never sampled
//
// # Usage
//
//	cfg, err := logging.ConfigFromObservability(appCfg.Observability)
//	if err != nil {
//	    return err
//	}
//	logger, err := logging.NewLogger(cfg, tel.LoggerProvider())
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRequestID(ctx, requestID)
//	logger.Info(ctx, "analysis completed", zap.Int("records", n))
//
// Entries logged with a context carry request.id, analysis.id, trace_id and
// span_id when present.
//
// # Redaction
//
// Fields named student_name, roll_number or raw_text, and credential-like
// fields, are replaced with [REDACTED] by the stdout encoder. Reasons must not
// be logged at Info level; log counts and IDs instead.
package logging
