// Package telemetry provides OpenTelemetry tracing and metrics for leavelens.
//
// Traces and metrics are exported over OTLP (grpc or http/protobuf) to a
// collector. Telemetry is off by default; when enabled, exporter failures
// degrade the instance instead of failing startup.
//
// # Usage
//
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
//	analyzer, err := analysis.New(embedder,
//	    analysis.WithTracerProvider(tel.TracerProvider()),
//	    analysis.WithMeterProvider(tel.MeterProvider()),
//	)
//
// # Testing
//
// NewTestTelemetry records spans and metrics in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	// ... run code wired to tt.TracerProvider() ...
//	tt.AssertSpanExists(t, "analysis.Analyze")
package telemetry
