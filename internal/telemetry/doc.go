// Package telemetry provides OpenTelemetry instrumentation for debugredirect.
//
// # Overview
//
// Traces and metrics are exported over OTLP (gRPC or HTTP/protobuf) to a
// collector. The HTTP layer records request counters and latency histograms
// through the meter; redirect logging adds a "redirect.detected" event to the
// active request span. The log provider feeds the zap OTEL bridge in
// internal/logging.
//
// # Usage
//
//	cfg := telemetry.NewDefaultConfig()
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
//	tracer := tel.Tracer("debugredirect.http")
//	ctx, span := tracer.Start(ctx, "GET /checkout/cart")
//	defer span.End()
//
// # Configuration
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc          # or http/protobuf
//	  service_name: "debugredirect"
//	  sampling:
//	    rate: 1.0
//	  metrics:
//	    enabled: true
//	    export_interval: "15s"
//
// # Error Handling
//
// Telemetry failures do not crash the application. If a provider cannot be
// initialized, the instance is marked degraded (see Health) and the global
// no-op providers are used instead.
//
// # Testing
//
// Use TestTelemetry for tests:
//
//	tt := telemetry.NewTestTelemetry()
//	_, span := tt.Tracer("test").Start(ctx, "dispatch")
//	span.End()
//	tt.AssertSpanExists(t, "dispatch")
package telemetry
