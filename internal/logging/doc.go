// Package logging provides structured logging with OpenTelemetry integration.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Console output (stdout or stderr) and OpenTelemetry output
//   - Automatic context field injection (trace_id, request.id, store.scope)
//   - Field-name and pattern redaction at the encoder
//   - Per-level sampling (errors never sampled)
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, otelProvider)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRequestID(ctx, "req-42")
//	logger.Info(ctx, "REDIRECT DETECTED", zap.Int("status_code", 302))
//
// Output includes automatic correlation:
//
//	{
//	  "ts": "2025-11-24T10:15:30Z",
//	  "level": "info",
//	  "msg": "REDIRECT DETECTED",
//	  "request.id": "req-42",
//	  "status_code": 302
//	}
//
// # Redaction
//
// The encoder redacts top-level fields by name and string values by pattern.
// Values nested inside objects are not inspected; mask them before logging.
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
//	tl.AssertNoSecrets(t)
//
// Logger is safe for concurrent use.
package logging
