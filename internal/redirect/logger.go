package redirect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/debugredirect/internal/backtrace"
	"github.com/fyrsmithlabs/debugredirect/internal/host"
	"github.com/fyrsmithlabs/debugredirect/internal/logging"
	"github.com/fyrsmithlabs/debugredirect/internal/sanitize"
	"github.com/fyrsmithlabs/debugredirect/internal/secrets"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Log messages written by this package.
const (
	MsgRedirectDetected = "REDIRECT DETECTED"
	MsgRedirectError    = "Error logging redirect"
)

// Helpers are the functions of this package that build records. They are
// kept out of captured traces.
var Helpers = []string{
	"LogRedirect",
	"buildEvent",
	"fullBacktrace",
	"flowTrace",
	"guard",
	"safely",
}

var errNoResponse = errors.New("response is nil")

// EventLogger writes REDIRECT DETECTED records.
type EventLogger struct {
	logger   *logging.Logger
	capturer *backtrace.Capturer
	scrubber secrets.Scrubber
	metrics  *Metrics
	now      func() time.Time
}

// EventLoggerOption configures an EventLogger.
type EventLoggerOption func(*EventLogger)

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) EventLoggerOption {
	return func(l *EventLogger) {
		l.now = now
	}
}

// WithScrubber sets the credential rules. Whether they apply is decided per
// record by Settings.SanitizeSensitive.
func WithScrubber(scrubber secrets.Scrubber) EventLoggerOption {
	return func(l *EventLogger) {
		if scrubber != nil {
			l.scrubber = scrubber
		}
	}
}

// NewEventLogger creates an EventLogger. A nil logger discards output and a
// nil capturer gets one with default options.
func NewEventLogger(logger *logging.Logger, capturer *backtrace.Capturer, opts ...EventLoggerOption) *EventLogger {
	if logger == nil {
		logger = logging.NewNop()
	}
	if capturer == nil {
		capturer = backtrace.NewCapturer(backtrace.WithHelpers(Helpers...))
	}
	l := &EventLogger{
		logger:   logger,
		capturer: capturer,
		scrubber: secrets.Default(),
		metrics:  NewMetrics(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogRedirect records a redirect on resp. status 0 marks an explicit
// redirect. redirectURL, when empty, is taken from the Location header.
//
// LogRedirect never panics; failures are written as a single error line.
func (l *EventLogger) LogRedirect(ctx context.Context, settings Settings, resp host.Response, status int, redirectURL string) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error(ctx, fmt.Sprintf("%s: %v", MsgRedirectError, r))
		}
	}()

	ev, err := l.buildEvent(ctx, settings, resp, status, redirectURL)
	if err != nil {
		l.logger.Error(ctx, MsgRedirectError+": "+err.Error(), zap.Error(err))
		return
	}

	l.logger.Info(ctx, MsgRedirectDetected, ev.Fields()...)
	l.metrics.RedirectsTotal.WithLabelValues(ev.StatusLabel()).Inc()

	trace.SpanFromContext(ctx).AddEvent("redirect.detected", trace.WithAttributes(
		attribute.String("redirect.event_id", ev.ID),
		attribute.String("redirect.status", ev.StatusLabel()),
		attribute.String("redirect.url", ev.RedirectURL),
		attribute.String("redirect.full_action", ev.FullAction),
	))
}

func (l *EventLogger) buildEvent(ctx context.Context, settings Settings, resp host.Response, status int, redirectURL string) (*Event, error) {
	if resp == nil {
		return nil, errNoResponse
	}

	req, _ := host.RequestFromContext(ctx)
	rc := Snapshot(req)

	ev := &Event{
		ID:          uuid.NewString(),
		Timestamp:   l.now(),
		StatusCode:  status,
		CurrentURL:  rc.URI,
		RedirectURL: resolveTarget(resp, redirectURL),
		Module:      rc.Module,
		Controller:  rc.Controller,
		Action:      rc.Action,
		FullAction:  rc.FullAction,
	}

	if settings.LogRequestData {
		ev.Request = &RequestDetails{
			Params:    l.sanitizer(settings).Params(rc.Params),
			Method:    rc.Method,
			Referer:   rc.Referer,
			UserAgent: rc.UserAgent,
			ClientIP:  rc.ClientIP,
		}
	}

	if settings.LogBacktrace {
		ev.Backtrace = l.fullBacktrace(ctx, settings)
	}
	return ev, nil
}

func (l *EventLogger) fullBacktrace(ctx context.Context, settings Settings) *Backtrace {
	frames, err := l.capturer.Capture(ctx, backtrace.Options{
		Limit:     settings.BacktraceLimit,
		WithArgs:  true,
		Sanitizer: l.sanitizer(settings),
	})
	if err != nil {
		return &Backtrace{Err: err.Error()}
	}
	return &Backtrace{Frames: frames}
}

// sanitizer masks credentials when the scope asks for it.
func (l *EventLogger) sanitizer(settings Settings) *sanitize.Sanitizer {
	return sanitize.New(l.scrubber.WithEnabled(settings.SanitizeSensitive))
}

// resolveTarget picks the explicit URL, else the Location header, else N/A.
func resolveTarget(resp host.Response, explicit string) string {
	if explicit != "" {
		return explicit
	}
	loc, ok, err := resp.Header("Location")
	if err != nil || !ok || loc == "" {
		return NotAvailable
	}
	return loc
}
