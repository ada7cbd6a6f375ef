package redirect

import (
	"strconv"
	"time"

	"github.com/fyrsmithlabs/debugredirect/internal/backtrace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TimestampLayout formats Event.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// ViaRedirectMethod is reported as the status of explicit redirects, whose
// final status code is not known yet.
const ViaRedirectMethod = "302 (via redirect method)"

// NotAvailable is reported when no redirect target can be determined.
const NotAvailable = "N/A"

var redirectStatuses = map[int]bool{301: true, 302: true, 303: true, 307: true, 308: true}

// IsRedirectStatus reports whether code is one of 301, 302, 303, 307, 308.
func IsRedirectStatus(code int) bool {
	return redirectStatuses[code]
}

// Event is one detected redirect.
type Event struct {
	ID        string
	Timestamp time.Time
	// StatusCode is 0 for explicit redirects.
	StatusCode  int
	CurrentURL  string
	RedirectURL string
	Module      string
	Controller  string
	Action      string
	FullAction  string

	Request   *RequestDetails
	Backtrace *Backtrace
}

// RequestDetails is attached when request data logging is on.
type RequestDetails struct {
	Params    map[string]string
	Method    string
	Referer   string
	UserAgent string
	ClientIP  string
}

// Backtrace holds either captured frames or the capture error.
type Backtrace struct {
	Frames backtrace.Frames
	Err    string
}

// MarshalLogObject implements zapcore.ObjectMarshaler for the error form.
func (b *Backtrace) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("error", b.Err)
	return nil
}

// StatusLabel returns the status as reported in logs and metrics.
func (e *Event) StatusLabel() string {
	if e.StatusCode == 0 {
		return ViaRedirectMethod
	}
	return strconv.Itoa(e.StatusCode)
}

// Fields returns the event as log fields in record order.
func (e *Event) Fields() []zap.Field {
	fields := make([]zap.Field, 0, 15)
	fields = append(fields,
		zap.String("event_id", e.ID),
		zap.String("timestamp", e.Timestamp.Format(TimestampLayout)),
	)
	if e.StatusCode == 0 {
		fields = append(fields, zap.String("status_code", ViaRedirectMethod))
	} else {
		fields = append(fields, zap.Int("status_code", e.StatusCode))
	}
	fields = append(fields,
		zap.String("current_url", e.CurrentURL),
		zap.String("redirect_url", e.RedirectURL),
		zap.String("module", e.Module),
		zap.String("controller", e.Controller),
		zap.String("action", e.Action),
		zap.String("full_action", e.FullAction),
	)

	if r := e.Request; r != nil {
		fields = append(fields,
			zap.Any("request_params", r.Params),
			zap.String("request_method", r.Method),
			zap.String("http_referer", r.Referer),
			zap.String("user_agent", r.UserAgent),
			zap.String("ip_address", r.ClientIP),
		)
	}

	if b := e.Backtrace; b != nil {
		if b.Err != "" {
			fields = append(fields, zap.Object("full_backtrace", b))
		} else {
			fields = append(fields, zap.Array("full_backtrace", b.Frames))
		}
	}
	return fields
}
