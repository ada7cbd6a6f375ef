// internal/logging/testing.go
package logging

import (
	"reflect"
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger wraps Logger with test observation capabilities.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

// NewTestLogger creates a logger for testing with full observation.
func NewTestLogger() *TestLogger {
	return NewTestLoggerAt(TraceLevel)
}

// NewTestLoggerAt creates an observing logger that drops entries below level.
func NewTestLoggerAt(level zapcore.Level) *TestLogger {
	core, observed := observer.New(level)
	return &TestLogger{
		Logger: &Logger{
			zap:    zap.New(core),
			config: NewDefaultConfig(),
		},
		observed: observed,
	}
}

// All returns all logged entries.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.observed.All()
}

// FilterMessage returns entries with exactly this message.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessage(msg)
}

// Count returns the number of entries with exactly this message.
func (t *TestLogger) Count(msg string) int {
	return t.observed.FilterMessage(msg).Len()
}

// Fields returns the context of the first entry with this message as a map,
// or nil if there is none.
func (t *TestLogger) Fields(msg string) map[string]interface{} {
	entries := t.observed.FilterMessage(msg).All()
	if len(entries) == 0 {
		return nil
	}
	return entries[0].ContextMap()
}

// Reset clears all logged entries.
func (t *TestLogger) Reset() {
	t.observed.TakeAll()
}

// AssertLogged verifies a log at level containing message was logged.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		if entry.Level == level && strings.Contains(entry.Message, msgContains) {
			return
		}
	}
	tb.Errorf("expected log at %v containing %q, logs: %+v", level, msgContains, t.observed.All())
}

// AssertNotLogged verifies no log at level containing message was logged.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		if entry.Level == level && strings.Contains(entry.Message, msgContains) {
			tb.Errorf("unexpected log at %v containing %q", level, msgContains)
		}
	}
}

// AssertEmpty verifies nothing at all was logged.
func (t *TestLogger) AssertEmpty(tb testing.TB) {
	tb.Helper()
	if n := t.observed.Len(); n != 0 {
		tb.Errorf("expected no logs, got %d: %+v", n, t.observed.All())
	}
}

// AssertField verifies a field with key and value exists in message.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, expected interface{}) {
	tb.Helper()
	for _, entry := range t.observed.FilterMessage(msg).All() {
		for _, field := range entry.Context {
			if field.Key != key {
				continue
			}
			if field.Type == zapcore.StringType && field.String == expected {
				return
			}
			if reflect.DeepEqual(field.Interface, expected) {
				return
			}
			if got, ok := entry.ContextMap()[key]; ok && reflect.DeepEqual(got, expected) {
				return
			}
		}
	}
	tb.Errorf("field %q=%v not found in message %q", key, expected, msg)
}

// unmaskedSecret matches key=value credentials whose value was not masked.
var unmaskedSecret = regexp.MustCompile(`(?i)(password|token|secret|api[_-]?key)=[^*&\s]`)

// AssertNoSecrets verifies no credential survived unmasked in any string
// field or message, including nested maps.
func (t *TestLogger) AssertNoSecrets(tb testing.TB) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		if unmaskedSecret.MatchString(entry.Message) {
			tb.Errorf("unmasked secret in message: %q", entry.Message)
		}
		for key, val := range entry.ContextMap() {
			walkStrings(val, func(s string) {
				if unmaskedSecret.MatchString(s) {
					tb.Errorf("unmasked secret in field %q: %q", key, s)
				}
			})
		}
	}
}

func walkStrings(v interface{}, fn func(string)) {
	switch val := v.(type) {
	case string:
		fn(val)
	case map[string]interface{}:
		for _, item := range val {
			walkStrings(item, fn)
		}
	case map[string]string:
		for _, item := range val {
			fn(item)
		}
	case []interface{}:
		for _, item := range val {
			walkStrings(item, fn)
		}
	}
}

// AssertTraceCorrelation verifies trace_id present in message.
func (t *TestLogger) AssertTraceCorrelation(tb testing.TB, msg string) {
	tb.Helper()
	for _, entry := range t.observed.FilterMessage(msg).All() {
		for _, field := range entry.Context {
			if field.Key == "trace_id" {
				return
			}
		}
	}
	tb.Errorf("message %q missing trace_id", msg)
}
