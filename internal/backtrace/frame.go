// Package backtrace captures the current goroutine's call stack as a list of
// simplified frames for redirect diagnostics.
//
// Go does not expose call arguments or method receivers at runtime, so
// callers that want them in a trace record the intercepted call on the
// context with WithCall. Capture attaches each recorded call to the frame
// that matches its class and function.
package backtrace

import (
	"context"

	"github.com/fyrsmithlabs/debugredirect/internal/sanitize"
	"go.uber.org/zap/zapcore"
)

// InternalFile is reported for frames without source information.
const InternalFile = "[internal function]"

// Frame is one simplified stack frame.
type Frame struct {
	File     string          `json:"file"`
	Line     int             `json:"line"`
	Function string          `json:"function"`
	Class    string          `json:"class,omitempty"`
	Args     sanitize.Values `json:"args,omitempty"`
	Object   *ObjectRef      `json:"object,omitempty"`
}

// ObjectRef identifies the receiver of a frame without retaining it.
type ObjectRef struct {
	Class string `json:"object_class"`
	ID    string `json:"object_id"`
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (f Frame) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("file", f.File)
	enc.AddInt("line", f.Line)
	enc.AddString("function", f.Function)
	if f.Class != "" {
		enc.AddString("class", f.Class)
	}
	if f.Args != nil {
		if err := enc.AddArray("args", f.Args); err != nil {
			return err
		}
	}
	if f.Object != nil {
		enc.AddString("object_class", f.Object.Class)
		enc.AddString("object_id", f.Object.ID)
	}
	return nil
}

// Frames is a captured trace, innermost frame first.
type Frames []Frame

// MarshalLogArray implements zapcore.ArrayMarshaler.
func (fs Frames) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, f := range fs {
		if err := enc.AppendObject(f); err != nil {
			return err
		}
	}
	return nil
}

// Call records an intercepted call so its arguments and receiver can be
// attached to the matching frame.
type Call struct {
	// Class is the package-qualified receiver type; empty for free functions.
	Class string
	// Function is the method name, or the package-qualified function name.
	Function string
	Object   interface{}
	Args     []interface{}
}

// NewCall builds a Call for a method on receiver.
func NewCall(receiver interface{}, method string, args ...interface{}) Call {
	return Call{
		Class:    sanitize.ClassOf(receiver),
		Function: method,
		Object:   receiver,
		Args:     args,
	}
}

type callsCtxKey struct{}

// WithCall returns a context carrying call in addition to any calls already
// recorded on ctx.
func WithCall(ctx context.Context, call Call) context.Context {
	prev := callsFrom(ctx)
	calls := make([]Call, 0, len(prev)+1)
	calls = append(calls, prev...)
	calls = append(calls, call)
	return context.WithValue(ctx, callsCtxKey{}, calls)
}

func callsFrom(ctx context.Context) []Call {
	if ctx == nil {
		return nil
	}
	calls, _ := ctx.Value(callsCtxKey{}).([]Call)
	return calls
}
