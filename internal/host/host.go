// Package host defines the contract between the redirect instrumentation and
// the web framework it observes.
//
// Bindings (see internal/http) adapt the framework's request, response and
// router types to these interfaces and carry per-request data in the
// context.
package host

import (
	"context"
	"sync/atomic"
)

// Request is a read-only view of the incoming request.
type Request interface {
	RequestURI() string
	PathInfo() string
	Method() string

	FrontName() string
	ModuleName() string
	ControllerName() string
	ActionName() string
	FullActionName() string

	Params() map[string]string
	// Server returns a server variable such as HTTP_REFERER or HTTP_USER_AGENT.
	Server(name string) string
	ClientIP() string
	// Scope is the store scope code the request runs under.
	Scope() string
}

// Response is the part of the outgoing response the instrumentation reads.
type Response interface {
	StatusCode() int
	// Header returns the first value of the named header. An error reports a
	// failure to read headers at all, not a missing header.
	Header(name string) (string, bool, error)
}

// RouteResult is what a successful route match produced.
type RouteResult interface {
	ModuleName() string
	ControllerName() string
	ActionName() string
	Params() map[string]string
}

// MatchFunc performs the route match. A nil result means no route matched.
type MatchFunc func(Request) RouteResult

// Router identifies the router an around-match hook wraps.
type Router interface {
	Name() string
}

// State is per-request mutable state shared between hooks.
type State struct {
	redirectDetected atomic.Bool
}

// MarkRedirect records that an explicit redirect was issued for the request.
func (s *State) MarkRedirect() {
	if s != nil {
		s.redirectDetected.Store(true)
	}
}

// RedirectDetected reports whether MarkRedirect was called.
func (s *State) RedirectDetected() bool {
	return s != nil && s.redirectDetected.Load()
}

type requestCtxKey struct{}

type stateCtxKey struct{}

// WithRequest returns a context carrying req.
func WithRequest(ctx context.Context, req Request) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, req)
}

// RequestFromContext returns the request stored by WithRequest.
func RequestFromContext(ctx context.Context) (Request, bool) {
	if ctx == nil {
		return nil, false
	}
	req, ok := ctx.Value(requestCtxKey{}).(Request)
	return req, ok && req != nil
}

// WithState returns a context carrying st.
func WithState(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, stateCtxKey{}, st)
}

// StateFromContext returns the per-request state, or nil when none is set.
// A nil *State is safe to use.
func StateFromContext(ctx context.Context) *State {
	if ctx == nil {
		return nil
	}
	st, _ := ctx.Value(stateCtxKey{}).(*State)
	return st
}
