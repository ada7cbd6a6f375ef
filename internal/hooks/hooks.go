package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/debugredirect/internal/host"
	"go.uber.org/zap"
)

// HookType names an extension point of the request pipeline.
type HookType string

const (
	// HookBeforeDispatch runs before the front controller dispatches a request.
	HookBeforeDispatch HookType = "before_dispatch"

	// HookAfterDispatch runs after dispatch with the dispatch result.
	HookAfterDispatch HookType = "after_dispatch"

	// HookAroundRouteMatch wraps the router's match call.
	HookAroundRouteMatch HookType = "around_route_match"

	// HookBeforeSendResponse runs before the response is written.
	HookBeforeSendResponse HookType = "before_send_response"

	// HookBeforeRedirect runs before an explicit redirect is set on the response.
	HookBeforeRedirect HookType = "before_redirect"
)

// BeforeDispatchHook handles HookBeforeDispatch.
type BeforeDispatchHook interface {
	OnBeforeDispatch(ctx context.Context, req host.Request)
}

// AfterDispatchHook handles HookAfterDispatch. result is a host.Response when
// dispatch produced one, otherwise whatever the handler returned (an error,
// or nil).
type AfterDispatchHook interface {
	OnAfterDispatch(ctx context.Context, req host.Request, result interface{})
}

// AroundRouteMatchHook handles HookAroundRouteMatch. Implementations must call
// proceed exactly once and return its result.
type AroundRouteMatchHook interface {
	OnAroundRouteMatch(ctx context.Context, router host.Router, proceed host.MatchFunc, req host.Request) host.RouteResult
}

// BeforeSendResponseHook handles HookBeforeSendResponse.
type BeforeSendResponseHook interface {
	OnBeforeResponseSent(ctx context.Context, resp host.Response)
}

// BeforeRedirectHook handles HookBeforeRedirect.
type BeforeRedirectHook interface {
	OnBeforeExplicitRedirect(ctx context.Context, resp host.Response, targetURL string)
}

// Registry holds the handlers attached to each extension point and invokes
// them. A panicking handler is logged and skipped; it never reaches the
// caller.
type Registry struct {
	logger *zap.Logger

	mu               sync.RWMutex
	beforeDispatch   []BeforeDispatchHook
	afterDispatch    []AfterDispatchHook
	aroundRouteMatch []AroundRouteMatchHook
	beforeSend       []BeforeSendResponseHook
	beforeRedirect   []BeforeRedirectHook
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

// Register attaches h to every extension point it implements and returns
// those points. It is an error for h to implement none.
func (r *Registry) Register(h interface{}) ([]HookType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var attached []HookType
	if v, ok := h.(BeforeDispatchHook); ok {
		r.beforeDispatch = append(r.beforeDispatch, v)
		attached = append(attached, HookBeforeDispatch)
	}
	if v, ok := h.(AfterDispatchHook); ok {
		r.afterDispatch = append(r.afterDispatch, v)
		attached = append(attached, HookAfterDispatch)
	}
	if v, ok := h.(AroundRouteMatchHook); ok {
		r.aroundRouteMatch = append(r.aroundRouteMatch, v)
		attached = append(attached, HookAroundRouteMatch)
	}
	if v, ok := h.(BeforeSendResponseHook); ok {
		r.beforeSend = append(r.beforeSend, v)
		attached = append(attached, HookBeforeSendResponse)
	}
	if v, ok := h.(BeforeRedirectHook); ok {
		r.beforeRedirect = append(r.beforeRedirect, v)
		attached = append(attached, HookBeforeRedirect)
	}

	if len(attached) == 0 {
		return nil, fmt.Errorf("handler %T implements no extension point", h)
	}
	return attached, nil
}

// Handlers returns the number of handlers attached to hookType.
func (r *Registry) Handlers(hookType HookType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch hookType {
	case HookBeforeDispatch:
		return len(r.beforeDispatch)
	case HookAfterDispatch:
		return len(r.afterDispatch)
	case HookAroundRouteMatch:
		return len(r.aroundRouteMatch)
	case HookBeforeSendResponse:
		return len(r.beforeSend)
	case HookBeforeRedirect:
		return len(r.beforeRedirect)
	default:
		return 0
	}
}

// BeforeDispatch runs the before_dispatch handlers.
func (r *Registry) BeforeDispatch(ctx context.Context, req host.Request) {
	r.mu.RLock()
	handlers := r.beforeDispatch
	r.mu.RUnlock()

	for _, h := range handlers {
		r.safely(HookBeforeDispatch, func() { h.OnBeforeDispatch(ctx, req) })
	}
}

// AfterDispatch runs the after_dispatch handlers.
func (r *Registry) AfterDispatch(ctx context.Context, req host.Request, result interface{}) {
	r.mu.RLock()
	handlers := r.afterDispatch
	r.mu.RUnlock()

	for _, h := range handlers {
		r.safely(HookAfterDispatch, func() { h.OnAfterDispatch(ctx, req, result) })
	}
}

// BeforeSendResponse runs the before_send_response handlers.
func (r *Registry) BeforeSendResponse(ctx context.Context, resp host.Response) {
	r.mu.RLock()
	handlers := r.beforeSend
	r.mu.RUnlock()

	for _, h := range handlers {
		r.safely(HookBeforeSendResponse, func() { h.OnBeforeResponseSent(ctx, resp) })
	}
}

// BeforeRedirect runs the before_redirect handlers.
func (r *Registry) BeforeRedirect(ctx context.Context, resp host.Response, targetURL string) {
	r.mu.RLock()
	handlers := r.beforeRedirect
	r.mu.RUnlock()

	for _, h := range handlers {
		r.safely(HookBeforeRedirect, func() { h.OnBeforeExplicitRedirect(ctx, resp, targetURL) })
	}
}

// RouteMatch runs match wrapped by the around_route_match handlers. The first
// registered handler is outermost. match runs exactly once, even when a
// handler panics or fails to call proceed.
func (r *Registry) RouteMatch(ctx context.Context, router host.Router, match host.MatchFunc, req host.Request) host.RouteResult {
	r.mu.RLock()
	handlers := r.aroundRouteMatch
	r.mu.RUnlock()

	next := once(match)
	for i := len(handlers) - 1; i >= 0; i-- {
		next = r.around(ctx, handlers[i], router, next)
	}
	return next(req)
}

// around binds one handler around inner.
func (r *Registry) around(ctx context.Context, h AroundRouteMatchHook, router host.Router, inner host.MatchFunc) host.MatchFunc {
	return func(req host.Request) host.RouteResult {
		var (
			called bool
			result host.RouteResult
		)
		proceed := func(pr host.Request) host.RouteResult {
			if !called {
				called = true
				result = inner(pr)
			}
			return result
		}

		var out host.RouteResult
		r.safely(HookAroundRouteMatch, func() {
			out = h.OnAroundRouteMatch(ctx, router, proceed, req)
		})
		if !called {
			return proceed(req)
		}
		if out == nil {
			return result
		}
		return out
	}
}

// once guards match so nested handlers cannot run the real match twice.
func once(match host.MatchFunc) host.MatchFunc {
	var (
		done   bool
		result host.RouteResult
	)
	return func(req host.Request) host.RouteResult {
		if !done {
			done = true
			result = match(req)
		}
		return result
	}
}

func (r *Registry) safely(hookType HookType, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("hook handler panicked",
				zap.String("hook", string(hookType)),
				zap.Any("panic", rec),
			)
		}
	}()
	fn()
}
