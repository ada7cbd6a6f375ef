package redirect

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/debugredirect/internal/backtrace"
	"github.com/fyrsmithlabs/debugredirect/internal/hooks"
	"github.com/fyrsmithlabs/debugredirect/internal/host"
	"github.com/fyrsmithlabs/debugredirect/internal/logging"
	"github.com/fyrsmithlabs/debugredirect/internal/sanitize"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// Flow record messages.
const (
	MsgFrontControllerBefore    = "FRONT CONTROLLER BEFORE"
	MsgFrontControllerAfter     = "FRONT CONTROLLER AFTER"
	MsgFrontControllerBacktrace = "FRONT CONTROLLER BACKTRACE"
	MsgRequestStarted           = "REQUEST STARTED"
	MsgHookFailed               = "debug redirect hook failed"
)

// Trace lengths for flow records.
const (
	beforeDispatchTraceLimit = 10
	afterDispatchTraceLimit  = 5
)

// errorLogInterval and errorLogBurst throttle MsgHookFailed lines.
const (
	errorLogInterval = time.Second
	errorLogBurst    = 5
)

var (
	_ hooks.BeforeDispatchHook     = (*Interceptor)(nil)
	_ hooks.AfterDispatchHook      = (*Interceptor)(nil)
	_ hooks.AroundRouteMatchHook   = (*Interceptor)(nil)
	_ hooks.BeforeSendResponseHook = (*Interceptor)(nil)
	_ hooks.BeforeRedirectHook     = (*Interceptor)(nil)
)

// Interceptor observes the request pipeline and logs redirects and request
// flow. It holds no per-request state and is safe for concurrent use.
type Interceptor struct {
	gate     *Gate
	events   *EventLogger
	capturer *backtrace.Capturer
	logger   *logging.Logger
	metrics  *Metrics
	limiter  *rate.Limiter
}

// NewInterceptor creates an Interceptor.
func NewInterceptor(gate *Gate, events *EventLogger, capturer *backtrace.Capturer, logger *logging.Logger) *Interceptor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if capturer == nil {
		capturer = backtrace.NewCapturer(backtrace.WithHelpers(Helpers...))
	}
	if events == nil {
		events = NewEventLogger(logger, capturer)
	}
	return &Interceptor{
		gate:     gate,
		events:   events,
		capturer: capturer,
		logger:   logger,
		metrics:  NewMetrics(),
		limiter:  rate.NewLimiter(rate.Every(errorLogInterval), errorLogBurst),
	}
}

// OnBeforeResponseSent logs a redirect when resp carries a redirect status.
func (i *Interceptor) OnBeforeResponseSent(ctx context.Context, resp host.Response) {
	i.guard(ctx, hooks.HookBeforeSendResponse, func() {
		req, _ := host.RequestFromContext(ctx)
		settings, ok := i.gate.Active(req)
		if !ok {
			return
		}
		if status := resp.StatusCode(); IsRedirectStatus(status) {
			i.events.LogRedirect(ctx, settings, resp, status, "")
		}
	})
}

// OnBeforeExplicitRedirect logs a redirect to targetURL and marks the request
// as redirected. The redirect itself is left alone.
func (i *Interceptor) OnBeforeExplicitRedirect(ctx context.Context, resp host.Response, targetURL string) {
	i.guard(ctx, hooks.HookBeforeRedirect, func() {
		host.StateFromContext(ctx).MarkRedirect()

		req, _ := host.RequestFromContext(ctx)
		settings, ok := i.gate.Active(req)
		if !ok {
			return
		}
		i.events.LogRedirect(ctx, settings, resp, 0, targetURL)
	})
}

// OnBeforeDispatch logs the request about to be dispatched.
func (i *Interceptor) OnBeforeDispatch(ctx context.Context, req host.Request) {
	i.guard(ctx, hooks.HookBeforeDispatch, func() {
		settings, ok := i.gate.Active(req)
		if !ok || !i.logger.Enabled(zapcore.DebugLevel) {
			return
		}
		rc := Snapshot(req)
		params := i.events.sanitizer(settings).Params(rc.Params)

		i.logger.Debug(ctx, MsgFrontControllerBefore,
			zap.String("full_action", rc.FullAction),
			zap.String("module", rc.Module),
			zap.String("controller", rc.Controller),
			zap.String("action", rc.Action),
			zap.Any("params", params),
			zap.String("uri", rc.URI),
			zap.Array("backtrace", i.flowTrace(ctx, beforeDispatchTraceLimit)),
		)
		i.logger.Debug(ctx, MsgFrontControllerBacktrace,
			zap.Array("backtrace", i.flowTrace(ctx, settings.BacktraceLimit)),
		)
		i.logger.Debug(ctx, MsgRequestStarted,
			zap.String("url", rc.URI),
			zap.String("method", rc.Method),
			zap.String("full_action", rc.FullAction),
			zap.Any("params", params),
		)
	})
}

// OnAfterDispatch logs the dispatch outcome when result is a response.
func (i *Interceptor) OnAfterDispatch(ctx context.Context, req host.Request, result interface{}) {
	i.guard(ctx, hooks.HookAfterDispatch, func() {
		resp, isResponse := result.(host.Response)
		if !isResponse || resp == nil {
			return
		}
		if _, ok := i.gate.Active(req); !ok || !i.logger.Enabled(zapcore.DebugLevel) {
			return
		}

		status := resp.StatusCode()
		location, _, err := resp.Header("Location")
		if err != nil {
			location = ""
		}
		i.logger.Debug(ctx, MsgFrontControllerAfter,
			zap.Int("status_code", status),
			zap.Bool("is_redirect", IsRedirectStatus(status)),
			zap.String("redirect_url", location),
			zap.Bool("redirect_detected", host.StateFromContext(ctx).RedirectDetected()),
			zap.Array("backtrace", i.flowTrace(ctx, afterDispatchTraceLimit)),
		)
	})
}

// OnAroundRouteMatch logs before and after the route match. proceed runs
// exactly once whatever happens inside the hook.
func (i *Interceptor) OnAroundRouteMatch(ctx context.Context, router host.Router, proceed host.MatchFunc, req host.Request) host.RouteResult {
	var active bool
	i.guard(ctx, hooks.HookAroundRouteMatch, func() {
		_, active = i.gate.Active(req)
	})
	if !active {
		return proceed(req)
	}

	routerType := sanitize.ClassOf(router)
	i.guard(ctx, hooks.HookAroundRouteMatch, func() {
		i.logger.Debug(ctx, "ROUTER BEFORE: "+routerType,
			zap.String("router", routerName(router)),
			zap.String("request_uri", req.RequestURI()),
			zap.String("path_info", req.PathInfo()),
		)
	})

	result := proceed(req)

	i.guard(ctx, hooks.HookAroundRouteMatch, func() {
		if result == nil {
			i.logger.Debug(ctx, "ROUTER AFTER: "+routerType+" - NO MATCH")
			return
		}
		i.logger.Debug(ctx, "ROUTER AFTER: "+routerType,
			zap.String("result_class", sanitize.ClassOf(result)),
			zap.String("module", result.ModuleName()),
			zap.String("controller", result.ControllerName()),
			zap.String("action", result.ActionName()),
			zap.Any("params", result.Params()),
		)
	})

	return result
}

// flowTrace captures a short trace without arguments.
func (i *Interceptor) flowTrace(ctx context.Context, limit int) backtrace.Frames {
	frames, err := i.capturer.Capture(ctx, backtrace.Options{Limit: limit})
	if err != nil {
		return nil
	}
	return frames
}

// guard runs fn and reduces a panic to a throttled error line.
func (i *Interceptor) guard(ctx context.Context, hook hooks.HookType, fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		i.metrics.HookErrorsTotal.WithLabelValues(string(hook)).Inc()
		if i.limiter.Allow() {
			i.logger.Error(ctx, MsgHookFailed,
				zap.String("hook", string(hook)),
				zap.String("error", fmt.Sprint(r)),
			)
		}
	}()
	fn()
}

func routerName(router host.Router) string {
	if router == nil {
		return ""
	}
	return router.Name()
}
