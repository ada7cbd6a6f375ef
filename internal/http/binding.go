package http

import (
	"github.com/fyrsmithlabs/debugredirect/internal/backtrace"
	"github.com/fyrsmithlabs/debugredirect/internal/hooks"
	"github.com/fyrsmithlabs/debugredirect/internal/host"
	"github.com/fyrsmithlabs/debugredirect/internal/logging"
	"github.com/labstack/echo/v4"
)

const pkgPath = "github.com/fyrsmithlabs/debugredirect/internal/http"

// DefaultObjectAllowList names the receiver types whose identity may be
// attached to captured frames.
var DefaultObjectAllowList = []string{
	pkgPath + ".Binding",
	pkgPath + ".Request",
	pkgPath + ".Response",
	pkgPath + ".Router",
	"github.com/labstack/echo/v4.",
}

// Binding runs the hook registry around Echo's request pipeline.
type Binding struct {
	registry *hooks.Registry
	router   *Router
}

// NewBinding creates a Binding for e. Handlers registered on registry see
// every request that passes through Middleware.
func NewBinding(e *echo.Echo, registry *hooks.Registry) *Binding {
	return &Binding{
		registry: registry,
		router:   NewRouter(e),
	}
}

// Middleware adapts each request, stores it with fresh per-request state in
// the request context and fires the extension points in pipeline order:
// around_route_match, before_dispatch, the handler, after_dispatch.
// before_send_response fires when the status line is written.
func (b *Binding) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := newRequest(c)

			ctx := c.Request().Context()
			ctx = host.WithRequest(ctx, req)
			ctx = host.WithState(ctx, &host.State{})
			ctx = logging.WithScope(ctx, req.Scope())
			ctx = logging.WithRequestID(ctx, c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(c.Request().WithContext(ctx))

			resp := newResponse(c.Response())
			c.Response().Before(func() {
				b.registry.BeforeSendResponse(ctx, resp)
			})

			if result := b.registry.RouteMatch(ctx, b.router, b.router.Match, req); result != nil {
				req.setRoute(result)
			}

			b.registry.BeforeDispatch(ctx, req)
			err := next(c)

			var result interface{} = resp
			if err != nil {
				result = err
			}
			b.registry.AfterDispatch(ctx, req, result)

			return err
		}
	}
}

// Redirect is the explicit redirect entry point for handlers. It fires
// before_redirect and then writes the redirect.
func (b *Binding) Redirect(c echo.Context, code int, url string) error {
	ctx := backtrace.WithCall(c.Request().Context(), backtrace.NewCall(b, "Redirect", c, code, url))
	b.registry.BeforeRedirect(ctx, newResponse(c.Response()), url)
	return c.Redirect(code, url)
}
