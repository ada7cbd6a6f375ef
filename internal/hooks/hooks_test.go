package hooks

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/debugredirect/internal/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRouter struct{}

func (fakeRouter) Name() string { return "standard" }

type fakeResult struct{ action string }

func (fakeResult) ModuleName() string { return "checkout" }
func (fakeResult) ControllerName() string { return "cart" }
func (r fakeResult) ActionName() string { return r.action }
func (fakeResult) Params() map[string]string { return nil }

type recorder struct {
	calls []string
}

func (r *recorder) OnBeforeDispatch(ctx context.Context, req host.Request) {
	r.calls = append(r.calls, "before_dispatch")
}

func (r *recorder) OnBeforeExplicitRedirect(ctx context.Context, resp host.Response, targetURL string) {
	r.calls = append(r.calls, "before_redirect:"+targetURL)
}

type tagged struct {
	name  string
	trace *[]string
}

func (t tagged) OnAroundRouteMatch(ctx context.Context, router host.Router, proceed host.MatchFunc, req host.Request) host.RouteResult {
	*t.trace = append(*t.trace, t.name+" before")
	res := proceed(req)
	*t.trace = append(*t.trace, t.name+" after")
	return res
}

type panicky struct{ beforeProceed bool }

func (p panicky) OnAroundRouteMatch(ctx context.Context, router host.Router, proceed host.MatchFunc, req host.Request) host.RouteResult {
	if p.beforeProceed {
		panic("boom before")
	}
	proceed(req)
	panic("boom after")
}

func (p panicky) OnBeforeDispatch(ctx context.Context, req host.Request) {
	panic("dispatch boom")
}

type lazy struct{}

func (lazy) OnAroundRouteMatch(ctx context.Context, router host.Router, proceed host.MatchFunc, req host.Request) host.RouteResult {
	return nil
}

func countingMatch(n *int) host.MatchFunc {
	return func(host.Request) host.RouteResult {
		*n++
		return fakeResult{action: "index"}
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry(nil)

	points, err := r.Register(&recorder{})
	require.NoError(t, err)
	assert.Equal(t, []HookType{HookBeforeDispatch, HookBeforeRedirect}, points)
	assert.Equal(t, 1, r.Handlers(HookBeforeDispatch))
	assert.Equal(t, 0, r.Handlers(HookAfterDispatch))
	assert.Equal(t, 0, r.Handlers(HookType("unknown")))

	_, err = r.Register(struct{}{})
	assert.Error(t, err)
}

func TestExecute_DispatchesToAttachedHandlers(t *testing.T) {
	r := NewRegistry(nil)
	rec := &recorder{}
	_, err := r.Register(rec)
	require.NoError(t, err)

	ctx := context.Background()
	r.BeforeDispatch(ctx, nil)
	r.AfterDispatch(ctx, nil, nil)
	r.BeforeSendResponse(ctx, nil)
	r.BeforeRedirect(ctx, nil, "/customer/account/login")

	assert.Equal(t, []string{"before_dispatch", "before_redirect:/customer/account/login"}, rec.calls)
}

func TestRouteMatch_NoHandlers(t *testing.T) {
	r := NewRegistry(nil)
	n := 0

	res := r.RouteMatch(context.Background(), fakeRouter{}, countingMatch(&n), nil)
	assert.Equal(t, 1, n)
	assert.Equal(t, "index", res.ActionName())
}

func TestRouteMatch_ChainsInRegistrationOrder(t *testing.T) {
	r := NewRegistry(nil)
	var trace []string
	_, _ = r.Register(tagged{name: "outer", trace: &trace})
	_, _ = r.Register(tagged{name: "inner", trace: &trace})
	n := 0

	res := r.RouteMatch(context.Background(), fakeRouter{}, countingMatch(&n), nil)

	assert.Equal(t, 1, n)
	assert.Equal(t, "index", res.ActionName())
	assert.Equal(t, []string{"outer before", "inner before", "inner after", "outer after"}, trace)
}

func TestRouteMatch_PanicIsolation(t *testing.T) {
	tests := []struct {
		name    string
		handler AroundRouteMatchHook
	}{
		{"panic before proceed", panicky{beforeProceed: true}},
		{"panic after proceed", panicky{}},
		{"never calls proceed", lazy{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.ErrorLevel)
			r := NewRegistry(zap.New(core))
			_, err := r.Register(tt.handler)
			require.NoError(t, err)
			n := 0

			var res host.RouteResult
			assert.NotPanics(t, func() {
				res = r.RouteMatch(context.Background(), fakeRouter{}, countingMatch(&n), nil)
			})
			assert.Equal(t, 1, n, "match runs exactly once")
			require.NotNil(t, res)
			assert.Equal(t, "index", res.ActionName())

			if _, ok := tt.handler.(panicky); ok {
				require.Equal(t, 1, logs.Len())
				assert.Equal(t, "around_route_match", logs.All()[0].ContextMap()["hook"])
			}
		})
	}
}

func TestExecute_PanicDoesNotStopOtherHandlers(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := NewRegistry(zap.New(core))
	rec := &recorder{}
	_, _ = r.Register(panicky{})
	_, _ = r.Register(rec)

	assert.NotPanics(t, func() { r.BeforeDispatch(context.Background(), nil) })
	assert.Equal(t, []string{"before_dispatch"}, rec.calls)
	assert.Equal(t, 1, logs.FilterMessage("hook handler panicked").Len())
}
