package redirect

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/debugredirect/internal/config"
	"github.com/fyrsmithlabs/debugredirect/internal/host"
	"github.com/stretchr/testify/require"
)

type fakeRequest struct {
	uri    string
	front  string
	scope  string
	params map[string]string
	server map[string]string
}

func newCartRequest() *fakeRequest {
	return &fakeRequest{
		uri:   "/checkout/cart?coupon=SAVE10",
		front: "checkout",
		params: map[string]string{
			"coupon":   "SAVE10",
			"password": "hunter2",
		},
		server: map[string]string{
			"HTTP_REFERER":    "http://shop.test/",
			"HTTP_USER_AGENT": "curl/8.0",
		},
	}
}

func (r *fakeRequest) RequestURI() string { return r.uri }
func (r *fakeRequest) PathInfo() string {
	if i := strings.IndexByte(r.uri, '?'); i >= 0 {
		return r.uri[:i]
	}
	return r.uri
}
func (r *fakeRequest) Method() string { return "GET" }
func (r *fakeRequest) FrontName() string { return r.front }
func (r *fakeRequest) ModuleName() string { return r.front }
func (r *fakeRequest) ControllerName() string { return "cart" }
func (r *fakeRequest) ActionName() string { return "index" }
func (r *fakeRequest) FullActionName() string { return r.front + "_cart_index" }
func (r *fakeRequest) Params() map[string]string { return r.params }
func (r *fakeRequest) Server(name string) string { return r.server[name] }
func (r *fakeRequest) ClientIP() string { return "203.0.113.7" }
func (r *fakeRequest) Scope() string { return r.scope }

type fakeResponse struct {
	status    int
	headers   map[string]string
	headerErr bool
}

func (r *fakeResponse) StatusCode() int { return r.status }

func (r *fakeResponse) Header(name string) (string, bool, error) {
	if r.headerErr {
		return "", false, errors.New("headers unavailable")
	}
	v, ok := r.headers[name]
	return v, ok, nil
}

func redirectTo(status int, location string) *fakeResponse {
	return &fakeResponse{status: status, headers: map[string]string{"Location": location}}
}

type fakeRouter struct{}

func (fakeRouter) Name() string { return "standard" }

type fakeRoute struct{}

func (fakeRoute) ModuleName() string { return "checkout" }
func (fakeRoute) ControllerName() string { return "cart" }
func (fakeRoute) ActionName() string { return "index" }
func (fakeRoute) Params() map[string]string { return map[string]string{"id": "1"} }

type panickingSource struct{}

func (panickingSource) Value(string, string) (string, bool) { panic("store exploded") }
func (panickingSource) IsSetFlag(string, string) bool { panic("store exploded") }

const enabledYAML = `
debug:
  redirect:
    enabled: "1"
    exclude_admin: "1"
    log_backtrace: "1"
    log_request_data: "1"
    backtrace_limit: "10"
`

func newStore(t *testing.T, yaml string) *config.Store {
	t.Helper()
	store, err := config.FromYAML([]byte(yaml))
	require.NoError(t, err)
	return store
}

func requestCtx(req host.Request) context.Context {
	ctx := host.WithRequest(context.Background(), req)
	return host.WithState(ctx, &host.State{})
}
