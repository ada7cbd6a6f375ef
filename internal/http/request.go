package http

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/debugredirect/internal/host"
	"github.com/labstack/echo/v4"
)

// Scope resolution inputs, in priority order.
const (
	ScopeParam   = "___store"
	ScopeHeader  = "X-Store-Code"
	DefaultScope = "default"
)

// defaultSegment fills route identifiers the path does not provide.
const defaultSegment = "index"

// routeNamePattern matches route names of the form module_controller_action.
var routeNamePattern = regexp.MustCompile(`^[A-Za-z0-9]+_[A-Za-z0-9]+_[A-Za-z0-9]+$`)

var errResponseUnavailable = errors.New("response unavailable")

var (
	_ host.Request     = (*Request)(nil)
	_ host.Response    = (*Response)(nil)
	_ host.RouteResult = (*Route)(nil)
	_ host.Router      = (*Router)(nil)
)

// Request adapts an Echo request to host.Request. Everything is copied when
// the request enters the middleware; route identifiers are filled in once
// routing has run.
type Request struct {
	uri        string
	path       string
	method     string
	routePath  string
	front      string
	module     string
	controller string
	action     string
	params     map[string]string
	header     http.Header
	host       string
	remoteAddr string
	clientIP   string
	scope      string
}

func newRequest(c echo.Context) *Request {
	r := c.Request()

	uri := r.RequestURI
	if uri == "" {
		uri = r.URL.RequestURI()
	}

	front := ""
	if segs := segments(r.URL.Path); len(segs) > 0 {
		front = segs[0]
	}

	return &Request{
		uri:        uri,
		path:       r.URL.Path,
		method:     r.Method,
		routePath:  c.Path(),
		front:      front,
		params:     collectParams(c),
		header:     r.Header.Clone(),
		host:       r.Host,
		remoteAddr: r.RemoteAddr,
		clientIP:   c.RealIP(),
		scope:      resolveScope(c),
	}
}

func (r *Request) RequestURI() string { return r.uri }
func (r *Request) PathInfo() string { return r.path }
func (r *Request) Method() string { return r.method }
func (r *Request) FrontName() string { return r.front }
func (r *Request) ModuleName() string { return r.module }
func (r *Request) ControllerName() string { return r.controller }
func (r *Request) ActionName() string { return r.action }
func (r *Request) ClientIP() string { return r.clientIP }
func (r *Request) Scope() string { return r.scope }

// FullActionName joins the route identifiers, or is empty before routing.
func (r *Request) FullActionName() string {
	if r.module == "" {
		return ""
	}
	return r.module + "_" + r.controller + "_" + r.action
}

// Params returns a copy of the query, form and path parameters.
func (r *Request) Params() map[string]string {
	out := make(map[string]string, len(r.params))
	for k, v := range r.params {
		out[k] = v
	}
	return out
}

// Server maps CGI-style server variable names onto the request. HTTP_*
// names read the matching header.
func (r *Request) Server(name string) string {
	switch name {
	case "REQUEST_METHOD":
		return r.method
	case "REQUEST_URI":
		return r.uri
	case "REMOTE_ADDR":
		return r.remoteAddr
	case "SERVER_NAME":
		return r.host
	}
	if h, ok := strings.CutPrefix(name, "HTTP_"); ok {
		return r.header.Get(strings.ReplaceAll(h, "_", "-"))
	}
	return ""
}

func (r *Request) setRoute(result host.RouteResult) {
	r.module = result.ModuleName()
	r.controller = result.ControllerName()
	r.action = result.ActionName()
	for k, v := range result.Params() {
		r.params[k] = v
	}
}

func collectParams(c echo.Context) map[string]string {
	params := make(map[string]string)
	for k, v := range c.QueryParams() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	ct := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ct, echo.MIMEApplicationForm) || strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		if form, err := c.FormParams(); err == nil {
			for k, v := range form {
				if len(v) > 0 {
					params[k] = v[0]
				}
			}
		}
	}

	values := c.ParamValues()
	for i, name := range c.ParamNames() {
		if i < len(values) {
			params[name] = values[i]
		}
	}
	return params
}

func resolveScope(c echo.Context) string {
	if s := c.QueryParam(ScopeParam); s != "" {
		return s
	}
	if s := c.Request().Header.Get(ScopeHeader); s != "" {
		return s
	}
	return DefaultScope
}

func segments(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// Route is the result of a successful match.
type Route struct {
	module     string
	controller string
	action     string
	params     map[string]string
}

// newRoute derives identifiers from a module_controller_action route name,
// falling back to the first three path segments.
func newRoute(name, path string, params map[string]string) *Route {
	id := [3]string{defaultSegment, defaultSegment, defaultSegment}
	if routeNamePattern.MatchString(name) {
		copy(id[:], strings.SplitN(name, "_", 3))
	} else {
		segs := segments(path)
		for i := 0; i < len(id) && i < len(segs); i++ {
			id[i] = segs[i]
		}
	}
	return &Route{module: id[0], controller: id[1], action: id[2], params: params}
}

func (r *Route) ModuleName() string { return r.module }
func (r *Route) ControllerName() string { return r.controller }
func (r *Route) ActionName() string { return r.action }
func (r *Route) Params() map[string]string { return r.params }

// Router resolves the route Echo already matched for a request.
type Router struct {
	echo *echo.Echo
}

// NewRouter creates a Router over e's route table.
func NewRouter(e *echo.Echo) *Router {
	return &Router{echo: e}
}

// Name identifies the router in flow records.
func (r *Router) Name() string { return "echo" }

// Match looks the request's route pattern up in the route table. It returns
// nil when Echo found no route or req did not come from this binding.
func (r *Router) Match(req host.Request) host.RouteResult {
	er, ok := req.(*Request)
	if !ok || er.routePath == "" {
		return nil
	}
	// On a miss Echo reports the closest partial match as the path.
	if !patternMatches(er.routePath, er.path) {
		return nil
	}
	for _, route := range r.echo.Routes() {
		if route.Method == er.method && route.Path == er.routePath {
			return newRoute(route.Name, er.path, pathParams(er, route.Path))
		}
	}
	return nil
}

func patternMatches(pattern, path string) bool {
	ps, segs := segments(pattern), segments(path)
	for i, p := range ps {
		if strings.HasPrefix(p, "*") {
			return true
		}
		if i >= len(segs) || (!strings.HasPrefix(p, ":") && p != segs[i]) {
			return false
		}
	}
	return len(ps) == len(segs)
}

// pathParams returns the parameters bound from the route pattern.
func pathParams(req *Request, pattern string) map[string]string {
	out := make(map[string]string)
	for _, seg := range segments(pattern) {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			out[name] = req.params[name]
		}
	}
	return out
}

// Response adapts an Echo response to host.Response.
type Response struct {
	resp *echo.Response
}

func newResponse(resp *echo.Response) *Response {
	return &Response{resp: resp}
}

// StatusCode returns the status written, or about to be written.
func (r *Response) StatusCode() int {
	if r == nil || r.resp == nil {
		return 0
	}
	return r.resp.Status
}

// Header returns the first value of the named response header.
func (r *Response) Header(name string) (string, bool, error) {
	if r == nil || r.resp == nil {
		return "", false, errResponseUnavailable
	}
	values := r.resp.Header().Values(name)
	if len(values) == 0 {
		return "", false, nil
	}
	return values[0], true, nil
}
