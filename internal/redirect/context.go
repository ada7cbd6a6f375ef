package redirect

import (
	"github.com/fyrsmithlabs/debugredirect/internal/host"
)

// RequestContext is a copy of the request fields redirect records use.
// It never refers back to the live request.
type RequestContext struct {
	URI        string
	PathInfo   string
	Method     string
	Module     string
	Controller string
	Action     string
	FullAction string
	FrontName  string
	Scope      string
	Params     map[string]string
	Referer    string
	UserAgent  string
	ClientIP   string
}

// Snapshot copies req. A nil req yields the zero RequestContext.
func Snapshot(req host.Request) RequestContext {
	if req == nil {
		return RequestContext{}
	}

	var params map[string]string
	if src := req.Params(); src != nil {
		params = make(map[string]string, len(src))
		for k, v := range src {
			params[k] = v
		}
	}

	return RequestContext{
		URI:        req.RequestURI(),
		PathInfo:   req.PathInfo(),
		Method:     req.Method(),
		Module:     req.ModuleName(),
		Controller: req.ControllerName(),
		Action:     req.ActionName(),
		FullAction: req.FullActionName(),
		FrontName:  req.FrontName(),
		Scope:      req.Scope(),
		Params:     params,
		Referer:    req.Server("HTTP_REFERER"),
		UserAgent:  req.Server("HTTP_USER_AGENT"),
		ClientIP:   req.ClientIP(),
	}
}
