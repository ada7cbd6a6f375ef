// Package redirect logs HTTP redirects and request flow for troubleshooting.
//
// An Interceptor is registered on the hook registry. On every extension
// point it asks the Gate whether logging is active for the request's scope,
// and if so snapshots the request and writes structured records through the
// EventLogger. Nothing in this package changes the request or the response.
package redirect

import (
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/debugredirect/internal/host"
)

// ConfigPath is the namespace the gate reads its settings from.
const ConfigPath = "debug/redirect"

// DefaultBacktraceLimit applies when backtrace_limit is unset or invalid.
const DefaultBacktraceLimit = 15

// adminFrontName is the front name of the admin area.
const adminFrontName = "admin"

// Settings is the redirect logging configuration for one scope.
type Settings struct {
	Enabled           bool `json:"enabled"`
	ExcludeAdmin      bool `json:"exclude_admin"`
	LogBacktrace      bool `json:"log_backtrace"`
	LogRequestData    bool `json:"log_request_data"`
	BacktraceLimit    int  `json:"backtrace_limit"`
	SanitizeSensitive bool `json:"sanitize_sensitive_data"`
}

// ValueSource is the scoped configuration the gate reads.
// *config.Store satisfies it.
type ValueSource interface {
	Value(path, scope string) (string, bool)
	IsSetFlag(path, scope string) bool
}

// Gate turns configuration values into Settings.
type Gate struct {
	source ValueSource
}

// NewGate creates a gate over source.
func NewGate(source ValueSource) *Gate {
	return &Gate{source: source}
}

// Load reads the settings for scope. Any failure reading the source yields
// the zero Settings, which disables logging.
func (g *Gate) Load(scope string) (s Settings) {
	defer func() {
		if r := recover(); r != nil {
			s = Settings{}
		}
	}()
	if g == nil || g.source == nil {
		return Settings{}
	}

	return Settings{
		Enabled:           g.flag("enabled", scope),
		ExcludeAdmin:      g.flag("exclude_admin", scope),
		LogBacktrace:      g.flag("log_backtrace", scope),
		LogRequestData:    g.flag("log_request_data", scope),
		BacktraceLimit:    g.backtraceLimit(scope),
		SanitizeSensitive: g.sanitizeSensitive(scope),
	}
}

// Active loads the settings for req's scope and reports whether hooks should
// log for req. A nil req reads the default scope and is never admin.
func (g *Gate) Active(req host.Request) (Settings, bool) {
	scope := ""
	if req != nil {
		scope = req.Scope()
	}
	s := g.Load(scope)
	if !s.Enabled {
		return s, false
	}
	if s.ExcludeAdmin && req != nil && IsAdminArea(req) {
		return s, false
	}
	return s, true
}

// IsAdminArea reports whether req targets the admin area.
func IsAdminArea(req host.Request) bool {
	return req.FrontName() == adminFrontName
}

func (g *Gate) flag(key, scope string) bool {
	return g.source.IsSetFlag(ConfigPath+"/"+key, scope)
}

func (g *Gate) backtraceLimit(scope string) int {
	raw, ok := g.source.Value(ConfigPath+"/backtrace_limit", scope)
	if !ok {
		return DefaultBacktraceLimit
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return DefaultBacktraceLimit
	}
	return n
}

// sanitizeSensitive defaults to on when the key is unset.
func (g *Gate) sanitizeSensitive(scope string) bool {
	if _, ok := g.source.Value(ConfigPath+"/sanitize_sensitive_data", scope); !ok {
		return true
	}
	return g.flag("sanitize_sensitive_data", scope)
}
