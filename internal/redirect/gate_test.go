package redirect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGate_Defaults(t *testing.T) {
	g := NewGate(newStore(t, "server:\n  port: 8080\n"))

	s := g.Load("")
	assert.Equal(t, Settings{BacktraceLimit: DefaultBacktraceLimit, SanitizeSensitive: true}, s)
}

func TestGate_Load(t *testing.T) {
	g := NewGate(newStore(t, enabledYAML))

	s := g.Load("default")
	assert.True(t, s.Enabled)
	assert.True(t, s.ExcludeAdmin)
	assert.True(t, s.LogBacktrace)
	assert.True(t, s.LogRequestData)
	assert.Equal(t, 10, s.BacktraceLimit)
	assert.True(t, s.SanitizeSensitive)
}

func TestGate_BacktraceLimitFallback(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-3", ""} {
		t.Run(raw, func(t *testing.T) {
			g := NewGate(newStore(t, "debug:\n  redirect:\n    backtrace_limit: \""+raw+"\"\n"))
			assert.Equal(t, DefaultBacktraceLimit, g.Load("").BacktraceLimit)
		})
	}
}

func TestGate_SanitizeCanBeTurnedOff(t *testing.T) {
	g := NewGate(newStore(t, "debug:\n  redirect:\n    sanitize_sensitive_data: \"0\"\n"))
	assert.False(t, g.Load("").SanitizeSensitive)
}

func TestGate_ScopeOverride(t *testing.T) {
	g := NewGate(newStore(t, enabledYAML+`
scopes:
  french:
    debug:
      redirect:
        enabled: "0"
`))

	assert.True(t, g.Load("").Enabled)
	assert.False(t, g.Load("french").Enabled)
	assert.True(t, g.Load("german").Enabled, "unknown scopes read the base tree")
	assert.Equal(t, 10, g.Load("french").BacktraceLimit)
}

func TestGate_LoadIsIdempotent(t *testing.T) {
	g := NewGate(newStore(t, enabledYAML))
	assert.Equal(t, g.Load(""), g.Load(""))
}

func TestGate_SourceFailureDisables(t *testing.T) {
	g := NewGate(panickingSource{})

	assert.NotPanics(t, func() {
		assert.Equal(t, Settings{}, g.Load(""))
	})
	_, ok := g.Active(newCartRequest())
	assert.False(t, ok)

	var nilGate *Gate
	assert.Equal(t, Settings{}, nilGate.Load(""))
}

func TestIsAdminArea(t *testing.T) {
	tests := []struct {
		front string
		want  bool
	}{
		{"admin", true},
		{"Admin", false},
		{"administrator", false},
		{"checkout", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAdminArea(&fakeRequest{front: tt.front}), tt.front)
	}
}

func TestGate_Active(t *testing.T) {
	g := NewGate(newStore(t, enabledYAML))

	_, ok := g.Active(newCartRequest())
	assert.True(t, ok)

	_, ok = g.Active(&fakeRequest{front: "admin"})
	assert.False(t, ok, "admin excluded")

	_, ok = g.Active(nil)
	assert.True(t, ok, "no request reads the default scope")

	disabled := NewGate(newStore(t, "debug:\n  redirect:\n    enabled: \"0\"\n"))
	_, ok = disabled.Active(newCartRequest())
	assert.False(t, ok)

	inclusive := NewGate(newStore(t, "debug:\n  redirect:\n    enabled: \"1\"\n"))
	_, ok = inclusive.Active(&fakeRequest{front: "admin"})
	assert.True(t, ok, "admin logged when not excluded")
}
