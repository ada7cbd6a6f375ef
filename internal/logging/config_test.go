package logging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.Output.Stdout)
	assert.False(t, cfg.Sampling.Enabled)
	assert.Equal(t, "debugredirect", cfg.Fields["service"])
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad format", func(c *Config) { c.Format = "xml" }, "format"},
		{"no outputs", func(c *Config) { c.Output = OutputConfig{} }, "at least one output"},
		{"stderr only", func(c *Config) { c.Output = OutputConfig{Stderr: true} }, ""},
		{"zero tick", func(c *Config) { c.Sampling.Enabled = true; c.Sampling.Tick = 0 }, "tick"},
		{"sampling unknown level", func(c *Config) {
			c.Sampling.Enabled = true
			c.Sampling.Levels = map[string]LevelSamplingConfig{"loud": {Initial: 1}}
		}, "loud"},
		{"sampling errors", func(c *Config) {
			c.Sampling.Enabled = true
			c.Sampling.Levels = map[string]LevelSamplingConfig{"error": {Initial: 1}}
		}, "never sampled"},
		{"negative caller skip", func(c *Config) { c.Caller.Skip = -1 }, "caller skip"},
		{"bad pattern", func(c *Config) { c.Redaction.Patterns = []string{"("} }, "invalid redaction pattern"},
		{"long pattern", func(c *Config) { c.Redaction.Patterns = []string{strings.Repeat("a", maxPatternLen+1)} }, "too long"},
		{"empty field key", func(c *Config) { c.Fields = map[string]string{"": "x"} }, "key cannot be empty"},
		{"empty field value", func(c *Config) { c.Fields = map[string]string{"env": ""} }, "empty value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewDualCore(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		core, err := newDualCore(NewDefaultConfig(), nil)
		require.NoError(t, err)
		assert.NotNil(t, core)
	})

	t.Run("otel without provider", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Output = OutputConfig{OTEL: true}
		_, err := newDualCore(cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one output")
	})
}
