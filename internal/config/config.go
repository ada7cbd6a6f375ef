// Package config provides configuration loading for debugredirect.
//
// Configuration comes from a YAML file overlaid with environment variables.
// Besides the typed application settings, the package exposes a scoped
// key/value Store that the redirect gate reads by path ("debug/redirect/enabled")
// with optional per-store-scope overrides.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownScope is returned when a scope code has no overrides section.
var ErrUnknownScope = errors.New("unknown scope")

// Config holds the typed application configuration.
type Config struct {
	Server ServerConfig `koanf:"server"`
	App    AppConfig    `koanf:"app"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// AppConfig describes the instrumented application.
type AppConfig struct {
	// Root is stripped from source file paths in captured stack traces.
	Root string `koanf:"root"`

	// ObjectAllowList holds type-name prefixes whose receivers may appear in traces.
	ObjectAllowList []string `koanf:"object_allow_list"`
}

// NewDefaultConfig returns config with local development defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ShutdownTimeout: Duration(10 * time.Second),
		},
	}
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	def := NewDefaultConfig()
	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	for _, prefix := range c.App.ObjectAllowList {
		if prefix == "" {
			return fmt.Errorf("app.object_allow_list cannot contain empty prefixes")
		}
	}
	return nil
}
