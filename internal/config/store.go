package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/knadh/koanf/v2"
)

// DefaultScope is the scope code that reads the base tree directly.
const DefaultScope = "default"

// scopesKey holds per-scope override trees: scopes.<code>.<path>.
const scopesKey = "scopes"

// Store is a scoped key/value view over the loaded configuration.
//
// Paths use slash separators ("debug/redirect/enabled"). A lookup under a
// scope code first tries scopes.<code>.<path> and falls back to the base tree.
// Store is safe for concurrent use; Reload swaps the whole tree at once.
type Store struct {
	source func() (*koanf.Koanf, error)
	path   string

	mu        sync.RWMutex
	k         *koanf.Koanf
	listeners []func()
}

// Open loads the YAML file at path (may be empty) plus environment overrides.
func Open(path string) (*Store, error) {
	s := &Store{
		path:   path,
		source: func() (*koanf.Koanf, error) { return load(path) },
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// FromYAML builds a store from an in-memory YAML document.
func FromYAML(content []byte) (*Store, error) {
	data := append([]byte(nil), content...)
	s := &Store{
		source: func() (*koanf.Koanf, error) { return loadBytes(data) },
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path, or "" for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the source and notifies listeners on success.
// On failure the previous tree is kept.
func (s *Store) Reload() error {
	k, err := s.source()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.k = k
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return nil
}

// OnReload registers fn to run after every successful reload.
func (s *Store) OnReload(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Value returns the scalar stored at path for scope.
// The second result is false when the path is unset or names a section.
func (s *Store) Value(path, scope string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := keyFor(path)
	if scope != "" && scope != DefaultScope {
		if v, ok := scalar(s.k.Get(scopesKey + "." + scope + "." + key)); ok {
			return v, true
		}
	}
	return scalar(s.k.Get(key))
}

// IsSetFlag reports whether the value at path for scope is switched on.
func (s *Store) IsSetFlag(path, scope string) bool {
	v, ok := s.Value(path, scope)
	return ok && Flag(v)
}

// Set overrides a single value in memory. An empty scope writes the base tree.
// The override lasts until the next Reload.
func (s *Store) Set(path, scope, value string) error {
	key := keyFor(path)
	if scope != "" && scope != DefaultScope {
		key = scopesKey + "." + scope + "." + key
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.k.Set(key, value); err != nil {
		return fmt.Errorf("setting %s: %w", path, err)
	}
	return nil
}

// Scopes lists the scope codes that carry overrides, sorted.
func (s *Store) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scopes := s.k.MapKeys(scopesKey)
	sort.Strings(scopes)
	return scopes
}

// CheckScope returns ErrUnknownScope when scope is neither the default scope
// nor a scope with overrides.
func (s *Store) CheckScope(scope string) error {
	if scope == "" || scope == DefaultScope {
		return nil
	}
	for _, known := range s.Scopes() {
		if known == scope {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownScope, scope)
}

// Unmarshal decodes the section at key (dot separated, "" for the root) into out.
func (s *Store) Unmarshal(key string, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.k.Unmarshal(key, out); err != nil {
		return fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}
	return nil
}

// Config decodes, defaults and validates the typed application config.
func (s *Store) Config() (*Config, error) {
	var cfg Config
	if err := s.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// keyFor converts a slash path to a koanf key.
func keyFor(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", ".")
}

// scalar renders leaf values as strings. Sections and nil are not scalars.
func scalar(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case map[string]any:
		return "", false
	case string:
		return val, true
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ","), true
	default:
		return fmt.Sprint(val), true
	}
}
