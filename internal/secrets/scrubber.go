package secrets

import (
	"sort"
	"strings"
	"sync"
)

// Scrubber detects and redacts credentials.
type Scrubber interface {
	// Scrub redacts credentials from the content.
	Scrub(content string) *Result

	// SensitiveKey reports whether a parameter named key holds a credential.
	SensitiveKey(key string) bool

	// Redaction returns the replacement string.
	Redaction() string

	// IsEnabled returns whether scrubbing is enabled.
	IsEnabled() bool

	// WithEnabled returns a scrubber sharing the compiled rules with
	// scrubbing switched on or off.
	WithEnabled(enabled bool) Scrubber
}

type scrubber struct {
	config  *Config
	leaks   *leakDetector
	enabled bool
}

// redaction tracks a position to redact.
type redaction struct {
	start, end int
}

// New creates a new Scrubber with the given configuration.
// If config is nil, DefaultConfig() is used.
func New(cfg *Config) (Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &scrubber{config: cfg, enabled: cfg.Enabled}
	if cfg.Gitleaks {
		leaks, err := newLeakDetector()
		if err != nil {
			return nil, err
		}
		s.leaks = leaks
	}
	return s, nil
}

// MustNew creates a new Scrubber, panicking on error.
func MustNew(cfg *Config) Scrubber {
	s, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

var (
	defaultOnce     sync.Once
	defaultScrubber Scrubber
)

// Default returns a shared scrubber built from DefaultConfig.
func Default() Scrubber {
	defaultOnce.Do(func() {
		defaultScrubber = MustNew(DefaultConfig())
	})
	return defaultScrubber
}

// Scrub redacts credentials from the content. Overlapping matches are merged
// so each region is replaced once.
func (s *scrubber) Scrub(content string) *Result {
	result := &Result{
		Scrubbed: content,
		Findings: make([]Finding, 0),
		ByRule:   make(map[string]int),
	}

	if !s.enabled {
		return result
	}

	var lower string
	redactions := make([]redaction, 0)

	for _, rule := range s.config.compiledRules {
		if len(rule.keywords) > 0 {
			if lower == "" {
				lower = strings.ToLower(content)
			}
			if !containsAny(lower, rule.keywords) {
				continue
			}
		}

		for _, match := range rule.pattern.FindAllStringSubmatchIndex(content, -1) {
			start, end := valueSpan(match)
			if s.isAllowed(content[start:end]) {
				continue
			}

			result.Findings = append(result.Findings, Finding{
				RuleID:     rule.ID,
				StartIndex: start,
				EndIndex:   end,
			})
			result.ByRule[rule.ID]++
			redactions = append(redactions, redaction{start: start, end: end})
		}
	}

	if s.leaks != nil {
		for _, f := range s.leaks.spans(content) {
			if s.isAllowed(content[f.StartIndex:f.EndIndex]) {
				continue
			}
			result.Findings = append(result.Findings, f)
			result.ByRule[f.RuleID]++
			redactions = append(redactions, redaction{start: f.StartIndex, end: f.EndIndex})
		}
	}

	if len(redactions) > 0 {
		sortRedactionsAsc(redactions)
		merged := mergeRedactions(redactions)
		sortRedactions(merged)

		scrubbed := content
		for _, r := range merged {
			scrubbed = scrubbed[:r.start] + s.config.RedactionString + scrubbed[r.end:]
		}
		result.Scrubbed = scrubbed
	}

	return result
}

// SensitiveKey reports whether key contains one of the configured fragments.
func (s *scrubber) SensitiveKey(key string) bool {
	if !s.enabled {
		return false
	}
	return containsAny(strings.ToLower(key), s.config.SensitiveKeys)
}

func (s *scrubber) Redaction() string {
	return s.config.RedactionString
}

func (s *scrubber) IsEnabled() bool {
	return s.enabled
}

func (s *scrubber) WithEnabled(enabled bool) Scrubber {
	if enabled == s.enabled {
		return s
	}
	return &scrubber{config: s.config, leaks: s.leaks, enabled: enabled}
}

// valueSpan returns the last participating capture group of a match, or the
// whole match when the pattern has none.
func valueSpan(match []int) (int, int) {
	for i := len(match) - 2; i >= 2; i -= 2 {
		if match[i] >= 0 {
			return match[i], match[i+1]
		}
	}
	return match[0], match[1]
}

func (s *scrubber) isAllowed(match string) bool {
	for _, pattern := range s.config.compiledAllowList {
		if pattern.MatchString(match) {
			return true
		}
	}
	return false
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

// sortRedactions sorts redactions by start position descending.
func sortRedactions(redactions []redaction) {
	sort.Slice(redactions, func(i, j int) bool {
		return redactions[i].start > redactions[j].start
	})
}

// sortRedactionsAsc sorts redactions by start position ascending.
func sortRedactionsAsc(redactions []redaction) {
	sort.Slice(redactions, func(i, j int) bool {
		return redactions[i].start < redactions[j].start
	})
}

// mergeRedactions merges overlapping or adjacent redactions. Empty spans (a
// key with no value) survive so the redaction string is still inserted.
func mergeRedactions(redactions []redaction) []redaction {
	if len(redactions) == 0 {
		return redactions
	}

	merged := []redaction{redactions[0]}

	for i := 1; i < len(redactions); i++ {
		last := &merged[len(merged)-1]
		curr := redactions[i]

		if curr.start <= last.end {
			if curr.end > last.end {
				last.end = curr.end
			}
		} else {
			merged = append(merged, curr)
		}
	}

	return merged
}

var _ Scrubber = (*scrubber)(nil)
