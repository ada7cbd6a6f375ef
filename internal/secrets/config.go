package secrets

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultRedaction replaces masked values.
const DefaultRedaction = "***"

// Config configures the scrubber.
type Config struct {
	// Enabled controls whether scrubbing is active (default: true). The
	// redirect logger overrides it per scope with WithEnabled.
	Enabled bool `koanf:"enabled"`

	// Rules defines the detection rules
	Rules []Rule `koanf:"rules"`

	// RedactionString is the replacement for detected values (default: "***")
	RedactionString string `koanf:"redaction_string"`

	// AllowList contains patterns for matched values that stay readable
	AllowList []string `koanf:"allow_list"`

	// SensitiveKeys are parameter-name fragments whose values are always
	// masked, matched case-insensitively.
	SensitiveKeys []string `koanf:"sensitive_keys"`

	// Gitleaks also runs the gitleaks default ruleset (800+ detectors) over
	// every scrubbed string. Off by default: it is much slower than Rules.
	Gitleaks bool `koanf:"gitleaks"`

	// compiled patterns (populated by Validate)
	compiledRules     []*compiledRule
	compiledAllowList []*regexp.Regexp
}

// Rule defines a credential detection rule.
type Rule struct {
	// ID is the unique identifier for this rule
	ID string `koanf:"id"`

	// Description explains what this rule detects
	Description string `koanf:"description"`

	// Pattern is the regex pattern to match. With capture groups only the
	// last group is redacted.
	Pattern string `koanf:"pattern"`

	// Keywords are optional keywords that must be present for the rule to apply
	Keywords []string `koanf:"keywords"`
}

type compiledRule struct {
	Rule
	pattern  *regexp.Regexp
	keywords []string
}

// DefaultConfig returns a configuration with the standard credential rules.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		RedactionString: DefaultRedaction,
		Rules:           DefaultRules(),
		AllowList:       []string{},
		SensitiveKeys:   DefaultSensitiveKeys(),
	}
}

// Validate validates and compiles the configuration.
func (c *Config) Validate() error {
	if c.RedactionString == "" {
		c.RedactionString = DefaultRedaction
	}

	c.compiledRules = make([]*compiledRule, 0, len(c.Rules))
	for i, rule := range c.Rules {
		if rule.ID == "" {
			return fmt.Errorf("rule %d: ID is required", i)
		}
		if rule.Pattern == "" {
			return fmt.Errorf("rule %s: pattern is required", rule.ID)
		}

		pattern, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return fmt.Errorf("rule %s: invalid pattern: %w", rule.ID, err)
		}

		compiled := &compiledRule{Rule: rule, pattern: pattern}
		for _, kw := range rule.Keywords {
			if kw == "" {
				return fmt.Errorf("rule %s: empty keyword", rule.ID)
			}
			compiled.keywords = append(compiled.keywords, strings.ToLower(kw))
		}
		c.compiledRules = append(c.compiledRules, compiled)
	}

	c.compiledAllowList = make([]*regexp.Regexp, 0, len(c.AllowList))
	for i, pattern := range c.AllowList {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("allow_list %d: invalid pattern: %w", i, err)
		}
		c.compiledAllowList = append(c.compiledAllowList, compiled)
	}

	for i, key := range c.SensitiveKeys {
		if key == "" {
			return fmt.Errorf("sensitive_keys %d: empty key", i)
		}
		c.SensitiveKeys[i] = strings.ToLower(key)
	}

	return nil
}
