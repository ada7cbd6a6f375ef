// internal/logging/sampling.go
package logging

import (
	"go.uber.org/zap/zapcore"
)

// newSampledCore wraps core with level-aware sampling.
//
// Each configured level below Error gets its own sampler so a burst of debug
// records does not eat the info budget. Levels without a config pass through,
// and Error and above are never sampled.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	sampled := make(map[zapcore.Level]bool, len(cfg.Levels))
	cores := make([]zapcore.Core, 0, len(cfg.Levels)+1)

	for name, rate := range cfg.Levels {
		level, err := LevelFromString(name)
		if err != nil || level >= zapcore.ErrorLevel {
			continue
		}
		sampled[level] = true
		cores = append(cores, zapcore.NewSamplerWithOptions(
			&levelFilterCore{Core: core, only: level, exact: true},
			cfg.Tick.Duration(),
			rate.Initial,
			rate.Thereafter,
		))
	}

	cores = append(cores, &levelFilterCore{Core: core, skip: sampled})
	return zapcore.NewTee(cores...)
}

// levelFilterCore passes either exactly one level or every level not in skip.
type levelFilterCore struct {
	zapcore.Core
	only  zapcore.Level
	exact bool
	skip  map[zapcore.Level]bool
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	if c.exact && lvl != c.only {
		return false
	}
	if c.skip[lvl] {
		return false
	}
	return c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// With creates a child core that preserves level filtering.
func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{
		Core:  c.Core.With(fields),
		only:  c.only,
		exact: c.exact,
		skip:  c.skip,
	}
}
