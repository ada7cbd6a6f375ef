package logging

import (
	"context"
	"testing"
	"time"

	"github.com/fyrsmithlabs/debugredirect/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sampledLogger(levels map[string]LevelSamplingConfig) (*Logger, *observer.ObservedLogs) {
	core, observed := observer.New(TraceLevel)
	sampled := newSampledCore(core, SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels:  levels,
	})
	return &Logger{zap: zap.New(sampled), config: NewDefaultConfig()}, observed
}

func TestNewSampledCore_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	assert.Equal(t, core, newSampledCore(core, SamplingConfig{Enabled: false}))
}

func TestNewSampledCore_ErrorsNeverSampled(t *testing.T) {
	logger, observed := sampledLogger(map[string]LevelSamplingConfig{
		"info":  {Initial: 1, Thereafter: 0},
		"error": {Initial: 1, Thereafter: 0},
	})

	for i := 0; i < 50; i++ {
		logger.Error(context.Background(), "error message")
	}
	assert.Equal(t, 50, observed.FilterMessage("error message").Len())
}

func TestNewSampledCore_PerLevelBudgets(t *testing.T) {
	logger, observed := sampledLogger(map[string]LevelSamplingConfig{
		"debug": {Initial: 2, Thereafter: 0},
		"info":  {Initial: 5, Thereafter: 0},
	})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		logger.Debug(ctx, "debug message")
		logger.Info(ctx, "info message")
		logger.Warn(ctx, "warn message")
	}

	assert.Equal(t, 2, observed.FilterMessage("debug message").Len())
	assert.Equal(t, 5, observed.FilterMessage("info message").Len())
	assert.Equal(t, 20, observed.FilterMessage("warn message").Len(), "unconfigured levels pass through")
}

func TestNewSampledCore_WithPreservesFiltering(t *testing.T) {
	logger, observed := sampledLogger(map[string]LevelSamplingConfig{
		"info": {Initial: 1, Thereafter: 0},
	})
	child := logger.With(zap.String("k", "v"))

	for i := 0; i < 5; i++ {
		child.Info(context.Background(), "child info")
	}
	assert.Equal(t, 1, observed.FilterMessage("child info").Len())
}
