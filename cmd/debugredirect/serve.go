package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fyrsmithlabs/debugredirect/internal/backtrace"
	"github.com/fyrsmithlabs/debugredirect/internal/config"
	"github.com/fyrsmithlabs/debugredirect/internal/hooks"
	httpserver "github.com/fyrsmithlabs/debugredirect/internal/http"
	"github.com/fyrsmithlabs/debugredirect/internal/logging"
	"github.com/fyrsmithlabs/debugredirect/internal/redirect"
	"github.com/fyrsmithlabs/debugredirect/internal/secrets"
	"github.com/fyrsmithlabs/debugredirect/internal/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the instrumented demo storefront",
		Long: `Run the demo storefront with redirect logging wired into every request.

The config file is watched and changes apply to the next request.

Examples:
  # Start with defaults (logging disabled until debug/redirect/enabled is set)
  debugredirect serve

  # Start with a config file
  debugredirect serve --config debugredirect.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts.configPath, nil)
		},
	}
}

// runServe starts the storefront and blocks until ctx is cancelled or the
// server fails. ready, when set, receives the server once Start is running.
//
//  1. Loads the config store and the typed config
//  2. Initializes telemetry and the logger
//  3. Builds the credential scrubber from the secrets section
//  4. Registers the redirect interceptor on the hook registry
//  5. Starts the storefront and the config watcher
//  6. Shuts everything down on cancellation
func runServe(ctx context.Context, configPath string, ready chan<- *httpserver.Server) error {
	store, err := config.Open(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg, err := store.Config()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	telCfg := telemetry.NewDefaultConfig()
	if err := store.Unmarshal("telemetry", telCfg); err != nil {
		return err
	}
	tel, err := telemetry.New(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	if err := store.Unmarshal("logging", logCfg); err != nil {
		return err
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	if health := tel.Health(); health.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Strings("reasons", health.Reasons))
	}

	secCfg := secrets.DefaultConfig()
	if err := store.Unmarshal("secrets", secCfg); err != nil {
		return err
	}
	scrubber, err := secrets.New(secCfg)
	if err != nil {
		return fmt.Errorf("invalid secrets configuration: %w", err)
	}

	registry, gate := newRegistry(store, cfg, scrubber, logger)

	srv, err := httpserver.NewServer(registry, logger, &httpserver.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, tel)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	store.OnReload(func() {
		logger.Info(ctx, "configuration reloaded", zap.Any("settings", gate.Load(config.DefaultScope)))
	})
	if store.Path() != "" {
		watcher, err := config.NewWatcher(store, logger.Underlying())
		if err != nil {
			logger.Warn(ctx, "config hot reload disabled", zap.Error(err))
		} else if err := watcher.Start(ctx); err != nil {
			watcher.Stop()
			logger.Warn(ctx, "config hot reload disabled", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	logger.Info(ctx, "starting debugredirect",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Any("settings", gate.Load(config.DefaultScope)),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	if ready != nil {
		ready <- srv
	}

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("shutdown: %w", err)
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "telemetry shutdown failed", zap.Error(err))
	}

	logger.Info(shutdownCtx, "debugredirect stopped")
	return serveErr
}

// newRegistry builds the hook registry with the redirect interceptor
// registered on every extension point.
func newRegistry(store *config.Store, cfg *config.Config, scrubber secrets.Scrubber, logger *logging.Logger) (*hooks.Registry, *redirect.Gate) {
	allow := append(append([]string(nil), httpserver.DefaultObjectAllowList...), cfg.App.ObjectAllowList...)
	capturer := backtrace.NewCapturer(
		backtrace.WithRoot(cfg.App.Root),
		backtrace.WithObjectAllowList(allow...),
		backtrace.WithHelpers(redirect.Helpers...),
	)

	gate := redirect.NewGate(store)
	interceptor := redirect.NewInterceptor(gate, redirect.NewEventLogger(logger, capturer, redirect.WithScrubber(scrubber)), capturer, logger)

	registry := hooks.NewRegistry(logger.Underlying())
	// Register only fails for values that implement no hook.
	_, _ = registry.Register(interceptor)

	return registry, gate
}
