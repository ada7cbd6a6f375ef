// Package main implements the debugredirect command: the instrumented demo
// storefront plus offline helpers for inspecting settings and sanitizer
// output.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set via ldflags during build.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds flags shared by all subcommands.
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "debugredirect",
		Short: "Redirect debugging for an Echo storefront",
		Long: `debugredirect logs every HTTP redirect a storefront issues, together with
the request that caused it and a sanitized backtrace of the code path.

Configuration is read from a YAML file (--config) with DEBUGREDIRECT_
environment overrides, for example DEBUGREDIRECT_DEBUG__REDIRECT__ENABLED=1.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to the YAML config file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newSanitizeCmd())
	cmd.AddCommand(newSettingsCmd(opts))

	return cmd
}
