package main

import (
	"encoding/json"
	"fmt"

	"github.com/fyrsmithlabs/debugredirect/internal/config"
	"github.com/fyrsmithlabs/debugredirect/internal/redirect"
	"github.com/spf13/cobra"
)

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Print the effective redirect logging settings",
		Long: `Print the redirect logging settings a request in the given store scope
would see, after defaults and environment overrides.

Examples:
  debugredirect settings --config debugredirect.yaml
  debugredirect settings --config debugredirect.yaml --scope fr`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := config.Open(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := store.CheckScope(scope); err != nil {
				return err
			}

			out, err := json.MarshalIndent(redirect.NewGate(store).Load(scope), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode settings: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", config.DefaultScope, "store scope code")
	return cmd
}
