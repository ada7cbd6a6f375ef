package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fyrsmithlabs/debugredirect/internal/sanitize"
	"github.com/fyrsmithlabs/debugredirect/internal/secrets"
	"github.com/spf13/cobra"
)

func newSanitizeCmd() *cobra.Command {
	var noMask bool

	cmd := &cobra.Command{
		Use:   "sanitize [value|-]",
		Short: "Show how a value is rendered in backtrace arguments",
		Long: `Sanitize a string the way backtrace arguments are sanitized and print the
result as JSON.

Examples:
  # Sanitize an argument
  debugredirect sanitize 'password=hunter2&x=1'

  # Sanitize from stdin without masking
  cat query.txt | debugredirect sanitize - --no-mask`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) == 0 || args[0] == "-" {
				content, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read from stdin: %w", err)
				}
				input = strings.TrimRight(string(content), "\r\n")
			} else {
				input = args[0]
			}

			out, err := json.MarshalIndent(sanitize.New(secrets.Default().WithEnabled(!noMask)).Sanitize(input), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noMask, "no-mask", false, "do not mask credentials")
	return cmd
}
