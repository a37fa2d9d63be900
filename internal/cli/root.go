package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"

	newEnvironment EnvironmentFactory
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the vault CLI. Every
// subcommand obtains its services from factory.
func NewRootCommand(factory EnvironmentFactory) *cobra.Command {
	opts := &RootOptions{newEnvironment: factory}

	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Operate role-gated value vaults",
		Long: `Deploy and operate single-owner value vaults on a SQLite or Formance ledger.

Anyone may withdraw up to the per-call cap; only the owner may drain or
terminate a vault. Amounts are given in native units, e.g. 0.05.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewSetupCommand(opts))
	cmd.AddCommand(NewDeployCommand(opts))
	cmd.AddCommand(NewWithdrawCommand(opts))
	cmd.AddCommand(NewWithdrawAllCommand(opts))
	cmd.AddCommand(NewTerminateCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))

	return cmd
}
