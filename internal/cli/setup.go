package cli

import (
	"fmt"

	"custody-vault-go/internal/common"
	"custody-vault-go/internal/units"

	"github.com/spf13/cobra"
)

// NewSetupCommand seeds the ledger with the balances listed in a genesis file.
func NewSetupCommand(rootOpts *RootOptions) *cobra.Command {
	var genesisFile string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Seed genesis balances into the ledger",
		Long: `Mint the balances listed in the genesis file into the configured ledger.

Each allocation carries a fixed reference, so running setup twice credits
every identity once. The file defaults to GENESIS_FILE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnvironment(cmd.Context(), rootOpts, func(env *Environment) error {
				file := genesisFile
				if file == "" {
					file = env.Config.Vault.GenesisFile
				}

				allocations, err := common.LoadGenesis(file)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load genesis file", err)
				}
				if err := common.SeedGenesis(cmd.Context(), env.Ledger, allocations); err != nil {
					return WrapExitError(ExitFailure, "failed to seed genesis balances", err)
				}

				out := cmd.OutOrStdout()
				if rootOpts.Format == "json" {
					return writeJSON(out, allocations)
				}
				common.PrintHeader(out, fmt.Sprintf("GENESIS (%d accounts)", len(allocations)), common.DefaultWidth)
				for i, a := range allocations {
					fmt.Fprintf(out, "%s%s: %s\n", common.BoxPrefix(i == len(allocations)-1), a.Identity, units.Format(a.Amount))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&genesisFile, "genesis", "", "genesis YAML file (default $GENESIS_FILE)")

	return cmd
}
