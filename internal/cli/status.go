package cli

import (
	"errors"

	"custody-vault-go/internal/database"
	"custody-vault-go/internal/models"

	"github.com/spf13/cobra"
)

// NewStatusCommand shows one vault, or every vault when no address is given.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [vault]",
		Short: "Show vault state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnvironment(cmd.Context(), rootOpts, func(env *Environment) error {
				var records []models.VaultRecord
				if len(args) == 1 {
					record, err := env.Vaults.Status(cmd.Context(), models.Identity(args[0]))
					if errors.Is(err, database.ErrVaultNotFound) {
						return WrapExitError(ExitFailure, "unknown vault", err)
					}
					if err != nil {
						return WrapExitError(ExitCommandError, "failed to load vault", err)
					}
					records = append(records, *record)
				} else {
					all, err := env.Vaults.List(cmd.Context())
					if err != nil {
						return WrapExitError(ExitCommandError, "failed to list vaults", err)
					}
					records = all
				}

				if rootOpts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), records)
				}
				renderVaults(cmd.OutOrStdout(), records)
				return nil
			})
		},
	}
}
