package cli

import (
	"custody-vault-go/internal/models"

	"github.com/spf13/cobra"
)

// NewReconcileCommand checks that a vault's recorded balance matches the
// ledger's balance for its address.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <vault>",
		Short: "Compare a vault's recorded balance with the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnvironment(cmd.Context(), rootOpts, func(env *Environment) error {
				address := models.Identity(args[0])

				res, err := env.Vaults.Reconcile(cmd.Context(), address)
				if err != nil {
					return WrapExitError(ExitCommandError, "reconcile failed", err)
				}
				if res.Success {
					if err := env.Ledger.ReconcileBalance(cmd.Context(), address); err != nil {
						res.Success = false
						res.Error = err.Error()
					}
				}
				return writeResult(cmd.OutOrStdout(), rootOpts.Format, res)
			})
		},
	}
}
