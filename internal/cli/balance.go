package cli

import (
	"fmt"

	"custody-vault-go/internal/models"
	"custody-vault-go/internal/units"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type balanceOutput struct {
	Identity  models.Identity   `json:"identity"`
	Balance   decimal.Decimal   `json:"balance"`
	Transfers []models.Transfer `json:"transfers,omitempty"`
}

// NewBalanceCommand prints an identity's ledger balance and recent transfers.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "balance <identity>",
		Short: "Show an identity's ledger balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := models.Identity(args[0])

			return withEnvironment(cmd.Context(), rootOpts, func(env *Environment) error {
				balance, err := env.Vaults.GetBalance(cmd.Context(), id)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read balance", err)
				}

				out := balanceOutput{Identity: id, Balance: balance}
				if limit > 0 {
					out.Transfers, err = env.Ledger.GetTransferHistory(cmd.Context(), id, limit)
					if err != nil {
						return WrapExitError(ExitCommandError, "failed to read transfer history", err)
					}
				}

				w := cmd.OutOrStdout()
				if rootOpts.Format == "json" {
					return writeJSON(w, out)
				}
				fmt.Fprintf(w, "%s: %s\n", id, units.Format(balance))
				if limit > 0 {
					renderTransfers(w, id, out.Transfers)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "history", 0, "number of recent transfers to show")

	return cmd
}
