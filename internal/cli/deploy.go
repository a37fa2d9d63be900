package cli

import (
	"custody-vault-go/internal/models"
	"custody-vault-go/internal/units"

	"github.com/spf13/cobra"
)

// NewDeployCommand creates a vault owned by the caller.
func NewDeployCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		caller string
		value  string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a new vault owned by the caller",
		Long: `Deploy a vault. The caller becomes its owner and the attached value is
moved from the caller into the vault.`,
		Example: `  vault deploy --caller alice --value 1.5`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			attached, err := units.FromNative(value)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --value", err)
			}

			return withEnvironment(cmd.Context(), rootOpts, func(env *Environment) error {
				res, err := env.Vaults.Deploy(cmd.Context(), models.Identity(caller), attached)
				if err != nil {
					return WrapExitError(ExitCommandError, "deploy failed", err)
				}
				return writeResult(cmd.OutOrStdout(), rootOpts.Format, res)
			})
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "identity deploying the vault (required)")
	cmd.Flags().StringVar(&value, "value", "0", "value attached to the deployment, in native units")
	_ = cmd.MarkFlagRequired("caller")

	return cmd
}
