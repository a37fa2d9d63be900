package cli

import (
	"context"
	"errors"

	"custody-vault-go/internal/models"
	"custody-vault-go/internal/units"

	"github.com/spf13/cobra"
)

type vaultOperation func(ctx context.Context, env *Environment, vault, caller models.Identity) (*models.OperationResult, error)

// NewWithdrawCommand withdraws up to the per-call cap from a vault.
func NewWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		amount string
		value  string
	)

	cmd := newVaultOperationCommand(rootOpts, "withdraw <vault>",
		"Withdraw up to the per-call cap from a vault",
		`Withdraw an amount from a vault to the caller. Any caller may withdraw up
to the vault's withdraw cap per call. Value attached with --value is netted
against the amount, so the call settles as a single ledger transfer and a
rejected withdrawal moves nothing. Repeating a --reference is rejected.`,
		func(ctx context.Context, env *Environment, vault, caller models.Identity) (*models.OperationResult, error) {
			requested, err := units.FromNative(amount)
			if err != nil {
				return nil, WrapExitError(ExitCommandError, "invalid --amount", err)
			}
			attached, err := units.FromNative(value)
			if err != nil {
				return nil, WrapExitError(ExitCommandError, "invalid --value", err)
			}
			return env.Vaults.Withdraw(ctx, vault, caller, requested, attached)
		})
	cmd.Example = `  vault withdraw vault-1a2b --caller bob --amount 0.05`

	cmd.Flags().StringVar(&amount, "amount", "", "amount to withdraw, in native units (required)")
	cmd.Flags().StringVar(&value, "value", "0", "value attached to the call, in native units")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

// NewWithdrawAllCommand drains a vault to its owner.
func NewWithdrawAllCommand(rootOpts *RootOptions) *cobra.Command {
	return newVaultOperationCommand(rootOpts, "withdraw-all <vault>",
		"Move the whole vault balance to the owner",
		`Move the entire vault balance to the owner. Only the owner may call it.`,
		func(ctx context.Context, env *Environment, vault, caller models.Identity) (*models.OperationResult, error) {
			return env.Vaults.WithdrawAll(ctx, vault, caller)
		})
}

// NewTerminateCommand drains and permanently disables a vault.
func NewTerminateCommand(rootOpts *RootOptions) *cobra.Command {
	return newVaultOperationCommand(rootOpts, "terminate <vault>",
		"Drain a vault to its owner and disable it",
		`Send the remaining balance to the owner and permanently disable the vault.
Every later operation on the vault fails. Only the owner may call it.`,
		func(ctx context.Context, env *Environment, vault, caller models.Identity) (*models.OperationResult, error) {
			return env.Vaults.Terminate(ctx, vault, caller)
		})
}

// newVaultOperationCommand builds a command taking a vault argument and
// --caller, with an optional --reference for the transfers it records.
func newVaultOperationCommand(rootOpts *RootOptions, use, short, long string, op vaultOperation) *cobra.Command {
	var (
		caller    string
		reference string
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if reference != "" {
				ctx = models.WithTransferReference(ctx, reference)
			}

			return withEnvironment(ctx, rootOpts, func(env *Environment) error {
				res, err := op(ctx, env, models.Identity(args[0]), models.Identity(caller))
				if err != nil {
					var exitErr *ExitError
					if errors.As(err, &exitErr) {
						return err
					}
					return WrapExitError(ExitCommandError, cmd.Name()+" failed", err)
				}
				return writeResult(cmd.OutOrStdout(), rootOpts.Format, res)
			})
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "identity invoking the operation (required)")
	cmd.Flags().StringVar(&reference, "reference", "", "reference recorded on the resulting transfers")
	_ = cmd.MarkFlagRequired("caller")

	return cmd
}
