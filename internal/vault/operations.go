package vault

import (
	"context"
	"fmt"

	"custody-vault-go/internal/models"
	"custody-vault-go/internal/units"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Withdraw pays requested to caller. Any caller may withdraw up to the cap;
// attached counts toward the funds available for this call. The call settles
// as one ledger transfer of the difference between attached and requested,
// so a failed transfer leaves the vault and the ledger as they were.
func (v *Vault) Withdraw(ctx context.Context, caller models.Identity, requested, attached decimal.Decimal) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkCall(caller, "withdraw"); err != nil {
		return err
	}
	if err := units.Validate(requested); err != nil {
		return err
	}
	if err := units.Validate(attached); err != nil {
		return err
	}

	if requested.GreaterThan(v.withdrawCap) {
		zap.L().Warn("Withdrawal rejected: over cap",
			zap.String("vault", v.address.String()),
			zap.String("caller", caller.String()),
			zap.String("amount", requested.String()),
			zap.String("withdraw_cap", v.withdrawCap.String()))
		return fmt.Errorf("%w: requested %s, cap %s", ErrLimitExceeded, requested.String(), v.withdrawCap.String())
	}

	available := v.balance.Add(attached)
	if available.LessThan(requested) {
		zap.L().Warn("Withdrawal rejected: insufficient funds",
			zap.String("vault", v.address.String()),
			zap.String("caller", caller.String()),
			zap.String("amount", requested.String()),
			zap.String("available", available.String()))
		return fmt.Errorf("%w: requested %s, available %s", ErrInsufficientFunds, requested.String(), available.String())
	}

	ref := operationReference(ctx, "withdraw", v.address)
	net := attached.Sub(requested)

	var err error
	switch {
	case net.IsPositive():
		err = v.ledger.Transfer(leg(ctx, ref, "attach"), caller, v.address, net)
	case net.IsNegative():
		err = v.ledger.Transfer(leg(ctx, ref, "payout"), v.address, caller, net.Neg())
	}
	if err != nil {
		zap.L().Error("Withdrawal settlement failed",
			zap.String("vault", v.address.String()),
			zap.String("caller", caller.String()),
			zap.String("amount", requested.String()),
			zap.String("attached", attached.String()),
			zap.String("net", net.String()),
			zap.Error(err))
		return fmt.Errorf("%w: settling withdrawal: %w", ErrTransferFailed, err)
	}

	v.balance = available.Sub(requested)

	zap.L().Info("Withdrawal processed successfully",
		zap.String("vault", v.address.String()),
		zap.String("caller", caller.String()),
		zap.String("amount", requested.String()),
		zap.String("attached", attached.String()),
		zap.String("balance", v.balance.String()))
	return nil
}

// WithdrawAll moves the entire balance to the owner.
func (v *Vault) WithdrawAll(ctx context.Context, caller models.Identity) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkOwnerCall(caller, "withdraw_all"); err != nil {
		return err
	}

	amount := v.balance
	if err := v.drain(ctx, "withdraw-all"); err != nil {
		return err
	}

	zap.L().Info("Vault drained to owner",
		zap.String("vault", v.address.String()),
		zap.String("owner", v.owner.String()),
		zap.String("amount", amount.String()))
	return nil
}

// Terminate drains the balance to the owner and disables the vault for good.
func (v *Vault) Terminate(ctx context.Context, caller models.Identity) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkOwnerCall(caller, "terminate"); err != nil {
		return err
	}

	amount := v.balance
	if err := v.drain(ctx, "terminate"); err != nil {
		return err
	}
	v.alive = false

	zap.L().Info("Vault terminated",
		zap.String("vault", v.address.String()),
		zap.String("owner", v.owner.String()),
		zap.String("amount", amount.String()))
	return nil
}

// Reconcile verifies the balance field against the ledger.
func (v *Vault) Reconcile(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	onLedger, err := v.ledger.Balance(ctx, v.address)
	if err != nil {
		return fmt.Errorf("failed to read ledger balance: %w", err)
	}
	if !onLedger.Equal(v.balance) {
		zap.L().Error("Vault reconciliation failed",
			zap.String("vault", v.address.String()),
			zap.String("balance", v.balance.String()),
			zap.String("ledger_balance", onLedger.String()),
			zap.String("difference", v.balance.Sub(onLedger).String()))
		return fmt.Errorf("%w: vault=%s, ledger=%s", ErrBalanceMismatch, v.balance.String(), onLedger.String())
	}

	zap.L().Debug("Vault reconciliation successful",
		zap.String("vault", v.address.String()),
		zap.String("balance", v.balance.String()))
	return nil
}

// drain pays the whole balance to the owner. Callers hold v.mu.
func (v *Vault) drain(ctx context.Context, op string) error {
	if v.balance.IsZero() {
		return nil
	}
	ref := operationReference(ctx, op, v.address)
	if err := v.ledger.Transfer(leg(ctx, ref, "drain"), v.address, v.owner, v.balance); err != nil {
		zap.L().Error("Failed to drain vault",
			zap.String("vault", v.address.String()),
			zap.String("owner", v.owner.String()),
			zap.String("amount", v.balance.String()),
			zap.Error(err))
		return fmt.Errorf("%w: draining to owner: %w", ErrTransferFailed, err)
	}
	v.balance = decimal.Zero
	return nil
}

func (v *Vault) checkCall(caller models.Identity, op string) error {
	if !v.alive {
		zap.L().Warn("Operation on destroyed vault",
			zap.String("vault", v.address.String()),
			zap.String("operation", op),
			zap.String("caller", caller.String()))
		return fmt.Errorf("%w: %s", ErrDestroyed, v.address)
	}
	if caller.IsZero() {
		return fmt.Errorf("%w: caller is required", ErrInvalidIdentity)
	}
	return nil
}

func (v *Vault) checkOwnerCall(caller models.Identity, op string) error {
	if err := v.checkCall(caller, op); err != nil {
		return err
	}
	if caller != v.owner {
		zap.L().Warn("Unauthorized vault operation",
			zap.String("vault", v.address.String()),
			zap.String("operation", op),
			zap.String("caller", caller.String()))
		return fmt.Errorf("%w: %s may not %s", ErrUnauthorized, caller, op)
	}
	return nil
}
