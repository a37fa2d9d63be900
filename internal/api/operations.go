package api

import (
	"context"
	"fmt"

	"custody-vault-go/internal/models"
	"custody-vault-go/internal/vault"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Withdraw runs Vault.Withdraw on a persisted vault.
func (s *VaultService) Withdraw(ctx context.Context, address, caller models.Identity, amount, attached decimal.Decimal) (*models.OperationResult, error) {
	return s.run(ctx, "withdraw", address, caller, amount, func(v *vault.Vault) error {
		return v.Withdraw(ctx, caller, amount, attached)
	})
}

// WithdrawAll runs Vault.WithdrawAll on a persisted vault.
func (s *VaultService) WithdrawAll(ctx context.Context, address, caller models.Identity) (*models.OperationResult, error) {
	return s.run(ctx, "withdraw_all", address, caller, decimal.Zero, func(v *vault.Vault) error {
		return v.WithdrawAll(ctx, caller)
	})
}

// Terminate runs Vault.Terminate on a persisted vault.
func (s *VaultService) Terminate(ctx context.Context, address, caller models.Identity) (*models.OperationResult, error) {
	return s.run(ctx, "terminate", address, caller, decimal.Zero, func(v *vault.Vault) error {
		return v.Terminate(ctx, caller)
	})
}

// Reconcile compares a persisted vault's balance against the ledger.
func (s *VaultService) Reconcile(ctx context.Context, address models.Identity) (*models.OperationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, _, err := s.open(ctx, address)
	if err != nil {
		return nil, err
	}
	if err := v.Reconcile(ctx); err != nil {
		return failure("reconcile", v.State(), "", decimal.Zero, err), nil
	}
	return result("reconcile", v.State(), "", decimal.Zero), nil
}

// run loads the vault, applies op and saves the result. A failed op leaves
// the vault unchanged, so nothing is written.
func (s *VaultService) run(ctx context.Context, operation string, address, caller models.Identity, amount decimal.Decimal, op func(*vault.Vault) error) (*models.OperationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, record, err := s.open(ctx, address)
	if err != nil {
		return nil, err
	}
	before := v.Balance()

	if opErr := op(v); opErr != nil {
		return failure(operation, v.State(), caller, amount, opErr), nil
	}

	if saveErr := s.save(ctx, v, record); saveErr != nil {
		zap.L().Error("CRITICAL: Vault state not persisted after operation - manual intervention required",
			zap.String("vault", address.String()),
			zap.String("operation", operation),
			zap.String("balance", v.Balance().String()),
			zap.Error(saveErr))
		return nil, fmt.Errorf("failed to save vault %s after %s: %w", address, operation, saveErr)
	}

	if operation != "withdraw" {
		amount = before.Sub(v.Balance())
	}
	return result(operation, v.State(), caller, amount), nil
}

func result(operation string, state vault.State, caller models.Identity, amount decimal.Decimal) *models.OperationResult {
	return &models.OperationResult{
		Success:    true,
		Operation:  operation,
		Vault:      state.Address,
		Caller:     caller,
		Amount:     amount,
		NewBalance: state.Balance,
		Alive:      state.Alive,
	}
}

func failure(operation string, state vault.State, caller models.Identity, amount decimal.Decimal, err error) *models.OperationResult {
	r := result(operation, state, caller, amount)
	r.Success = false
	r.Error = err.Error()
	return r
}
