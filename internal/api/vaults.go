package api

import (
	"context"
	"fmt"

	"custody-vault-go/internal/models"
	"custody-vault-go/internal/vault"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Deploy creates a vault owned by caller, funded with attached.
func (s *VaultService) Deploy(ctx context.Context, caller models.Identity, attached decimal.Decimal) (*models.OperationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := vault.Deploy(ctx, s.ledger, caller, attached, vault.WithWithdrawCap(s.withdrawCap))
	if err != nil {
		zap.L().Warn("Vault deployment failed",
			zap.String("caller", caller.String()),
			zap.String("attached", attached.String()),
			zap.Error(err))
		return &models.OperationResult{
			Success:   false,
			Operation: "deploy",
			Caller:    caller,
			Amount:    attached,
			Error:     err.Error(),
		}, nil
	}

	if err := s.save(ctx, v, nil); err != nil {
		zap.L().Error("CRITICAL: Vault deployed on ledger but not persisted - manual intervention required",
			zap.String("vault", v.Address().String()),
			zap.String("balance", v.Balance().String()),
			zap.Error(err))
		return nil, fmt.Errorf("vault %s deployed but not saved: %w", v.Address(), err)
	}

	return result("deploy", v.State(), caller, attached), nil
}

// Status returns the persisted state of a vault.
func (s *VaultService) Status(ctx context.Context, address models.Identity) (*models.VaultRecord, error) {
	if address.IsZero() {
		return nil, fmt.Errorf("vault address is required")
	}
	return s.repo.LoadVault(ctx, address)
}

func (s *VaultService) List(ctx context.Context) ([]models.VaultRecord, error) {
	return s.repo.ListVaults(ctx)
}
