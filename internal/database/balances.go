package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"custody-vault-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetBalance returns current balance for an identity (O(1) lookup)
func (s *SubledgerService) GetBalance(ctx context.Context, id models.Identity) (decimal.Decimal, error) {
	zap.L().Debug("Getting balance", zap.String("identity", id.String()))

	var balanceStr string
	err := s.db.QueryRowContext(ctx, queryGetBalance, id.String()).Scan(&balanceStr)
	if errors.Is(err, sql.ErrNoRows) {
		// No balance record means zero balance
		return decimal.Zero, nil
	}
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("identity", id.String()), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		zap.L().Error("Failed to parse balance", zap.String("balance_str", balanceStr), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to parse balance: %w", err)
	}

	return balance, nil
}

// GetAllBalances returns every non-zero balance
func (s *SubledgerService) GetAllBalances(ctx context.Context) ([]models.AccountBalance, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAllBalances)
	if err != nil {
		zap.L().Error("Failed to get all balances", zap.Error(err))
		return nil, fmt.Errorf("failed to get all balances: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var balances []models.AccountBalance
	for rows.Next() {
		var balance models.AccountBalance
		var identity, balanceStr string
		err := rows.Scan(&balance.Id, &identity, &balanceStr,
			&balance.LastTransferId, &balance.Version, &balance.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balance.Identity = models.Identity(identity)

		balance.Balance, err = decimal.NewFromString(balanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
		}

		balances = append(balances, balance)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during balance row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}

	zap.L().Debug("Retrieved all balances", zap.Int("count", len(balances)))
	return balances, nil
}

// ReconcileBalance verifies that the current balance matches the sum of all
// transfers into and out of the identity
func (s *SubledgerService) ReconcileBalance(ctx context.Context, id models.Identity) error {
	zap.L().Info("Reconciling balance", zap.String("identity", id.String()))

	currentBalance, err := s.GetBalance(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get current balance: %w", err)
	}

	// TEXT columns cannot be summed exactly in SQL
	credits, err := s.sumAmounts(ctx, queryReconcileCredits, id)
	if err != nil {
		return err
	}
	debits, err := s.sumAmounts(ctx, queryReconcileDebits, id)
	if err != nil {
		return err
	}
	calculatedBalance := credits.Sub(debits)

	// Check if balances match (exact decimal comparison)
	if !currentBalance.Equal(calculatedBalance) {
		zap.L().Error("Balance reconciliation failed",
			zap.String("identity", id.String()),
			zap.String("current_balance", currentBalance.String()),
			zap.String("calculated_balance", calculatedBalance.String()),
			zap.String("difference", currentBalance.Sub(calculatedBalance).String()))
		return fmt.Errorf("balance mismatch: current=%s, calculated=%s", currentBalance.String(), calculatedBalance.String())
	}

	zap.L().Info("Balance reconciliation successful",
		zap.String("identity", id.String()),
		zap.String("balance", currentBalance.String()))
	return nil
}

func (s *SubledgerService) sumAmounts(ctx context.Context, query string, id models.Identity) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, query, id.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to calculate balance from transfers: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	total := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating amount rows: %w", err)
	}
	return total, nil
}
