package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"custody-vault-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaveVault inserts or updates the persisted state of a vault.
func (s *Service) SaveVault(ctx context.Context, record models.VaultRecord) error {
	now := time.Now()
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := s.db.ExecContext(ctx, queryUpsertVault,
		record.Address.String(), record.Owner.String(), record.Balance.String(),
		record.Alive, record.WithdrawCap.String(), createdAt, now)
	if err != nil {
		zap.L().Error("Failed to save vault", zap.String("vault", record.Address.String()), zap.Error(err))
		return fmt.Errorf("failed to save vault: %w", err)
	}

	zap.L().Debug("Vault saved",
		zap.String("vault", record.Address.String()),
		zap.String("balance", record.Balance.String()),
		zap.Bool("alive", record.Alive))
	return nil
}

// LoadVault returns the persisted vault at address, or ErrVaultNotFound.
func (s *Service) LoadVault(ctx context.Context, address models.Identity) (*models.VaultRecord, error) {
	record, err := scanVault(s.db.QueryRowContext(ctx, queryGetVault, address.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load vault: %w", err)
	}
	return &record, nil
}

func (s *Service) ListVaults(ctx context.Context) ([]models.VaultRecord, error) {
	rows, err := s.db.QueryContext(ctx, queryListVaults)
	if err != nil {
		return nil, fmt.Errorf("failed to list vaults: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var vaults []models.VaultRecord
	for rows.Next() {
		record, err := scanVault(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vault: %w", err)
		}
		vaults = append(vaults, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vault rows: %w", err)
	}
	return vaults, nil
}

func scanVault(row rowScanner) (models.VaultRecord, error) {
	var r models.VaultRecord
	var address, owner, balanceStr, capStr string

	err := row.Scan(&address, &owner, &balanceStr, &r.Alive, &capStr, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return models.VaultRecord{}, err
	}
	r.Address = models.Identity(address)
	r.Owner = models.Identity(owner)

	if r.Balance, err = decimal.NewFromString(balanceStr); err != nil {
		return models.VaultRecord{}, fmt.Errorf("failed to parse vault balance '%s': %w", balanceStr, err)
	}
	if r.WithdrawCap, err = decimal.NewFromString(capStr); err != nil {
		return models.VaultRecord{}, fmt.Errorf("failed to parse withdraw cap '%s': %w", capStr, err)
	}
	return r, nil
}
