/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"custody-vault-go/internal/ledger"
	"custody-vault-go/internal/models"
	"custody-vault-go/internal/units"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time checks: *Service is a complete value ledger.
var (
	_ ledger.ValueLedger = (*Service)(nil)
	_ ledger.Minter      = (*Service)(nil)
)

type Service struct {
	db        *sql.DB
	subledger *SubledgerService
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := newService(db)
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func newService(db *sql.DB) *Service {
	return &Service{db: db, subledger: NewSubledgerService(db)}
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Vaults table: persisted vault state
	CREATE TABLE IF NOT EXISTS vaults (
		address TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		alive BOOLEAN NOT NULL DEFAULT 1,
		withdraw_cap TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_vaults_owner ON vaults(owner);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.subledger.InitSchema()
}

// Transfer moves amount from one identity to another. A reference that is
// already recorded never moves value again: the same parties and amount give
// ledger.ErrAlreadyApplied, anything else ledger.ErrTransferRejected.
func (s *Service) Transfer(ctx context.Context, from, to models.Identity, amount decimal.Decimal) error {
	if err := ledger.ValidateTransfer(from, to, amount); err != nil {
		return err
	}

	existing, err := s.subledger.ProcessTransfer(ctx, ProcessTransferParams{
		From:      from,
		To:        to,
		Amount:    amount,
		Reference: models.GetTransferReference(ctx),
	})
	if errors.Is(err, ErrDuplicateTransfer) {
		return fmt.Errorf("%w: %w", ledger.CheckReplay(*existing, from, to, amount), err)
	}
	if err != nil {
		return fmt.Errorf("error processing transfer: %w", err)
	}
	return nil
}

// Mint credits amount to an identity from the genesis account, whose balance
// goes negative by the total issued. Re-minting a recorded reference is a
// no-op when the amount matches and is rejected when it does not.
func (s *Service) Mint(ctx context.Context, to models.Identity, amount decimal.Decimal) error {
	if to.IsZero() || to == models.GenesisIdentity {
		return fmt.Errorf("%w: invalid mint destination %q", ledger.ErrInvalidTransfer, to)
	}
	if err := units.Validate(amount); err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrInvalidTransfer, err)
	}

	existing, err := s.subledger.ProcessTransfer(ctx, ProcessTransferParams{
		From:           models.GenesisIdentity,
		To:             to,
		Amount:         amount,
		Reference:      models.GetTransferReference(ctx),
		AllowOverdraft: true,
	})
	if errors.Is(err, ErrDuplicateTransfer) {
		replay := ledger.CheckReplay(*existing, models.GenesisIdentity, to, amount)
		if errors.Is(replay, ledger.ErrAlreadyApplied) {
			return nil
		}
		zap.L().Warn("Mint reference reused with different content",
			zap.String("identity", to.String()),
			zap.String("amount", amount.String()),
			zap.String("recorded_amount", existing.Amount.String()))
		return fmt.Errorf("%w: %w", replay, err)
	}
	if err != nil {
		return fmt.Errorf("error minting: %w", err)
	}
	return nil
}

// Subledger convenience methods

func (s *Service) Balance(ctx context.Context, id models.Identity) (decimal.Decimal, error) {
	return s.subledger.GetBalance(ctx, id)
}

func (s *Service) GetAllBalances(ctx context.Context) ([]models.AccountBalance, error) {
	return s.subledger.GetAllBalances(ctx)
}

func (s *Service) GetTransferHistory(ctx context.Context, id models.Identity, limit, offset int) ([]models.Transfer, error) {
	return s.subledger.GetTransferHistory(ctx, id, limit, offset)
}

func (s *Service) ReconcileBalance(ctx context.Context, id models.Identity) error {
	return s.subledger.ReconcileBalance(ctx, id)
}
