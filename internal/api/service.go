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

package api

import (
	"context"
	"fmt"
	"sync"

	"custody-vault-go/internal/ledger"
	"custody-vault-go/internal/models"
	"custody-vault-go/internal/vault"

	"github.com/shopspring/decimal"
)

// VaultRepository persists vault state between calls.
type VaultRepository interface {
	SaveVault(ctx context.Context, record models.VaultRecord) error
	LoadVault(ctx context.Context, address models.Identity) (*models.VaultRecord, error)
	ListVaults(ctx context.Context) ([]models.VaultRecord, error)
}

// VaultService runs vault operations against persisted vaults: each call
// loads the vault, runs the operation on the ledger and saves the result.
type VaultService struct {
	repo        VaultRepository
	ledger      ledger.ValueLedger
	withdrawCap decimal.Decimal

	// mu serializes load-operate-save cycles within this process
	mu sync.Mutex
}

func NewVaultService(repo VaultRepository, l ledger.ValueLedger, withdrawCap decimal.Decimal) *VaultService {
	return &VaultService{
		repo:        repo,
		ledger:      l,
		withdrawCap: withdrawCap,
	}
}

func (s *VaultService) HealthCheck(ctx context.Context) error {
	if _, err := s.repo.ListVaults(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if _, err := s.ledger.Balance(ctx, models.GenesisIdentity); err != nil {
		return fmt.Errorf("ledger health check failed: %w", err)
	}
	return nil
}

func (s *VaultService) open(ctx context.Context, address models.Identity) (*vault.Vault, *models.VaultRecord, error) {
	record, err := s.repo.LoadVault(ctx, address)
	if err != nil {
		return nil, nil, err
	}
	v, err := vault.Open(s.ledger, stateFromRecord(*record))
	if err != nil {
		return nil, nil, fmt.Errorf("stored vault %s is invalid: %w", address, err)
	}
	return v, record, nil
}

func (s *VaultService) save(ctx context.Context, v *vault.Vault, createdRecord *models.VaultRecord) error {
	record := recordFromState(v.State())
	if createdRecord != nil {
		record.CreatedAt = createdRecord.CreatedAt
	}
	return s.repo.SaveVault(ctx, record)
}

func stateFromRecord(r models.VaultRecord) vault.State {
	return vault.State{
		Address:     r.Address,
		Owner:       r.Owner,
		Balance:     r.Balance,
		Alive:       r.Alive,
		WithdrawCap: r.WithdrawCap,
	}
}

func recordFromState(s vault.State) models.VaultRecord {
	return models.VaultRecord{
		Address:     s.Address,
		Owner:       s.Owner,
		Balance:     s.Balance,
		Alive:       s.Alive,
		WithdrawCap: s.WithdrawCap,
	}
}
