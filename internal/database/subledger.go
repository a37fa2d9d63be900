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
	"database/sql"
	"errors"
)

// Sentinel errors for database operations
var (
	ErrDuplicateTransfer      = errors.New("duplicate transfer")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrVaultNotFound          = errors.New("vault not found")
)

// SubledgerService handles subledger operations
type SubledgerService struct {
	db *sql.DB
}

func NewSubledgerService(db *sql.DB) *SubledgerService {
	return &SubledgerService{
		db: db,
	}
}

// InitSchema creates the balance, transfer and journal tables. Amounts are
// stored as TEXT holding integral base units so that no value is rounded.
func (s *SubledgerService) InitSchema() error {
	schema := `
	-- Account Balances Table (Current State - Hot Data)
	CREATE TABLE IF NOT EXISTS account_balances (
		id TEXT PRIMARY KEY,
		identity TEXT NOT NULL UNIQUE,
		balance TEXT NOT NULL DEFAULT '0',
		last_transfer_id TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Transfers Table (Audit Trail - Cold Data)
	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		reference TEXT NOT NULL DEFAULT '',
		from_identity TEXT NOT NULL,
		to_identity TEXT NOT NULL,
		amount TEXT NOT NULL,
		from_balance_before TEXT NOT NULL,
		from_balance_after TEXT NOT NULL,
		to_balance_before TEXT NOT NULL,
		to_balance_after TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_from ON transfers(from_identity);
	CREATE INDEX IF NOT EXISTS idx_transfers_to ON transfers(to_identity);
	CREATE INDEX IF NOT EXISTS idx_transfers_created_at ON transfers(created_at);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_transfers_reference ON transfers(reference) WHERE reference != '';

	-- Journal Entries for Double-Entry Bookkeeping
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		transfer_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		debit_amount TEXT NOT NULL DEFAULT '0',
		credit_amount TEXT NOT NULL DEFAULT '0',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_journal_transfer_id ON journal_entries(transfer_id);
	CREATE INDEX IF NOT EXISTS idx_journal_account ON journal_entries(account_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
