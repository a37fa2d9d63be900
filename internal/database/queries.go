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

const (
	// Balance queries
	queryGetBalance = `
		SELECT balance
		FROM account_balances
		WHERE identity = ?`

	queryGetAccountBalance = `
		SELECT id, balance, version
		FROM account_balances
		WHERE identity = ?`

	queryGetAllBalances = `
		SELECT id, identity, balance, COALESCE(last_transfer_id, ''), version, updated_at
		FROM account_balances
		WHERE balance != '0'
		ORDER BY identity`

	queryInsertAccountBalance = `
		INSERT INTO account_balances (id, identity, balance, version)
		VALUES (?, ?, ?, ?)`

	queryUpdateAccountBalance = `
		UPDATE account_balances
		SET balance = ?, last_transfer_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE identity = ? AND version = ?`

	queryReconcileCredits = `
		SELECT amount FROM transfers WHERE to_identity = ?`

	queryReconcileDebits = `
		SELECT amount FROM transfers WHERE from_identity = ?`

	// Transfer queries
	queryGetTransferByReference = `
		SELECT id, reference, from_identity, to_identity, amount,
		       from_balance_before, from_balance_after, to_balance_before, to_balance_after, created_at
		FROM transfers
		WHERE reference = ?
		LIMIT 1`

	queryInsertTransfer = `
		INSERT INTO transfers (
			id, reference, from_identity, to_identity, amount,
			from_balance_before, from_balance_after, to_balance_before, to_balance_after, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, transfer_id, account_id, debit_amount, credit_amount)
		VALUES (?, ?, ?, ?, ?)`

	queryGetTransferHistory = `
		SELECT id, reference, from_identity, to_identity, amount,
		       from_balance_before, from_balance_after, to_balance_before, to_balance_after, created_at
		FROM transfers
		WHERE from_identity = ? OR to_identity = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	// Vault queries
	queryUpsertVault = `
		INSERT INTO vaults (address, owner, balance, alive, withdraw_cap, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			owner = excluded.owner,
			balance = excluded.balance,
			alive = excluded.alive,
			withdraw_cap = excluded.withdraw_cap,
			updated_at = excluded.updated_at`

	queryGetVault = `
		SELECT address, owner, balance, alive, withdraw_cap, created_at, updated_at
		FROM vaults
		WHERE address = ?`

	queryListVaults = `
		SELECT address, owner, balance, alive, withdraw_cap, created_at, updated_at
		FROM vaults
		ORDER BY created_at, address`
)
