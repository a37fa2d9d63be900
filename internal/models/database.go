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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountBalance represents current balance state (hot data)
type AccountBalance struct {
	Id             string          `db:"id"`
	Identity       Identity        `db:"identity"`
	Balance        decimal.Decimal `db:"balance"`
	LastTransferId string          `db:"last_transfer_id"`
	Version        int64           `db:"version"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// Transfer represents immutable transfer history (cold data)
type Transfer struct {
	Id                string          `db:"id"`
	Reference         string          `db:"reference"`
	From              Identity        `db:"from_identity"`
	To                Identity        `db:"to_identity"`
	Amount            decimal.Decimal `db:"amount"`
	FromBalanceBefore decimal.Decimal `db:"from_balance_before"`
	FromBalanceAfter  decimal.Decimal `db:"from_balance_after"`
	ToBalanceBefore   decimal.Decimal `db:"to_balance_before"`
	ToBalanceAfter    decimal.Decimal `db:"to_balance_after"`
	CreatedAt         time.Time       `db:"created_at"`
}

// VaultRecord is the persisted form of a vault
type VaultRecord struct {
	Address     Identity        `db:"address"`
	Owner       Identity        `db:"owner"`
	Balance     decimal.Decimal `db:"balance"`
	Alive       bool            `db:"alive"`
	WithdrawCap decimal.Decimal `db:"withdraw_cap"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}
