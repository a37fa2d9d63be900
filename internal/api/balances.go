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

	"custody-vault-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetBalance returns the ledger balance of any identity
func (s *VaultService) GetBalance(ctx context.Context, id models.Identity) (decimal.Decimal, error) {
	if id.IsZero() {
		return decimal.Zero, fmt.Errorf("identity is required")
	}

	balance, err := s.ledger.Balance(ctx, id)
	if err != nil {
		zap.L().Error("Failed to get balance",
			zap.String("identity", id.String()),
			zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to retrieve balance")
	}

	return balance, nil
}
