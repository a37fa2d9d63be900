package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"custody-vault-go/internal/ledger"
	"custody-vault-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcessTransferParams contains the parameters for processing a transfer
type ProcessTransferParams struct {
	From      models.Identity
	To        models.Identity
	Amount    decimal.Decimal
	Reference string
	// AllowOverdraft skips the sufficiency check on From. Only minting from
	// the genesis account sets it.
	AllowOverdraft bool
}

type accountRow struct {
	id      string
	balance decimal.Decimal
	version int64
}

// ProcessTransfer atomically moves value between two accounts and records the transfer
func (s *SubledgerService) ProcessTransfer(ctx context.Context, params ProcessTransferParams) (*models.Transfer, error) {
	zap.L().Debug("Processing transfer",
		zap.String("from", params.From.String()),
		zap.String("to", params.To.String()),
		zap.String("amount", params.Amount.String()),
		zap.String("reference", params.Reference))

	// Check for duplicate reference
	if params.Reference != "" {
		existing, err := s.GetTransferByReference(ctx, params.Reference)
		if err == nil {
			zap.L().Warn("Duplicate transfer reference detected, skipping",
				zap.String("reference", params.Reference),
				zap.String("existing_transfer_id", existing.Id))
			return existing, fmt.Errorf("%w: reference %s already exists", ErrDuplicateTransfer, params.Reference)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check for duplicate transfer: %w", err)
		}
	}

	// Start database transaction for atomicity
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	from, err := s.lockAccount(ctx, tx, params.From)
	if err != nil {
		return nil, err
	}
	to, err := s.lockAccount(ctx, tx, params.To)
	if err != nil {
		return nil, err
	}

	if !params.AllowOverdraft && from.balance.LessThan(params.Amount) {
		return nil, fmt.Errorf("%w: %s holds %s, needs %s",
			ledger.ErrInsufficientFunds, params.From, from.balance.String(), params.Amount.String())
	}

	transfer := &models.Transfer{
		Id:                uuid.New().String(),
		Reference:         params.Reference,
		From:              params.From,
		To:                params.To,
		Amount:            params.Amount,
		FromBalanceBefore: from.balance,
		FromBalanceAfter:  from.balance.Sub(params.Amount),
		ToBalanceBefore:   to.balance,
		ToBalanceAfter:    to.balance.Add(params.Amount),
		CreatedAt:         time.Now(),
	}

	_, err = tx.ExecContext(ctx, queryInsertTransfer,
		transfer.Id, transfer.Reference, transfer.From.String(), transfer.To.String(), transfer.Amount.String(),
		transfer.FromBalanceBefore.String(), transfer.FromBalanceAfter.String(),
		transfer.ToBalanceBefore.String(), transfer.ToBalanceAfter.String(), transfer.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transfer: %w", err)
	}

	// Update both balances (with optimistic locking)
	if err := updateBalance(ctx, tx, params.From, transfer.FromBalanceAfter, transfer.Id, from.version); err != nil {
		return nil, err
	}
	if err := updateBalance(ctx, tx, params.To, transfer.ToBalanceAfter, transfer.Id, to.version); err != nil {
		return nil, err
	}

	if err := s.addJournalEntries(ctx, tx, transfer); err != nil {
		return nil, fmt.Errorf("failed to add journal entries: %w", err)
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Transfer processed successfully",
		zap.String("transfer_id", transfer.Id),
		zap.String("from", params.From.String()),
		zap.String("to", params.To.String()),
		zap.String("amount", params.Amount.String()),
		zap.String("from_balance", transfer.FromBalanceAfter.String()),
		zap.String("to_balance", transfer.ToBalanceAfter.String()))

	return transfer, nil
}

// lockAccount reads an account inside tx, creating it at zero if absent.
func (s *SubledgerService) lockAccount(ctx context.Context, tx *sql.Tx, id models.Identity) (accountRow, error) {
	var row accountRow
	var balanceStr string

	err := tx.QueryRowContext(ctx, queryGetAccountBalance, id.String()).Scan(&row.id, &balanceStr, &row.version)
	if errors.Is(err, sql.ErrNoRows) {
		row = accountRow{id: uuid.New().String(), balance: decimal.Zero, version: 1}
		if _, err := tx.ExecContext(ctx, queryInsertAccountBalance, row.id, id.String(), "0", 1); err != nil {
			return accountRow{}, fmt.Errorf("failed to create account balance: %w", err)
		}
		return row, nil
	}
	if err != nil {
		return accountRow{}, fmt.Errorf("failed to get current balance: %w", err)
	}

	row.balance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return accountRow{}, fmt.Errorf("failed to parse current balance '%s': %w", balanceStr, err)
	}
	return row, nil
}

func updateBalance(ctx context.Context, tx *sql.Tx, id models.Identity, balance decimal.Decimal, transferId string, version int64) error {
	result, err := tx.ExecContext(ctx, queryUpdateAccountBalance, balance.String(), transferId, id.String(), version)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("balance update failed for %s - %w", id, ErrConcurrentModification)
	}
	return nil
}

// addJournalEntries creates double-entry bookkeeping entries: the source
// account is credited and the destination debited by the same amount.
func (s *SubledgerService) addJournalEntries(ctx context.Context, tx *sql.Tx, transfer *models.Transfer) error {
	journalEntries := []struct {
		accountId    string
		debitAmount  decimal.Decimal
		creditAmount decimal.Decimal
	}{
		{transfer.From.String(), decimal.Zero, transfer.Amount},
		{transfer.To.String(), transfer.Amount, decimal.Zero},
	}

	for _, entry := range journalEntries {
		entryId := uuid.New().String()
		_, err := tx.ExecContext(ctx, queryInsertJournalEntry,
			entryId, transfer.Id, entry.accountId, entry.debitAmount.String(), entry.creditAmount.String())
		if err != nil {
			return err
		}
	}

	return nil
}

// GetTransferByReference returns the transfer recorded under reference, or
// sql.ErrNoRows.
func (s *SubledgerService) GetTransferByReference(ctx context.Context, reference string) (*models.Transfer, error) {
	row := s.db.QueryRowContext(ctx, queryGetTransferByReference, reference)
	t, err := scanTransfer(row)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTransferHistory returns paginated transfer history touching an identity, newest first
func (s *SubledgerService) GetTransferHistory(ctx context.Context, id models.Identity, limit, offset int) ([]models.Transfer, error) {
	zap.L().Debug("Getting transfer history",
		zap.String("identity", id.String()),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetTransferHistory, id.String(), id.String(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer history: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var transfers []models.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transfer row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transfer rows: %w", err)
	}

	return transfers, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (models.Transfer, error) {
	var t models.Transfer
	var from, to string
	var amounts [5]string

	err := row.Scan(&t.Id, &t.Reference, &from, &to, &amounts[0],
		&amounts[1], &amounts[2], &amounts[3], &amounts[4], &t.CreatedAt)
	if err != nil {
		return models.Transfer{}, err
	}
	t.From = models.Identity(from)
	t.To = models.Identity(to)

	targets := []*decimal.Decimal{&t.Amount, &t.FromBalanceBefore, &t.FromBalanceAfter, &t.ToBalanceBefore, &t.ToBalanceAfter}
	for i, target := range targets {
		*target, err = decimal.NewFromString(amounts[i])
		if err != nil {
			return models.Transfer{}, fmt.Errorf("failed to parse amount '%s': %w", amounts[i], err)
		}
	}
	return t, nil
}
