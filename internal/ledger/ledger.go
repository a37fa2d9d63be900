// Package ledger defines the value-transfer capability a vault draws on.
//
// A ValueLedger tracks the balance of every identity and moves value between
// them. Backends live in sub-packages (memory) and sibling packages
// (database for SQLite, formance for a Formance Stack).
package ledger

import (
	"context"
	"errors"
	"fmt"

	"custody-vault-go/internal/models"
	"custody-vault-go/internal/units"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTransferRejected  = errors.New("transfer rejected")
	ErrInvalidTransfer   = errors.New("invalid transfer")

	// ErrAlreadyApplied reports a transfer whose reference is already recorded
	// with the same parties and amount. No value moved on this call.
	ErrAlreadyApplied = errors.New("transfer already applied")
)

// ValueLedger moves value between identities.
// Transfer is all-or-nothing: on error no balance has changed. A transfer
// carrying a reference (models.WithTransferReference) that is already recorded
// fails with ErrAlreadyApplied, or ErrTransferRejected if the recorded
// transfer differs.
type ValueLedger interface {
	Transfer(ctx context.Context, from, to models.Identity, amount decimal.Decimal) error
	Balance(ctx context.Context, id models.Identity) (decimal.Decimal, error)
}

// Minter credits new value to an identity (genesis funding).
// Minting again under a recorded reference with the same amount is a no-op.
type Minter interface {
	Mint(ctx context.Context, to models.Identity, amount decimal.Decimal) error
}

// Snapshotter is implemented by ledgers whose full state can be captured and
// rewound in-process.
type Snapshotter interface {
	Snapshot() Snapshot
	Restore(Snapshot)
}

// Snapshot is a deep copy of a ledger's balances and transfer history.
type Snapshot struct {
	Balances  map[models.Identity]decimal.Decimal
	Transfers []models.Transfer
}

// Clone returns a copy that shares no mutable state with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Balances:  make(map[models.Identity]decimal.Decimal, len(s.Balances)),
		Transfers: make([]models.Transfer, len(s.Transfers)),
	}
	for id, bal := range s.Balances {
		out.Balances[id] = bal
	}
	copy(out.Transfers, s.Transfers)
	return out
}

// ValidateTransfer checks the arguments every backend must reject up front.
func ValidateTransfer(from, to models.Identity, amount decimal.Decimal) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: source and destination are required", ErrInvalidTransfer)
	}
	if from == to {
		return fmt.Errorf("%w: source and destination are both %s", ErrInvalidTransfer, from)
	}
	if err := units.Validate(amount); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransfer, err)
	}
	return nil
}

// CheckReplay compares a transfer already recorded under a reference with the
// one being requested again.
func CheckReplay(recorded models.Transfer, from, to models.Identity, amount decimal.Decimal) error {
	if recorded.From == from && recorded.To == to && recorded.Amount.Equal(amount) {
		return fmt.Errorf("%w: reference %s", ErrAlreadyApplied, recorded.Reference)
	}
	return fmt.Errorf("%w: reference %s is recorded for %s -> %s %s",
		ErrTransferRejected, recorded.Reference, recorded.From, recorded.To, recorded.Amount.String())
}
