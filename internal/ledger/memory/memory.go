// Package memory provides an in-process ValueLedger whose complete state can
// be snapshotted and restored. The fixture harness runs on it.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"custody-vault-go/internal/ledger"
	"custody-vault-go/internal/models"
	"custody-vault-go/internal/units"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	_ ledger.ValueLedger = (*Ledger)(nil)
	_ ledger.Minter      = (*Ledger)(nil)
	_ ledger.Snapshotter = (*Ledger)(nil)
)

type Ledger struct {
	mu        sync.Mutex
	balances  map[models.Identity]decimal.Decimal
	transfers []models.Transfer
	now       func() time.Time
}

func New() *Ledger {
	return &Ledger{
		balances: make(map[models.Identity]decimal.Decimal),
		now:      time.Now,
	}
}

// WithClock replaces the timestamp source for recorded transfers.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

func (l *Ledger) Balance(_ context.Context, id models.Identity) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceOf(id), nil
}

func (l *Ledger) Transfer(ctx context.Context, from, to models.Identity, amount decimal.Decimal) error {
	if err := ledger.ValidateTransfer(from, to, amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if recorded, ok := l.byReference(models.GetTransferReference(ctx)); ok {
		return ledger.CheckReplay(recorded, from, to, amount)
	}

	fromBefore := l.balanceOf(from)
	if fromBefore.LessThan(amount) {
		return fmt.Errorf("%w: %s holds %s, needs %s", ledger.ErrInsufficientFunds, from, fromBefore.String(), amount.String())
	}
	toBefore := l.balanceOf(to)

	l.balances[from] = fromBefore.Sub(amount)
	l.balances[to] = toBefore.Add(amount)
	l.record(ctx, models.Transfer{
		From:              from,
		To:                to,
		Amount:            amount,
		FromBalanceBefore: fromBefore,
		FromBalanceAfter:  l.balances[from],
		ToBalanceBefore:   toBefore,
		ToBalanceAfter:    l.balances[to],
	})

	zap.L().Debug("Transfer applied",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("amount", amount.String()))
	return nil
}

func (l *Ledger) Mint(ctx context.Context, to models.Identity, amount decimal.Decimal) error {
	if to.IsZero() {
		return fmt.Errorf("%w: destination is required", ledger.ErrInvalidTransfer)
	}
	if err := units.Validate(amount); err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrInvalidTransfer, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if recorded, ok := l.byReference(models.GetTransferReference(ctx)); ok {
		err := ledger.CheckReplay(recorded, models.GenesisIdentity, to, amount)
		if errors.Is(err, ledger.ErrAlreadyApplied) {
			return nil
		}
		return err
	}

	toBefore := l.balanceOf(to)
	l.balances[to] = toBefore.Add(amount)
	l.record(ctx, models.Transfer{
		From:            models.GenesisIdentity,
		To:              to,
		Amount:          amount,
		ToBalanceBefore: toBefore,
		ToBalanceAfter:  l.balances[to],
	})
	return nil
}

// Transfers returns a copy of the recorded transfer history, oldest first.
func (l *Ledger) Transfers() []models.Transfer {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Transfer, len(l.transfers))
	copy(out, l.transfers)
	return out
}

func (l *Ledger) Snapshot() ledger.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ledger.Snapshot{Balances: l.balances, Transfers: l.transfers}.Clone()
}

func (l *Ledger) Restore(snap ledger.Snapshot) {
	restored := snap.Clone()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances = restored.Balances
	l.transfers = restored.Transfers
}

func (l *Ledger) balanceOf(id models.Identity) decimal.Decimal {
	if bal, ok := l.balances[id]; ok {
		return bal
	}
	return decimal.Zero
}

// byReference finds a recorded transfer by reference. Callers hold l.mu.
func (l *Ledger) byReference(ref string) (models.Transfer, bool) {
	if ref == "" {
		return models.Transfer{}, false
	}
	for _, t := range l.transfers {
		if t.Reference == ref {
			return t, true
		}
	}
	return models.Transfer{}, false
}

func (l *Ledger) record(ctx context.Context, t models.Transfer) {
	t.Id = uuid.New().String()
	t.Reference = models.GetTransferReference(ctx)
	t.CreatedAt = l.now()
	l.transfers = append(l.transfers, t)
}
