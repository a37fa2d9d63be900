package ledger

import (
	"context"
	"fmt"
	"sync"

	"custody-vault-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Faulty wraps a ValueLedger and fails transfers on demand.
// It forwards Mint and snapshot calls to the inner ledger when supported.
type Faulty struct {
	mu       sync.Mutex
	inner    ValueLedger
	skip     int
	failNext int
	failTo   map[models.Identity]bool
	failFrom map[models.Identity]bool
	attempts int
}

func NewFaulty(inner ValueLedger) *Faulty {
	return &Faulty{
		inner:    inner,
		failTo:   make(map[models.Identity]bool),
		failFrom: make(map[models.Identity]bool),
	}
}

// FailNext makes the next n transfers fail.
func (f *Faulty) FailNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skip = 0
	f.failNext = n
}

// FailAfter lets the next skip transfers through and then fails n.
func (f *Faulty) FailAfter(skip, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skip = skip
	f.failNext = n
}

// FailTransfersTo makes every transfer crediting id fail until Reset.
func (f *Faulty) FailTransfersTo(id models.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failTo[id] = true
}

// FailTransfersFrom makes every transfer debiting id fail until Reset.
func (f *Faulty) FailTransfersFrom(id models.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFrom[id] = true
}

// Reset clears all injected failures and the attempt counter.
func (f *Faulty) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skip = 0
	f.failNext = 0
	f.attempts = 0
	f.failTo = make(map[models.Identity]bool)
	f.failFrom = make(map[models.Identity]bool)
}

// Attempts returns the number of Transfer calls seen since the last Reset.
func (f *Faulty) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *Faulty) Transfer(ctx context.Context, from, to models.Identity, amount decimal.Decimal) error {
	f.mu.Lock()
	f.attempts++
	fail := f.failTo[to] || f.failFrom[from]
	switch {
	case f.skip > 0:
		f.skip--
	case f.failNext > 0:
		f.failNext--
		fail = true
	}
	f.mu.Unlock()

	if fail {
		zap.L().Debug("Injected transfer failure",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.String("amount", amount.String()))
		return fmt.Errorf("%w: injected failure for %s -> %s", ErrTransferRejected, from, to)
	}
	return f.inner.Transfer(ctx, from, to, amount)
}

func (f *Faulty) Balance(ctx context.Context, id models.Identity) (decimal.Decimal, error) {
	return f.inner.Balance(ctx, id)
}

func (f *Faulty) Mint(ctx context.Context, to models.Identity, amount decimal.Decimal) error {
	m, ok := f.inner.(Minter)
	if !ok {
		return fmt.Errorf("%w: inner ledger cannot mint", ErrTransferRejected)
	}
	return m.Mint(ctx, to, amount)
}

// Snapshot captures the inner ledger. An inner ledger that is not a
// Snapshotter yields an empty snapshot.
func (f *Faulty) Snapshot() Snapshot {
	if s, ok := f.inner.(Snapshotter); ok {
		return s.Snapshot()
	}
	return Snapshot{}
}

// Restore rewinds the inner ledger and clears injected failures.
func (f *Faulty) Restore(snap Snapshot) {
	if s, ok := f.inner.(Snapshotter); ok {
		s.Restore(snap)
	}
	f.Reset()
}
