package memory

import (
	"context"
	"testing"

	"custody-vault-go/internal/ledger"
	"custody-vault-go/internal/models"
	"custody-vault-go/internal/units"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice models.Identity = "alice"
	bob   models.Identity = "bob"
)

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	l := New()
	require.NoError(t, l.Mint(ctx, alice, units.OneUnit))

	require.NoError(t, l.Transfer(models.WithTransferReference(ctx, "ref-1"), alice, bob, units.MustNative("0.25")))

	aliceBal, err := l.Balance(ctx, alice)
	require.NoError(t, err)
	bobBal, err := l.Balance(ctx, bob)
	require.NoError(t, err)
	assert.True(t, aliceBal.Equal(units.MustNative("0.75")), "alice balance %s", aliceBal)
	assert.True(t, bobBal.Equal(units.MustNative("0.25")), "bob balance %s", bobBal)

	history := l.Transfers()
	require.Len(t, history, 2)
	assert.Equal(t, models.GenesisIdentity, history[0].From)
	assert.Equal(t, "ref-1", history[1].Reference)
	assert.True(t, history[1].FromBalanceAfter.Equal(aliceBal))
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	l := New()
	require.NoError(t, l.Mint(ctx, alice, decimal.NewFromInt(10)))

	err := l.Transfer(ctx, alice, bob, decimal.NewFromInt(11))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	bal, _ := l.Balance(ctx, alice)
	assert.True(t, bal.Equal(decimal.NewFromInt(10)))
	assert.Len(t, l.Transfers(), 1)
}

func TestTransfer_Invalid(t *testing.T) {
	ctx := context.Background()
	l := New()

	assert.ErrorIs(t, l.Transfer(ctx, "", bob, decimal.Zero), ledger.ErrInvalidTransfer)
	assert.ErrorIs(t, l.Transfer(ctx, alice, alice, decimal.Zero), ledger.ErrInvalidTransfer)
	assert.ErrorIs(t, l.Transfer(ctx, alice, bob, decimal.NewFromInt(-1)), ledger.ErrInvalidTransfer)
	assert.ErrorIs(t, l.Mint(ctx, alice, decimal.NewFromFloat(0.5)), ledger.ErrInvalidTransfer)
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	l := New()
	require.NoError(t, l.Mint(ctx, alice, decimal.NewFromInt(100)))
	snap := l.Snapshot()

	require.NoError(t, l.Transfer(ctx, alice, bob, decimal.NewFromInt(40)))
	require.NoError(t, l.Mint(ctx, bob, decimal.NewFromInt(5)))

	l.Restore(snap)
	aliceBal, _ := l.Balance(ctx, alice)
	bobBal, _ := l.Balance(ctx, bob)
	assert.True(t, aliceBal.Equal(decimal.NewFromInt(100)))
	assert.True(t, bobBal.IsZero())
	assert.Len(t, l.Transfers(), 1)

	// Mutating after restore must not leak back into the snapshot.
	require.NoError(t, l.Transfer(ctx, alice, bob, decimal.NewFromInt(1)))
	l.Restore(snap)
	aliceBal, _ = l.Balance(ctx, alice)
	assert.True(t, aliceBal.Equal(decimal.NewFromInt(100)))
}

func TestTransfer_ReplayedReference(t *testing.T) {
	ctx := context.Background()
	l := New()
	require.NoError(t, l.Mint(ctx, alice, units.OneUnit))

	refCtx := models.WithTransferReference(ctx, "ref-1")
	require.NoError(t, l.Transfer(refCtx, alice, bob, units.MustNative("0.25")))

	require.ErrorIs(t, l.Transfer(refCtx, alice, bob, units.MustNative("0.25")), ledger.ErrAlreadyApplied)
	require.ErrorIs(t, l.Transfer(refCtx, alice, bob, units.MustNative("0.5")), ledger.ErrTransferRejected)

	bobBal, err := l.Balance(ctx, bob)
	require.NoError(t, err)
	assert.True(t, bobBal.Equal(units.MustNative("0.25")), "bob balance %s", bobBal)
	assert.Len(t, l.Transfers(), 2)
}

func TestMint_ReplayedReference(t *testing.T) {
	ctx := models.WithTransferReference(context.Background(), "genesis-alice")
	l := New()

	require.NoError(t, l.Mint(ctx, alice, units.OneUnit))
	require.NoError(t, l.Mint(ctx, alice, units.OneUnit))
	require.ErrorIs(t, l.Mint(ctx, alice, units.MustNative("2")), ledger.ErrTransferRejected)

	bal, err := l.Balance(ctx, alice)
	require.NoError(t, err)
	assert.True(t, bal.Equal(units.OneUnit), "alice balance %s", bal)
}
