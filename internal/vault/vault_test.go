package vault_test

import (
	"context"
	"sync"
	"testing"

	"custody-vault-go/internal/fixture"
	"custody-vault-go/internal/ledger"
	"custody-vault-go/internal/ledger/memory"
	"custody-vault-go/internal/models"
	"custody-vault-go/internal/units"
	"custody-vault-go/internal/vault"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	emptyVault  = fixture.Define(fixture.WithdrawalFixture)
	fundedVault = fixture.Define(fixture.FundedWithdrawalFixture)
)

func balanceOf(t *testing.T, l ledger.ValueLedger, id models.Identity) decimal.Decimal {
	t.Helper()
	bal, err := l.Balance(context.Background(), id)
	require.NoError(t, err)
	return bal
}

func TestDeploy_OwnerIsDeployer(t *testing.T) {
	b := emptyVault.Load(t)

	fixture.ExpectEqual(t, b.Store.Owner(), b.Owner)
	fixture.ExpectEqual(t, b.Store.Balance(), decimal.Zero)
	fixture.ExpectEqual(t, b.Store.WithdrawCap(), vault.DefaultWithdrawCap)
	assert.True(t, b.Store.Alive())
	assert.NoError(t, b.Store.Reconcile(context.Background()))
}

func TestWithdraw_OverCapReverts(t *testing.T) {
	ctx := context.Background()
	b := emptyVault.Load(t)
	before := b.Store.State()
	callerBefore := balanceOf(t, b.Ledger, b.Other)

	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.Withdraw(ctx, b.Other, units.OneUnit, units.OneUnit)
	}, vault.ErrLimitExceeded)

	assert.Equal(t, before, b.Store.State())
	fixture.ExpectEqual(t, balanceOf(t, b.Ledger, b.Other), callerBefore)
	assert.Zero(t, b.Ledger.Attempts(), "no transfer may be attempted")
}

func TestWithdrawAll_NonOwnerReverts(t *testing.T) {
	ctx := context.Background()
	b := fundedVault.Load(t)
	before := b.Store.State()

	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.WithdrawAll(ctx, b.Other)
	}, vault.ErrUnauthorized)

	assert.Equal(t, before, b.Store.State())
}

func TestWithdrawAll_DrainsToOwner(t *testing.T) {
	ctx := context.Background()
	b := fundedVault.Load(t)
	fixture.ExpectEqual(t, b.Store.Balance(), units.MustNative("0.2"))
	ownerBefore := balanceOf(t, b.Ledger, b.Owner)

	require.NoError(t, b.Store.WithdrawAll(ctx, b.Owner))

	fixture.ExpectEqual(t, b.Store.Balance(), decimal.Zero)
	fixture.ExpectEqual(t, balanceOf(t, b.Ledger, b.Owner), ownerBefore.Add(units.MustNative("0.2")))
	fixture.ExpectEqual(t, balanceOf(t, b.Ledger, b.Store.Address()), decimal.Zero)
	assert.True(t, b.Store.Alive())
}

func TestWithdrawAll_EmptyVaultIsNoop(t *testing.T) {
	b := emptyVault.Load(t)

	require.NoError(t, b.Store.WithdrawAll(context.Background(), b.Owner))
	assert.Zero(t, b.Ledger.Attempts())
}

func TestTerminate_DisablesVault(t *testing.T) {
	ctx := context.Background()
	b := emptyVault.Load(t)

	require.NoError(t, b.Store.Terminate(ctx, b.Owner))
	assert.False(t, b.Store.Alive())

	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.Withdraw(ctx, b.Other, b.SampleAmount, decimal.Zero)
	}, vault.ErrDestroyed)
	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.Withdraw(ctx, b.Owner, b.SampleAmount, b.SampleAmount)
	}, vault.ErrDestroyed)
	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.WithdrawAll(ctx, b.Owner)
	}, vault.ErrDestroyed)
	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.Terminate(ctx, b.Owner)
	}, vault.ErrDestroyed)
	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.Terminate(ctx, b.Other)
	}, vault.ErrDestroyed)
}

func TestTerminate_PaysOutBalance(t *testing.T) {
	ctx := context.Background()
	b := fundedVault.Load(t)
	ownerBefore := balanceOf(t, b.Ledger, b.Owner)

	require.NoError(t, b.Store.Terminate(ctx, b.Owner))

	fixture.ExpectEqual(t, b.Store.Balance(), decimal.Zero)
	fixture.ExpectEqual(t, balanceOf(t, b.Ledger, b.Owner), ownerBefore.Add(units.MustNative("0.2")))
	assert.NoError(t, b.Store.Reconcile(ctx))
}

func TestTerminate_NonOwnerReverts(t *testing.T) {
	b := fundedVault.Load(t)

	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.Terminate(context.Background(), b.Other)
	}, vault.ErrUnauthorized)
	assert.True(t, b.Store.Alive())
}

func TestWithdraw_CapBoundary(t *testing.T) {
	ctx := context.Background()
	b := fundedVault.Load(t)
	capAmount := b.Store.WithdrawCap()
	callerBefore := balanceOf(t, b.Ledger, b.Other)

	require.NoError(t, b.Store.Withdraw(ctx, b.Other, capAmount, decimal.Zero))
	fixture.ExpectEqual(t, b.Store.Balance(), units.MustNative("0.2").Sub(capAmount))
	fixture.ExpectEqual(t, balanceOf(t, b.Ledger, b.Other), callerBefore.Add(capAmount))

	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.Withdraw(ctx, b.Other, capAmount.Add(decimal.NewFromInt(1)), decimal.Zero)
	}, vault.ErrLimitExceeded)
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	b := emptyVault.Load(t)

	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.Withdraw(context.Background(), b.Other, b.SampleAmount, decimal.Zero)
	}, vault.ErrInsufficientFunds)
	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.Withdraw(context.Background(), b.Other, b.SampleAmount, b.SampleAmount.Sub(decimal.NewFromInt(1)))
	}, vault.ErrInsufficientFunds)
	assert.Zero(t, b.Ledger.Attempts())
}

func TestWithdraw_AttachedValueCounts(t *testing.T) {
	ctx := context.Background()
	b := emptyVault.Load(t)
	callerBefore := balanceOf(t, b.Ledger, b.Other)

	require.NoError(t, b.Store.Withdraw(ctx, b.Other, b.SampleAmount, b.SampleAmount))

	fixture.ExpectEqual(t, b.Store.Balance(), decimal.Zero)
	fixture.ExpectEqual(t, balanceOf(t, b.Ledger, b.Other), callerBefore)
	assert.NoError(t, b.Store.Reconcile(ctx))
}

func TestWithdraw_DepositOnly(t *testing.T) {
	ctx := context.Background()
	b := emptyVault.Load(t)
	deposit := units.MustNative("0.3")

	// Attached value is not capped; only the requested payout is.
	require.NoError(t, b.Store.Withdraw(ctx, b.Other, decimal.Zero, deposit))

	fixture.ExpectEqual(t, b.Store.Balance(), deposit)
	assert.Equal(t, b.Owner, b.Store.Owner())
	assert.NoError(t, b.Store.Reconcile(ctx))
}

func TestWithdraw_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	b := fundedVault.Load(t)

	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.Withdraw(ctx, b.Other, decimal.NewFromInt(-1), decimal.Zero)
	}, vault.ErrInvalidAmount)
	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.Withdraw(ctx, b.Other, decimal.RequireFromString("0.5"), decimal.Zero)
	}, vault.ErrInvalidAmount)
	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.Withdraw(ctx, "", b.SampleAmount, decimal.Zero)
	}, vault.ErrInvalidIdentity)
}

func TestWithdraw_SettlementFailureLeavesBalanceUnchanged(t *testing.T) {
	ctx := context.Background()
	b := fundedVault.Load(t)
	before := b.Store.State()
	callerBefore := balanceOf(t, b.Ledger, b.Other)

	// Attached 0.08 against a 0.05 payout settles as one 0.03 credit.
	b.Ledger.FailNext(1)
	err := b.Store.Withdraw(ctx, b.Other, b.SampleAmount, units.MustNative("0.08"))
	require.ErrorIs(t, err, vault.ErrTransferFailed)
	assert.ErrorIs(t, err, ledger.ErrTransferRejected)

	assert.Equal(t, before, b.Store.State())
	fixture.ExpectEqual(t, b.Store.Balance(), units.MustNative("0.2"))
	fixture.ExpectEqual(t, balanceOf(t, b.Ledger, b.Other), callerBefore)
	assert.Equal(t, 1, b.Ledger.Attempts())
	assert.NoError(t, b.Store.Reconcile(ctx))
}

func TestWithdraw_NetsAttachedAgainstPayout(t *testing.T) {
	ctx := context.Background()
	b := fundedVault.Load(t)
	callerBefore := balanceOf(t, b.Ledger, b.Other)

	require.NoError(t, b.Store.Withdraw(ctx, b.Other, b.SampleAmount, units.MustNative("0.02")))

	assert.Equal(t, 1, b.Ledger.Attempts())
	fixture.ExpectEqual(t, b.Store.Balance(), units.MustNative("0.17"))
	fixture.ExpectEqual(t, balanceOf(t, b.Ledger, b.Other), callerBefore.Add(units.MustNative("0.03")))
	assert.NoError(t, b.Store.Reconcile(ctx))

	// Matching attachment and payout moves nothing on the ledger.
	require.NoError(t, b.Store.Withdraw(ctx, b.Other, b.SampleAmount, b.SampleAmount))
	assert.Equal(t, 1, b.Ledger.Attempts())
	fixture.ExpectEqual(t, b.Store.Balance(), units.MustNative("0.17"))
}

func TestWithdraw_PayoutFailureWithoutAttached(t *testing.T) {
	b := fundedVault.Load(t)
	before := b.Store.State()

	b.Ledger.FailNext(1)
	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.Withdraw(context.Background(), b.Other, b.SampleAmount, decimal.Zero)
	}, vault.ErrTransferFailed)

	assert.Equal(t, before, b.Store.State())
	assert.Equal(t, 1, b.Ledger.Attempts())
}

func TestWithdraw_AttachFailureChangesNothing(t *testing.T) {
	b := emptyVault.Load(t)
	before := b.Store.State()

	b.Ledger.FailTransfersFrom(b.Other)
	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.Withdraw(context.Background(), b.Other, b.SampleAmount, b.SampleAmount.Add(b.SampleAmount))
	}, vault.ErrTransferFailed)

	assert.Equal(t, before, b.Store.State())
	assert.Equal(t, 1, b.Ledger.Attempts())
}

func TestDrainFailure_LeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	b := fundedVault.Load(t)
	before := b.Store.State()

	b.Ledger.FailTransfersTo(b.Owner)
	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.WithdrawAll(ctx, b.Owner)
	}, vault.ErrTransferFailed)
	assert.Equal(t, before, b.Store.State())

	fixture.ExpectRevertedWith(t, func() error {
		return b.Store.Terminate(ctx, b.Owner)
	}, vault.ErrTransferFailed)
	assert.Equal(t, before, b.Store.State())
	assert.True(t, b.Store.Alive())
}

func TestReconcile_DetectsOutOfBandTransfer(t *testing.T) {
	ctx := context.Background()
	b := fundedVault.Load(t)

	require.NoError(t, b.Ledger.Transfer(ctx, b.Other, b.Store.Address(), decimal.NewFromInt(1)))

	assert.ErrorIs(t, b.Store.Reconcile(ctx), vault.ErrBalanceMismatch)
}

func TestDeploy_Validation(t *testing.T) {
	ctx := context.Background()
	l := memory.New()

	_, err := vault.Deploy(ctx, l, "", decimal.Zero)
	assert.ErrorIs(t, err, vault.ErrInvalidIdentity)

	_, err = vault.Deploy(ctx, l, "alice", decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, vault.ErrInvalidAmount)

	_, err = vault.Deploy(ctx, l, "alice", decimal.Zero, vault.WithWithdrawCap(decimal.NewFromInt(-1)))
	assert.ErrorIs(t, err, vault.ErrInvalidAmount)

	_, err = vault.Deploy(ctx, l, "alice", decimal.Zero, vault.WithAddress("alice"))
	assert.ErrorIs(t, err, vault.ErrInvalidIdentity)

	_, err = vault.Deploy(ctx, l, "alice", units.OneUnit)
	assert.ErrorIs(t, err, vault.ErrTransferFailed)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
}

func TestDeploy_Options(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	require.NoError(t, l.Mint(ctx, "alice", units.OneUnit))

	capAmount := units.MustNative("0.5")
	v, err := vault.Deploy(ctx, l, "alice", units.MustNative("0.6"), vault.WithWithdrawCap(capAmount), vault.WithNonce(7))
	require.NoError(t, err)

	assert.Equal(t, vault.DeriveAddress("alice", 7), v.Address())
	fixture.ExpectEqual(t, v.WithdrawCap(), capAmount)
	require.NoError(t, v.Withdraw(ctx, "bob", capAmount, decimal.Zero))
	fixture.ExpectEqual(t, v.Balance(), units.MustNative("0.1"))

	pinned, err := vault.Deploy(ctx, l, "alice", decimal.Zero, vault.WithAddress("vault:pinned"))
	require.NoError(t, err)
	assert.Equal(t, models.Identity("vault:pinned"), pinned.Address())

	random, err := vault.Deploy(ctx, l, "alice", decimal.Zero)
	require.NoError(t, err)
	assert.NotEqual(t, vault.DeriveAddress("alice", 0), random.Address())
}

func TestDeriveAddress(t *testing.T) {
	assert.Equal(t, vault.DeriveAddress("alice", 1), vault.DeriveAddress("alice", 1))
	assert.NotEqual(t, vault.DeriveAddress("alice", 1), vault.DeriveAddress("alice", 2))
	assert.NotEqual(t, vault.DeriveAddress("alice", 1), vault.DeriveAddress("bob", 1))
	assert.Contains(t, string(vault.DeriveAddress("alice", 1)), "vault:")
}

func TestOpenAndRestore(t *testing.T) {
	l := memory.New()
	state := vault.State{
		Address:     "vault:v1",
		Owner:       "alice",
		Balance:     units.MustNative("0.2"),
		Alive:       true,
		WithdrawCap: vault.DefaultWithdrawCap,
	}

	v, err := vault.Open(l, state)
	require.NoError(t, err)
	assert.Equal(t, state, v.State())

	_, err = vault.Open(l, vault.State{Address: "vault:v1"})
	assert.ErrorIs(t, err, vault.ErrInvalidIdentity)

	dead := state
	dead.Alive = false
	_, err = vault.Open(l, dead)
	assert.ErrorIs(t, err, vault.ErrBalanceMismatch)

	dead.Balance = decimal.Zero
	require.NoError(t, v.Restore(dead))
	assert.False(t, v.Alive())

	assert.Error(t, v.Restore(vault.State{Address: "vault:v1", Owner: "alice", Balance: decimal.NewFromInt(-1)}))
	assert.False(t, v.Alive(), "failed restore must not change state")
}

func TestWithdraw_CallerReference(t *testing.T) {
	ctx := context.Background()
	b := fundedVault.Load(t)

	require.NoError(t, b.Store.Withdraw(models.WithTransferReference(ctx, "req-42"), b.Other, b.SampleAmount, decimal.Zero))
	require.NoError(t, b.Store.Withdraw(models.WithTransferReference(ctx, "req-43"), b.Other, b.SampleAmount, units.MustNative("0.08")))

	transfers := b.Env.Transfers()
	require.GreaterOrEqual(t, len(transfers), 2)
	tail := transfers[len(transfers)-2:]
	assert.Equal(t, "req-42-payout", tail[0].Reference)
	assert.Equal(t, "req-43-attach", tail[1].Reference)
}

func TestWithdraw_ReplayedReferenceIsRejected(t *testing.T) {
	ctx := models.WithTransferReference(context.Background(), "req-42")
	b := fundedVault.Load(t)
	callerBefore := balanceOf(t, b.Ledger, b.Other)

	require.NoError(t, b.Store.Withdraw(ctx, b.Other, b.SampleAmount, decimal.Zero))
	after := b.Store.State()

	err := b.Store.Withdraw(ctx, b.Other, b.SampleAmount, decimal.Zero)
	require.ErrorIs(t, err, vault.ErrTransferFailed)
	assert.ErrorIs(t, err, ledger.ErrAlreadyApplied)

	assert.Equal(t, after, b.Store.State())
	fixture.ExpectEqual(t, balanceOf(t, b.Ledger, b.Other), callerBefore.Add(b.SampleAmount))
	assert.NoError(t, b.Store.Reconcile(ctx))
}

func TestWithdraw_Concurrent(t *testing.T) {
	ctx := context.Background()
	env, err := fixture.NewEnv(ctx, fixture.WithPoolSize(10))
	require.NoError(t, err)
	owner, _ := env.Signer(0)
	v, err := env.Deploy(ctx, owner, units.MustNative("0.5"))
	require.NoError(t, err)

	amount := units.MustNative("0.05")
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for _, caller := range env.Signers() {
		wg.Add(1)
		go func(caller models.Identity) {
			defer wg.Done()
			if err := v.Withdraw(ctx, caller, amount, decimal.Zero); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(caller)
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	fixture.ExpectEqual(t, v.Balance(), decimal.Zero)
	assert.NoError(t, v.Reconcile(ctx))
	assert.ErrorIs(t, v.Withdraw(ctx, owner, amount, decimal.Zero), vault.ErrInsufficientFunds)
}
