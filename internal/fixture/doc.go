// Package fixture builds reproducible vault scenarios for tests.
//
// A fixture group runs its Builder exactly once against a fresh Env, then
// snapshots the Env. Every Load restores that snapshot before handing the
// bundle back, so scenarios in the group never observe each other's
// mutations while construction cost is paid only once.
//
// # Usage
//
//	var withdrawals = fixture.Define(fixture.WithdrawalFixture)
//
//	func TestOverCap(t *testing.T) {
//	    b := withdrawals.Load(t)
//	    fixture.ExpectRevertedWith(t, func() error {
//	        return b.Store.Withdraw(ctx, b.Other, units.OneUnit, units.OneUnit)
//	    }, vault.ErrLimitExceeded)
//	}
//
// LoadFixture offers the same behavior keyed by the builder function itself,
// which suits top-level builder functions. Parameterized builders created by
// a factory share one code pointer and must go through Define instead.
package fixture
