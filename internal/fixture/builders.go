package fixture

import (
	"context"

	"custody-vault-go/internal/units"

	"github.com/shopspring/decimal"
)

// WithdrawalFixture deploys an empty vault from signer 0. Other is signer 1
// and SampleAmount is half the withdraw cap.
func WithdrawalFixture(ctx context.Context, env *Env) (*Bundle, error) {
	return deployBundle(ctx, env, decimal.Zero)
}

// FundedWithdrawalFixture is WithdrawalFixture with 0.2 native units attached
// at deployment.
func FundedWithdrawalFixture(ctx context.Context, env *Env) (*Bundle, error) {
	return deployBundle(ctx, env, units.MustNative("0.2"))
}

func deployBundle(ctx context.Context, env *Env, attached decimal.Decimal) (*Bundle, error) {
	owner, err := env.Signer(0)
	if err != nil {
		return nil, err
	}
	other, err := env.Signer(1)
	if err != nil {
		return nil, err
	}

	store, err := env.Deploy(ctx, owner, attached)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Store:        store,
		Owner:        owner,
		Other:        other,
		SampleAmount: store.WithdrawCap().Div(decimal.NewFromInt(2)).Floor(),
		Ledger:       env.Ledger(),
		Env:          env,
	}, nil
}
