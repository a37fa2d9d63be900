// Package vault implements a single-owner value store.
//
// A Vault holds funds at its own ledger address. Anyone may withdraw up to a
// fixed per-call cap; only the owner may drain it or terminate it.
// Terminate is irreversible: afterwards every operation fails with
// ErrDestroyed.
package vault

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"custody-vault-go/internal/ledger"
	"custody-vault-go/internal/models"
	"custody-vault-go/internal/units"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultWithdrawCap is the per-call withdraw limit: 0.1 native unit.
var DefaultWithdrawCap = decimal.New(1, units.Decimals-1)

// addressNamespace seeds deterministic vault address derivation.
var addressNamespace = uuid.MustParse("6f1c9a52-3d0e-4b8f-9a57-1c2de4b0f7a3")

// State is a plain copy of every vault field.
type State struct {
	Address     models.Identity
	Owner       models.Identity
	Balance     decimal.Decimal
	Alive       bool
	WithdrawCap decimal.Decimal
}

type Vault struct {
	mu          sync.Mutex
	ledger      ledger.ValueLedger
	address     models.Identity
	owner       models.Identity
	balance     decimal.Decimal
	alive       bool
	withdrawCap decimal.Decimal
}

type deployOptions struct {
	withdrawCap decimal.Decimal
	address     models.Identity
	nonce       *uint64
}

type Option func(*deployOptions)

// WithWithdrawCap overrides DefaultWithdrawCap for one deployment.
func WithWithdrawCap(cap decimal.Decimal) Option {
	return func(o *deployOptions) { o.withdrawCap = cap }
}

// WithNonce derives the vault address from owner and nonce instead of a
// random id, so repeated deployments produce the same address.
func WithNonce(nonce uint64) Option {
	return func(o *deployOptions) { o.nonce = &nonce }
}

// WithAddress pins the vault address.
func WithAddress(addr models.Identity) Option {
	return func(o *deployOptions) { o.address = addr }
}

// DeriveAddress returns the address a vault deployed by owner with nonce receives.
func DeriveAddress(owner models.Identity, nonce uint64) models.Identity {
	id := uuid.NewSHA1(addressNamespace, []byte(owner.String()+":"+strconv.FormatUint(nonce, 10)))
	return models.Identity("vault:" + id.String())
}

// Deploy creates a vault owned by caller and moves attached from caller into it.
func Deploy(ctx context.Context, l ledger.ValueLedger, caller models.Identity, attached decimal.Decimal, opts ...Option) (*Vault, error) {
	if caller.IsZero() {
		return nil, fmt.Errorf("%w: caller is required", ErrInvalidIdentity)
	}
	if err := units.Validate(attached); err != nil {
		return nil, err
	}

	o := deployOptions{withdrawCap: DefaultWithdrawCap}
	for _, opt := range opts {
		opt(&o)
	}
	if err := units.Validate(o.withdrawCap); err != nil {
		return nil, fmt.Errorf("withdraw cap: %w", err)
	}

	address := o.address
	if address.IsZero() {
		if o.nonce != nil {
			address = DeriveAddress(caller, *o.nonce)
		} else {
			address = models.Identity("vault:" + uuid.New().String())
		}
	}
	if address == caller {
		return nil, fmt.Errorf("%w: vault address equals caller", ErrInvalidIdentity)
	}

	if attached.IsPositive() {
		ref := operationReference(ctx, "deploy", address)
		if err := l.Transfer(leg(ctx, ref, "fund"), caller, address, attached); err != nil {
			zap.L().Error("Failed to fund vault on deploy",
				zap.String("caller", caller.String()),
				zap.String("vault", address.String()),
				zap.String("amount", attached.String()),
				zap.Error(err))
			return nil, fmt.Errorf("%w: funding vault: %w", ErrTransferFailed, err)
		}
	}

	v := &Vault{
		ledger:      l,
		address:     address,
		owner:       caller,
		balance:     attached,
		alive:       true,
		withdrawCap: o.withdrawCap,
	}

	zap.L().Info("Vault deployed",
		zap.String("vault", address.String()),
		zap.String("owner", caller.String()),
		zap.String("balance", attached.String()),
		zap.String("withdraw_cap", o.withdrawCap.String()))
	return v, nil
}

// Open rebuilds a vault from a previously captured State.
func Open(l ledger.ValueLedger, s State) (*Vault, error) {
	if err := validateState(s); err != nil {
		return nil, err
	}
	v := &Vault{ledger: l}
	v.apply(s)
	return v, nil
}

func (v *Vault) Address() models.Identity {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.address
}

func (v *Vault) Owner() models.Identity {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.owner
}

func (v *Vault) Balance() decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance
}

func (v *Vault) Alive() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.alive
}

func (v *Vault) WithdrawCap() decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.withdrawCap
}

// State returns a copy of every field.
func (v *Vault) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return State{
		Address:     v.address,
		Owner:       v.owner,
		Balance:     v.balance,
		Alive:       v.alive,
		WithdrawCap: v.withdrawCap,
	}
}

// Restore overwrites every field from s.
func (v *Vault) Restore(s State) error {
	if err := validateState(s); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.apply(s)
	return nil
}

func (v *Vault) apply(s State) {
	v.address = s.Address
	v.owner = s.Owner
	v.balance = s.Balance
	v.alive = s.Alive
	v.withdrawCap = s.WithdrawCap
}

func validateState(s State) error {
	if s.Address.IsZero() || s.Owner.IsZero() {
		return fmt.Errorf("%w: state requires address and owner", ErrInvalidIdentity)
	}
	if err := units.Validate(s.Balance); err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	if err := units.Validate(s.WithdrawCap); err != nil {
		return fmt.Errorf("withdraw cap: %w", err)
	}
	if !s.Alive && !s.Balance.IsZero() {
		return fmt.Errorf("%w: destroyed vault holds %s", ErrBalanceMismatch, s.Balance.String())
	}
	return nil
}

// operationReference returns the base reference for one vault operation.
// A reference already on ctx is used as is; ledgers that record references
// refuse to apply it twice, so a replayed call fails instead of repeating.
func operationReference(ctx context.Context, op string, address models.Identity) string {
	if parent := models.GetTransferReference(ctx); parent != "" {
		return parent
	}
	return fmt.Sprintf("%s:%s:%s", op, address, uuid.New().String())
}

// leg tags one transfer of an operation; each leg needs a distinct reference.
func leg(ctx context.Context, ref, name string) context.Context {
	return models.WithTransferReference(ctx, ref+"-"+name)
}
