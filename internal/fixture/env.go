package fixture

import (
	"context"
	"errors"
	"fmt"

	"custody-vault-go/internal/ledger"
	"custody-vault-go/internal/ledger/memory"
	"custody-vault-go/internal/models"
	"custody-vault-go/internal/units"
	"custody-vault-go/internal/vault"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrPoolExhausted = errors.New("identity pool exhausted")

const DefaultPoolSize = 20

// DefaultGenesisBalance is minted to every signer: 10000 native units.
var DefaultGenesisBalance = units.OneUnit.Mul(decimal.NewFromInt(10000))

var signerNamespace = uuid.MustParse("0b7e4c1d-92a8-4f35-8d6e-58a3c7f21e90")

type envOptions struct {
	poolSize       int
	genesisBalance decimal.Decimal
}

type EnvOption func(*envOptions)

// WithPoolSize sets the number of pre-funded signers.
func WithPoolSize(n int) EnvOption {
	return func(o *envOptions) { o.poolSize = n }
}

// WithGenesisBalance sets the amount minted to each signer.
func WithGenesisBalance(amount decimal.Decimal) EnvOption {
	return func(o *envOptions) { o.genesisBalance = amount }
}

// Env is the ambient world a fixture builds in: an in-memory ledger behind a
// fault injector, a deterministic pool of funded signers, and every vault
// deployed through it.
type Env struct {
	base    *memory.Ledger
	ledger  *ledger.Faulty
	signers []models.Identity
	vaults  []*vault.Vault
	nonce   uint64
}

// Snapshot is the complete state of an Env.
type Snapshot struct {
	Ledger ledger.Snapshot
	Vaults []vault.State
	Nonce  uint64
}

func NewEnv(ctx context.Context, opts ...EnvOption) (*Env, error) {
	o := envOptions{poolSize: DefaultPoolSize, genesisBalance: DefaultGenesisBalance}
	for _, opt := range opts {
		opt(&o)
	}
	if o.poolSize < 0 {
		return nil, fmt.Errorf("pool size cannot be negative, got %d", o.poolSize)
	}

	base := memory.New()
	env := &Env{
		base:    base,
		ledger:  ledger.NewFaulty(base),
		signers: make([]models.Identity, o.poolSize),
	}
	for i := range env.signers {
		env.signers[i] = SignerIdentity(i)
		if err := base.Mint(ctx, env.signers[i], o.genesisBalance); err != nil {
			return nil, fmt.Errorf("failed to fund signer %d: %w", i, err)
		}
	}
	return env, nil
}

// SignerIdentity returns the deterministic identity of pool slot i.
func SignerIdentity(i int) models.Identity {
	id := uuid.NewSHA1(signerNamespace, []byte(fmt.Sprintf("signer-%d", i)))
	return models.Identity("signer:" + id.String())
}

// Ledger returns the fault-injecting ledger every vault in the Env uses.
func (e *Env) Ledger() *ledger.Faulty {
	return e.ledger
}

// Transfers returns the ledger's transfer history.
func (e *Env) Transfers() []models.Transfer {
	return e.base.Transfers()
}

func (e *Env) Signer(i int) (models.Identity, error) {
	if i < 0 || i >= len(e.signers) {
		return "", fmt.Errorf("%w: signer %d requested, pool has %d", ErrPoolExhausted, i, len(e.signers))
	}
	return e.signers[i], nil
}

func (e *Env) Signers() []models.Identity {
	out := make([]models.Identity, len(e.signers))
	copy(out, e.signers)
	return out
}

// Deploy deploys a vault at a deterministic address and registers it so
// snapshots cover it.
func (e *Env) Deploy(ctx context.Context, caller models.Identity, attached decimal.Decimal, opts ...vault.Option) (*vault.Vault, error) {
	opts = append([]vault.Option{vault.WithNonce(e.nonce)}, opts...)
	v, err := vault.Deploy(ctx, e.ledger, caller, attached, opts...)
	if err != nil {
		return nil, err
	}
	e.nonce++
	e.vaults = append(e.vaults, v)
	return v, nil
}

func (e *Env) Snapshot() Snapshot {
	snap := Snapshot{
		Ledger: e.ledger.Snapshot(),
		Vaults: make([]vault.State, len(e.vaults)),
		Nonce:  e.nonce,
	}
	for i, v := range e.vaults {
		snap.Vaults[i] = v.State()
	}
	return snap
}

// Restore rewinds the Env to snap. Vaults deployed after snap was taken are
// forgotten; injected ledger failures are cleared.
func (e *Env) Restore(snap Snapshot) error {
	if len(snap.Vaults) > len(e.vaults) {
		return fmt.Errorf("snapshot covers %d vaults, env has %d", len(snap.Vaults), len(e.vaults))
	}
	e.ledger.Restore(snap.Ledger)
	e.vaults = e.vaults[:len(snap.Vaults)]
	for i, state := range snap.Vaults {
		if err := e.vaults[i].Restore(state); err != nil {
			return fmt.Errorf("failed to restore vault %d: %w", i, err)
		}
	}
	e.nonce = snap.Nonce
	return nil
}
