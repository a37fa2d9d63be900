package fixture

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"custody-vault-go/internal/ledger"
	"custody-vault-go/internal/models"
	"custody-vault-go/internal/vault"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Bundle is what a scenario receives: a deployed vault, its owner, a second
// identity that does not own it, and an amount under the withdraw cap.
type Bundle struct {
	Store        *vault.Vault
	Owner        models.Identity
	Other        models.Identity
	SampleAmount decimal.Decimal
	Ledger       *ledger.Faulty
	Env          *Env
}

// Builder constructs the initial bundle for a fixture group.
type Builder func(ctx context.Context, env *Env) (*Bundle, error)

// TB is the subset of testing.TB that Load needs.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

type Fixture struct {
	builder Builder
	opts    []EnvOption

	mu       sync.Mutex
	built    bool
	builds   int
	err      error
	env      *Env
	bundle   *Bundle
	snapshot Snapshot
}

// Define declares a fixture group. Nothing runs until the first Load.
func Define(builder Builder, opts ...EnvOption) *Fixture {
	return &Fixture{builder: builder, opts: opts}
}

// Load returns the group's bundle in its post-build state. The builder runs
// on the first call only; a build failure fails this and every later Load.
func (f *Fixture) Load(t TB) *Bundle {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.built {
		f.built = true
		f.build()
	}
	if f.err != nil {
		t.Fatalf("fixture build failed: %v", f.err)
		return nil
	}
	if err := f.env.Restore(f.snapshot); err != nil {
		t.Fatalf("fixture restore failed: %v", err)
		return nil
	}

	b := *f.bundle
	return &b
}

// Builds reports how many times the builder has run.
func (f *Fixture) Builds() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.builds
}

func (f *Fixture) build() {
	ctx := context.Background()
	f.builds++

	env, err := NewEnv(ctx, f.opts...)
	if err != nil {
		f.err = fmt.Errorf("env: %w", err)
		return
	}
	bundle, err := f.builder(ctx, env)
	if err != nil {
		f.err = err
		zap.L().Warn("Fixture builder failed", zap.Error(err))
		return
	}
	if bundle == nil || bundle.Store == nil {
		f.err = fmt.Errorf("builder returned no store")
		return
	}
	if bundle.Env == nil {
		bundle.Env = env
	}
	if bundle.Ledger == nil {
		bundle.Ledger = env.Ledger()
	}

	f.env = env
	f.bundle = bundle
	f.snapshot = env.Snapshot()
}

var (
	registryMu sync.Mutex
	registry   = make(map[uintptr]*Fixture)
)

// LoadFixture is Define(builder).Load(t) with the Fixture cached per builder
// function.
func LoadFixture(t TB, builder Builder) *Bundle {
	t.Helper()
	key := reflect.ValueOf(builder).Pointer()

	registryMu.Lock()
	f, ok := registry[key]
	if !ok {
		f = Define(builder)
		registry[key] = f
	}
	registryMu.Unlock()

	return f.Load(t)
}
