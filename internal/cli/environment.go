package cli

import (
	"context"

	"custody-vault-go/internal/api"
	"custody-vault-go/internal/common"
	"custody-vault-go/internal/config"
	"custody-vault-go/internal/models"
)

// Environment is what a command runs against.
type Environment struct {
	Config *models.Config
	Vaults *api.VaultService
	Ledger common.Ledger
	Close  func()
}

// EnvironmentFactory builds a fresh Environment per command invocation.
type EnvironmentFactory func(ctx context.Context) (*Environment, error)

// DefaultEnvironment loads configuration from the process environment and
// connects to the configured database and ledger.
func DefaultEnvironment(ctx context.Context) (*Environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize services", err)
	}

	return &Environment{
		Config: cfg,
		Vaults: api.NewVaultService(services.DbService, services.Ledger, cfg.Vault.WithdrawCap),
		Ledger: services.Ledger,
		Close:  services.Close,
	}, nil
}

// withEnvironment runs fn against a fresh Environment and closes it afterwards.
func withEnvironment(ctx context.Context, opts *RootOptions, fn func(env *Environment) error) error {
	env, err := opts.newEnvironment(ctx)
	if err != nil {
		return err
	}
	if env.Close != nil {
		defer env.Close()
	}
	return fn(env)
}
