package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"custody-vault-go/internal/ledger"
	"custody-vault-go/internal/models"
	"custody-vault-go/internal/units"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// GenesisAccount is one opening balance. Balance is in native units, e.g. "10" or "0.5 ETH".
type GenesisAccount struct {
	Identity string `yaml:"identity"`
	Balance  string `yaml:"balance"`
}

type GenesisConfig struct {
	Accounts []GenesisAccount `yaml:"accounts"`
}

// Allocation is a parsed GenesisAccount in base units.
type Allocation struct {
	Identity models.Identity
	Amount   decimal.Decimal
}

func LoadGenesis(genesisFile string) ([]Allocation, error) {
	var genesisPath string
	if filepath.IsAbs(genesisFile) {
		genesisPath = genesisFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		genesisPath = filepath.Join(wd, genesisFile)
	}

	data, err := os.ReadFile(genesisPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", genesisFile, err)
	}

	var config GenesisConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", genesisFile, err)
	}

	seen := make(map[string]bool, len(config.Accounts))
	allocations := make([]Allocation, 0, len(config.Accounts))
	for i, account := range config.Accounts {
		if account.Identity == "" {
			return nil, fmt.Errorf("account at index %d missing identity", i)
		}
		if models.Identity(account.Identity) == models.GenesisIdentity {
			return nil, fmt.Errorf("account at index %d uses reserved identity %q", i, account.Identity)
		}
		if seen[account.Identity] {
			return nil, fmt.Errorf("account at index %d duplicates identity %q", i, account.Identity)
		}
		seen[account.Identity] = true

		amount, err := units.FromNative(account.Balance)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", account.Identity, err)
		}
		allocations = append(allocations, Allocation{Identity: models.Identity(account.Identity), Amount: amount})
	}

	return allocations, nil
}

// SeedGenesis mints every allocation. Each mint carries a fixed reference, so
// seeding the same file twice credits each identity once.
func SeedGenesis(ctx context.Context, minter ledger.Minter, allocations []Allocation) error {
	for _, a := range allocations {
		mintCtx := models.WithTransferReference(ctx, "genesis-"+a.Identity.String())
		if err := minter.Mint(mintCtx, a.Identity, a.Amount); err != nil {
			return fmt.Errorf("failed to seed %s: %w", a.Identity, err)
		}
		zap.L().Info("Seeded genesis balance",
			zap.String("identity", a.Identity.String()),
			zap.String("amount", units.Format(a.Amount)))
	}
	return nil
}
