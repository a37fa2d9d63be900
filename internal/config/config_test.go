package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DATABASE_PATH", "LEDGER_BACKEND", "VAULT_WITHDRAW_CAP", "DB_PING_TIMEOUT", "DB_MAX_OPEN_CONNS", "GENESIS_FILE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "vault.db" {
		t.Errorf("Expected default path vault.db, got %s", cfg.Database.Path)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("Expected 25 open conns, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.PingTimeout != 5*time.Second {
		t.Errorf("Expected 5s ping timeout, got %v", cfg.Database.PingTimeout)
	}
	if cfg.Ledger.Backend != BackendSQLite {
		t.Errorf("Expected sqlite backend, got %s", cfg.Ledger.Backend)
	}
	if !cfg.Vault.WithdrawCap.Equal(decimal.New(1, 17)) {
		t.Errorf("Expected cap 1e17 base units, got %s", cfg.Vault.WithdrawCap.String())
	}
	if cfg.Vault.GenesisFile != "genesis.yaml" {
		t.Errorf("Expected genesis.yaml, got %s", cfg.Vault.GenesisFile)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/other.db")
	t.Setenv("LEDGER_BACKEND", "Formance")
	t.Setenv("VAULT_WITHDRAW_CAP", "0.5 ETH")
	t.Setenv("DB_MAX_OPEN_CONNS", "3")
	t.Setenv("FORMANCE_LEDGER", "test-ledger")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "/tmp/other.db" {
		t.Errorf("Expected overridden path, got %s", cfg.Database.Path)
	}
	if cfg.Ledger.Backend != BackendFormance {
		t.Errorf("Expected formance backend, got %s", cfg.Ledger.Backend)
	}
	if cfg.Ledger.Formance.LedgerName != "test-ledger" {
		t.Errorf("Expected test-ledger, got %s", cfg.Ledger.Formance.LedgerName)
	}
	if !cfg.Vault.WithdrawCap.Equal(decimal.New(5, 17)) {
		t.Errorf("Expected cap 5e17 base units, got %s", cfg.Vault.WithdrawCap.String())
	}
	if cfg.Database.MaxOpenConns != 3 {
		t.Errorf("Expected 3 open conns, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "DB_PING_TIMEOUT", "soon"},
		{"bad cap", "VAULT_WITHDRAW_CAP", "lots"},
		{"negative cap", "VAULT_WITHDRAW_CAP", "-1"},
		{"unknown backend", "LEDGER_BACKEND", "postgres"},
		{"bad open conns", "DB_MAX_OPEN_CONNS", "many"},
		{"bad idle conns", "DB_MAX_IDLE_CONNS", "2.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
