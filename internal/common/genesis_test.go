package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"custody-vault-go/internal/ledger/memory"
	"custody-vault-go/internal/units"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGenesis(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadGenesis(t *testing.T) {
	path := writeGenesis(t, `
accounts:
  - identity: alice
    balance: "10"
  - identity: bob
    balance: "0.5 ETH"
`)

	allocations, err := LoadGenesis(path)
	require.NoError(t, err)
	require.Len(t, allocations, 2)
	assert.Equal(t, "alice", allocations[0].Identity.String())
	assert.True(t, allocations[0].Amount.Equal(units.MustNative("10")))
	assert.True(t, allocations[1].Amount.Equal(units.MustNative("0.5")))
}

func TestLoadGenesis_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing identity": "accounts:\n  - balance: \"1\"\n",
		"reserved":         "accounts:\n  - identity: genesis\n    balance: \"1\"\n",
		"duplicate":        "accounts:\n  - identity: a\n    balance: \"1\"\n  - identity: a\n    balance: \"2\"\n",
		"bad amount":       "accounts:\n  - identity: a\n    balance: lots\n",
		"negative":         "accounts:\n  - identity: a\n    balance: \"-1\"\n",
		"not yaml":         "accounts: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadGenesis(writeGenesis(t, content))
			assert.Error(t, err)
		})
	}

	_, err := LoadGenesis(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeedGenesis(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	allocations := []Allocation{
		{Identity: "alice", Amount: units.MustNative("2")},
		{Identity: "bob", Amount: units.MustNative("1")},
	}

	require.NoError(t, SeedGenesis(ctx, l, allocations))

	bal, err := l.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, bal.Equal(units.MustNative("2")))

	transfers := l.Transfers()
	require.Len(t, transfers, 2)
	assert.Equal(t, "genesis-alice", transfers[0].Reference)
	assert.Equal(t, "genesis-bob", transfers[1].Reference)
}
