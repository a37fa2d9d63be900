package models

// Identity names an account that can hold value: a caller, an owner, or a vault.
type Identity string

// GenesisIdentity is the source recorded for value minted into the ledger.
const GenesisIdentity Identity = "genesis"

func (i Identity) IsZero() bool {
	return i == ""
}

func (i Identity) String() string {
	return string(i)
}
