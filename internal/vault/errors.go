package vault

import (
	"errors"

	"custody-vault-go/internal/units"
)

// Sentinel errors returned by vault operations. Every failure leaves the
// vault's owner, balance and alive flag exactly as they were.
var (
	ErrUnauthorized      = errors.New("caller is not the owner")
	ErrLimitExceeded     = errors.New("requested amount exceeds withdrawal cap")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTransferFailed    = errors.New("transfer failed")
	ErrDestroyed         = errors.New("vault destroyed")
	ErrInvalidIdentity   = errors.New("invalid identity")
	ErrInvalidAmount     = units.ErrInvalidAmount
	ErrBalanceMismatch   = errors.New("balance mismatch")
)
