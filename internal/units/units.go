// Package units converts between the native display unit and its smallest
// indivisible base unit. All ledger and vault amounts are integral base-unit
// values carried in decimal.Decimal.
package units

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// Decimals is the number of base-unit digits in one native unit.
	Decimals = 18
	Symbol   = "ETH"
)

var ErrInvalidAmount = errors.New("invalid amount")

// OneUnit is one native unit expressed in base units (10^18).
var OneUnit = decimal.New(1, Decimals)

// FromNative parses a native-unit string such as "0.1" or "0.1 ETH" into base units.
func FromNative(s string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), Symbol))
	native, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	base := native.Shift(Decimals)
	if err := Validate(base); err != nil {
		return decimal.Zero, fmt.Errorf("%w (from %q)", err, s)
	}
	return base, nil
}

// MustNative is FromNative for constants; it panics on malformed input.
func MustNative(s string) decimal.Decimal {
	d, err := FromNative(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromBase parses a base-unit integer string such as "100000000000000000".
func FromBase(s string) (decimal.Decimal, error) {
	base, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	if err := Validate(base); err != nil {
		return decimal.Zero, err
	}
	return base, nil
}

// ToNative converts base units to native units.
func ToNative(base decimal.Decimal) decimal.Decimal {
	return base.Shift(-Decimals)
}

// Format renders a base-unit amount for humans, e.g. "0.05 ETH".
func Format(base decimal.Decimal) string {
	return ToNative(base).String() + " " + Symbol
}

// Validate rejects negative and fractional base-unit amounts.
func Validate(base decimal.Decimal) error {
	if base.IsNegative() {
		return fmt.Errorf("%w: %s is negative", ErrInvalidAmount, base.String())
	}
	if !base.IsInteger() {
		return fmt.Errorf("%w: %s is not a whole number of base units", ErrInvalidAmount, base.String())
	}
	return nil
}
