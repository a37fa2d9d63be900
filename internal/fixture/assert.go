package fixture

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type tHelper interface {
	Helper()
}

// ExpectEqual asserts actual equals expected. Decimals compare by value, so
// 5e16 and 50000000000000000 are equal.
func ExpectEqual(t assert.TestingT, actual, expected any, msgAndArgs ...any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if a, ok := actual.(decimal.Decimal); ok {
		if e, ok := expected.(decimal.Decimal); ok {
			if a.Equal(e) {
				return true
			}
			return assert.Fail(t, fmt.Sprintf("Not equal: \n"+
				"expected: %s\n"+
				"actual  : %s", e.String(), a.String()), msgAndArgs...)
		}
	}
	return assert.Equal(t, expected, actual, msgAndArgs...)
}

// ExpectReverted asserts that call fails. Any error counts.
func ExpectReverted(t assert.TestingT, call func() error, msgAndArgs ...any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return assert.Error(t, call(), msgAndArgs...)
}

// ExpectRevertedWith asserts that call fails with an error matching target.
func ExpectRevertedWith(t assert.TestingT, call func() error, target error, msgAndArgs ...any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return assert.ErrorIs(t, call(), target, msgAndArgs...)
}
