package units

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFromNative(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1", "1000000000000000000"},
		{"0.1", "100000000000000000"},
		{"0.05", "50000000000000000"},
		{"0.2 ETH", "200000000000000000"},
		{"0", "0"},
		{"0.000000000000000001", "1"},
	}
	for _, tt := range tests {
		got, err := FromNative(tt.input)
		if err != nil {
			t.Fatalf("FromNative(%q) failed: %v", tt.input, err)
		}
		if got.String() != tt.want {
			t.Errorf("FromNative(%q) = %s, want %s", tt.input, got.String(), tt.want)
		}
	}
}

func TestFromNative_Invalid(t *testing.T) {
	for _, input := range []string{"", "abc", "-1", "0.0000000000000000001"} {
		if _, err := FromNative(input); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("FromNative(%q): expected ErrInvalidAmount, got %v", input, err)
		}
	}
}

func TestFromBase(t *testing.T) {
	got, err := FromBase("100000000000000000")
	if err != nil {
		t.Fatalf("FromBase failed: %v", err)
	}
	if !got.Equal(MustNative("0.1")) {
		t.Errorf("expected 0.1 unit, got %s", got.String())
	}

	if _, err := FromBase("1.5"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for fractional base units, got %v", err)
	}
}

func TestFormat(t *testing.T) {
	if got := Format(decimal.New(5, 16)); got != "0.05 ETH" {
		t.Errorf("Format = %q, want %q", got, "0.05 ETH")
	}
	if got := Format(OneUnit); got != "1 ETH" {
		t.Errorf("Format = %q, want %q", got, "1 ETH")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(decimal.Zero); err != nil {
		t.Errorf("zero should be valid: %v", err)
	}
	if err := Validate(decimal.NewFromInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for negative, got %v", err)
	}
	if err := Validate(decimal.NewFromFloat(0.5)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for fraction, got %v", err)
	}
}
