// Package money implements the fixed-scale amount used for every balance.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every Money carries.
const Scale = 2

// ErrInvalidAmount reports a missing, malformed, or non-positive amount.
var ErrInvalidAmount = errors.New("invalid amount")

// Money is a decimal amount normalized to Scale fractional digits.
// The zero value is 0.00.
type Money struct {
	d decimal.Decimal
}

// Zero is 0.00.
var Zero = Money{d: decimal.New(0, -Scale)}

// Normalize rounds raw half-to-even to Scale digits.
func Normalize(raw decimal.Decimal) Money {
	return Money{d: raw.RoundBank(Scale)}
}

// NewNonNegative normalizes raw and rejects negative values.
func NewNonNegative(raw decimal.Decimal) (Money, error) {
	if raw.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, raw)
	}
	return Normalize(raw), nil
}

// Parse reads a decimal string such as "1000" or "12.345" and normalizes it.
// Empty input is an absent amount.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	return Normalize(d), nil
}

// MustParse is Parse for constants and tests. It panics on bad input.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromStored rebuilds a Money read back from storage without re-rounding.
// Values with more than Scale digits are rejected as corrupt.
func FromStored(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("parsing stored amount %q: %w", s, err)
	}
	return FromStoredDecimal(d)
}

// FromStoredDecimal is FromStored for values already decoded by a driver.
func FromStoredDecimal(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Truncate(Scale)) {
		return Money{}, fmt.Errorf("stored amount %s has more than %d decimal places", d, Scale)
	}
	return Money{d: d.Truncate(Scale)}, nil
}

// Add returns m + o. Both operands already carry Scale digits so no rounding occurs.
func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{d: m.d.Sub(o.d)}
}

// MulRate returns m * rate rounded half-to-even.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Normalize(m.d.Mul(rate))
}

// Cmp compares m and o: -1 if m < o, 0 if equal, +1 if m > o.
func (m Money) Cmp(o Money) int {
	return m.d.Cmp(o.d)
}

// Equal reports whether m and o are the same amount.
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// LessThan reports m < o.
func (m Money) LessThan(o Money) bool { return m.d.LessThan(o.d) }

// GreaterThan reports m > o.
func (m Money) GreaterThan(o Money) bool { return m.d.GreaterThan(o.d) }

// IsPositive reports m > 0.
func (m Money) IsPositive() bool { return m.d.IsPositive() }

// IsNegative reports m < 0.
func (m Money) IsNegative() bool { return m.d.IsNegative() }

// IsZero reports m == 0.
func (m Money) IsZero() bool { return m.d.IsZero() }

// Decimal returns the underlying decimal.
func (m Money) Decimal() decimal.Decimal { return m.d }

// String formats m with exactly Scale fractional digits.
func (m Money) String() string { return m.d.StringFixed(Scale) }
