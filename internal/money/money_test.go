package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestNormalize_HalfToEven(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1", "1.00"},
		{"1.005", "1.00"},
		{"1.015", "1.02"},
		{"1.025", "1.02"},
		{"1.035", "1.04"},
		{"2.675", "2.68"},
		{"-1.005", "-1.00"},
		{"1000.1249", "1000.12"},
		{"0.125", "0.12"},
		{"0.135", "0.14"},
	}
	for _, tt := range tests {
		got := Normalize(dec(tt.in))
		assert.Equal(t, tt.want, got.String(), "Normalize(%s)", tt.in)
	}
}

func TestNewNonNegative(t *testing.T) {
	m, err := NewNonNegative(decimal.Zero)
	require.NoError(t, err)
	assert.True(t, m.IsZero())

	_, err = NewNonNegative(dec("-0.01"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParse(t *testing.T) {
	m, err := Parse(" 1000 ")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", m.String())

	for _, bad := range []string{"", "   ", "abc", "1,000"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", bad)
	}
}

func TestArithmeticIsExact(t *testing.T) {
	a := MustParse("0.10")
	b := MustParse("0.20")
	assert.Equal(t, "0.30", a.Add(b).String())
	assert.Equal(t, "-0.10", a.Sub(b).String())
	assert.Equal(t, 0, a.Add(b).Cmp(MustParse("0.3")))
	assert.True(t, a.LessThan(b))
	assert.True(t, b.GreaterThan(a))
}

func TestMulRate(t *testing.T) {
	bal := MustParse("4000.00")
	assert.Equal(t, "20.00", bal.MulRate(dec("0.005")).String())

	// 123.45 * 0.005 = 0.61725 -> 0.62
	assert.Equal(t, "0.62", MustParse("123.45").MulRate(dec("0.005")).String())
	// 1.00 * 0.005 = 0.005 -> 0.00 (half-to-even)
	assert.True(t, MustParse("1.00").MulRate(dec("0.005")).IsZero())
}

func TestFromStored(t *testing.T) {
	m, err := FromStored("4000.00")
	require.NoError(t, err)
	assert.Equal(t, "4000.00", m.String())

	_, err = FromStored("1.234")
	require.Error(t, err)

	_, err = FromStored("x")
	require.Error(t, err)
}

func TestZeroValue(t *testing.T) {
	var m Money
	assert.True(t, m.IsZero())
	assert.Equal(t, "0.00", m.String())
	assert.True(t, m.Equal(Zero))
}
