package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bankline-dev/bankline/internal/money"
)

func newAccount(balance string) *Account {
	return &Account{
		Number:     "12345678901",
		HolderName: "Anushree",
		Type:       AccountTypeSavings,
		Balance:    money.MustParse(balance),
		Status:     StatusActive,
		CreatedAt:  time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestAccount_Scenario(t *testing.T) {
	a := newAccount("5000.00")
	created := a.CreatedAt

	require.NoError(t, a.Deposit(money.MustParse("1000.00")))
	assert.Equal(t, "6000.00", a.Balance.String())

	require.NoError(t, a.Withdraw(money.MustParse("2000.00")))
	assert.Equal(t, "4000.00", a.Balance.String())

	err := a.Deposit(money.MustParse("-50.00"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, "4000.00", a.Balance.String())

	err = a.Withdraw(money.MustParse("10000.00"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, "4000.00", a.Balance.String())

	assert.Equal(t, created, a.CreatedAt, "createdAt never changes")
}

func TestAccount_RejectsZero(t *testing.T) {
	a := newAccount("100.00")
	assert.ErrorIs(t, a.Deposit(money.Zero), ErrInvalidAmount)
	assert.ErrorIs(t, a.Withdraw(money.Zero), ErrInvalidAmount)
	assert.Equal(t, "100.00", a.Balance.String())
}

func TestAccount_WithdrawWholeBalance(t *testing.T) {
	a := newAccount("100.00")
	require.NoError(t, a.Withdraw(money.MustParse("100")))
	assert.True(t, a.Balance.IsZero())
}

func TestAccount_DepositWithdrawRoundTrip(t *testing.T) {
	for _, amt := range []string{"0.01", "1", "99.99", "1234567.89"} {
		a := newAccount("250.00")
		m := money.MustParse(amt)
		require.NoError(t, a.Deposit(m))
		require.NoError(t, a.Withdraw(m))
		assert.Equal(t, "250.00", a.Balance.String(), "amount %s", amt)
	}
}

func TestAccount_CreditInterest(t *testing.T) {
	a := newAccount("0.00")
	require.NoError(t, a.CreditInterest(money.Zero))
	require.NoError(t, a.CreditInterest(money.MustParse("0.50")))
	assert.Equal(t, "0.50", a.Balance.String())
	assert.ErrorIs(t, a.CreditInterest(money.MustParse("-1")), ErrInvalidAmount)
}

func TestAccount_Pin(t *testing.T) {
	a := newAccount("0")
	assert.False(t, a.VerifyPin("1234"), "unset pin never matches")

	require.NoError(t, a.SetPin("1234", bcrypt.MinCost))
	assert.True(t, a.VerifyPin("1234"))
	assert.False(t, a.VerifyPin("4321"))
	assert.False(t, a.VerifyPin(""))
	assert.NotContains(t, a.PinHash, "1234")
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusActive, StatusLocked, true},
		{StatusLocked, StatusActive, true},
		{StatusActive, StatusClosed, true},
		{StatusLocked, StatusClosed, true},
		{StatusActive, StatusInactive, true},
		{StatusInactive, StatusActive, true},
		{StatusClosed, StatusActive, false},
		{StatusClosed, StatusLocked, false},
		{StatusInactive, StatusLocked, false},
		{StatusLocked, StatusInactive, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}

	a := newAccount("0")
	require.NoError(t, a.SetStatus(StatusClosed))
	assert.ErrorIs(t, a.SetStatus(StatusActive), ErrInvalidTransition)
	assert.ErrorIs(t, a.Mutable(), ErrAccountClosed)
}

func TestMutable(t *testing.T) {
	a := newAccount("0")
	assert.NoError(t, a.Mutable())
	a.Status = StatusInactive
	assert.NoError(t, a.Mutable(), "inactive accounts reactivate on activity")
	a.Status = StatusLocked
	assert.ErrorIs(t, a.Mutable(), ErrAccountLocked)
}

func TestParseAccountType(t *testing.T) {
	for _, in := range []string{"savings", "SAVINGS", " Current ", "student"} {
		_, ok := ParseAccountType(in)
		assert.True(t, ok, in)
	}
	for _, in := range []string{"", "checking", "SAVING"} {
		_, ok := ParseAccountType(in)
		assert.False(t, ok, in)
	}
}
