package model

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bankline-dev/bankline/internal/money"
)

// AccountType classifies customer accounts.
type AccountType string

const (
	AccountTypeSavings AccountType = "SAVINGS"
	AccountTypeCurrent AccountType = "CURRENT"
	AccountTypeStudent AccountType = "STUDENT"
)

// AccountTypes lists every account type.
var AccountTypes = []AccountType{AccountTypeSavings, AccountTypeCurrent, AccountTypeStudent}

// ParseAccountType matches s case-insensitively against the known types.
func ParseAccountType(s string) (AccountType, bool) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AccountTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusLocked   Status = "LOCKED"
	StatusClosed   Status = "CLOSED"
	StatusInactive Status = "INACTIVE"
)

// ParseStatus matches s case-insensitively against the known statuses.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusActive, StatusLocked, StatusClosed, StatusInactive:
		return st, true
	}
	return "", false
}

// transitions holds every permitted status change.
var transitions = map[Status][]Status{
	StatusActive:   {StatusLocked, StatusClosed, StatusInactive},
	StatusLocked:   {StatusActive, StatusClosed},
	StatusInactive: {StatusActive},
	StatusClosed:   nil,
}

// CanTransition reports whether an account may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Account is a customer account. It is not safe for concurrent use; the
// ledger serializes access per account.
type Account struct {
	Number         string
	HolderName     string
	Email          string // optional
	Type           AccountType
	PinHash        string // bcrypt hash; empty = no PIN set
	Balance        money.Money
	Status         Status
	FailedAttempts int
	CreatedAt      time.Time
}

// Deposit adds a strictly positive amount to the balance.
func (a *Account) Deposit(amount money.Money) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: deposit of %s", ErrInvalidAmount, amount)
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// Withdraw subtracts a strictly positive amount no larger than the balance.
func (a *Account) Withdraw(amount money.Money) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: withdrawal of %s", ErrInvalidAmount, amount)
	}
	if amount.GreaterThan(a.Balance) {
		return fmt.Errorf("%w: account %s has %s, requested %s", ErrInsufficientFunds, a.Number, a.Balance, amount)
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// CreditInterest adds a non-negative amount without the positivity rule that
// Deposit applies. Only batch jobs call it.
func (a *Account) CreditInterest(amount money.Money) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: interest of %s", ErrInvalidAmount, amount)
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// SetStatus moves the account to st if the transition is permitted.
func (a *Account) SetStatus(st Status) error {
	if a.Status == st {
		return nil
	}
	if !CanTransition(a.Status, st) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, st)
	}
	a.Status = st
	return nil
}

// SetPin replaces the PIN with the bcrypt hash of pin.
func (a *Account) SetPin(pin string, cost int) error {
	hash, err := HashPin(pin, cost)
	if err != nil {
		return err
	}
	a.PinHash = hash
	return nil
}

// VerifyPin reports whether candidate matches the stored PIN. An unset PIN
// never matches.
func (a *Account) VerifyPin(candidate string) bool {
	if a.PinHash == "" || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(a.PinHash), []byte(candidate)) == nil
}

// HashPin hashes a PIN for storage.
func HashPin(pin string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), cost)
	if err != nil {
		return "", fmt.Errorf("hashing pin: %w", err)
	}
	return string(hash), nil
}

// Mutable reports an error if the account's status forbids money movement.
func (a *Account) Mutable() error {
	switch a.Status {
	case StatusClosed:
		return fmt.Errorf("%w: %s", ErrAccountClosed, a.Number)
	case StatusLocked:
		return fmt.Errorf("%w: %s", ErrAccountLocked, a.Number)
	}
	return nil
}

// BalanceChange is a balance write guarded by the value it replaces. Stores
// apply it only while the stored balance still equals Prev.
type BalanceChange struct {
	Account Account
	Prev    money.Money
}
