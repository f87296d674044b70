package model

import (
	"errors"

	"github.com/bankline-dev/bankline/internal/money"
)

// Failures returned by the account entity and the ledger. Callers match them
// with errors.Is; the returned error usually wraps one of these with detail.
var (
	ErrInvalidAmount           = money.ErrInvalidAmount
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrMinimumBalanceViolation = errors.New("minimum balance violation")
	ErrAccountNotFound         = errors.New("account not found")
	ErrDuplicateAccount        = errors.New("account already exists")
	ErrAccountClosed           = errors.New("account closed")
	ErrAccountLocked           = errors.New("account locked")
	ErrSameAccountTransfer     = errors.New("cannot transfer to the same account")
	ErrInvalidAccountNumber    = errors.New("invalid account number")
	ErrInvalidHolderName       = errors.New("invalid holder name")
	ErrInvalidEmail            = errors.New("invalid email")
	ErrInvalidPin              = errors.New("invalid pin")
	ErrInvalidAccountType      = errors.New("invalid account type")
	ErrInitialDepositTooLow    = errors.New("initial deposit below minimum")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrPinMismatch             = errors.New("incorrect pin")
	ErrPersistence             = errors.New("persistence failure")
	ErrStaleBalance            = errors.New("balance changed by another writer")
	ErrConsistency             = errors.New("ledger consistency violation")
)
