package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/bankline-dev/bankline/internal/money"
)

// TxType identifies the kind of money movement a record describes.
type TxType string

const (
	TxDeposit       TxType = "DEPOSIT"
	TxWithdraw      TxType = "WITHDRAW"
	TxTransfer      TxType = "TRANSFER"
	TxAccountClosed TxType = "ACCOUNT_CLOSED"
)

// ParseTxType matches s against the known record types.
func ParseTxType(s string) (TxType, bool) {
	t := TxType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case TxDeposit, TxWithdraw, TxTransfer, TxAccountClosed:
		return t, true
	}
	return "", false
}

// DefaultCategory tags records created without one.
const DefaultCategory = "General"

// TransactionRecord is one completed money movement. Records are facts; fields
// are never changed after NewTransactionRecord returns.
type TransactionRecord struct {
	ID        string
	Type      TxType
	From      string // empty for deposits
	To        string // empty for withdrawals
	Amount    money.Money
	Category  string
	CreatedAt time.Time
}

// NewTransactionRecord builds a record and checks its shape.
func NewTransactionRecord(id string, typ TxType, from, to string, amount money.Money, category string, at time.Time) (TransactionRecord, error) {
	if id == "" {
		return TransactionRecord{}, fmt.Errorf("transaction id is required")
	}
	if _, ok := ParseTxType(string(typ)); !ok {
		return TransactionRecord{}, fmt.Errorf("unknown transaction type %q", typ)
	}
	if from == "" && to == "" {
		return TransactionRecord{}, fmt.Errorf("transaction %s references no account", id)
	}
	if amount.IsNegative() {
		return TransactionRecord{}, fmt.Errorf("%w: record amount %s", ErrInvalidAmount, amount)
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}
	return TransactionRecord{
		ID:        id,
		Type:      typ,
		From:      from,
		To:        to,
		Amount:    amount,
		Category:  category,
		CreatedAt: at,
	}, nil
}

// Involves reports whether the record references account number.
func (r TransactionRecord) Involves(number string) bool {
	return number != "" && (r.From == number || r.To == number)
}
