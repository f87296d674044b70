package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankline-dev/bankline/internal/money"
)

var testTime = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func TestNewTransactionRecord(t *testing.T) {
	rec, err := NewTransactionRecord("tx-1", TxDeposit, "", "12345678901", money.MustParse("10"), "  ", testTime)
	require.NoError(t, err)
	assert.Equal(t, DefaultCategory, rec.Category)
	assert.Equal(t, "10.00", rec.Amount.String())
	assert.True(t, rec.Involves("12345678901"))
	assert.False(t, rec.Involves(""))

	rec, err = NewTransactionRecord("tx-2", TxTransfer, "11111111111", "22222222222", money.MustParse("5"), "Rent", testTime)
	require.NoError(t, err)
	assert.Equal(t, "Rent", rec.Category)
}

func TestNewTransactionRecord_Errors(t *testing.T) {
	_, err := NewTransactionRecord("", TxDeposit, "", "1", money.MustParse("1"), "", testTime)
	assert.Error(t, err)

	_, err = NewTransactionRecord("tx", TxType("REFUND"), "", "1", money.MustParse("1"), "", testTime)
	assert.Error(t, err)

	_, err = NewTransactionRecord("tx", TxDeposit, "", "", money.MustParse("1"), "", testTime)
	assert.Error(t, err)

	_, err = NewTransactionRecord("tx", TxDeposit, "", "1", money.MustParse("-1"), "", testTime)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
