package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankline-dev/bankline/internal/model"
	"github.com/bankline-dev/bankline/internal/money"
)

func TestValidateRecordsClean(t *testing.T) {
	recs := []model.TransactionRecord{
		record(t, model.TxDeposit, "", "10000000001", "10.00", 0),
		record(t, model.TxWithdraw, "10000000001", "", "5.00", 0),
		record(t, model.TxTransfer, "10000000001", "10000000002", "1.00", 0),
		record(t, model.TxAccountClosed, "10000000001", "", "0.00", 0),
	}
	assert.Empty(t, ValidateRecords(recs))
}

func TestValidateRecordsFindsProblems(t *testing.T) {
	dup := record(t, model.TxDeposit, "", "10000000001", "10.00", 0)

	badDeposit := record(t, model.TxDeposit, "", "10000000001", "10.00", 0)
	badDeposit.From = "10000000002"

	selfTransfer := record(t, model.TxTransfer, "10000000001", "10000000002", "1.00", 0)
	selfTransfer.To = selfTransfer.From

	zeroWithdraw := record(t, model.TxWithdraw, "10000000001", "", "1.00", 0)
	zeroWithdraw.Amount = money.Zero

	badID := record(t, model.TxDeposit, "", "10000000001", "1.00", 0)
	badID.ID = "not-a-uuid"

	errs := ValidateRecords([]model.TransactionRecord{dup, dup, badDeposit, selfTransfer, zeroWithdraw, badID})
	require.Len(t, errs, 5)

	assert.Equal(t, dup.ID, errs[0].TxID)
	assert.Contains(t, errs[0].Description, "duplicate")
	assert.Contains(t, errs[1].Description, "only a destination")
	assert.Contains(t, errs[2].Description, "to itself")
	assert.Contains(t, errs[3].Description, "must be positive")
	assert.Contains(t, errs[4].Error(), "[not-a-uuid]: malformed id")
}
