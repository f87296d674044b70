package runlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankline-dev/bankline/internal/ledger"
	"github.com/bankline-dev/bankline/internal/model"
	"github.com/bankline-dev/bankline/internal/money"
)

var testTime = time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp:     testTime,
		Job:           JobInterest,
		Action:        "credit",
		Details:       "credited 5.00",
		AccountNumber: "10000000001",
		TxID:          "6f1c2a9e-0000-4000-8000-000000000001",
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	data, err := os.ReadFile(filepath.Join(dir, "logs", "batch-log.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), Header+"\n"))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testEntry(), entries[0])
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Job = JobFlagInactive
	e2.Action = "flag"
	e2.TxID = ""
	require.NoError(t, Append(dir, []Entry{e2}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, JobInterest, entries[0].Job)
	assert.Equal(t, JobFlagInactive, entries[1].Job)
}

func TestRead_NoFile(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUnmarshalEntry_BadTimestamp(t *testing.T) {
	row := MarshalEntry(testEntry())
	row[colTimestamp] = "yesterday"
	_, err := UnmarshalEntry(row)
	assert.ErrorContains(t, err, "parsing timestamp")

	_, err = UnmarshalEntry(row[:3])
	assert.ErrorContains(t, err, "expected 6 fields")
}

func TestInterestEntries(t *testing.T) {
	rec, err := model.NewTransactionRecord("tx-1", model.TxDeposit, "", "10000000001",
		money.MustParse("5.00"), ledger.InterestCategory, testTime)
	require.NoError(t, err)

	entries := InterestEntries(testTime, ledger.InterestResult{
		Credited: []model.TransactionRecord{rec},
		Skipped:  []string{"10000000002"},
	}, nil)
	require.Len(t, entries, 2)
	assert.Equal(t, "10000000001", entries[0].AccountNumber)
	assert.Equal(t, "tx-1", entries[0].TxID)
	assert.Equal(t, "credited 5.00", entries[0].Details)
	assert.Equal(t, "complete", entries[1].Action)
	assert.Equal(t, "1 credited, 1 skipped", entries[1].Details)
}

func TestFlagEntriesPartial(t *testing.T) {
	runErr := errors.Join(errors.New("a failed"), errors.New("b failed"))
	entries := FlagEntries(testTime, ledger.FlagResult{Flagged: []string{"10000000001"}}, runErr)
	require.Len(t, entries, 2)
	assert.Equal(t, "flag", entries[0].Action)
	assert.Equal(t, "partial", entries[1].Action)
	assert.Equal(t, "1 flagged; errors: a failed; b failed", entries[1].Details)
}
