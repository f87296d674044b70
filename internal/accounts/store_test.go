package accounts

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankline-dev/bankline/internal/ledger"
	"github.com/bankline-dev/bankline/internal/model"
	"github.com/bankline-dev/bankline/internal/money"
)

var _ ledger.AccountStore = (*FileStore)(nil)

// openStore opens the store in dir and closes it when the test ends.
func openStore(t *testing.T, dir string) *FileStore {
	t.Helper()
	s, err := OpenDir(context.Background(), dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func change(a model.Account, prev string) model.BalanceChange {
	return model.BalanceChange{Account: a, Prev: money.MustParse(prev)}
}

func TestOpenMissingFile(t *testing.T) {
	s := openStore(t, t.TempDir())

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileStorePersists(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")

	s := openStore(t, dir)
	require.NoError(t, s.Create(ctx, sampleAccount("10000000002", "500.00")))
	require.NoError(t, s.Create(ctx, sampleAccount("10000000001", "1000.00")))

	err := s.Create(ctx, sampleAccount("10000000001", "1.00"))
	require.ErrorIs(t, err, model.ErrDuplicateAccount)

	a := sampleAccount("10000000001", "750.25")
	at := created.Add(48 * time.Hour)
	require.NoError(t, s.UpdateBalanceAndActivity(ctx, at, change(a, "1000.00")))

	a.Status = model.StatusLocked
	a.FailedAttempts = 3
	require.NoError(t, s.UpdateStatus(ctx, a))

	a.PinHash = "new-hash"
	require.NoError(t, s.UpdatePin(ctx, a))
	require.NoError(t, s.Close())

	reopened := openStore(t, dir)

	all, err := reopened.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "10000000001", all[0].Number, "ordered by number")

	got, err := reopened.FindByNumber(ctx, "10000000001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "750.25", got.Balance.String())
	assert.Equal(t, model.StatusLocked, got.Status)
	assert.Equal(t, 3, got.FailedAttempts)
	assert.Equal(t, "new-hash", got.PinHash)

	last, ok, err := reopened.GetLastActivity(ctx, "10000000001")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(last))

	_, ok, err = reopened.GetLastActivity(ctx, "10000000002")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = os.Stat(filepath.Join(dir, FileName+".tmp"))
	assert.True(t, os.IsNotExist(err), "temporary file is renamed away")
}

func TestZeroActivityKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())

	a := sampleAccount("10000000001", "100.00")
	require.NoError(t, s.Create(ctx, a))
	at := created.Add(time.Hour)
	require.NoError(t, s.UpdateBalanceAndActivity(ctx, at, change(a, "100.00")))

	a.Balance = money.MustParse("100.50")
	require.NoError(t, s.UpdateBalanceAndActivity(ctx, time.Time{}, change(a, "100.00")))

	last, ok, err := s.GetLastActivity(ctx, a.Number)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(last))
}

func TestUpdateMissingAccount(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())

	err := s.UpdateBalanceAndActivity(ctx, time.Time{}, change(sampleAccount("10000000009", "1.00"), "0.00"))
	assert.ErrorIs(t, err, model.ErrAccountNotFound)

	got, err := s.FindByNumber(ctx, "10000000009")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)
	require.NoError(t, s.Create(ctx, sampleAccount("10000000001", "100.00")))

	removed, err := s.Delete(ctx, "10000000001")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Delete(ctx, "10000000001")
	require.NoError(t, err)
	assert.False(t, removed)
	require.NoError(t, s.Close())

	reopened := openStore(t, dir)
	all, err := reopened.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOpenRejectsDuplicateRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteRows(f, []Row{
		{Account: sampleAccount("10000000001", "1.00")},
		{Account: sampleAccount("10000000001", "2.00")},
	}))
	require.NoError(t, f.Close())

	_, err = Open(context.Background(), path)
	assert.ErrorIs(t, err, model.ErrDuplicateAccount)

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	require.NoError(t, err)
	assert.True(t, locked, "a failed open releases the lock")
	require.NoError(t, lock.Unlock())
}

func TestSecondHandleWaitsForLock(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := OpenDir(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, first.Create(ctx, sampleAccount("10000000001", "1000.00")))

	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = OpenDir(short, dir)
	require.ErrorIs(t, err, ErrBusy)

	done := make(chan error, 1)
	go func() {
		second, err := OpenDir(ctx, dir)
		if err != nil {
			done <- err
			return
		}
		defer second.Close()
		done <- second.Create(ctx, sampleAccount("10000000002", "500.00"))
	}()

	a := sampleAccount("10000000001", "900.00")
	require.NoError(t, first.UpdateBalanceAndActivity(ctx, created, change(a, "1000.00")))
	require.NoError(t, first.Close())
	require.NoError(t, <-done)

	all, err := openStore(t, dir).ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2, "neither handle loses the other's writes")
	assert.Equal(t, "900.00", all[0].Balance.String())
	assert.Equal(t, "10000000002", all[1].Number)
}

func TestStaleBalanceWritesNothing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)
	require.NoError(t, s.Create(ctx, sampleAccount("10000000001", "100.00")))
	require.NoError(t, s.Create(ctx, sampleAccount("10000000002", "200.00")))

	err := s.UpdateBalanceAndActivity(ctx, created,
		change(sampleAccount("10000000001", "50.00"), "100.00"),
		change(sampleAccount("10000000002", "250.00"), "199.00"))
	require.ErrorIs(t, err, model.ErrStaleBalance)

	got, err := s.FindByNumber(ctx, "10000000001")
	require.NoError(t, err)
	assert.Equal(t, "100.00", got.Balance.String(), "first change is not applied alone")
	_, ok, err := s.GetLastActivity(ctx, "10000000001")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerOverFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)

	l := ledger.New(ledger.NewRegistry(), s, nopTxs{}, ledger.WithPinCost(4))
	_, err := l.CreateAccount(ctx, ledger.CreateAccountParams{
		Number:         "10000000001",
		HolderName:     "Jane Doe",
		Pin:            "1234",
		InitialDeposit: money.MustParse("5000").Decimal(),
	})
	require.NoError(t, err)
	_, err = l.Withdraw(ctx, "10000000001", money.MustParse("1000").Decimal())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened := openStore(t, dir)
	l2 := ledger.New(ledger.NewRegistry(), reopened, nopTxs{})
	n, err := l2.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	b, err := l2.GetBalance("10000000001")
	require.NoError(t, err)
	assert.Equal(t, "4000.00", b.String())
}

type nopTxs struct{}

func (nopTxs) Append(context.Context, model.TransactionRecord) error { return nil }

func (nopTxs) ListForAccount(context.Context, string) ([]model.TransactionRecord, error) {
	return nil, nil
}
