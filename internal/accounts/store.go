// Package accounts persists accounts to a CSV file.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/bankline-dev/bankline/internal/model"
)

// FileName is the accounts file inside a data directory.
const FileName = "accounts.csv"

// LockRetry is how often Open retries a lock held by another process.
const LockRetry = 50 * time.Millisecond

// ErrBusy is returned by Open when ctx ends before the data directory's lock
// is released.
var ErrBusy = errors.New("accounts file is in use")

// FileStore keeps every account in one CSV file. Rows are cached in memory
// and the whole file is rewritten on each change: the new content goes to a
// temporary file which then replaces the old one.
//
// An open FileStore holds an exclusive lock on path+".lock" until Close, so
// the cache is never stale with respect to another process.
type FileStore struct {
	path string
	lock *flock.Flock

	mu   sync.Mutex
	rows map[string]Row
}

// Open locks path, waiting for other holders until ctx ends, and reads it.
// A missing file starts an empty store.
func Open(ctx context.Context, path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating accounts dir: %w", err)
	}
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, LockRetry)
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s: %w", ErrBusy, path, ctx.Err())
	}

	s := &FileStore{path: path, lock: lock, rows: make(map[string]Row)}
	if err := s.load(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return s, nil
}

// OpenDir opens FileName inside dir.
func OpenDir(ctx context.Context, dir string) (*FileStore, error) {
	return Open(ctx, filepath.Join(dir, FileName))
}

// Close releases the file lock. The store must not be used afterwards.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("unlocking %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) load() error {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening accounts file: %w", err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.path, err)
	}
	for _, r := range rows {
		if _, dup := s.rows[r.Account.Number]; dup {
			return fmt.Errorf("reading %s: %w: %s", s.path, model.ErrDuplicateAccount, r.Account.Number)
		}
		s.rows[r.Account.Number] = r
	}
	return nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Create adds acct.
func (s *FileStore) Create(_ context.Context, acct model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[acct.Number]; ok {
		return fmt.Errorf("%w: %s", model.ErrDuplicateAccount, acct.Number)
	}
	s.rows[acct.Number] = Row{Account: acct}
	if err := s.flushLocked(); err != nil {
		delete(s.rows, acct.Number)
		return err
	}
	return nil
}

// FindByNumber returns nil, nil if there is no such account.
func (s *FileStore) FindByNumber(_ context.Context, number string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[number]
	if !ok {
		return nil, nil
	}
	a := r.Account
	return &a, nil
}

// ListAll returns every account ordered by number.
func (s *FileStore) ListAll(_ context.Context) ([]model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Account, 0, len(s.rows))
	for _, r := range s.sortedLocked() {
		out = append(out, r.Account)
	}
	return out, nil
}

// UpdateBalanceAndActivity stores each change's balance and, unless at is
// zero, the last-activity time. Nothing is written if any account is missing
// or no longer holds its Prev balance.
func (s *FileStore) UpdateBalanceAndActivity(_ context.Context, at time.Time, changes ...model.BalanceChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := make(map[string]Row, len(changes))
	for _, c := range changes {
		r, ok := s.rows[c.Account.Number]
		if !ok {
			return fmt.Errorf("%w: %s", model.ErrAccountNotFound, c.Account.Number)
		}
		if !r.Account.Balance.Equal(c.Prev) {
			return fmt.Errorf("%w: %s holds %s, expected %s", model.ErrStaleBalance, c.Account.Number, r.Account.Balance, c.Prev)
		}
		prev[c.Account.Number] = r
	}
	for _, c := range changes {
		r := s.rows[c.Account.Number]
		r.Account.Balance = c.Account.Balance
		if !at.IsZero() {
			r.LastActivity = at
		}
		s.rows[c.Account.Number] = r
	}
	if err := s.flushLocked(); err != nil {
		for number, r := range prev {
			s.rows[number] = r
		}
		return err
	}
	return nil
}

// UpdateStatus stores acct.Status and acct.FailedAttempts.
func (s *FileStore) UpdateStatus(_ context.Context, acct model.Account) error {
	return s.update(acct.Number, func(r *Row) {
		r.Account.Status = acct.Status
		r.Account.FailedAttempts = acct.FailedAttempts
	})
}

// UpdatePin stores acct.PinHash.
func (s *FileStore) UpdatePin(_ context.Context, acct model.Account) error {
	return s.update(acct.Number, func(r *Row) {
		r.Account.PinHash = acct.PinHash
	})
}

// Delete removes the account and reports whether it existed.
func (s *FileStore) Delete(_ context.Context, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[number]
	if !ok {
		return false, nil
	}
	delete(s.rows, number)
	if err := s.flushLocked(); err != nil {
		s.rows[number] = r
		return false, err
	}
	return true, nil
}

// GetLastActivity reports false if the account never moved money.
func (s *FileStore) GetLastActivity(_ context.Context, number string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[number]
	if !ok {
		return time.Time{}, false, fmt.Errorf("%w: %s", model.ErrAccountNotFound, number)
	}
	return r.LastActivity, !r.LastActivity.IsZero(), nil
}

func (s *FileStore) update(number string, apply func(*Row)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.rows[number]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrAccountNotFound, number)
	}
	next := prev
	apply(&next)
	s.rows[number] = next
	if err := s.flushLocked(); err != nil {
		s.rows[number] = prev
		return err
	}
	return nil
}

func (s *FileStore) sortedLocked() []Row {
	rows := make([]Row, 0, len(s.rows))
	for _, r := range s.rows {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Account.Number < rows[j].Account.Number })
	return rows
}

func (s *FileStore) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating accounts file: %w", err)
	}
	if err := WriteRows(f, s.sortedLocked()); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing accounts: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing accounts: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing accounts file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing accounts file: %w", err)
	}
	return nil
}
