package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bankline-dev/bankline/internal/model"
	"github.com/bankline-dev/bankline/internal/money"
)

var errStoreDown = errors.New("store unavailable")

// memAccounts is an in-memory AccountStore with switchable failures.
type memAccounts struct {
	mu       sync.Mutex
	accts    map[string]model.Account
	activity map[string]time.Time

	failCreate error
	// failUpdate, when set, is consulted for every balance update.
	failUpdate func(number string) error
	failStatus error
	failPin    error
}

func newMemAccounts() *memAccounts {
	return &memAccounts{
		accts:    make(map[string]model.Account),
		activity: make(map[string]time.Time),
	}
}

func (m *memAccounts) Create(_ context.Context, acct model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	if _, ok := m.accts[acct.Number]; ok {
		return fmt.Errorf("%w: %s", model.ErrDuplicateAccount, acct.Number)
	}
	m.accts[acct.Number] = acct
	return nil
}

func (m *memAccounts) FindByNumber(_ context.Context, number string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accts[number]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *memAccounts) ListAll(_ context.Context) ([]model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Account, 0, len(m.accts))
	for _, a := range m.accts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *memAccounts) UpdateBalanceAndActivity(_ context.Context, at time.Time, changes ...model.BalanceChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range changes {
		if m.failUpdate != nil {
			if err := m.failUpdate(c.Account.Number); err != nil {
				return err
			}
		}
		stored, ok := m.accts[c.Account.Number]
		if !ok {
			return fmt.Errorf("%w: %s", model.ErrAccountNotFound, c.Account.Number)
		}
		if !stored.Balance.Equal(c.Prev) {
			return fmt.Errorf("%w: %s", model.ErrStaleBalance, c.Account.Number)
		}
	}
	for _, c := range changes {
		stored := m.accts[c.Account.Number]
		stored.Balance = c.Account.Balance
		m.accts[c.Account.Number] = stored
		if !at.IsZero() {
			m.activity[c.Account.Number] = at
		}
	}
	return nil
}

// setBalance changes the stored balance behind the ledger's back, as another
// process sharing the store would.
func (m *memAccounts) setBalance(number string, b money.Money) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.accts[number]
	a.Balance = b
	m.accts[number] = a
}

func (m *memAccounts) lastActivity(number string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.activity[number]
	return at, ok
}

func (m *memAccounts) UpdateStatus(_ context.Context, acct model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failStatus != nil {
		return m.failStatus
	}
	stored, ok := m.accts[acct.Number]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrAccountNotFound, acct.Number)
	}
	stored.Status = acct.Status
	stored.FailedAttempts = acct.FailedAttempts
	m.accts[acct.Number] = stored
	return nil
}

func (m *memAccounts) UpdatePin(_ context.Context, acct model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPin != nil {
		return m.failPin
	}
	stored, ok := m.accts[acct.Number]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrAccountNotFound, acct.Number)
	}
	stored.PinHash = acct.PinHash
	m.accts[acct.Number] = stored
	return nil
}

func (m *memAccounts) Delete(_ context.Context, number string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.accts[number]
	delete(m.accts, number)
	delete(m.activity, number)
	return ok, nil
}

func (m *memAccounts) GetLastActivity(_ context.Context, number string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.activity[number]
	return at, ok, nil
}

func (m *memAccounts) stored(number string) model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accts[number]
}

// memTxs is an in-memory TxStore.
type memTxs struct {
	mu         sync.Mutex
	recs       []model.TransactionRecord
	failAppend error
}

func (m *memTxs) Append(_ context.Context, rec model.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend != nil {
		return m.failAppend
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memTxs) ListForAccount(_ context.Context, number string) ([]model.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TransactionRecord
	for i := len(m.recs) - 1; i >= 0; i-- {
		if m.recs[i].Involves(number) {
			out = append(out, m.recs[i])
		}
	}
	return out, nil
}

func (m *memTxs) all() []model.TransactionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.TransactionRecord(nil), m.recs...)
}
