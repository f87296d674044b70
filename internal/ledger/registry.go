package ledger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bankline-dev/bankline/internal/model"
)

// slot owns one account. Its mutex is held for the duration of a single
// ledger operation on that account.
type slot struct {
	mu      sync.Mutex
	acct    *model.Account
	removed bool // set under mu when the account leaves the registry
}

// Registry maps account numbers to accounts. Lookups and inserts are safe
// for concurrent use; mutating an account requires holding its slot lock.
type Registry struct {
	mu    sync.RWMutex
	slots map[string]*slot
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]*slot)}
}

// Len returns the number of registered accounts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}

// insertLocked registers acct and returns its slot with the slot lock held.
func (r *Registry) insertLocked(acct *model.Account) (*slot, error) {
	s := &slot{acct: acct}
	s.mu.Lock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[acct.Number]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", model.ErrDuplicateAccount, acct.Number)
	}
	r.slots[acct.Number] = s
	return s, nil
}

// remove drops number from the registry. The caller holds the slot lock.
func (r *Registry) remove(number string, s *slot) {
	s.removed = true
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slots[number] == s {
		delete(r.slots, number)
	}
}

func (r *Registry) lookup(number string) (*slot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slots[number]
	return s, ok
}

// numbers returns every registered account number in ascending order.
func (r *Registry) numbers() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.slots))
	for n := range r.slots {
		out = append(out, n)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// lockPair locks two distinct slots in ascending account-number order so
// that opposing transfers between the same accounts cannot deadlock.
func lockPair(aNum string, a *slot, bNum string, b *slot) (unlock func()) {
	first, second := a, b
	if bNum < aNum {
		first, second = b, a
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}
