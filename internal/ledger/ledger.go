// Package ledger owns account state and runs every money movement: deposits,
// withdrawals and transfers, plus the status changes and batch jobs layered
// on top of them.
//
// Each operation validates its input before touching state, holds the lock of
// every account it mutates for the whole call, persists the new balances, and
// only then hands a TransactionRecord to the transaction log. A failed log
// append is logged and never undoes a committed balance change.
package ledger

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bankline-dev/bankline/internal/id"
	"github.com/bankline-dev/bankline/internal/model"
	"github.com/bankline-dev/bankline/internal/money"
	"github.com/bankline-dev/bankline/internal/validate"
)

// Policy holds the tunable business rules.
type Policy struct {
	// MinimumBalance must remain after a withdrawal or outgoing transfer.
	MinimumBalance money.Money
	// MonthlyInterestRate is applied by ApplyMonthlyInterest.
	MonthlyInterestRate decimal.Decimal
	// InactivityPeriod after which FlagInactiveAccounts marks an account.
	InactivityPeriod time.Duration
	// MaxPinAttempts consecutive failures lock the account. Zero disables lockout.
	MaxPinAttempts int
}

// DefaultPolicy returns the standard rules: 100.00 floor, 0.5% monthly
// interest, 365 days of inactivity, lockout after 3 bad PINs.
func DefaultPolicy() Policy {
	return Policy{
		MinimumBalance:      money.MustParse("100.00"),
		MonthlyInterestRate: decimal.RequireFromString("0.005"),
		InactivityPeriod:    365 * 24 * time.Hour,
		MaxPinAttempts:      3,
	}
}

// Ledger is the authoritative manager of accounts.
type Ledger struct {
	reg      *Registry
	accounts AccountStore
	txs      TxStore

	policy  Policy
	log     *zap.Logger
	now     func() time.Time
	random  io.Reader
	pinCost int

	// credit applies the destination side of a transfer.
	credit func(a *model.Account, amt money.Money) error

	appendMu sync.Mutex
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option { return func(l *Ledger) { l.policy = p } }

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option { return func(l *Ledger) { l.log = log } }

// WithClock sets the time source.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// WithRandom sets the entropy source for generated account numbers.
func WithRandom(r io.Reader) Option { return func(l *Ledger) { l.random = r } }

// WithPinCost sets the bcrypt cost used when hashing PINs.
func WithPinCost(cost int) Option { return func(l *Ledger) { l.pinCost = cost } }

// New creates a Ledger over reg, persisting through accounts and txs.
func New(reg *Registry, accounts AccountStore, txs TxStore, opts ...Option) *Ledger {
	l := &Ledger{
		reg:      reg,
		accounts: accounts,
		txs:      txs,
		policy:   DefaultPolicy(),
		log:      zap.NewNop(),
		now:      time.Now,
		random:   rand.Reader,
		pinCost:  bcrypt.DefaultCost,
		credit:   (*model.Account).Deposit,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy returns the rules the ledger enforces.
func (l *Ledger) Policy() Policy { return l.policy }

// Load fills the registry from the account store. It returns the number of
// accounts loaded.
func (l *Ledger) Load(ctx context.Context) (int, error) {
	accts, err := l.accounts.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: listing accounts: %w", model.ErrPersistence, err)
	}
	for i := range accts {
		a := accts[i]
		s, err := l.reg.insertLocked(&a)
		if err != nil {
			return i, fmt.Errorf("loading accounts: %w", err)
		}
		s.mu.Unlock()
	}
	return len(accts), nil
}

// CreateAccountParams describes a new account. Strings are trimmed before
// validation.
type CreateAccountParams struct {
	Number         string // generated when empty
	HolderName     string
	Email          string // optional
	Pin            string
	Type           string // SAVINGS when empty
	InitialDeposit decimal.Decimal
}

// CreateAccount validates p, registers the account and persists it. If the
// store rejects the account it is removed from the registry again.
func (l *Ledger) CreateAccount(ctx context.Context, p CreateAccountParams) (model.Account, error) {
	number := strings.TrimSpace(p.Number)
	if number == "" {
		generated, err := id.NewAccountNumber(l.random)
		if err != nil {
			return model.Account{}, err
		}
		number = generated
	}
	if !validate.AccountNumber(number) {
		return model.Account{}, fmt.Errorf("%w: %q must be %d digits", model.ErrInvalidAccountNumber, number, id.AccountNumberLen)
	}

	name := strings.TrimSpace(p.HolderName)
	if !validate.HolderName(name) {
		return model.Account{}, fmt.Errorf("%w: %q", model.ErrInvalidHolderName, name)
	}

	email := strings.TrimSpace(p.Email)
	if email != "" && !validate.Email(email) {
		return model.Account{}, fmt.Errorf("%w: %q", model.ErrInvalidEmail, email)
	}

	if !validate.Pin(p.Pin) {
		return model.Account{}, fmt.Errorf("%w: pin must be 4 digits", model.ErrInvalidPin)
	}

	typ := model.AccountTypeSavings
	if strings.TrimSpace(p.Type) != "" {
		t, ok := model.ParseAccountType(p.Type)
		if !ok {
			return model.Account{}, fmt.Errorf("%w: %q", model.ErrInvalidAccountType, p.Type)
		}
		typ = t
	}

	opening, err := money.NewNonNegative(p.InitialDeposit)
	if err != nil {
		return model.Account{}, err
	}
	openingDec := opening.Decimal()
	if !validate.InitialDeposit(string(typ), &openingDec) {
		return model.Account{}, fmt.Errorf("%w: %s accounts need at least %s, got %s",
			model.ErrInitialDepositTooLow, typ, validate.MinInitialDeposit.StringFixed(money.Scale), opening)
	}

	acct := &model.Account{
		Number:     number,
		HolderName: name,
		Email:      email,
		Type:       typ,
		Balance:    opening,
		Status:     model.StatusActive,
		CreatedAt:  l.now(),
	}
	if err := acct.SetPin(p.Pin, l.pinCost); err != nil {
		return model.Account{}, err
	}

	s, err := l.reg.insertLocked(acct)
	if err != nil {
		return model.Account{}, err
	}
	defer s.mu.Unlock()

	if err := l.accounts.Create(ctx, *acct); err != nil {
		l.reg.remove(number, s)
		if errors.Is(err, model.ErrDuplicateAccount) {
			return model.Account{}, err
		}
		return model.Account{}, fmt.Errorf("%w: creating account %s: %w", model.ErrPersistence, number, err)
	}

	l.log.Info("account created",
		zap.String("account", number),
		zap.String("type", string(typ)),
		zap.Stringer("opening_balance", opening))
	return *acct, nil
}

// TxOption adjusts the record a money movement emits.
type TxOption func(*txOptions)

type txOptions struct {
	category string
}

// WithCategory tags the emitted record.
func WithCategory(category string) TxOption {
	return func(o *txOptions) { o.category = category }
}

func buildTxOptions(opts []TxOption) txOptions {
	var o txOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Deposit credits amount to the account and returns the DEPOSIT record.
func (l *Ledger) Deposit(ctx context.Context, number string, amount decimal.Decimal, opts ...TxOption) (model.TransactionRecord, error) {
	amt, err := positiveAmount(amount)
	if err != nil {
		return model.TransactionRecord{}, err
	}
	number = strings.TrimSpace(number)
	s, err := l.acquire(number)
	if err != nil {
		return model.TransactionRecord{}, err
	}

	rec, err := l.newRecord(model.TxDeposit, "", number, amt, buildTxOptions(opts))
	if err != nil {
		s.mu.Unlock()
		return model.TransactionRecord{}, err
	}

	err = l.commitSingle(ctx, s, rec.CreatedAt, func(a *model.Account) error {
		return a.Deposit(amt)
	})
	s.mu.Unlock()
	if err != nil {
		return model.TransactionRecord{}, err
	}

	l.appendRecord(ctx, rec)
	return rec, nil
}

// Withdraw debits amount from the account and returns the WITHDRAW record.
// The account must keep at least the policy's minimum balance afterwards.
func (l *Ledger) Withdraw(ctx context.Context, number string, amount decimal.Decimal, opts ...TxOption) (model.TransactionRecord, error) {
	amt, err := positiveAmount(amount)
	if err != nil {
		return model.TransactionRecord{}, err
	}
	number = strings.TrimSpace(number)
	s, err := l.acquire(number)
	if err != nil {
		return model.TransactionRecord{}, err
	}

	rec, err := l.newRecord(model.TxWithdraw, number, "", amt, buildTxOptions(opts))
	if err != nil {
		s.mu.Unlock()
		return model.TransactionRecord{}, err
	}

	err = l.commitSingle(ctx, s, rec.CreatedAt, func(a *model.Account) error {
		if err := l.checkDebit(a, amt); err != nil {
			return err
		}
		return a.Withdraw(amt)
	})
	s.mu.Unlock()
	if err != nil {
		return model.TransactionRecord{}, err
	}

	l.appendRecord(ctx, rec)
	return rec, nil
}

// Transfer moves amount from one account to another and returns the single
// TRANSFER record. Both accounts are validated before either is changed.
func (l *Ledger) Transfer(ctx context.Context, from, to string, amount decimal.Decimal, opts ...TxOption) (model.TransactionRecord, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == to {
		return model.TransactionRecord{}, fmt.Errorf("%w: %s", model.ErrSameAccountTransfer, from)
	}
	amt, err := positiveAmount(amount)
	if err != nil {
		return model.TransactionRecord{}, err
	}

	src, ok := l.reg.lookup(from)
	if !ok {
		return model.TransactionRecord{}, fmt.Errorf("%w: source %s", model.ErrAccountNotFound, from)
	}
	dst, ok := l.reg.lookup(to)
	if !ok {
		return model.TransactionRecord{}, fmt.Errorf("%w: destination %s", model.ErrAccountNotFound, to)
	}

	rec, err := l.transferLocked(ctx, from, src, to, dst, amt, buildTxOptions(opts))
	if err != nil {
		return model.TransactionRecord{}, err
	}
	l.appendRecord(ctx, rec)
	return rec, nil
}

// transferLocked performs the two-account update while holding both locks.
func (l *Ledger) transferLocked(ctx context.Context, from string, src *slot, to string, dst *slot, amt money.Money, o txOptions) (model.TransactionRecord, error) {
	unlock := lockPair(from, src, to, dst)
	defer unlock()

	if src.removed {
		return model.TransactionRecord{}, fmt.Errorf("%w: source %s", model.ErrAccountNotFound, from)
	}
	if dst.removed {
		return model.TransactionRecord{}, fmt.Errorf("%w: destination %s", model.ErrAccountNotFound, to)
	}
	if err := src.acct.Mutable(); err != nil {
		return model.TransactionRecord{}, err
	}
	if err := dst.acct.Mutable(); err != nil {
		return model.TransactionRecord{}, err
	}
	if err := l.checkDebit(src.acct, amt); err != nil {
		return model.TransactionRecord{}, err
	}

	rec, err := l.newRecord(model.TxTransfer, from, to, amt, o)
	if err != nil {
		return model.TransactionRecord{}, err
	}

	prevSrc, prevDst := *src.acct, *dst.acct
	if err := src.acct.Withdraw(amt); err != nil {
		return model.TransactionRecord{}, err
	}
	if err := l.credit(dst.acct, amt); err != nil {
		*src.acct, *dst.acct = prevSrc, prevDst
		l.log.Error("transfer compensated",
			zap.String("from", from),
			zap.String("to", to),
			zap.Stringer("amount", amt),
			zap.Error(err))
		return model.TransactionRecord{}, fmt.Errorf("%w: crediting %s: %w", model.ErrConsistency, to, err)
	}

	err = l.accounts.UpdateBalanceAndActivity(ctx, rec.CreatedAt,
		model.BalanceChange{Account: *src.acct, Prev: prevSrc.Balance},
		model.BalanceChange{Account: *dst.acct, Prev: prevDst.Balance})
	if err != nil {
		*src.acct, *dst.acct = prevSrc, prevDst
		return model.TransactionRecord{}, fmt.Errorf("%w: transfer %s to %s: %w", model.ErrPersistence, from, to, err)
	}
	l.reactivate(ctx, src.acct)
	l.reactivate(ctx, dst.acct)
	return rec, nil
}

// GetAccount returns a copy of the account.
func (l *Ledger) GetAccount(number string) (model.Account, error) {
	s, err := l.acquire(strings.TrimSpace(number))
	if err != nil {
		return model.Account{}, err
	}
	defer s.mu.Unlock()
	return *s.acct, nil
}

// GetBalance returns the account's current balance.
func (l *Ledger) GetBalance(number string) (money.Money, error) {
	a, err := l.GetAccount(number)
	if err != nil {
		return money.Money{}, err
	}
	return a.Balance, nil
}

// ListAccounts returns copies of every account ordered by number.
func (l *Ledger) ListAccounts() []model.Account {
	nums := l.reg.numbers()
	out := make([]model.Account, 0, len(nums))
	for _, n := range nums {
		s, ok := l.reg.lookup(n)
		if !ok {
			continue
		}
		s.mu.Lock()
		if !s.removed {
			out = append(out, *s.acct)
		}
		s.mu.Unlock()
	}
	return out
}

// VerifyPin reports whether pin matches the account's PIN. Unknown accounts
// never match.
func (l *Ledger) VerifyPin(number, pin string) bool {
	a, err := l.GetAccount(number)
	if err != nil {
		return false
	}
	return a.VerifyPin(pin)
}

// Statement returns up to limit records for the account, newest first.
// A limit <= 0 returns every record.
func (l *Ledger) Statement(ctx context.Context, number string, limit int) ([]model.TransactionRecord, error) {
	number = strings.TrimSpace(number)
	if _, err := l.GetAccount(number); err != nil {
		return nil, err
	}
	recs, err := l.txs.ListForAccount(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("%w: listing transactions for %s: %w", model.ErrPersistence, number, err)
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// acquire looks up number and returns its slot locked.
func (l *Ledger) acquire(number string) (*slot, error) {
	s, ok := l.reg.lookup(number)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrAccountNotFound, number)
	}
	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", model.ErrAccountNotFound, number)
	}
	return s, nil
}

// commitSingle applies mutate to the locked account, persists the new
// balance and reverts the in-memory account if persisting fails.
func (l *Ledger) commitSingle(ctx context.Context, s *slot, at time.Time, mutate func(*model.Account) error) error {
	a := s.acct
	if err := a.Mutable(); err != nil {
		return err
	}
	prev := *a
	if err := mutate(a); err != nil {
		*a = prev
		return err
	}
	if err := l.accounts.UpdateBalanceAndActivity(ctx, at, model.BalanceChange{Account: *a, Prev: prev.Balance}); err != nil {
		*a = prev
		return fmt.Errorf("%w: updating %s: %w", model.ErrPersistence, a.Number, err)
	}
	l.reactivate(ctx, a)
	return nil
}

// checkDebit rejects a debit the account cannot cover or that would leave
// less than the minimum balance. It does not change the account.
func (l *Ledger) checkDebit(a *model.Account, amt money.Money) error {
	if amt.GreaterThan(a.Balance) {
		return fmt.Errorf("%w: account %s has %s, requested %s", model.ErrInsufficientFunds, a.Number, a.Balance, amt)
	}
	residual := a.Balance.Sub(amt)
	if residual.LessThan(l.policy.MinimumBalance) {
		return fmt.Errorf("%w: account %s would keep %s, minimum is %s",
			model.ErrMinimumBalanceViolation, a.Number, residual, l.policy.MinimumBalance)
	}
	return nil
}

// positiveAmount accepts amount only if validate.PositiveAmount does and
// returns it normalized.
func positiveAmount(amount decimal.Decimal) (money.Money, error) {
	if !validate.PositiveAmount(&amount) {
		return money.Money{}, fmt.Errorf("%w: %s is not positive once rounded to cents", model.ErrInvalidAmount, amount)
	}
	return money.Normalize(amount), nil
}

// reactivate returns an INACTIVE account to ACTIVE after a committed money
// movement. A failure to persist the status is logged and the status reverts.
func (l *Ledger) reactivate(ctx context.Context, a *model.Account) {
	if a.Status != model.StatusInactive {
		return
	}
	a.Status = model.StatusActive
	if err := l.accounts.UpdateStatus(ctx, *a); err != nil {
		a.Status = model.StatusInactive
		l.log.Warn("reactivating account", zap.String("account", a.Number), zap.Error(err))
	}
}

func (l *Ledger) newRecord(typ model.TxType, from, to string, amt money.Money, o txOptions) (model.TransactionRecord, error) {
	rec, err := model.NewTransactionRecord(id.NewTxID(), typ, from, to, amt, o.category, l.now())
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("%w: %w", model.ErrConsistency, err)
	}
	return rec, nil
}

// appendRecord writes rec to the transaction log. Appends are serialized; a
// failure is logged and otherwise ignored.
func (l *Ledger) appendRecord(ctx context.Context, rec model.TransactionRecord) {
	l.appendMu.Lock()
	err := l.txs.Append(ctx, rec)
	l.appendMu.Unlock()
	if err != nil {
		l.log.Warn("appending transaction record",
			zap.String("tx_id", rec.ID),
			zap.String("type", string(rec.Type)),
			zap.String("from", rec.From),
			zap.String("to", rec.To),
			zap.Stringer("amount", rec.Amount),
			zap.Error(err))
		return
	}
	l.log.Debug("transaction recorded",
		zap.String("tx_id", rec.ID),
		zap.String("type", string(rec.Type)),
		zap.Stringer("amount", rec.Amount))
}
