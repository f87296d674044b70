package ledger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bankline-dev/bankline/internal/model"
	"github.com/bankline-dev/bankline/internal/validate"
)

// Lock moves an ACTIVE account to LOCKED.
func (l *Ledger) Lock(ctx context.Context, number string) (model.Account, error) {
	return l.changeStatus(ctx, number, model.StatusLocked, model.StatusActive)
}

// Unlock moves a LOCKED account back to ACTIVE and clears its failed PIN count.
func (l *Ledger) Unlock(ctx context.Context, number string) (model.Account, error) {
	return l.changeStatus(ctx, number, model.StatusActive, model.StatusLocked)
}

// Close moves an ACTIVE or LOCKED account to CLOSED and records an
// ACCOUNT_CLOSED entry carrying the closing balance. CLOSED is terminal.
func (l *Ledger) Close(ctx context.Context, number string) (model.Account, model.TransactionRecord, error) {
	number = strings.TrimSpace(number)
	s, err := l.acquire(number)
	if err != nil {
		return model.Account{}, model.TransactionRecord{}, err
	}
	a := s.acct
	if a.Status != model.StatusActive && a.Status != model.StatusLocked {
		s.mu.Unlock()
		return model.Account{}, model.TransactionRecord{}, fmt.Errorf("%w: cannot close %s account %s", model.ErrInvalidTransition, a.Status, number)
	}
	rec, err := l.newRecord(model.TxAccountClosed, number, "", a.Balance, txOptions{category: "Closure"})
	if err != nil {
		s.mu.Unlock()
		return model.Account{}, model.TransactionRecord{}, err
	}
	if err := l.setStatusLocked(ctx, a, model.StatusClosed); err != nil {
		s.mu.Unlock()
		return model.Account{}, model.TransactionRecord{}, err
	}
	closed := *a
	s.mu.Unlock()

	l.appendRecord(ctx, rec)
	l.log.Info("account closed", zap.String("account", number), zap.Stringer("closing_balance", closed.Balance))
	return closed, rec, nil
}

// Delete removes the account from the store and then from the registry.
func (l *Ledger) Delete(ctx context.Context, number string) error {
	number = strings.TrimSpace(number)
	s, err := l.acquire(number)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	removed, err := l.accounts.Delete(ctx, number)
	if err != nil {
		return fmt.Errorf("%w: deleting %s: %w", model.ErrPersistence, number, err)
	}
	if !removed {
		l.log.Warn("account missing from store on delete", zap.String("account", number))
	}
	l.reg.remove(number, s)
	l.log.Info("account deleted", zap.String("account", number))
	return nil
}

// Authenticate checks pin against the account. Each failure increments the
// failed-attempt count and the account locks once it reaches the policy's
// MaxPinAttempts; a success resets the count.
func (l *Ledger) Authenticate(ctx context.Context, number, pin string) (model.Account, error) {
	number = strings.TrimSpace(number)
	s, err := l.acquire(number)
	if err != nil {
		return model.Account{}, err
	}
	defer s.mu.Unlock()
	a := s.acct

	if err := a.Mutable(); err != nil {
		return model.Account{}, err
	}

	if a.VerifyPin(pin) {
		if a.FailedAttempts > 0 {
			prev := a.FailedAttempts
			a.FailedAttempts = 0
			if err := l.accounts.UpdateStatus(ctx, *a); err != nil {
				a.FailedAttempts = prev
				l.log.Warn("resetting failed pin attempts", zap.String("account", number), zap.Error(err))
			}
		}
		return *a, nil
	}

	prev := *a
	a.FailedAttempts++
	locked := false
	if limit := l.policy.MaxPinAttempts; limit > 0 && a.FailedAttempts >= limit {
		a.Status = model.StatusLocked
		locked = true
	}
	if err := l.accounts.UpdateStatus(ctx, *a); err != nil {
		*a = prev
		return model.Account{}, fmt.Errorf("%w: recording failed pin attempt on %s: %w", model.ErrPersistence, number, err)
	}
	if locked {
		l.log.Warn("account locked after failed pin attempts",
			zap.String("account", number),
			zap.Int("attempts", a.FailedAttempts))
		return model.Account{}, fmt.Errorf("%w: %w: %s", model.ErrPinMismatch, model.ErrAccountLocked, number)
	}
	if l.policy.MaxPinAttempts == 0 {
		return model.Account{}, fmt.Errorf("%w: %s", model.ErrPinMismatch, number)
	}
	return model.Account{}, fmt.Errorf("%w: %s (%d of %d attempts)", model.ErrPinMismatch, number, a.FailedAttempts, l.policy.MaxPinAttempts)
}

// ChangePin replaces the account's PIN after checking the current one.
func (l *Ledger) ChangePin(ctx context.Context, number, oldPin, newPin string) error {
	if !validate.Pin(newPin) {
		return fmt.Errorf("%w: pin must be 4 digits", model.ErrInvalidPin)
	}
	number = strings.TrimSpace(number)
	s, err := l.acquire(number)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()
	a := s.acct

	if a.Status == model.StatusClosed {
		return fmt.Errorf("%w: %s", model.ErrAccountClosed, number)
	}
	if !a.VerifyPin(oldPin) {
		return fmt.Errorf("%w: %s", model.ErrPinMismatch, number)
	}
	prev := a.PinHash
	if err := a.SetPin(newPin, l.pinCost); err != nil {
		return err
	}
	if err := l.accounts.UpdatePin(ctx, *a); err != nil {
		a.PinHash = prev
		return fmt.Errorf("%w: updating pin for %s: %w", model.ErrPersistence, number, err)
	}
	return nil
}

// changeStatus moves an account in status from to status to.
func (l *Ledger) changeStatus(ctx context.Context, number string, to, from model.Status) (model.Account, error) {
	number = strings.TrimSpace(number)
	s, err := l.acquire(number)
	if err != nil {
		return model.Account{}, err
	}
	defer s.mu.Unlock()
	a := s.acct

	if a.Status == model.StatusClosed {
		return model.Account{}, fmt.Errorf("%w: %s", model.ErrAccountClosed, number)
	}
	if a.Status != from {
		return model.Account{}, fmt.Errorf("%w: account %s is %s, expected %s", model.ErrInvalidTransition, number, a.Status, from)
	}
	if err := l.setStatusLocked(ctx, a, to); err != nil {
		return model.Account{}, err
	}
	l.log.Info("account status changed",
		zap.String("account", number),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return *a, nil
}

// setStatusLocked applies and persists a status change, reverting on failure.
// Unlocking also clears the failed PIN count.
func (l *Ledger) setStatusLocked(ctx context.Context, a *model.Account, to model.Status) error {
	prev := *a
	if err := a.SetStatus(to); err != nil {
		return err
	}
	if prev.Status == model.StatusLocked && to == model.StatusActive {
		a.FailedAttempts = 0
	}
	if err := l.accounts.UpdateStatus(ctx, *a); err != nil {
		*a = prev
		return fmt.Errorf("%w: updating status of %s: %w", model.ErrPersistence, a.Number, err)
	}
	return nil
}
