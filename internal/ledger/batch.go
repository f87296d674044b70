package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bankline-dev/bankline/internal/model"
)

// InterestCategory tags records emitted by ApplyMonthlyInterest.
const InterestCategory = "Interest"

// InterestResult summarizes one ApplyMonthlyInterest run.
type InterestResult struct {
	Credited []model.TransactionRecord
	Skipped  []string // closed accounts and balances too small to earn 0.01
}

// ApplyMonthlyInterest credits balance × MonthlyInterestRate to every open
// account and emits a DEPOSIT record for each. Interest is not customer
// activity: it neither reactivates INACTIVE accounts nor moves their
// last-activity time. Per-account failures are collected and the run continues.
func (l *Ledger) ApplyMonthlyInterest(ctx context.Context) (InterestResult, error) {
	var res InterestResult
	var errs []error

	for _, number := range l.reg.numbers() {
		rec, credited, err := l.creditInterest(ctx, number)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !credited {
			res.Skipped = append(res.Skipped, number)
			continue
		}
		l.appendRecord(ctx, rec)
		res.Credited = append(res.Credited, rec)
	}

	l.log.Info("monthly interest applied",
		zap.Int("credited", len(res.Credited)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("failed", len(errs)))
	return res, errors.Join(errs...)
}

func (l *Ledger) creditInterest(ctx context.Context, number string) (model.TransactionRecord, bool, error) {
	s, err := l.acquire(number)
	if err != nil {
		// Deleted since the run started.
		return model.TransactionRecord{}, false, nil
	}
	defer s.mu.Unlock()
	a := s.acct

	if a.Status == model.StatusClosed {
		return model.TransactionRecord{}, false, nil
	}
	interest := a.Balance.MulRate(l.policy.MonthlyInterestRate)
	if !interest.IsPositive() {
		return model.TransactionRecord{}, false, nil
	}

	rec, err := l.newRecord(model.TxDeposit, "", number, interest, txOptions{category: InterestCategory})
	if err != nil {
		return model.TransactionRecord{}, false, err
	}
	prev := *a
	if err := a.CreditInterest(interest); err != nil {
		return model.TransactionRecord{}, false, err
	}
	if err := l.accounts.UpdateBalanceAndActivity(ctx, time.Time{}, model.BalanceChange{Account: *a, Prev: prev.Balance}); err != nil {
		*a = prev
		return model.TransactionRecord{}, false, fmt.Errorf("%w: crediting interest to %s: %w", model.ErrPersistence, number, err)
	}
	return rec, true, nil
}

// FlagResult summarizes one FlagInactiveAccounts run.
type FlagResult struct {
	Flagged []string
}

// FlagInactiveAccounts marks ACTIVE accounts whose last activity is older than
// the policy's InactivityPeriod as INACTIVE. Accounts with no recorded
// activity are judged by their creation time.
func (l *Ledger) FlagInactiveAccounts(ctx context.Context) (FlagResult, error) {
	var res FlagResult
	var errs []error
	cutoff := l.now().Add(-l.policy.InactivityPeriod)

	for _, number := range l.reg.numbers() {
		last, ok, err := l.accounts.GetLastActivity(ctx, number)
		if errors.Is(err, model.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: last activity of %s: %w", model.ErrPersistence, number, err))
			continue
		}
		flagged, err := l.flagIfIdle(ctx, number, last, ok, cutoff)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if flagged {
			res.Flagged = append(res.Flagged, number)
		}
	}

	l.log.Info("inactive accounts flagged",
		zap.Int("flagged", len(res.Flagged)),
		zap.Int("failed", len(errs)))
	return res, errors.Join(errs...)
}

func (l *Ledger) flagIfIdle(ctx context.Context, number string, last time.Time, known bool, cutoff time.Time) (bool, error) {
	s, err := l.acquire(number)
	if err != nil {
		return false, nil
	}
	defer s.mu.Unlock()
	a := s.acct

	if a.Status != model.StatusActive {
		return false, nil
	}
	if !known {
		last = a.CreatedAt
	}
	if !last.Before(cutoff) {
		return false, nil
	}
	if err := l.setStatusLocked(ctx, a, model.StatusInactive); err != nil {
		return false, err
	}
	return true, nil
}
