package ledger

import (
	"context"
	"time"

	"github.com/bankline-dev/bankline/internal/model"
)

// AccountStore is the durable home of accounts. The ledger's in-memory
// registry is a working copy that must agree with it.
type AccountStore interface {
	// Create stores a new account. It returns model.ErrDuplicateAccount if
	// the number is taken.
	Create(ctx context.Context, acct model.Account) error
	// FindByNumber returns nil, nil when no account has that number.
	FindByNumber(ctx context.Context, number string) (*model.Account, error)
	ListAll(ctx context.Context) ([]model.Account, error)
	// UpdateBalanceAndActivity persists every change or none of them. A
	// change whose stored balance no longer equals its Prev fails the whole
	// call with model.ErrStaleBalance. A non-zero at also becomes the
	// last-activity time of each changed account; a zero at leaves it alone.
	UpdateBalanceAndActivity(ctx context.Context, at time.Time, changes ...model.BalanceChange) error
	// UpdateStatus persists acct.Status and acct.FailedAttempts.
	UpdateStatus(ctx context.Context, acct model.Account) error
	UpdatePin(ctx context.Context, acct model.Account) error
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, number string) (bool, error)
	// GetLastActivity reports false when the account has no recorded activity.
	GetLastActivity(ctx context.Context, number string) (time.Time, bool, error)
}

// TxStore is the append-only transaction log.
type TxStore interface {
	Append(ctx context.Context, rec model.TransactionRecord) error
	// ListForAccount returns records that reference number, newest first.
	ListForAccount(ctx context.Context, number string) ([]model.TransactionRecord, error)
}
