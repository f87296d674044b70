// Package pgstore keeps accounts and the transaction log in PostgreSQL.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bankline-dev/bankline/internal/model"
	"github.com/bankline-dev/bankline/internal/money"
)

// Schema creates the tables if they do not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	account_number  CHAR(11) PRIMARY KEY,
	holder_name     TEXT NOT NULL,
	email           TEXT NOT NULL DEFAULT '',
	account_type    TEXT NOT NULL,
	pin_hash        TEXT NOT NULL,
	balance         NUMERIC(19,2) NOT NULL CHECK (balance >= 0),
	status          TEXT NOT NULL,
	failed_attempts INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL,
	last_activity   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS transactions (
	seq          BIGSERIAL PRIMARY KEY,
	tx_id        UUID NOT NULL UNIQUE,
	tx_type      TEXT NOT NULL,
	from_account CHAR(11),
	to_account   CHAR(11),
	amount       NUMERIC(19,2) NOT NULL,
	category     TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS transactions_from_idx ON transactions (from_account);
CREATE INDEX IF NOT EXISTS transactions_to_idx ON transactions (to_account);
`

const uniqueViolation = "23505"

// DB is the subset of *pgxpool.Pool and *pgx.Conn the stores use.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connect opens a pool for dsn and checks it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return pool, nil
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// AccountStore persists accounts in the accounts table.
type AccountStore struct {
	db DB
}

// NewAccountStore returns a store over db.
func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

const accountColumns = `account_number, holder_name, email, account_type, pin_hash,
	balance::text, status, failed_attempts, created_at`

// Create inserts a. A taken account number returns model.ErrDuplicateAccount.
func (s *AccountStore) Create(ctx context.Context, a model.Account) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO accounts (account_number, holder_name, email, account_type, pin_hash,
			balance, status, failed_attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9)`,
		a.Number, a.HolderName, a.Email, string(a.Type), a.PinHash,
		a.Balance.String(), string(a.Status), a.FailedAttempts, a.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", model.ErrDuplicateAccount, a.Number)
	}
	if err != nil {
		return fmt.Errorf("inserting account %s: %w", a.Number, err)
	}
	return nil
}

// FindByNumber returns nil, nil if there is no such account.
func (s *AccountStore) FindByNumber(ctx context.Context, number string) (*model.Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_number = $1`, number)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAll returns every account ordered by number.
func (s *AccountStore) ListAll(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY account_number`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateBalanceAndActivity writes every change in one transaction. Rows are
// locked with SELECT ... FOR UPDATE in account-number order, and the
// transaction rolls back if a stored balance no longer equals its change's
// Prev. A zero at keeps last_activity.
func (s *AccountStore) UpdateBalanceAndActivity(ctx context.Context, at time.Time, changes ...model.BalanceChange) error {
	var activity *time.Time
	if !at.IsZero() {
		activity = &at
	}
	ordered := slices.Clone(changes)
	slices.SortFunc(ordered, func(a, b model.BalanceChange) int {
		return strings.Compare(a.Account.Number, b.Account.Number)
	})

	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, c := range ordered {
			if err := lockBalance(ctx, tx, c); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `
				UPDATE accounts
				SET balance = $2::numeric, last_activity = COALESCE($3, last_activity)
				WHERE account_number = $1`,
				c.Account.Number, c.Account.Balance.String(), activity)
			if err != nil {
				return fmt.Errorf("updating balance of %s: %w", c.Account.Number, err)
			}
		}
		return nil
	})
}

// lockBalance locks the account row and checks it still holds c.Prev.
func lockBalance(ctx context.Context, tx pgx.Tx, c model.BalanceChange) error {
	number := c.Account.Number
	var stored string
	err := tx.QueryRow(ctx,
		`SELECT balance::text FROM accounts WHERE account_number = $1 FOR UPDATE`, number).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", model.ErrAccountNotFound, number)
	}
	if err != nil {
		return fmt.Errorf("locking account %s: %w", number, err)
	}
	balance, err := money.FromStored(stored)
	if err != nil {
		return fmt.Errorf("account %s: %w", number, err)
	}
	if !balance.Equal(c.Prev) {
		return fmt.Errorf("%w: %s holds %s, expected %s", model.ErrStaleBalance, number, balance, c.Prev)
	}
	return nil
}

// UpdateStatus stores a.Status and a.FailedAttempts.
func (s *AccountStore) UpdateStatus(ctx context.Context, a model.Account) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE accounts SET status = $2, failed_attempts = $3 WHERE account_number = $1`,
		a.Number, string(a.Status), a.FailedAttempts)
	return affectedOne(tag, err, a.Number, "status")
}

// UpdatePin stores a.PinHash.
func (s *AccountStore) UpdatePin(ctx context.Context, a model.Account) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE accounts SET pin_hash = $2 WHERE account_number = $1`,
		a.Number, a.PinHash)
	return affectedOne(tag, err, a.Number, "pin")
}

// Delete removes the account and reports whether it existed.
func (s *AccountStore) Delete(ctx context.Context, number string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM accounts WHERE account_number = $1`, number)
	if err != nil {
		return false, fmt.Errorf("deleting account %s: %w", number, err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetLastActivity reports false if last_activity is NULL.
func (s *AccountStore) GetLastActivity(ctx context.Context, number string) (time.Time, bool, error) {
	var last *time.Time
	err := s.db.QueryRow(ctx,
		`SELECT last_activity FROM accounts WHERE account_number = $1`, number).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, fmt.Errorf("%w: %s", model.ErrAccountNotFound, number)
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading last activity of %s: %w", number, err)
	}
	if last == nil {
		return time.Time{}, false, nil
	}
	return *last, true, nil
}

func scanAccount(row pgx.Row) (model.Account, error) {
	var (
		a                   model.Account
		typ, status, amount string
	)
	err := row.Scan(&a.Number, &a.HolderName, &a.Email, &typ, &a.PinHash,
		&amount, &status, &a.FailedAttempts, &a.CreatedAt)
	if err != nil {
		return model.Account{}, fmt.Errorf("scanning account: %w", err)
	}

	var ok bool
	if a.Type, ok = model.ParseAccountType(typ); !ok {
		return model.Account{}, fmt.Errorf("account %s: %w: %q", a.Number, model.ErrInvalidAccountType, typ)
	}
	if a.Status, ok = model.ParseStatus(status); !ok {
		return model.Account{}, fmt.Errorf("account %s: unknown status %q", a.Number, status)
	}
	if a.Balance, err = money.FromStored(amount); err != nil {
		return model.Account{}, fmt.Errorf("account %s: %w", a.Number, err)
	}
	return a, nil
}

func affectedOne(tag pgconn.CommandTag, err error, number, what string) error {
	if err != nil {
		return fmt.Errorf("updating %s of %s: %w", what, number, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", model.ErrAccountNotFound, number)
	}
	return nil
}
