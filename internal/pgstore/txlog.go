package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bankline-dev/bankline/internal/model"
	"github.com/bankline-dev/bankline/internal/money"
)

// TxLog appends transaction records to the transactions table.
type TxLog struct {
	db DB
}

// NewTxLog returns a log over db.
func NewTxLog(db DB) *TxLog {
	return &TxLog{db: db}
}

// Append inserts rec. Records are ordered by insertion, not by CreatedAt.
func (l *TxLog) Append(ctx context.Context, rec model.TransactionRecord) error {
	_, err := l.db.Exec(ctx, `
		INSERT INTO transactions (tx_id, tx_type, from_account, to_account, amount, category, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5::numeric, $6, $7)`,
		rec.ID, string(rec.Type), rec.From, rec.To, rec.Amount.String(), rec.Category, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending transaction %s: %w", rec.ID, err)
	}
	return nil
}

const txColumns = `tx_id::text, tx_type, COALESCE(from_account, ''), COALESCE(to_account, ''),
	amount::text, category, created_at`

// ListForAccount returns records touching number, newest first.
func (l *TxLog) ListForAccount(ctx context.Context, number string) ([]model.TransactionRecord, error) {
	rows, err := l.db.Query(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE from_account = $1 OR to_account = $1
		ORDER BY seq DESC`, number)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for %s: %w", number, err)
	}
	return scanRecords(rows)
}

// All returns every record in append order.
func (l *TxLog) All(ctx context.Context) ([]model.TransactionRecord, error) {
	rows, err := l.db.Query(ctx, `SELECT `+txColumns+` FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]model.TransactionRecord, error) {
	defer rows.Close()

	var out []model.TransactionRecord
	for rows.Next() {
		var (
			r              model.TransactionRecord
			typ, amountStr string
		)
		if err := rows.Scan(&r.ID, &typ, &r.From, &r.To, &amountStr, &r.Category, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		t, ok := model.ParseTxType(typ)
		if !ok {
			return nil, fmt.Errorf("transaction %s: unknown type %q", r.ID, typ)
		}
		amount, err := money.FromStored(amountStr)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", r.ID, err)
		}
		rec, err := model.NewTransactionRecord(r.ID, t, r.From, r.To, amount, r.Category, r.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
