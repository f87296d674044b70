package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bankline-dev/bankline/internal/model"
	"github.com/bankline-dev/bankline/internal/money"
)

const (
	numFields         = 10
	colNumber         = 0
	colHolderName     = 1
	colEmail          = 2
	colType           = 3
	colPinHash        = 4
	colBalance        = 5
	colStatus         = 6
	colFailedAttempts = 7
	colCreatedAt      = 8
	colLastActivity   = 9
)

var header = []string{
	"account_number", "holder_name", "email", "account_type", "pin_hash",
	"balance", "status", "failed_attempts", "created_at", "last_activity",
}

// Row is one line of accounts.csv: the account plus its last-activity time,
// which is zero when the account has never moved money.
type Row struct {
	Account      model.Account
	LastActivity time.Time
}

// ReadRows reads accounts.csv.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := UnmarshalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteRows writes accounts.csv.
func WriteRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range rows {
		if err := cw.Write(MarshalRow(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRow converts a Row to CSV fields.
func MarshalRow(row Row) []string {
	a := row.Account
	rec := make([]string, numFields)
	rec[colNumber] = a.Number
	rec[colHolderName] = a.HolderName
	rec[colEmail] = a.Email
	rec[colType] = string(a.Type)
	rec[colPinHash] = a.PinHash
	rec[colBalance] = a.Balance.String()
	rec[colStatus] = string(a.Status)
	rec[colFailedAttempts] = strconv.Itoa(a.FailedAttempts)
	rec[colCreatedAt] = a.CreatedAt.UTC().Format(time.RFC3339Nano)
	if !row.LastActivity.IsZero() {
		rec[colLastActivity] = row.LastActivity.UTC().Format(time.RFC3339Nano)
	}
	return rec
}

// UnmarshalRow converts CSV fields to a Row.
func UnmarshalRow(rec []string) (Row, error) {
	if len(rec) != numFields {
		return Row{}, fmt.Errorf("expected %d fields, got %d", numFields, len(rec))
	}

	typ, ok := model.ParseAccountType(rec[colType])
	if !ok {
		return Row{}, fmt.Errorf("%w: %q", model.ErrInvalidAccountType, rec[colType])
	}
	status, ok := model.ParseStatus(rec[colStatus])
	if !ok {
		return Row{}, fmt.Errorf("unknown status %q", rec[colStatus])
	}
	balance, err := money.FromStored(rec[colBalance])
	if err != nil {
		return Row{}, fmt.Errorf("parsing balance %q: %w", rec[colBalance], err)
	}
	attempts, err := strconv.Atoi(rec[colFailedAttempts])
	if err != nil {
		return Row{}, fmt.Errorf("parsing failed_attempts %q: %w", rec[colFailedAttempts], err)
	}
	created, err := time.Parse(time.RFC3339Nano, rec[colCreatedAt])
	if err != nil {
		return Row{}, fmt.Errorf("parsing created_at %q: %w", rec[colCreatedAt], err)
	}
	var last time.Time
	if rec[colLastActivity] != "" {
		last, err = time.Parse(time.RFC3339Nano, rec[colLastActivity])
		if err != nil {
			return Row{}, fmt.Errorf("parsing last_activity %q: %w", rec[colLastActivity], err)
		}
	}

	return Row{
		Account: model.Account{
			Number:         rec[colNumber],
			HolderName:     rec[colHolderName],
			Email:          rec[colEmail],
			Type:           typ,
			PinHash:        rec[colPinHash],
			Balance:        balance,
			Status:         status,
			FailedAttempts: attempts,
			CreatedAt:      created,
		},
		LastActivity: last,
	}, nil
}
