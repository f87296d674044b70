package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bankline-dev/bankline/internal/model"
	"github.com/bankline-dev/bankline/internal/money"
)

// Header is the CSV header for transactions.csv.
const Header = "tx_id,tx_type,from_account,to_account,amount,category,created_at"

const (
	numFields    = 7
	colTxID      = 0
	colType      = 1
	colFrom      = 2
	colTo        = 3
	colAmount    = 4
	colCategory  = 5
	colCreatedAt = 6
)

// ReadRecords reads all records from a transactions.csv reader.
func ReadRecords(r io.Reader) ([]model.TransactionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	// Skip header row.
	recs := make([]model.TransactionRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := UnmarshalRecord(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// WriteRecords writes recs to w, header first.
func WriteRecords(w io.Writer, recs []model.TransactionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return AppendRecords(w, recs)
}

// AppendRecords appends recs to an existing transactions.csv writer (no header).
func AppendRecords(w io.Writer, recs []model.TransactionRecord) error {
	cw := csv.NewWriter(w)
	for i, rec := range recs {
		if err := cw.Write(MarshalRecord(rec)); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRecord converts a record to a CSV row.
func MarshalRecord(rec model.TransactionRecord) []string {
	row := make([]string, numFields)
	row[colTxID] = rec.ID
	row[colType] = string(rec.Type)
	row[colFrom] = rec.From
	row[colTo] = rec.To
	row[colAmount] = rec.Amount.String()
	row[colCategory] = rec.Category
	row[colCreatedAt] = rec.CreatedAt.UTC().Format(time.RFC3339Nano)
	return row
}

// UnmarshalRecord converts a CSV row to a record.
func UnmarshalRecord(row []string) (model.TransactionRecord, error) {
	if len(row) != numFields {
		return model.TransactionRecord{}, fmt.Errorf("expected %d fields, got %d", numFields, len(row))
	}

	typ, ok := model.ParseTxType(row[colType])
	if !ok {
		return model.TransactionRecord{}, fmt.Errorf("unknown tx_type %q", row[colType])
	}

	amount, err := money.FromStored(row[colAmount])
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("parsing amount: %w", err)
	}

	at, err := time.Parse(time.RFC3339Nano, row[colCreatedAt])
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("parsing created_at %q: %w", row[colCreatedAt], err)
	}

	return model.NewTransactionRecord(row[colTxID], typ, row[colFrom], row[colTo], amount, row[colCategory], at)
}
