// Package runlog records what each batch job did in logs/batch-log.csv.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bankline-dev/bankline/internal/ledger"
)

// Job names.
const (
	JobInterest     = "monthly_interest"
	JobFlagInactive = "flag_inactive"
)

// Entry is one row in the batch log.
type Entry struct {
	Timestamp     time.Time
	Job           string
	Action        string
	Details       string
	AccountNumber string
	TxID          string
}

// Header is the CSV header for batch-log.csv.
const Header = "timestamp,job,action,details,account_number,tx_id"

const (
	numFields    = 6
	logDir       = "logs"
	logFile      = "logs/batch-log.csv"
	colTimestamp = 0
	colJob       = 1
	colAction    = 2
	colDetails   = 3
	colAccount   = 4
	colTxID      = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colJob] = e.Job
	row[colAction] = e.Action
	row[colDetails] = e.Details
	row[colAccount] = e.AccountNumber
	row[colTxID] = e.TxID
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return Entry{
		Timestamp:     ts,
		Job:           record[colJob],
		Action:        record[colAction],
		Details:       record[colDetails],
		AccountNumber: record[colAccount],
		TxID:          record[colTxID],
	}, nil
}

// InterestEntries describes an interest run: one row per credit plus a summary.
func InterestEntries(at time.Time, res ledger.InterestResult, runErr error) []Entry {
	entries := make([]Entry, 0, len(res.Credited)+1)
	for _, rec := range res.Credited {
		entries = append(entries, Entry{
			Timestamp:     at,
			Job:           JobInterest,
			Action:        "credit",
			Details:       "credited " + rec.Amount.String(),
			AccountNumber: rec.To,
			TxID:          rec.ID,
		})
	}
	return append(entries, summary(at, JobInterest,
		fmt.Sprintf("%d credited, %d skipped", len(res.Credited), len(res.Skipped)), runErr))
}

// FlagEntries describes an inactivity run: one row per flagged account plus a summary.
func FlagEntries(at time.Time, res ledger.FlagResult, runErr error) []Entry {
	entries := make([]Entry, 0, len(res.Flagged)+1)
	for _, number := range res.Flagged {
		entries = append(entries, Entry{
			Timestamp:     at,
			Job:           JobFlagInactive,
			Action:        "flag",
			Details:       "marked INACTIVE",
			AccountNumber: number,
		})
	}
	return append(entries, summary(at, JobFlagInactive,
		fmt.Sprintf("%d flagged", len(res.Flagged)), runErr))
}

func summary(at time.Time, job, details string, runErr error) Entry {
	e := Entry{Timestamp: at, Job: job, Action: "complete", Details: details}
	if runErr != nil {
		e.Action = "partial"
		e.Details = details + "; errors: " + strings.ReplaceAll(runErr.Error(), "\n", "; ")
	}
	return e
}

// Append writes entries to <home>/logs/batch-log.csv, creating the file and header if needed.
func Append(home string, entries []Entry) error {
	dir := filepath.Join(home, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(home, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening batch log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <home>/logs/batch-log.csv.
// Returns an empty slice if the file does not exist.
func Read(home string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(home, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening batch log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading batch log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
