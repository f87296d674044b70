// Package journal is the append-only transaction log kept in transactions.csv.
package journal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bankline-dev/bankline/internal/model"
)

// FileName is the log file inside a data directory.
const FileName = "transactions.csv"

// FileLog appends records to a CSV file. Existing lines are never rewritten.
type FileLog struct {
	path string
	mu   sync.Mutex
}

// NewFileLog returns a log backed by path. The file is created on first append.
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

// NewDirLog returns a log backed by FileName inside dir.
func NewDirLog(dir string) *FileLog {
	return NewFileLog(filepath.Join(dir, FileName))
}

// Path returns the backing file.
func (l *FileLog) Path() string { return l.path }

// Append writes rec as one line, creating the file and its header if needed.
func (l *FileLog) Append(_ context.Context, rec model.TransactionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating transactions dir: %w", err)
	}

	isNew := false
	if st, err := os.Stat(l.path); errors.Is(err, fs.ErrNotExist) || (err == nil && st.Size() == 0) {
		isNew = true
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening transactions: %w", err)
	}
	defer f.Close()

	if isNew {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	if err := AppendRecords(f, []model.TransactionRecord{rec}); err != nil {
		return fmt.Errorf("appending %s: %w", rec.ID, err)
	}
	return f.Sync()
}

// All returns every record in append order.
func (l *FileLog) All(_ context.Context) ([]model.TransactionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readLocked()
}

// ListForAccount returns the records that reference number, newest first.
func (l *FileLog) ListForAccount(_ context.Context, number string) ([]model.TransactionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	recs, err := l.readLocked()
	if err != nil {
		return nil, err
	}
	var out []model.TransactionRecord
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].Involves(number) {
			out = append(out, recs[i])
		}
	}
	return out, nil
}

func (l *FileLog) readLocked() ([]model.TransactionRecord, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening transactions %s: %w", l.path, err)
	}
	defer f.Close()

	recs, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("reading transactions %s: %w", l.path, err)
	}
	return recs, nil
}
