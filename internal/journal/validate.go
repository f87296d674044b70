package journal

import (
	"fmt"

	"github.com/bankline-dev/bankline/internal/id"
	"github.com/bankline-dev/bankline/internal/model"
)

// ValidationError describes one malformed record in the log.
type ValidationError struct {
	TxID        string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s]: %s", e.TxID, e.Description)
}

// ValidateRecords checks the shape of every record: ids are well formed and
// unique, each type references the accounts it should, and amounts are
// positive except for closures.
func ValidateRecords(recs []model.TransactionRecord) []ValidationError {
	var errs []ValidationError
	add := func(txID, format string, args ...any) {
		errs = append(errs, ValidationError{TxID: txID, Description: fmt.Sprintf(format, args...)})
	}

	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		if _, err := id.ParseTxID(r.ID); err != nil {
			add(r.ID, "malformed id")
		}
		if seen[r.ID] {
			add(r.ID, "duplicate id")
		}
		seen[r.ID] = true

		switch r.Type {
		case model.TxDeposit:
			if r.To == "" || r.From != "" {
				add(r.ID, "deposit must name only a destination account")
			}
		case model.TxWithdraw:
			if r.From == "" || r.To != "" {
				add(r.ID, "withdrawal must name only a source account")
			}
		case model.TxTransfer:
			if r.From == "" || r.To == "" {
				add(r.ID, "transfer must name both accounts")
			} else if r.From == r.To {
				add(r.ID, "transfer from %s to itself", r.From)
			}
		case model.TxAccountClosed:
			if r.From == "" || r.To != "" {
				add(r.ID, "closure must name only the closed account")
			}
		default:
			add(r.ID, "unknown type %q", r.Type)
		}

		if r.Type == model.TxAccountClosed {
			if r.Amount.IsNegative() {
				add(r.ID, "negative closing balance %s", r.Amount)
			}
		} else if !r.Amount.IsPositive() {
			add(r.ID, "amount %s must be positive", r.Amount)
		}
	}
	return errs
}
