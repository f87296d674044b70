// Package validate holds the input predicates shared by account creation and
// every mutating ledger operation. Each predicate is total: it never panics
// and reports malformed input as false.
package validate

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bankline-dev/bankline/internal/model"
	"github.com/bankline-dev/bankline/internal/money"
)

var (
	accountNumberRe = regexp.MustCompile(`^[0-9]{11}$`)
	holderNameRe    = regexp.MustCompile(`^[A-Za-z ]{3,}$`)
	emailRe         = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9-]+(\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,}$`)
	pinRe           = regexp.MustCompile(`^[0-9]{4}$`)
)

// MinInitialDeposit is the opening balance SAVINGS and CURRENT accounts require.
var MinInitialDeposit = decimal.NewFromInt(1000)

// AccountNumber reports whether s is exactly 11 ASCII digits.
func AccountNumber(s string) bool {
	return accountNumberRe.MatchString(s)
}

// HolderName reports whether s is at least 3 letters or spaces, with at least
// 3 characters left after trimming.
func HolderName(s string) bool {
	trimmed := strings.TrimSpace(s)
	return len(trimmed) >= 3 && holderNameRe.MatchString(trimmed)
}

// Email reports whether s looks like local@domain.tld.
func Email(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

// Pin reports whether s is exactly 4 digits.
func Pin(s string) bool {
	return pinRe.MatchString(s)
}

// AccountType reports whether s names a known account type, ignoring case.
func AccountType(s string) bool {
	_, ok := model.ParseAccountType(s)
	return ok
}

// PositiveAmount reports whether amount is present and still > 0 after
// half-to-even rounding to cents, so 0.004 and 0.005 are rejected.
func PositiveAmount(amount *decimal.Decimal) bool {
	return amount != nil && amount.RoundBank(money.Scale).IsPositive()
}

// InitialDeposit applies the opening-balance policy: STUDENT accounts accept
// any amount >= 0, all other types need at least MinInitialDeposit.
func InitialDeposit(accountType string, amount *decimal.Decimal) bool {
	if amount == nil {
		return false
	}
	t, _ := model.ParseAccountType(accountType)
	if t == model.AccountTypeStudent {
		return !amount.IsNegative()
	}
	return amount.GreaterThanOrEqual(MinInitialDeposit)
}
