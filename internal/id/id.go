// Package id generates and formats account numbers and transaction ids.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// AccountNumberLen is the number of digits in an account number.
const AccountNumberLen = 11

// NewAccountNumber returns AccountNumberLen random digits read from r.
// The first digit is never zero so the number survives numeric round-trips.
func NewAccountNumber(r io.Reader) (string, error) {
	var b strings.Builder
	b.Grow(AccountNumberLen)
	for i := 0; i < AccountNumberLen; i++ {
		max := int64(10)
		offset := int64(0)
		if i == 0 {
			max, offset = 9, 1
		}
		n, err := rand.Int(r, big.NewInt(max))
		if err != nil {
			return "", fmt.Errorf("generating account number: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64() + offset))
	}
	return b.String(), nil
}

// NewTxID returns a random globally unique transaction id.
func NewTxID() string {
	return uuid.NewString()
}

// ShortTxID returns the first 8 characters of a transaction id, as shown in
// statements.
func ShortTxID(txID string) string {
	if len(txID) <= 8 {
		return txID
	}
	return txID[:8]
}

// ParseTxID checks that s is a well-formed transaction id.
func ParseTxID(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid transaction id %q: %w", s, err)
	}
	return u.String(), nil
}

// MaskAccountNumber hides all but the last four digits: "*******8901".
func MaskAccountNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}
