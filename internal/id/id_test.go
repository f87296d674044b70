package id

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccountNumber(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		n, err := NewAccountNumber(rand.Reader)
		require.NoError(t, err)
		require.Len(t, n, AccountNumberLen)
		assert.NotEqual(t, byte('0'), n[0])
		for _, c := range n {
			assert.True(t, c >= '0' && c <= '9', "non-digit in %s", n)
		}
		seen[n] = true
	}
	assert.Greater(t, len(seen), 190, "random numbers should practically never collide")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestNewAccountNumber_ReaderError(t *testing.T) {
	_, err := NewAccountNumber(failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generating account number")
}

func TestNewAccountNumber_Deterministic(t *testing.T) {
	src := bytes.Repeat([]byte{0x00}, 256)
	a, err := NewAccountNumber(bytes.NewReader(src))
	require.NoError(t, err)
	b, err := NewAccountNumber(bytes.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTxID(t *testing.T) {
	a := NewTxID()
	b := NewTxID()
	assert.NotEqual(t, a, b)

	got, err := ParseTxID(a)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = ParseTxID("not-a-uuid")
	assert.Error(t, err)

	assert.Equal(t, a[:8], ShortTxID(a))
	assert.Equal(t, "abc", ShortTxID("abc"))
}

func TestMaskAccountNumber(t *testing.T) {
	assert.Equal(t, "*******8901", MaskAccountNumber("12345678901"))
	assert.Equal(t, "123", MaskAccountNumber("123"))
}
