package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// backupCodeAlphabet excludes nothing: recovery codes are displayed once and
// stored verbatim, so ambiguous glyphs are acceptable and keep the space full.
const backupCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOTP returns a uniformly random numeric code of exactly the requested
// number of digits. Leading zeros are preserved; the result is a string and
// must never be converted to an integer.
func NewOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}

// NewBackupCode returns a random uppercase alphanumeric recovery code of the
// given length.
func NewBackupCode(length int) (string, error) {
	if length < 8 || length > 64 {
		return "", errors.New("invalid backup code length")
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(backupCodeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(backupCodeAlphabet[n.Int64()])
	}

	return b.String(), nil
}
