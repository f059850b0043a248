// Package otp generates and checks one-time verification codes.
//
// Codes are random per issuance and stored bcrypt-hashed at rest; delivery of
// the plaintext happens out-of-band through an evidence.Sender.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const codeDigits = 6

// Generate returns a fresh numeric code and its bcrypt hash.
func Generate() (code string, hash string, err error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", "", fmt.Errorf("generate otp: %w", err)
	}
	code = fmt.Sprintf("%0*d", codeDigits, n)

	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash otp: %w", err)
	}
	return code, string(hashed), nil
}

// Compare checks a submitted code against the stored hash. bcrypt's comparison
// is resistant to timing side channels.
func Compare(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
