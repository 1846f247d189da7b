package crypto

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// Verification codes are 6-digit integers; both bounds are inclusive.
const (
	VerificationCodeMin = 100000
	VerificationCodeMax = 999999
)

// HashPassword returns a bcrypt hash of the supplied password using the given cost.
// A cost outside the bcrypt range falls back to the library default.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares the hashed password with the plaintext candidate.
// It never returns an error for a mismatch; any failure reads as false.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// GenerateVerificationCode draws a uniformly random 6-digit code from crypto/rand.
func GenerateVerificationCode() (int, error) {
	span := big.NewInt(VerificationCodeMax - VerificationCodeMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, fmt.Errorf("crypto: generate verification code: %w", err)
	}
	return VerificationCodeMin + int(n.Int64()), nil
}
