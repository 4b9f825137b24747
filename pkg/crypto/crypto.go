package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of the supplied password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares the hashed password with the plaintext candidate.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// PasswordStamp returns a short fingerprint of a password hash. It changes whenever the
// hash does and reveals nothing useful about it.
func PasswordStamp(hashedPassword string) string {
	sum := sha256.Sum256([]byte("password-stamp:" + hashedPassword))
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}

// StampMatches reports whether stamp was taken from hashedPassword.
func StampMatches(hashedPassword, stamp string) bool {
	return subtle.ConstantTimeCompare([]byte(PasswordStamp(hashedPassword)), []byte(stamp)) == 1
}

// GenerateToken returns a random URL-safe token of the requested byte length.
func GenerateToken(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// RandomDigits returns a uniformly distributed numeric code with exactly n digits
// and no leading zero, e.g. 1000-9999 for n=4.
func RandomDigits(n int) (string, error) {
	if n <= 0 || n > 18 {
		return "", errors.New("crypto: digit count must be between 1 and 18")
	}

	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n-1)), nil)
	if n == 1 {
		low = big.NewInt(0)
	}
	high := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	span := new(big.Int).Sub(high, low)

	v, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return v.Add(v, low).String(), nil
}
