package auth

import (
	"crypto/subtle"
	"time"

	"github.com/charlesng35/catalog/pkg/crypto"
)

// OTPPolicy governs one-time password reset codes.
type OTPPolicy struct {
	Digits      int
	TTL         time.Duration
	MaxAttempts int
}

// DefaultOTPPolicy issues 4 digit codes valid for five minutes with four attempts.
func DefaultOTPPolicy() OTPPolicy {
	return OTPPolicy{Digits: 4, TTL: 5 * time.Minute, MaxAttempts: 4}
}

// OTPCheck is the outcome of comparing a submitted code.
type OTPCheck int

const (
	OTPValid OTPCheck = iota
	OTPMismatch
	OTPExpired
	OTPMissing
	OTPLocked
)

// Generate returns a fresh numeric code and its expiry.
func (p OTPPolicy) Generate(now time.Time) (string, time.Time, error) {
	code, err := crypto.RandomDigits(p.Digits)
	if err != nil {
		return "", time.Time{}, err
	}
	return code, now.Add(p.TTL), nil
}

// Check compares submitted with the stored code. Attempts counts earlier failures.
func (p OTPPolicy) Check(stored *string, expiry *time.Time, attempts int, submitted string, now time.Time) OTPCheck {
	if p.MaxAttempts > 0 && attempts >= p.MaxAttempts {
		return OTPLocked
	}
	if stored == nil || *stored == "" || expiry == nil {
		return OTPMissing
	}
	if !now.Before(*expiry) {
		return OTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(*stored), []byte(submitted)) != 1 {
		return OTPMismatch
	}
	return OTPValid
}
