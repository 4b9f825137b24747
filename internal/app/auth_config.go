package app

import (
	"strings"
	"time"

	"github.com/charlesng35/catalog/internal/auth"
)

const defaultRateLimitRequests = 20

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}
	resetTTL := c.JWT.ResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = auth.DefaultResetTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
		ResetTokenTTL:  resetTTL,
	}
}

// OTPPolicy converts the OTP settings, falling back to the defaults per field.
func (c AuthConfig) OTPPolicy() auth.OTPPolicy {
	policy := auth.DefaultOTPPolicy()
	if c.OTP.Digits > 0 {
		policy.Digits = c.OTP.Digits
	}
	if c.OTP.TTL > 0 {
		policy.TTL = c.OTP.TTL
	}
	if c.OTP.MaxAttempts > 0 {
		policy.MaxAttempts = c.OTP.MaxAttempts
	}
	return policy
}

// NormalizedAdminEmail returns the admin email in the form stored on users.
func (c AuthConfig) NormalizedAdminEmail() string {
	return strings.ToLower(strings.TrimSpace(c.AdminEmail))
}

// RateLimitWindow returns the request budget and window for auth endpoints.
func (c AuthConfig) RateLimitWindow() (int, time.Duration) {
	requests := c.RateLimit.Requests
	if requests <= 0 {
		requests = defaultRateLimitRequests
	}
	window := c.RateLimit.Window
	if window <= 0 {
		window = time.Minute
	}
	return requests, window
}
