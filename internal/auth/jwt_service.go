package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultAccessTokenTTL defines the fallback validity period for access tokens.
	DefaultAccessTokenTTL = 24 * time.Hour
	// DefaultResetTokenTTL bounds how long a verified OTP may be exchanged for a new password.
	DefaultResetTokenTTL = 15 * time.Minute
)

// Token purposes keep reset tokens from being used as access tokens and vice versa.
const (
	PurposeAccess = "access"
	PurposeReset  = "reset"
)

// ErrWrongPurpose is returned when a valid token is presented for the other flow.
var ErrWrongPurpose = errors.New("jwt: token purpose mismatch")

// JWTConfig bundles the configuration required to build a JWTService.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	ResetTokenTTL  time.Duration
	Clock          func() time.Time
}

// Claims represents the custom claims embedded in issued JWTs.
type Claims struct {
	UserID  uint   `json:"id"`
	Role    string `json:"role,omitempty"`
	Purpose string `json:"purpose"`
	// Stamp ties a reset token to the password it replaces.
	Stamp string `json:"stp,omitempty"`
	jwt.RegisteredClaims
}

// JWTService is responsible for issuing and validating JSON Web Tokens.
type JWTService struct {
	secret   []byte
	issuer   string
	ttl      time.Duration
	resetTTL time.Duration
	now      func() time.Time
}

// NewJWTService constructs a JWTService instance when provided with the required configuration.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	resetTTL := cfg.ResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = DefaultResetTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &JWTService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		ttl:      ttl,
		resetTTL: resetTTL,
		now:      now,
	}, nil
}

// AccessTokenTTL reports how long issued access tokens stay valid.
func (s *JWTService) AccessTokenTTL() time.Duration { return s.ttl }

// GenerateAccessToken issues a signed session token carrying the user id and role.
func (s *JWTService) GenerateAccessToken(userID uint, role string) (string, error) {
	return s.sign(&Claims{UserID: userID, Role: role, Purpose: PurposeAccess}, s.ttl)
}

// GenerateResetToken issues a short lived token bound to stamp, a fingerprint of the
// password being replaced. The token stops matching once that password changes.
func (s *JWTService) GenerateResetToken(userID uint, stamp string) (string, error) {
	if stamp == "" {
		return "", errors.New("jwt: reset stamp is required")
	}
	return s.sign(&Claims{UserID: userID, Purpose: PurposeReset, Stamp: stamp}, s.resetTTL)
}

// ValidateAccessToken parses an access token, rejecting reset tokens.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, PurposeAccess)
}

// ValidateResetToken parses a reset token, rejecting access tokens.
func (s *JWTService) ValidateResetToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, PurposeReset)
}

func (s *JWTService) sign(claims *Claims, ttl time.Duration) (string, error) {
	if claims.UserID == 0 {
		return "", errors.New("jwt: user id is required")
	}

	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(claims.UserID), 10),
		Issuer:    s.issuer,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

func (s *JWTService) validate(tokenString, purpose string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("jwt: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, errors.New("jwt: invalid issuer")
	}
	if claims.UserID == 0 {
		return nil, errors.New("jwt: missing user id claim")
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	if purpose == PurposeReset && claims.Stamp == "" {
		return nil, errors.New("jwt: missing reset stamp")
	}

	return &claims, nil
}
