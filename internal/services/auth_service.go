package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/catalog/internal/auth"
	"github.com/charlesng35/catalog/internal/models"
	"github.com/charlesng35/catalog/pkg/crypto"
	"github.com/charlesng35/catalog/pkg/logger"
	"github.com/charlesng35/catalog/pkg/mail"
	"github.com/charlesng35/catalog/pkg/metrics"
)

// Landing pages returned after a successful login.
const (
	AdminRedirect    = "/admin"
	CustomerRedirect = "/nystai-product"
)

// RegisterInput captures the fields accepted at sign-up.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginResult carries the issued access token and where the client should land.
type LoginResult struct {
	Token       string        `json:"token"`
	Role        models.Role   `json:"role"`
	RedirectURL string        `json:"redirectUrl"`
	ExpiresIn   time.Duration `json:"-"`
}

// AuthServiceConfig configures an AuthService.
type AuthServiceConfig struct {
	// AdminEmail, when set, grants the ADMIN role to the account registered with it.
	AdminEmail string
	OTP        auth.OTPPolicy
	// Mailer delivers OTP codes. A nil mailer logs the failure and rejects the request.
	Mailer mail.Mailer
	Clock  func() time.Time
}

// AuthService implements registration, login and the OTP password reset flow.
type AuthService struct {
	db          *gorm.DB
	jwt         *auth.JWTService
	collections *Collections
	adminEmail  string
	otp         auth.OTPPolicy
	mailer      mail.Mailer
	now         func() time.Time
	log         *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(db *gorm.DB, jwt *auth.JWTService, collections *Collections, cfg AuthServiceConfig) (*AuthService, error) {
	if db == nil {
		return nil, errors.New("auth service: db is required")
	}
	if jwt == nil {
		return nil, errors.New("auth service: jwt service is required")
	}
	if collections == nil {
		return nil, errors.New("auth service: collections are required")
	}

	policy := cfg.OTP
	if policy.Digits <= 0 || policy.TTL <= 0 {
		policy = auth.DefaultOTPPolicy()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &AuthService{
		db:          db,
		jwt:         jwt,
		collections: collections,
		adminEmail:  models.NormalizeEmail(cfg.AdminEmail),
		otp:         policy,
		mailer:      cfg.Mailer,
		now:         now,
		log:         logger.WithModule("auth"),
	}, nil
}

// Register creates an account. The configured admin address is granted the ADMIN role.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.UserSummary, error) {
	ctx = ensureContext(ctx)
	email := models.NormalizeEmail(input.Email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("auth service: check email: %w", err)
	}
	if count > 0 {
		s.record("register", "duplicate")
		return nil, ErrEmailTaken
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth service: hash password: %w", err)
	}

	user := &models.User{Name: input.Name, Email: email, Password: hash, Role: models.RoleUser}
	if s.adminEmail != "" && email == s.adminEmail {
		user.Role = models.RoleAdmin
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			s.record("register", "duplicate")
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("auth service: create user: %w", err)
	}

	s.record("register", "ok")
	s.collections.invalidateUsers(ctx)
	summary := user.Summary()
	return &summary, nil
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx = ensureContext(ctx)

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		s.record("login", "unknown_user")
		return nil, err
	}
	if !crypto.VerifyPassword(user.Password, password) {
		s.record("login", "bad_password")
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateAccessToken(user.ID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("auth service: issue token: %w", err)
	}

	redirect := CustomerRedirect
	if user.IsAdmin() {
		redirect = AdminRedirect
	}
	s.record("login", "ok")
	return &LoginResult{Token: token, Role: user.Role, RedirectURL: redirect, ExpiresIn: s.jwt.AccessTokenTTL()}, nil
}

// ForgotPassword stores a fresh OTP on the account and mails it to the user.
// Requesting a code resets the failed attempt counter.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	ctx = ensureContext(ctx)

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	code, expiry, err := s.otp.Generate(s.now())
	if err != nil {
		return fmt.Errorf("auth service: generate otp: %w", err)
	}
	err = s.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"otp":        code,
		"otp_expiry": expiry,
		"otp_count":  0,
	}).Error
	if err != nil {
		return fmt.Errorf("auth service: store otp: %w", err)
	}
	s.collections.invalidateUsers(ctx)

	if err := s.sendOTP(ctx, user, code); err != nil {
		s.record("forgot_password", "mail_error")
		return err
	}
	s.record("forgot_password", "ok")
	return nil
}

// VerifyOTP checks a submitted code and, when it matches, returns a short-lived reset token.
// Every failed comparison counts towards the attempt limit.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	ctx = ensureContext(ctx)

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	switch s.otp.Check(user.OTP, user.OTPExpiry, user.OTPCount, code, s.now()) {
	case auth.OTPLocked:
		s.record("verify_otp", "locked")
		return "", ErrOTPMaxAttempts
	case auth.OTPValid:
	default:
		err := s.db.WithContext(ctx).Model(user).
			UpdateColumn("otp_count", gorm.Expr("otp_count + ?", 1)).Error
		if err != nil {
			return "", fmt.Errorf("auth service: count otp attempt: %w", err)
		}
		s.collections.invalidateUsers(ctx)
		s.record("verify_otp", "invalid")
		return "", ErrOTPInvalid
	}

	if err := s.db.WithContext(ctx).Model(user).UpdateColumn("otp_count", 0).Error; err != nil {
		return "", fmt.Errorf("auth service: reset otp attempts: %w", err)
	}
	s.collections.invalidateUsers(ctx)
	token, err := s.jwt.GenerateResetToken(user.ID, crypto.PasswordStamp(user.Password))
	if err != nil {
		return "", fmt.Errorf("auth service: issue reset token: %w", err)
	}
	s.record("verify_otp", "ok")
	return token, nil
}

// ResetPassword replaces the password of the user named by a reset token and clears the OTP.
// A token is spent once the password it was issued against has been replaced.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	ctx = ensureContext(ctx)

	claims, err := s.jwt.ValidateResetToken(token)
	if err != nil {
		s.record("reset_password", "invalid_token")
		return ErrResetTokenInvalid.WithInternal(err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "password").First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("auth service: load user: %w", err)
	}
	if !crypto.StampMatches(user.Password, claims.Stamp) {
		s.record("reset_password", "token_used")
		return ErrResetTokenInvalid
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("auth service: hash password: %w", err)
	}

	// Matching on the old hash makes the token single use even under concurrent replays.
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND password = ?", user.ID, user.Password).
		Updates(map[string]any{
			"password":   hash,
			"otp":        nil,
			"otp_expiry": nil,
			"otp_count":  0,
		})
	if result.Error != nil {
		return fmt.Errorf("auth service: update password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		s.record("reset_password", "token_used")
		return ErrResetTokenInvalid
	}

	s.collections.invalidateUsers(ctx)
	s.record("reset_password", "ok")
	return nil
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: find user: %w", err)
	}
	return &user, nil
}

func (s *AuthService) sendOTP(ctx context.Context, user *models.User, code string) error {
	if s.mailer == nil {
		return errors.New("auth service: mailer is not configured")
	}
	msg, err := mail.OTPMessage(user.Email, user.Name, code, s.otp.TTL)
	if err != nil {
		return fmt.Errorf("auth service: render otp email: %w", err)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Warn("failed to send otp email", zap.Uint("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("auth service: send otp email: %w", err)
	}
	return nil
}

func (s *AuthService) record(flow, result string) {
	metrics.AuthAttempts.WithLabelValues(flow, result).Inc()
}
