package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/catalog/pkg/errors"
)

var (
	// ErrCategoryNotFound indicates the requested category does not exist.
	ErrCategoryNotFound = apperrors.New("CATEGORY_NOT_FOUND", "Category not found", http.StatusNotFound)
	// ErrProductNotFound indicates the requested product does not exist.
	ErrProductNotFound = apperrors.New("PRODUCT_NOT_FOUND", "Product not found", http.StatusNotFound)
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrEmailTaken is returned when registering an address that already has an account.
	ErrEmailTaken = apperrors.New("EMAIL_TAKEN", "Email already registered", http.StatusBadRequest)
	// ErrInvalidCredentials is returned for a wrong password.
	ErrInvalidCredentials = apperrors.New("INVALID_CREDENTIALS", "Invalid credentials", http.StatusBadRequest)
	// ErrOTPMaxAttempts locks verification until a new code is requested.
	ErrOTPMaxAttempts = apperrors.New("OTP_MAX_ATTEMPTS", "Maximum OTP attempts reached. Request a new OTP.", http.StatusBadRequest)
	// ErrOTPInvalid covers wrong, expired and missing codes alike.
	ErrOTPInvalid = apperrors.New("OTP_INVALID", "Invalid or expired OTP", http.StatusBadRequest)
	// ErrResetTokenInvalid is returned when a reset token fails validation.
	ErrResetTokenInvalid = apperrors.New("RESET_TOKEN_INVALID", "Invalid or expired token", http.StatusBadRequest)
	// ErrInvalidUpload reports file count or pairing violations.
	ErrInvalidUpload = apperrors.New("INVALID_UPLOAD", "Invalid upload", http.StatusBadRequest)
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate")
}
