package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role grants access levels to catalog users.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// User is an account able to sign in. OTP fields back the password reset flow.
type User struct {
	BaseModel
	Name     string `gorm:"size:50;not null" json:"name"`
	Email    string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"size:10;not null;default:USER" json:"role"`

	OTP       *string    `gorm:"column:otp;size:10" json:"-"`
	OTPExpiry *time.Time `gorm:"column:otp_expiry" json:"-"`
	OTPCount  int        `gorm:"column:otp_count;not null;default:0" json:"-"`
}

// BeforeSave normalises the email so uniqueness is case-insensitive.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	u.Name = strings.TrimSpace(u.Name)
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserSummary is the public projection of a user, as listed to administrators.
type UserSummary struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary projects u without credentials or OTP state.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
