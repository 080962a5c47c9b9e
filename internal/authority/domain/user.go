package domain

import (
	"strings"
	"time"
)

// User is an account known to the authority.
type User struct {
	ID           string
	Username     string
	Email        string // stored lowercased
	Name         string
	FirstName    string
	LastName     string
	PasswordHash string // argon2id PHC string
	Roles        []string

	// TOTPKey is the sealed otpauth URL of the active second factor, "" when
	// the user has not enrolled.
	TOTPKey      string
	MFAEnabledAt *time.Time

	// PendingTOTPKey is the sealed otpauth URL handed out during enrollment.
	// It becomes TOTPKey once the first code is verified.
	PendingTOTPKey       string
	PendingTOTPExpiresAt *time.Time

	// MustChangeCredentials marks the bootstrap administrator until the first
	// setup is completed.
	MustChangeCredentials bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasMFA reports whether a second factor is active.
func (u User) HasMFA() bool {
	return u.MFAEnabledAt != nil && u.TOTPKey != ""
}

// HasPendingTOTP reports whether an unexpired enrollment is waiting for its
// first code.
func (u User) HasPendingTOTP(now time.Time) bool {
	return u.PendingTOTPKey != "" && u.PendingTOTPExpiresAt != nil && now.Before(*u.PendingTOTPExpiresAt)
}

// DisplayName returns Name, or the first and last names, or the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	return u.Username
}

// NormalizeEmail lowercases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
