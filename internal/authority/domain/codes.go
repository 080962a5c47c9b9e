package domain

import "time"

// RecoveryCode is an emailed single-use code that authorizes one password
// reset. Only its fingerprint is stored.
type RecoveryCode struct {
	ID        string
	UserID    string
	CodeHash  string
	Attempts  int
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the code can no longer be used at now.
func (c RecoveryCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// SetupToken identifies an account that has to finish setup before it can
// sign in. Only its fingerprint is stored.
type SetupToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TrustedDevice lets a device skip the second factor until ExpiresAt.
type TrustedDevice struct {
	ID              string
	UserID          string
	FingerprintHash string
	ExpiresAt       time.Time
	CreatedAt       time.Time
}
