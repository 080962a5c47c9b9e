package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/labauth/internal/authority/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Sub-repositories are reached
// through methods so a transaction can hand out the same repositories bound
// to itself.
type Store interface {
	Users() Users
	BackupCodes() BackupCodes
	RecoveryCodes() RecoveryCodes
	SetupTokens() SetupTokens
	TrustedDevices() TrustedDevices

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction that is committed when fn returns nil
	// and rolled back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches the normalized address.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser returns ErrAlreadyExists when the username or email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID, hash string) error

	// UpdateCredentials replaces email and password and clears the
	// must-change flag. Returns ErrAlreadyExists when the email is taken.
	UpdateCredentials(ctx context.Context, userID, email, hash string) error

	// SetPendingTOTP stores a sealed enrollment secret until expiresAt.
	SetPendingTOTP(ctx context.Context, userID, sealed string, expiresAt time.Time) error

	// ActivatePendingTOTP promotes the pending secret and records enabledAt.
	ActivatePendingTOTP(ctx context.Context, userID string, enabledAt time.Time) error

	IsEmpty(ctx context.Context) (bool, error)
}

type BackupCodes interface {
	// ReplaceBackupCodes deletes every code of the user and stores hashes.
	ReplaceBackupCodes(ctx context.Context, userID string, hashes []string) error

	// ConsumeBackupCode deletes a matching code and reports whether one existed.
	ConsumeBackupCode(ctx context.Context, userID, hash string) (bool, error)

	CountUserBackupCodes(ctx context.Context, userID string) (int, error)
}

type RecoveryCodes interface {
	CreateRecoveryCode(ctx context.Context, c domain.RecoveryCode) error

	// GetRecoveryCode returns the code even when expired, so callers can tell
	// an expired code from a wrong one.
	GetRecoveryCode(ctx context.Context, userID, hash string) (domain.RecoveryCode, error)

	// IncrementRecoveryAttempts bumps the counter of every code of the user
	// and returns the highest value.
	IncrementRecoveryAttempts(ctx context.Context, userID string) (int, error)

	DeleteUserRecoveryCodes(ctx context.Context, userID string) error
	DeleteExpiredRecoveryCodes(ctx context.Context, now time.Time) error
}

type SetupTokens interface {
	CreateSetupToken(ctx context.Context, t domain.SetupToken) error

	// GetActiveSetupToken returns an unexpired token by fingerprint.
	GetActiveSetupToken(ctx context.Context, hash string, now time.Time) (domain.SetupToken, error)

	DeleteUserSetupTokens(ctx context.Context, userID string) error
	DeleteExpiredSetupTokens(ctx context.Context, now time.Time) error
}

type TrustedDevices interface {
	TrustDevice(ctx context.Context, d domain.TrustedDevice) error
	IsTrusted(ctx context.Context, userID, hash string, now time.Time) (bool, error)
	DeleteUserDevices(ctx context.Context, userID string) error
	DeleteExpiredDevices(ctx context.Context, now time.Time) error
}
