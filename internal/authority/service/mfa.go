package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"

	"github.com/aussiebroadwan/labauth/internal/authority/domain"
	"github.com/aussiebroadwan/labauth/internal/authority/store"
	"github.com/aussiebroadwan/labauth/pkg/codefmt"
	"github.com/aussiebroadwan/labauth/pkg/cryptox"
	"github.com/aussiebroadwan/labauth/pkg/slogx"
)

const (
	DefaultEnrollmentTTL        = 15 * time.Minute
	DefaultBackupCodeWarnThresh = 3
)

// Warnings sent with the backup code count.
const (
	WarnNoBackupCodes  = "No te quedan códigos de respaldo. Genera nuevos códigos."
	WarnFewBackupCodes = "Te quedan pocos códigos de respaldo. Considera generar nuevos códigos."
)

// Enrollment is freshly issued second-factor material.
type Enrollment struct {
	User domain.User
	Key  *otp.Key
}

// AdminSetupInput is the first-run administrator setup. The account is
// identified by UserID (pending session) or SetupToken.
type AdminSetupInput struct {
	UserID          string
	SetupToken      string
	CurrentPassword string
	NewEmail        string
	NewPassword     string
	TOTPCode        string
}

type MFAService struct {
	Store  store.Store
	Hasher cryptox.Hasher
	Keys   *TOTPKeys

	EnrollmentTTL time.Duration

	// WarnThreshold is the remaining backup code count at or below which a
	// warning is attached.
	WarnThreshold int

	Now func() time.Time
}

func (s *MFAService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *MFAService) enrollmentTTL() time.Duration {
	if s.EnrollmentTTL > 0 {
		return s.EnrollmentTTL
	}
	return DefaultEnrollmentTTL
}

// SetupInitial verifies the password of an account without a second factor
// and stores a new pending key for it.
func (s *MFAService) SetupInitial(ctx context.Context, email, password string) (Enrollment, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return Enrollment{}, ErrInvalidCredentials
	}
	if err != nil {
		return Enrollment{}, fmt.Errorf("failed to load user: %w", err)
	}
	if err := s.Hasher.Verify(password, u.PasswordHash); err != nil {
		return Enrollment{}, ErrInvalidCredentials
	}
	if u.HasMFA() {
		return Enrollment{}, ErrMFAAlreadyEnabled
	}

	key, err := s.newPendingKey(ctx, u)
	if err != nil {
		return Enrollment{}, err
	}
	return Enrollment{User: u, Key: key}, nil
}

// VerifyInitial activates the pending key once code matches it and issues
// the first backup code set.
func (s *MFAService) VerifyInitial(ctx context.Context, email, code string) (domain.User, []string, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, nil, ErrNoPendingEnrollment
	}
	if err != nil {
		return domain.User{}, nil, fmt.Errorf("failed to load user: %w", err)
	}
	if u.HasMFA() {
		return domain.User{}, nil, ErrMFAAlreadyEnabled
	}
	if u.MustChangeCredentials {
		return domain.User{}, nil, ErrCredentialChangeRequired
	}

	codes, err := s.activate(ctx, u, code, nil)
	if err != nil {
		return domain.User{}, nil, err
	}
	u, err = s.Store.Users().GetUserByID(ctx, u.ID)
	return u, codes, err
}

// AdminSetupData returns the account behind a setup token together with its
// pending key, creating one when none is pending.
func (s *MFAService) AdminSetupData(ctx context.Context, token string) (Enrollment, error) {
	u, err := s.userForSetupToken(ctx, token)
	if err != nil {
		return Enrollment{}, err
	}
	if u.HasMFA() {
		return Enrollment{}, ErrMFAAlreadyEnabled
	}

	if u.HasPendingTOTP(s.now()) {
		key, err := s.Keys.Open(u.PendingTOTPKey)
		if err == nil {
			return Enrollment{User: u, Key: key}, nil
		}
		slogx.FromContext(ctx).Warn("pending key unreadable, issuing a new one", "user_id", u.ID, "err", err)
	}

	key, err := s.newPendingKey(ctx, u)
	if err != nil {
		return Enrollment{}, err
	}
	return Enrollment{User: u, Key: key}, nil
}

// CompleteAdminSetup replaces the bootstrap credentials and activates the
// pending key in one transaction.
func (s *MFAService) CompleteAdminSetup(ctx context.Context, in AdminSetupInput) (domain.User, []string, error) {
	var (
		u   domain.User
		err error
	)
	switch {
	case in.UserID != "":
		u, err = s.Store.Users().GetUserByID(ctx, in.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, nil, ErrUserNotFound
		}
	case in.SetupToken != "":
		u, err = s.userForSetupToken(ctx, in.SetupToken)
	default:
		return domain.User{}, nil, ErrInvalidSetupToken
	}
	if err != nil {
		return domain.User{}, nil, err
	}

	if !u.MustChangeCredentials {
		return domain.User{}, nil, ErrSetupNotRequired
	}
	if err := s.Hasher.Verify(in.CurrentPassword, u.PasswordHash); err != nil {
		return domain.User{}, nil, ErrInvalidCredentials
	}
	if !codefmt.ValidatePasswordStrength(in.NewPassword).Valid {
		return domain.User{}, nil, ErrWeakPassword
	}

	hash, err := s.Hasher.Hash(in.NewPassword)
	if err != nil {
		return domain.User{}, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	codes, err := s.activate(ctx, u, in.TOTPCode, func(tx store.Tx) error {
		err := tx.Users().UpdateCredentials(ctx, u.ID, in.NewEmail, hash)
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrEmailTaken
		}
		if err != nil {
			return fmt.Errorf("failed to update credentials: %w", err)
		}
		return tx.SetupTokens().DeleteUserSetupTokens(ctx, u.ID)
	})
	if err != nil {
		return domain.User{}, nil, err
	}

	u, err = s.Store.Users().GetUserByID(ctx, u.ID)
	return u, codes, err
}

// RegenerateBackupCodes replaces the backup code set after a TOTP check.
// Backup codes are not accepted here.
func (s *MFAService) RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !u.HasMFA() {
		return nil, ErrMFANotEnabled
	}
	if !codefmt.ValidateTOTP(code) {
		return nil, ErrInvalidSecondFactor
	}
	ok, err := s.Keys.Validate(code, u.TOTPKey, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidSecondFactor
	}

	var codes []string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		codes, err = issueBackupCodes(ctx, tx, u.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("backup codes regenerated", "user_id", u.ID)
	return codes, nil
}

// BackupCodesCount returns the number of unused codes and, when it is at or
// below the warning threshold, a warning for the user.
func (s *MFAService) BackupCodesCount(ctx context.Context, userID string) (int, string, error) {
	n, err := s.Store.BackupCodes().CountUserBackupCodes(ctx, userID)
	if err != nil {
		return 0, "", fmt.Errorf("failed to count backup codes: %w", err)
	}

	threshold := s.WarnThreshold
	if threshold <= 0 {
		threshold = DefaultBackupCodeWarnThresh
	}

	switch {
	case n == 0:
		return n, WarnNoBackupCodes, nil
	case n <= threshold:
		return n, WarnFewBackupCodes, nil
	default:
		return n, "", nil
	}
}

// activate checks code against the pending key and, in one transaction, runs
// extra, promotes the key and issues backup codes.
func (s *MFAService) activate(ctx context.Context, u domain.User, code string, extra func(tx store.Tx) error) ([]string, error) {
	now := s.now()
	if !u.HasPendingTOTP(now) {
		return nil, ErrNoPendingEnrollment
	}
	if !codefmt.ValidateTOTP(code) {
		return nil, ErrInvalidSecondFactor
	}
	ok, err := s.Keys.Validate(code, u.PendingTOTPKey, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidSecondFactor
	}

	var codes []string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if extra != nil {
			if err := extra(tx); err != nil {
				return err
			}
		}
		if err := tx.Users().ActivatePendingTOTP(ctx, u.ID, now); err != nil {
			return fmt.Errorf("failed to enable MFA: %w", err)
		}
		codes, err = issueBackupCodes(ctx, tx, u.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("MFA enabled", "user_id", u.ID)
	return codes, nil
}

func (s *MFAService) newPendingKey(ctx context.Context, u domain.User) (*otp.Key, error) {
	key, sealed, err := s.Keys.Generate(u.Email)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Users().SetPendingTOTP(ctx, u.ID, sealed, s.now().Add(s.enrollmentTTL())); err != nil {
		return nil, fmt.Errorf("failed to store pending key: %w", err)
	}
	return key, nil
}

func (s *MFAService) userForSetupToken(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, ErrInvalidSetupToken
	}
	t, err := s.Store.SetupTokens().GetActiveSetupToken(ctx, cryptox.FingerprintToken(token), s.now())
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrInvalidSetupToken
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to load setup token: %w", err)
	}

	u, err := s.Store.Users().GetUserByID(ctx, t.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrInvalidSetupToken
	}
	return u, err
}
