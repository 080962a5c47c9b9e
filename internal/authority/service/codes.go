package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/labauth/internal/authority/domain"
	"github.com/aussiebroadwan/labauth/internal/authority/store"
	"github.com/aussiebroadwan/labauth/pkg/codefmt"
	"github.com/aussiebroadwan/labauth/pkg/cryptox"
)

// BackupCodeCount is the size of every issued backup code set.
const BackupCodeCount = 10

// Authentication method references recorded in session claims.
const (
	AMRPassword = "pwd"
	AMROTP      = "otp"
	AMRBackup   = "backup"
	AMRDevice   = "device"
)

// codeHash fingerprints a backup or recovery code in its canonical form, so
// "abcd1234efgh" and "ABCD-1234-EFGH" match the same row.
func codeHash(code string) string {
	return cryptox.FingerprintToken(codefmt.FormatBackupCode(code))
}

// issueBackupCodes generates a fresh set and replaces the stored one.
func issueBackupCodes(ctx context.Context, tx store.Store, userID string) ([]string, error) {
	codes, err := cryptox.NewBackupCodes(BackupCodeCount)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = codeHash(c)
	}
	if err := tx.BackupCodes().ReplaceBackupCodes(ctx, userID, hashes); err != nil {
		return nil, fmt.Errorf("failed to store backup codes: %w", err)
	}
	return codes, nil
}

// checkSecondFactor accepts a TOTP code or an unused backup code for a user
// with MFA enabled. A matching backup code is consumed through st.
func checkSecondFactor(ctx context.Context, st store.Store, keys *TOTPKeys, u domain.User, code string, now time.Time) (string, error) {
	switch {
	case codefmt.ValidateTOTP(code):
		ok, err := keys.Validate(code, u.TOTPKey, now)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", ErrInvalidSecondFactor
		}
		return AMROTP, nil

	case codefmt.ValidateBackupCode(code):
		ok, err := st.BackupCodes().ConsumeBackupCode(ctx, u.ID, codeHash(code))
		if err != nil {
			return "", fmt.Errorf("failed to consume backup code: %w", err)
		}
		if !ok {
			return "", ErrInvalidSecondFactor
		}
		return AMRBackup, nil

	default:
		return "", ErrInvalidSecondFactor
	}
}
