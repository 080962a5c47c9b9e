package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/aussiebroadwan/labauth/pkg/codefmt"
)

// codeAlphabet leaves out characters that are easy to misread (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString returns n characters drawn uniformly from charset.
func RandomString(charset string, n int) (string, error) {
	if n <= 0 || charset == "" {
		return "", fmt.Errorf("invalid random string request: n=%d", n)
	}

	out := make([]byte, n)
	limit := big.NewInt(int64(len(charset)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate random string: %w", err)
		}
		out[i] = charset[idx.Int64()]
	}
	return string(out), nil
}

// NewBackupCode returns a single-use backup code in XXXX-XXXX-XXXX form.
func NewBackupCode() (string, error) {
	raw, err := RandomString(codeAlphabet, codefmt.BackupCodeLength)
	if err != nil {
		return "", err
	}
	return codefmt.FormatBackupCode(raw), nil
}

// NewBackupCodes returns n distinct backup codes.
func NewBackupCodes(n int) ([]string, error) {
	codes := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for len(codes) < n {
		code, err := NewBackupCode()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

// NewRecoveryCode returns an emailed recovery code in XXXX-XXXX form.
func NewRecoveryCode() (string, error) {
	raw, err := RandomString(codeAlphabet, codefmt.RecoveryCodeLength)
	if err != nil {
		return "", err
	}
	return codefmt.FormatRecoveryCode(raw), nil
}

// GeneratePassword returns a random 16 character alphanumeric password, used
// for the bootstrap administrator when none is configured.
func GeneratePassword() (string, error) {
	return RandomString(passwordCharset, 16)
}
