package codefmt

import (
	"strings"
)

const (
	// TOTPLength is the number of digits in a TOTP code.
	TOTPLength = 6

	// BackupCodeLength is the number of alphanumeric characters in a backup code.
	BackupCodeLength = 12

	// RecoveryCodeLength is the number of alphanumeric characters in a recovery code.
	RecoveryCodeLength = 8

	groupSize = 4
	separator = "-"
)

// ValidateTOTP reports whether s is exactly six ASCII digits.
func ValidateTOTP(s string) bool {
	if len(s) != TOTPLength {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ValidateBackupCode reports whether s is a backup code once hyphens are
// removed: exactly twelve alphanumeric characters, any case.
func ValidateBackupCode(s string) bool {
	return isAlnumOfLength(stripHyphens(s), BackupCodeLength)
}

// ValidateRecoveryCode reports whether s is a recovery code once hyphens are
// removed: exactly eight alphanumeric characters, any case.
func ValidateRecoveryCode(s string) bool {
	return isAlnumOfLength(stripHyphens(s), RecoveryCodeLength)
}

// FormatBackupCode strips every non-alphanumeric character, uppercases the
// rest and groups it in blocks of four (ABCD-1234-EFGH). Partial input is
// grouped the same way without padding.
func FormatBackupCode(s string) string {
	return group(NormalizeCode(s))
}

// FormatRecoveryCode applies the backup code normalization to a recovery code,
// which yields two groups of four for a complete code (ABCD-1234).
func FormatRecoveryCode(s string) string {
	return group(NormalizeCode(s))
}

// NormalizeCode keeps only ASCII letters and digits from s and uppercases them.
func NormalizeCode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := range len(s) {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		}
	}
	return b.String()
}

// IsSecondFactorCode reports whether s can be submitted where a TOTP code is
// expected, either as a TOTP code or as a backup code.
func IsSecondFactorCode(s string) bool {
	return ValidateTOTP(s) || ValidateBackupCode(s)
}

func group(s string) string {
	if len(s) <= groupSize {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/groupSize)
	for i := 0; i < len(s); i += groupSize {
		if i > 0 {
			b.WriteString(separator)
		}
		end := min(i+groupSize, len(s))
		b.WriteString(s[i:end])
	}
	return b.String()
}

func stripHyphens(s string) string {
	return strings.ReplaceAll(s, separator, "")
}

func isAlnumOfLength(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := range len(s) {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
