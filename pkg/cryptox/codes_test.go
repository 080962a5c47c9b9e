package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/labauth/pkg/codefmt"
)

func TestNewBackupCodes(t *testing.T) {
	t.Parallel()

	codes, err := NewBackupCodes(10)
	require.NoError(t, err)
	require.Len(t, codes, 10)

	seen := map[string]bool{}
	for _, c := range codes {
		require.True(t, codefmt.ValidateBackupCode(c), "code %q", c)
		require.Equal(t, codefmt.FormatBackupCode(c), c, "codes are issued in canonical form")
		require.False(t, seen[c], "duplicate code %q", c)
		seen[c] = true
	}
}

func TestNewRecoveryCode(t *testing.T) {
	t.Parallel()

	code, err := NewRecoveryCode()
	require.NoError(t, err)
	require.Len(t, code, 9)
	require.True(t, codefmt.ValidateRecoveryCode(code))
	require.Equal(t, "-", code[4:5])
}

func TestRandomString(t *testing.T) {
	t.Parallel()

	s, err := RandomString(codeAlphabet, 64)
	require.NoError(t, err)
	for _, r := range s {
		require.True(t, strings.ContainsRune(codeAlphabet, r))
	}

	_, err = RandomString(codeAlphabet, 0)
	require.Error(t, err)
}

func TestGeneratePassword(t *testing.T) {
	t.Parallel()

	password, err := GeneratePassword()
	require.NoError(t, err)
	require.Len(t, password, 16)
	require.True(t, codefmt.ValidatePasswordStrength(password).Valid)

	hash, err := Hasher{}.Hash(password)
	require.NoError(t, err)
	require.NoError(t, Hasher{}.Verify(password, hash))
}
