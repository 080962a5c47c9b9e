package codefmt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	t.Parallel()

	t.Run("short passwords are invalid", func(t *testing.T) {
		res := ValidatePasswordStrength("Short1")
		require.False(t, res.Valid)
		require.Equal(t, StrengthWeak, res.Strength)
		require.Contains(t, res.Message, "8 caracteres")

		require.False(t, ValidatePasswordStrength("").Valid)
		require.False(t, ValidatePasswordStrength("Aa1!Aa1").Valid)
	})

	t.Run("scores character classes", func(t *testing.T) {
		tests := []struct {
			in   string
			want Strength
		}{
			{"password", StrengthWeak},
			{"PASSWORD", StrengthWeak},
			{"password1", StrengthWeak},
			{"Password123", StrengthMedium},
			{"password123!", StrengthMedium},
			{"Password123!", StrengthStrong},
			{"Contraseña-2024", StrengthStrong},
		}

		for _, tt := range tests {
			res := ValidatePasswordStrength(tt.in)
			require.True(t, res.Valid, tt.in)
			require.Equal(t, tt.want, res.Strength, tt.in)
			require.NotEmpty(t, res.Message, tt.in)
		}
	})

	t.Run("length counts characters not bytes", func(t *testing.T) {
		require.False(t, ValidatePasswordStrength("ñññññññ").Valid)
		require.True(t, ValidatePasswordStrength("ññññññññ").Valid)
	})

	t.Run("weak passwords stay valid", func(t *testing.T) {
		res := ValidatePasswordStrength("        ")
		require.True(t, res.Valid)
		require.Equal(t, StrengthWeak, res.Strength)
	})
}
