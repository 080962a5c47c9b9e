package codefmt

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinPasswordLength is the only hard requirement a password must meet.
const MinPasswordLength = 8

// PasswordSymbols is the set of characters that count as symbols when scoring.
const PasswordSymbols = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?`~"

// Strength is an advisory rating of a password.
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// StrengthResult is the outcome of ValidatePasswordStrength.
type StrengthResult struct {
	Valid    bool     `json:"isValid"`
	Strength Strength `json:"strength"`
	Message  string   `json:"message"`
}

const (
	msgTooShort = "La contraseña debe tener al menos 8 caracteres"
	msgWeak     = "Contraseña débil"
	msgMedium   = "Contraseña media"
	msgStrong   = "Contraseña fuerte"
)

// ValidatePasswordStrength rates s. Only a length below MinPasswordLength makes
// the result invalid; the character-class score (lowercase, uppercase, digit,
// symbol) is advisory.
func ValidatePasswordStrength(s string) StrengthResult {
	if utf8.RuneCountInString(s) < MinPasswordLength {
		return StrengthResult{Valid: false, Strength: StrengthWeak, Message: msgTooShort}
	}

	switch score := characterClasses(s); {
	case score >= 4:
		return StrengthResult{Valid: true, Strength: StrengthStrong, Message: msgStrong}
	case score == 3:
		return StrengthResult{Valid: true, Strength: StrengthMedium, Message: msgMedium}
	default:
		return StrengthResult{Valid: true, Strength: StrengthWeak, Message: msgWeak}
	}
}

// characterClasses counts how many of the four character classes appear in s.
func characterClasses(s string) int {
	var lower, upper, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}

	score := 0
	for _, present := range []bool{lower, upper, digit, symbol} {
		if present {
			score++
		}
	}
	return score
}
