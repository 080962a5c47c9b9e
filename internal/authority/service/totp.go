package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/aussiebroadwan/labauth/pkg/cryptox"
)

// TOTPKeys creates second-factor keys and checks codes against them. Keys are
// stored as sealed otpauth URLs so the QR payload can be rebuilt later.
type TOTPKeys struct {
	Box    *cryptox.SecretBox
	Issuer string
}

// Generate creates a key for account and returns it with its sealed form.
func (k *TOTPKeys) Generate(account string) (*otp.Key, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      k.Issuer,
		AccountName: account,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	sealed, err := k.Box.Seal(key.URL())
	if err != nil {
		return nil, "", fmt.Errorf("failed to seal TOTP key: %w", err)
	}
	return key, sealed, nil
}

// Open unseals a stored key.
func (k *TOTPKeys) Open(sealed string) (*otp.Key, error) {
	raw, err := k.Box.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to open TOTP key: %w", err)
	}
	return otp.NewKeyFromURL(raw)
}

// Validate reports whether code is valid for the sealed key at now, allowing
// one period of clock skew either way.
func (k *TOTPKeys) Validate(code, sealed string, now time.Time) (bool, error) {
	key, err := k.Open(sealed)
	if err != nil {
		return false, err
	}
	return totp.ValidateCustom(strings.TrimSpace(code), key.Secret(), now, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}
