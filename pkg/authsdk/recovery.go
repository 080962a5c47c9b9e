package authsdk

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/labauth/pkg/codefmt"
)

const (
	pathForgotPassword = "/api/auth/forgot-password"
	pathResetPassword  = "/api/auth/reset-password"
)

// ForgotPassword asks the authority to send a recovery code to email. The
// authority answers the same way whether or not the account exists.
func (c *SDKClient) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, invalidInput(msgMissingField)
	}

	var body MessageResponse
	err := c.exchange(ctx, http.MethodPost, pathForgotPassword, ForgotPasswordRequest{Email: email}, &body, msgForgotFailed)
	if err != nil {
		return nil, err
	}
	return &body, nil
}

// ResetPassword sets a new password using a recovery code and a second
// factor. Server failures are translated into one of a few canonical
// messages when they can be recognized.
func (c *SDKClient) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*MessageResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.RecoveryCode == "" || req.TOTPCode == "" || req.NewPassword == "" {
		return nil, invalidInput(msgMissingField)
	}
	if !codefmt.ValidateRecoveryCode(codefmt.FormatRecoveryCode(req.RecoveryCode)) {
		return nil, invalidInput(msgInvalidRecoveryCode)
	}
	code := strings.TrimSpace(req.TOTPCode)
	if !codefmt.IsSecondFactorCode(code) {
		return nil, invalidInput(msgInvalidSecondFactor)
	}
	if !codefmt.ValidateTOTP(code) {
		code = codefmt.FormatBackupCode(code)
	}
	if res := codefmt.ValidatePasswordStrength(req.NewPassword); !res.Valid {
		return nil, invalidInput(res.Message)
	}

	var body MessageResponse
	err := c.exchange(ctx, http.MethodPost, pathResetPassword, ResetPasswordBody{
		Email:        email,
		RecoveryCode: codefmt.FormatRecoveryCode(req.RecoveryCode),
		TOTPCode:     code,
		NewPassword:  req.NewPassword,
	}, &body, msgResetFailed)
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) && authErr.Kind == KindRejected {
			authErr.Message = classifyRecoveryFailure(authErr.Message)
		}
		return nil, err
	}
	return &body, nil
}

// recoveryRule maps a recognizable server failure to a canonical message.
type recoveryRule struct {
	matches func(lower string) bool
	message string
}

// recoveryRules are evaluated in order against the lowercased failure text.
var recoveryRules = []recoveryRule{
	{
		matches: containsAll("expirado"),
		message: "El código de recuperación ha expirado. Solicita uno nuevo.",
	},
	{
		matches: containsAll("código de recuperación"),
		message: "El código de recuperación es incorrecto.",
	},
	{
		matches: containsAll("código de autenticación"),
		message: "El código de autenticación es incorrecto.",
	},
	{
		matches: func(s string) bool {
			return strings.Contains(s, "contraseña") && containsAny(s, "débil", "al menos")
		},
		message: "La contraseña debe tener al menos 8 caracteres, incluyendo mayúsculas, minúsculas, números y símbolos.",
	},
}

// classifyRecoveryFailure returns the canonical message for msg, or msg itself
// when no rule applies.
func classifyRecoveryFailure(msg string) string {
	lower := strings.ToLower(msg)
	for _, rule := range recoveryRules {
		if rule.matches(lower) {
			return rule.message
		}
	}
	return msg
}

func containsAll(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if !strings.Contains(s, sub) {
				return false
			}
		}
		return true
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
