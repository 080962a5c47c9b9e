package service

import "errors"

// Errors returned to handlers. Their text is never shown to users; handlers
// map them to a status code and a Spanish message.
var (
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrInvalidSecondFactor      = errors.New("invalid second factor code")
	ErrCredentialChangeRequired = errors.New("credential change required")
	ErrSecondFactorRequired     = errors.New("second factor required")
	ErrMFASetupRequired         = errors.New("MFA enrollment required")
	ErrMFAAlreadyEnabled        = errors.New("MFA already enabled for this user")
	ErrMFANotEnabled            = errors.New("MFA not enabled for this user")
	ErrNoPendingEnrollment      = errors.New("no pending MFA enrollment")
	ErrInvalidSetupToken        = errors.New("invalid or expired setup token")
	ErrSetupNotRequired         = errors.New("account does not require setup")
	ErrEmailTaken               = errors.New("email already in use")
	ErrWeakPassword             = errors.New("password too weak")
	ErrInvalidRecoveryCode      = errors.New("invalid recovery code")
	ErrExpiredRecoveryCode      = errors.New("expired recovery code")
	ErrUserNotFound             = errors.New("user not found")
)
