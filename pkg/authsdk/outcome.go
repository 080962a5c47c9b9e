package authsdk

// LoginOutcome is the result of a login attempt that was not rejected. It is
// one of *Authenticated, *SecondFactorRequired, *SecondFactorSetupRequired or
// *CredentialChangeRequired. Rejections are returned as *AuthError instead.
type LoginOutcome interface {
	loginOutcome()
}

// Authenticated means a session was established.
type Authenticated struct {
	User UserSummary

	// Legacy is set when the session came from the legacy login endpoint,
	// which never reports second-factor status.
	Legacy bool
}

// SecondFactorRequired means the password was accepted and the user must
// resubmit the credentials with a TOTP or backup code.
type SecondFactorRequired struct {
	UserID  string
	Message string
}

// SecondFactorSetupRequired means the user must enroll a second factor before
// a session can be issued.
type SecondFactorSetupRequired struct {
	UserID  string
	Message string

	// SetupToken, when present, can be passed to GetAdminSetupData.
	SetupToken string
}

// CredentialChangeRequired means the account still uses bootstrap credentials
// that must be replaced, typically through CompleteAdminSetup.
type CredentialChangeRequired struct {
	UserID  string
	Message string

	// SetupToken, when present, can be passed to GetAdminSetupData and
	// CompleteAdminSetup.
	SetupToken string
}

func (*Authenticated) loginOutcome()             {}
func (*SecondFactorRequired) loginOutcome()      {}
func (*SecondFactorSetupRequired) loginOutcome() {}
func (*CredentialChangeRequired) loginOutcome()  {}

// outcomeName is used in log records.
func outcomeName(o LoginOutcome) string {
	switch o.(type) {
	case *Authenticated:
		return "authenticated"
	case *SecondFactorRequired:
		return "second_factor_required"
	case *SecondFactorSetupRequired:
		return "second_factor_setup_required"
	case *CredentialChangeRequired:
		return "credential_change_required"
	default:
		return "unknown"
	}
}
