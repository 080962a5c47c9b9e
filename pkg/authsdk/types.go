package authsdk

import (
	"strings"
)

// ============================================================================
// Wire Types (shared with the reference authority)
// ============================================================================

// ErrorResponse is the failure body produced by the authority. Older
// deployments use "message" instead of "error"; both are accepted.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Text returns the first non-empty message field.
func (e ErrorResponse) Text() string {
	if msg := strings.TrimSpace(e.Error); msg != "" {
		return msg
	}
	return strings.TrimSpace(e.Message)
}

// MessageResponse is a plain confirmation body.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserPayload is the user summary as sent on the wire. Has2FA is a pointer so
// that an absent field can be told apart from an explicit false.
type UserPayload struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Email     string   `json:"email,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	Has2FA    *bool    `json:"has2FA,omitempty"`
}

// Summary converts the payload, defaulting Has2FA to false when absent.
func (p UserPayload) Summary() UserSummary {
	u := UserSummary{
		ID:        p.ID,
		Name:      p.Name,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Roles:     append([]string(nil), p.Roles...),
	}
	if p.Has2FA != nil {
		u.Has2FA = *p.Has2FA
	}
	return u
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Identifier        string `json:"identifier"`
	Password          string `json:"password"`
	TOTPCode          string `json:"totpCode,omitempty"`
	DeviceFingerprint string `json:"deviceFingerprint,omitempty"`
	TrustDevice       bool   `json:"trustDevice,omitempty"`
}

// LegacyLoginRequest is the body of POST /api/login. The legacy endpoint has
// no notion of second factors or devices.
type LegacyLoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// LoginResponse is the success body of both login endpoints.
type LoginResponse struct {
	User *UserPayload `json:"user"`
}

// ForbiddenResponse is the 403 body of the primary login endpoint. At most one
// marker is expected to be set; when several are, the decode order in
// forbiddenVariants decides.
type ForbiddenResponse struct {
	RequiresCredentialChange bool   `json:"requiresCredentialChange,omitempty"`
	Requires2FASetup         bool   `json:"requires2FASetup,omitempty"`
	Requires2FA              bool   `json:"requires2FA,omitempty"`
	UserID                   string `json:"userId,omitempty"`
	Message                  string `json:"message,omitempty"`
	SetupToken               string `json:"setupToken,omitempty"`
}

// SetupInitialRequest is the body of POST /api/auth/2fa/setup-initial.
type SetupInitialRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SetupInitialResponse carries freshly issued enrollment material.
type SetupInitialResponse struct {
	Secret  string `json:"secret"`
	QRCode  string `json:"qrCode"`
	Issuer  string `json:"issuer,omitempty"`
	Account string `json:"account,omitempty"`
	UserID  string `json:"userId,omitempty"`
	Email   string `json:"email,omitempty"`
}

// VerifyInitialRequest is the body of POST /api/auth/2fa/verify-initial.
type VerifyInitialRequest struct {
	Email    string `json:"email"`
	TOTPCode string `json:"totpCode"`
}

// VerifyInitialResponse is returned once the first TOTP code was accepted.
type VerifyInitialResponse struct {
	Enabled     bool         `json:"enabled"`
	BackupCodes []string     `json:"backupCodes"`
	TotalCodes  int          `json:"totalCodes"`
	User        *UserPayload `json:"user,omitempty"`
}

// CompleteAdminSetupRequest is the body of POST /api/auth/2fa/complete-admin-setup.
type CompleteAdminSetupRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewEmail        string `json:"newEmail"`
	NewPassword     string `json:"newPassword"`
	TOTPCode        string `json:"totpCode"`
	SetupToken      string `json:"setupToken,omitempty"`
}

// CompleteAdminSetupResponse is returned after the administrator finished the
// combined credential change and enrollment.
type CompleteAdminSetupResponse struct {
	BackupCodes []string     `json:"backupCodes"`
	TotalCodes  int          `json:"totalCodes"`
	User        *UserPayload `json:"user,omitempty"`
}

// AdminSetupDataResponse is the body of GET /api/auth/2fa/admin-setup.
type AdminSetupDataResponse struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	QRCode string `json:"qrCode"`
	Secret string `json:"secret"`
}

// RegenerateBackupCodesRequest is the body of POST /api/auth/2fa/backup-codes/regenerate.
type RegenerateBackupCodesRequest struct {
	TOTPCode string `json:"totpCode"`
}

// BackupCodesResponse carries a newly issued set of backup codes.
type BackupCodesResponse struct {
	BackupCodes []string `json:"backupCodes"`
	TotalCodes  int      `json:"totalCodes"`
}

// BackupCodesCountResponse is the body of GET /api/auth/2fa/backup-codes/count.
type BackupCodesCountResponse struct {
	AvailableCodes int    `json:"availableCodes"`
	Warning        string `json:"warning,omitempty"`
}

// ForgotPasswordRequest is the body of POST /api/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordBody is the body of POST /api/auth/reset-password.
type ResetPasswordBody struct {
	Email        string `json:"email"`
	RecoveryCode string `json:"recoveryCode"`
	TOTPCode     string `json:"totpCode"`
	NewPassword  string `json:"newPassword"`
}

// ============================================================================
// Client-Facing Types
// ============================================================================

// Credentials are the inputs of a single login attempt. They are never stored.
type Credentials struct {
	Identifier        string // username or email
	Password          string
	TOTPCode          string // TOTP or backup code, optional
	DeviceFingerprint string // optional
	TrustDevice       bool   // remember this device after a successful second factor
}

// UserSummary describes the signed-in user.
type UserSummary struct {
	ID        string
	Name      string
	FirstName string
	LastName  string
	Email     string
	Roles     []string
	Has2FA    bool
}

// HasRole reports whether the user holds role.
func (u UserSummary) HasRole(role string) bool {
	for _, r := range u.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// BackupCodeSet is an issued batch of single-use backup codes. A new set
// replaces the previous one entirely.
type BackupCodeSet struct {
	Codes []string
	Total int
}

// BackupCodesCount is the server's view of how many backup codes remain.
// Warning is forwarded unchanged from the server.
type BackupCodesCount struct {
	Available int
	Warning   string
}

// VerifyInitialResult is returned by VerifyInitial.
type VerifyInitialResult struct {
	Enabled bool
	Codes   BackupCodeSet
	User    UserSummary
}

// AdminSetupRequest holds the fields of the first-run administrator setup.
type AdminSetupRequest struct {
	CurrentPassword string
	NewEmail        string
	NewPassword     string
	TOTPCode        string
	SetupToken      string // optional, identifies the pending account when no session exists
}

// AdminSetupResult is returned by CompleteAdminSetup.
type AdminSetupResult struct {
	Codes BackupCodeSet
	User  UserSummary
}

// AdminSetupData is the pending enrollment material fetched with a setup token.
type AdminSetupData struct {
	UserID    string
	Name      string
	QRPayload string
	Secret    string
}

// Material returns the data as EnrollmentMaterial.
func (d AdminSetupData) Material() EnrollmentMaterial {
	return newEnrollmentMaterial(d.Secret, d.QRPayload, "", "")
}

// ResetPasswordRequest holds the fields of a password reset.
type ResetPasswordRequest struct {
	Email        string
	RecoveryCode string
	TOTPCode     string
	NewPassword  string
}
