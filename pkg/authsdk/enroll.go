package authsdk

import (
	"context"
	"errors"
	"image"
	"net/http"
	"net/url"
	"strings"

	"github.com/pquerna/otp"

	"github.com/aussiebroadwan/labauth/pkg/codefmt"
)

const (
	pathSetupInitial       = "/api/auth/2fa/setup-initial"
	pathVerifyInitial      = "/api/auth/2fa/verify-initial"
	pathCompleteAdminSetup = "/api/auth/2fa/complete-admin-setup"
	pathAdminSetup         = "/api/auth/2fa/admin-setup"
	pathRegenerateCodes    = "/api/auth/2fa/backup-codes/regenerate"
	pathBackupCodesCount   = "/api/auth/2fa/backup-codes/count"
)

// ErrNoEnrollmentMaterial is returned by EnrollmentMaterial.Key when neither a
// secret nor an otpauth payload is present.
var ErrNoEnrollmentMaterial = errors.New("authsdk: no enrollment material")

// EnrollmentMaterial is what an authenticator app needs to start producing
// codes. QRPayload is usually an otpauth:// URL.
type EnrollmentMaterial struct {
	Secret    string
	QRPayload string
	Issuer    string
	Account   string
}

// newEnrollmentMaterial fills Issuer and Account from an otpauth payload when
// the server did not send them separately.
func newEnrollmentMaterial(secret, qr, issuer, account string) EnrollmentMaterial {
	m := EnrollmentMaterial{Secret: secret, QRPayload: qr, Issuer: issuer, Account: account}
	if m.Issuer != "" && m.Account != "" {
		return m
	}
	if key, err := otp.NewKeyFromURL(qr); err == nil && key.Type() == "totp" {
		if m.Issuer == "" {
			m.Issuer = key.Issuer()
		}
		if m.Account == "" {
			m.Account = key.AccountName()
		}
		if m.Secret == "" {
			m.Secret = key.Secret()
		}
	}
	return m
}

// Key parses the material into an otp.Key. When QRPayload is not an otpauth
// URL the key is rebuilt from Secret, Issuer and Account.
func (m EnrollmentMaterial) Key() (*otp.Key, error) {
	if strings.HasPrefix(m.QRPayload, "otpauth://") {
		return otp.NewKeyFromURL(m.QRPayload)
	}
	if m.Secret == "" {
		return nil, ErrNoEnrollmentMaterial
	}

	label := m.Account
	if m.Issuer != "" {
		label = m.Issuer + ":" + m.Account
	}
	q := url.Values{}
	q.Set("secret", m.Secret)
	if m.Issuer != "" {
		q.Set("issuer", m.Issuer)
	}
	u := url.URL{Scheme: "otpauth", Host: "totp", Path: "/" + label, RawQuery: q.Encode()}

	return otp.NewKeyFromURL(u.String())
}

// QRImage renders the material as a QR code image of the given size.
func (m EnrollmentMaterial) QRImage(width, height int) (image.Image, error) {
	key, err := m.Key()
	if err != nil {
		return nil, err
	}
	return key.Image(width, height)
}

// InitialSetup is returned by SetupInitial.
type InitialSetup struct {
	Material EnrollmentMaterial
	UserID   string
	Email    string
}

// SetupInitial verifies the password of an account without a second factor
// and obtains fresh enrollment material for it.
func (c *SDKClient) SetupInitial(ctx context.Context, email, password string) (*InitialSetup, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, invalidInput(msgMissingField)
	}

	var body SetupInitialResponse
	err := c.exchange(ctx, http.MethodPost, pathSetupInitial,
		SetupInitialRequest{Email: strings.TrimSpace(email), Password: password}, &body, msgSetupInitialFailed)
	if err != nil {
		return nil, err
	}
	if body.Secret == "" && body.QRCode == "" {
		return nil, malformed(msgInvalidResponse, http.StatusOK, nil)
	}

	return &InitialSetup{
		Material: newEnrollmentMaterial(body.Secret, body.QRCode, body.Issuer, body.Account),
		UserID:   body.UserID,
		Email:    body.Email,
	}, nil
}

// VerifyInitial confirms enrollment with the first code from the
// authenticator app and returns the initial backup codes.
func (c *SDKClient) VerifyInitial(ctx context.Context, email, totpCode string) (*VerifyInitialResult, error) {
	if strings.TrimSpace(email) == "" {
		return nil, invalidInput(msgMissingField)
	}
	totpCode = strings.TrimSpace(totpCode)
	if !codefmt.ValidateTOTP(totpCode) {
		return nil, invalidInput(msgInvalidTOTP)
	}

	var body VerifyInitialResponse
	err := c.exchange(ctx, http.MethodPost, pathVerifyInitial,
		VerifyInitialRequest{Email: strings.TrimSpace(email), TOTPCode: totpCode}, &body, msgVerifyFailed)
	if err != nil {
		return nil, err
	}

	result := &VerifyInitialResult{
		Enabled: body.Enabled,
		Codes:   newBackupCodeSet(body.BackupCodes, body.TotalCodes),
	}
	if body.User != nil {
		result.User = body.User.Summary()
	}
	return result, nil
}

// CompleteAdminSetup replaces the bootstrap administrator credentials and
// enables the second factor in a single step.
func (c *SDKClient) CompleteAdminSetup(ctx context.Context, req AdminSetupRequest) (*AdminSetupResult, error) {
	if req.CurrentPassword == "" || strings.TrimSpace(req.NewEmail) == "" || req.NewPassword == "" {
		return nil, invalidInput(msgMissingField)
	}
	if res := codefmt.ValidatePasswordStrength(req.NewPassword); !res.Valid {
		return nil, invalidInput(res.Message)
	}
	code := strings.TrimSpace(req.TOTPCode)
	if !codefmt.ValidateTOTP(code) {
		return nil, invalidInput(msgInvalidTOTP)
	}

	var body CompleteAdminSetupResponse
	err := c.exchange(ctx, http.MethodPost, pathCompleteAdminSetup, CompleteAdminSetupRequest{
		CurrentPassword: req.CurrentPassword,
		NewEmail:        strings.TrimSpace(req.NewEmail),
		NewPassword:     req.NewPassword,
		TOTPCode:        code,
		SetupToken:      req.SetupToken,
	}, &body, msgAdminSetupFailed)
	if err != nil {
		return nil, err
	}

	result := &AdminSetupResult{Codes: newBackupCodeSet(body.BackupCodes, body.TotalCodes)}
	if body.User != nil {
		result.User = body.User.Summary()
	}
	return result, nil
}

// GetAdminSetupData fetches the pending enrollment material identified by a
// setup token, as handed out with a SecondFactorSetupRequired outcome.
func (c *SDKClient) GetAdminSetupData(ctx context.Context, token string) (*AdminSetupData, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, invalidInput(msgSetupTokenInvalid)
	}

	var body AdminSetupDataResponse
	path := pathAdminSetup + "?" + url.Values{"token": {token}}.Encode()
	if err := c.exchange(ctx, http.MethodGet, path, nil, &body, msgSetupTokenInvalid); err != nil {
		return nil, err
	}

	return &AdminSetupData{
		UserID:    body.UserID,
		Name:      body.Name,
		QRPayload: body.QRCode,
		Secret:    body.Secret,
	}, nil
}

// RegenerateBackupCodes replaces every backup code of the signed-in user. The
// previous set stops working as soon as this call succeeds.
func (c *SDKClient) RegenerateBackupCodes(ctx context.Context, totpCode string) (*BackupCodeSet, error) {
	totpCode = strings.TrimSpace(totpCode)
	if !codefmt.ValidateTOTP(totpCode) {
		return nil, invalidInput(msgInvalidTOTP)
	}

	var body BackupCodesResponse
	err := c.exchange(ctx, http.MethodPost, pathRegenerateCodes,
		RegenerateBackupCodesRequest{TOTPCode: totpCode}, &body, msgRegenerateFailed)
	if err != nil {
		return nil, err
	}

	set := newBackupCodeSet(body.BackupCodes, body.TotalCodes)
	return &set, nil
}

// GetBackupCodesCount reports how many unused backup codes the signed-in user
// has left. It never changes server state.
func (c *SDKClient) GetBackupCodesCount(ctx context.Context) (*BackupCodesCount, error) {
	var body BackupCodesCountResponse
	if err := c.exchange(ctx, http.MethodGet, pathBackupCodesCount, nil, &body, msgCountFailed); err != nil {
		return nil, err
	}
	return &BackupCodesCount{Available: body.AvailableCodes, Warning: body.Warning}, nil
}

func newBackupCodeSet(codes []string, total int) BackupCodeSet {
	if total == 0 {
		total = len(codes)
	}
	return BackupCodeSet{Codes: codes, Total: total}
}
