package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/labauth/pkg/codefmt"
)

const (
	pathLogin       = "/api/auth/login"
	pathLegacyLogin = "/api/login"
)

// Login authenticates with the primary endpoint and falls back to the legacy
// endpoint when the primary one does not exist on the deployment or cannot be
// reached. Only one request is made per stage and no stage is retried.
//
// A non-empty TOTPCode must be a six-digit TOTP code or a backup code; backup
// codes are sent in their canonical XXXX-XXXX-XXXX form.
func (c *SDKClient) Login(ctx context.Context, creds Credentials) (LoginOutcome, error) {
	if strings.TrimSpace(creds.Identifier) == "" || creds.Password == "" {
		return nil, invalidInput(msgMissingField)
	}
	if creds.TOTPCode != "" {
		code := strings.TrimSpace(creds.TOTPCode)
		if !codefmt.IsSecondFactorCode(code) {
			return nil, invalidInput(msgInvalidSecondFactor)
		}
		if !codefmt.ValidateTOTP(code) {
			code = codefmt.FormatBackupCode(code)
		}
		creds.TOTPCode = code
	}

	login := withFallback(c.primaryLogin, c.legacyLogin, qualifiesForFallback, c.logger())

	outcome, err := login(ctx, creds)
	if err != nil {
		return nil, err
	}

	c.logger().Debug("login_outcome", "outcome", outcomeName(outcome))
	return outcome, nil
}

// loginStage is one step of the login pipeline.
type loginStage func(ctx context.Context, creds Credentials) (LoginOutcome, error)

// withFallback runs primary and hands the same credentials to fallback when
// primary fails with an error accepted by qualifies. A cancelled or expired
// context never advances the pipeline.
func withFallback(primary, fallback loginStage, qualifies func(error) bool, logger *slog.Logger) loginStage {
	return func(ctx context.Context, creds Credentials) (LoginOutcome, error) {
		outcome, err := primary(ctx, creds)
		if err == nil || !qualifies(err) || ctx.Err() != nil {
			return outcome, err
		}

		logger.Info("login_fallback", "reason", err.Error(), "cause", errors.Unwrap(err))
		return fallback(ctx, creds)
	}
}

// qualifiesForFallback accepts the two conditions under which the legacy
// endpoint is tried: a missing primary endpoint or an unreachable server.
func qualifiesForFallback(err error) bool {
	return errors.Is(err, ErrEndpointNotFound) || errors.Is(err, ErrNetworkUnreachable)
}

// primaryLogin posts the full credentials to the primary endpoint.
func (c *SDKClient) primaryLogin(ctx context.Context, creds Credentials) (LoginOutcome, error) {
	resp, err := c.send(ctx, http.MethodPost, pathLogin, LoginRequest{
		Identifier:        creds.Identifier,
		Password:          creds.Password,
		TOTPCode:          creds.TOTPCode,
		DeviceFingerprint: creds.DeviceFingerprint,
		TrustDevice:       creds.TrustDevice,
	})
	if err != nil {
		return nil, err
	}

	switch {
	case resp.ok():
		user, err := decodeUser(resp)
		if err != nil {
			return nil, err
		}
		return &Authenticated{User: user}, nil
	case resp.status == http.StatusForbidden:
		return decodeForbidden(resp)
	case resp.status == http.StatusNotFound:
		return nil, &AuthError{Kind: KindRejected, Message: msgAuthFailed, StatusCode: resp.status, Err: ErrEndpointNotFound}
	default:
		return nil, loginRejection(resp)
	}
}

// legacyLogin posts only the identifier and password to the legacy endpoint.
// The legacy endpoint predates second factors, so the user never reports one.
func (c *SDKClient) legacyLogin(ctx context.Context, creds Credentials) (LoginOutcome, error) {
	resp, err := c.send(ctx, http.MethodPost, pathLegacyLogin, LegacyLoginRequest{
		Identifier: creds.Identifier,
		Password:   creds.Password,
	})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, rejection(resp, msgAuthFailed)
	}

	user, err := decodeUser(resp)
	if err != nil {
		return nil, err
	}
	user.Has2FA = false

	return &Authenticated{User: user, Legacy: true}, nil
}

func decodeUser(resp *rawResponse) (UserSummary, error) {
	var body LoginResponse
	if err := decodeJSON(resp, &body); err != nil {
		return UserSummary{}, err
	}
	if body.User == nil || body.User.ID == "" {
		return UserSummary{}, malformed(msgInvalidResponse, resp.status, nil)
	}
	return body.User.Summary(), nil
}

// forbiddenVariant maps one 403 marker to its outcome.
type forbiddenVariant struct {
	matches func(ForbiddenResponse) bool
	build   func(ForbiddenResponse) LoginOutcome
}

// forbiddenVariants is ordered by priority: a response carrying several
// markers resolves to the first match.
var forbiddenVariants = []forbiddenVariant{
	{
		matches: func(f ForbiddenResponse) bool { return f.RequiresCredentialChange },
		build: func(f ForbiddenResponse) LoginOutcome {
			return &CredentialChangeRequired{
				UserID:     f.UserID,
				Message:    messageOr(f.Message, msgChangeRequired),
				SetupToken: f.SetupToken,
			}
		},
	},
	{
		matches: func(f ForbiddenResponse) bool { return f.Requires2FASetup },
		build: func(f ForbiddenResponse) LoginOutcome {
			return &SecondFactorSetupRequired{
				UserID:     f.UserID,
				Message:    messageOr(f.Message, msgSetupRequired),
				SetupToken: f.SetupToken,
			}
		},
	},
	{
		matches: func(f ForbiddenResponse) bool { return f.Requires2FA },
		build: func(f ForbiddenResponse) LoginOutcome {
			return &SecondFactorRequired{UserID: f.UserID, Message: messageOr(f.Message, msgSecondFactor)}
		},
	},
}

// decodeForbidden turns a 403 from the primary endpoint into an outcome. A 403
// that carries no recognized marker is not a valid answer from the authority.
func decodeForbidden(resp *rawResponse) (LoginOutcome, error) {
	if isBlank(resp.body) {
		return nil, malformed(msgEmptyForbidden, resp.status, nil)
	}

	var body ForbiddenResponse
	if err := json.Unmarshal(resp.body, &body); err != nil {
		return nil, malformed(msgInvalidResponse, resp.status, err)
	}

	for _, v := range forbiddenVariants {
		if v.matches(body) {
			return v.build(body), nil
		}
	}
	return nil, malformed(msgInvalidResponse, resp.status, nil)
}

func messageOr(msg, fallback string) string {
	if msg = strings.TrimSpace(msg); msg != "" {
		return msg
	}
	return fallback
}
