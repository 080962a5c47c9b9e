package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/labauth/internal/authority/domain"
	"github.com/aussiebroadwan/labauth/internal/authority/store"
	"github.com/aussiebroadwan/labauth/pkg/cryptox"
	"github.com/aussiebroadwan/labauth/pkg/idx"
	"github.com/aussiebroadwan/labauth/pkg/slogx"
)

const (
	DefaultSetupTokenTTL    = 30 * time.Minute
	DefaultTrustedDeviceTTL = 30 * 24 * time.Hour
)

// LoginStatus says what a password-verified login still needs.
type LoginStatus int

const (
	LoginComplete LoginStatus = iota
	LoginNeedsSecondFactor
	LoginNeedsSetup
	LoginNeedsCredentialChange
)

func (s LoginStatus) String() string {
	switch s {
	case LoginComplete:
		return "authenticated"
	case LoginNeedsSecondFactor:
		return "second_factor_required"
	case LoginNeedsSetup:
		return "setup_required"
	case LoginNeedsCredentialChange:
		return "credential_change_required"
	default:
		return "unknown"
	}
}

// LoginRequest is a primary login attempt.
type LoginRequest struct {
	Identifier        string
	Password          string
	TOTPCode          string
	DeviceFingerprint string
	TrustDevice       bool
}

// LoginResult is a login whose password was accepted. Status says whether a
// full session may be issued.
type LoginResult struct {
	User       domain.User
	Status     LoginStatus
	AMR        []string
	SetupToken string // set for LoginNeedsSetup and LoginNeedsCredentialChange
}

type LoginService struct {
	Store  store.Store
	Hasher cryptox.Hasher
	Keys   *TOTPKeys

	// RequireMFA sends users without a second factor to enrollment.
	RequireMFA bool

	SetupTokenTTL    time.Duration
	TrustedDeviceTTL time.Duration

	Now func() time.Time
}

func (s *LoginService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Login runs the primary login policy: password, then pending setup, then
// the second factor unless the device is trusted.
func (s *LoginService) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	log := slogx.FromContext(ctx)
	now := s.now()

	u, err := s.authenticate(ctx, req.Identifier, req.Password)
	if err != nil {
		return LoginResult{}, err
	}
	amr := []string{AMRPassword}

	if u.MustChangeCredentials {
		token, err := s.issueSetupToken(ctx, u.ID)
		if err != nil {
			return LoginResult{}, err
		}
		return LoginResult{User: u, Status: LoginNeedsCredentialChange, AMR: amr, SetupToken: token}, nil
	}

	if !u.HasMFA() {
		if !s.RequireMFA {
			return LoginResult{User: u, Status: LoginComplete, AMR: amr}, nil
		}
		token, err := s.issueSetupToken(ctx, u.ID)
		if err != nil {
			return LoginResult{}, err
		}
		return LoginResult{User: u, Status: LoginNeedsSetup, AMR: amr, SetupToken: token}, nil
	}

	deviceHash := ""
	if fp := strings.TrimSpace(req.DeviceFingerprint); fp != "" {
		deviceHash = cryptox.FingerprintToken(u.ID + ":" + fp)
	}

	if deviceHash != "" && req.TOTPCode == "" {
		trusted, err := s.Store.TrustedDevices().IsTrusted(ctx, u.ID, deviceHash, now)
		if err != nil {
			return LoginResult{}, fmt.Errorf("failed to check trusted device: %w", err)
		}
		if trusted {
			log.Debug("second factor skipped for trusted device", "user_id", u.ID)
			return LoginResult{User: u, Status: LoginComplete, AMR: append(amr, AMRDevice)}, nil
		}
	}

	if req.TOTPCode == "" {
		return LoginResult{User: u, Status: LoginNeedsSecondFactor, AMR: amr}, nil
	}

	method, err := checkSecondFactor(ctx, s.Store, s.Keys, u, req.TOTPCode, now)
	if err != nil {
		if errors.Is(err, ErrInvalidSecondFactor) {
			log.Warn("second factor rejected", "user_id", u.ID)
		}
		return LoginResult{}, err
	}
	amr = append(amr, method)

	if req.TrustDevice && deviceHash != "" {
		err := s.Store.TrustedDevices().TrustDevice(ctx, domain.TrustedDevice{
			ID:              idx.New().String(),
			UserID:          u.ID,
			FingerprintHash: deviceHash,
			ExpiresAt:       now.Add(s.trustedDeviceTTL()),
			CreatedAt:       now,
		})
		if err != nil {
			// Login already succeeded; the device is just asked again next time.
			log.Error("failed to trust device", "user_id", u.ID, "err", err)
		}
	}

	return LoginResult{User: u, Status: LoginComplete, AMR: amr}, nil
}

// LegacyLogin checks the password only, so it serves only accounts that
// neither have a second factor nor are required to enroll one. Accounts that
// still have to finish setup cannot use it either.
func (s *LoginService) LegacyLogin(ctx context.Context, identifier, password string) (domain.User, error) {
	u, err := s.authenticate(ctx, identifier, password)
	if err != nil {
		return domain.User{}, err
	}
	switch {
	case u.MustChangeCredentials:
		return domain.User{}, ErrCredentialChangeRequired
	case u.HasMFA():
		return domain.User{}, ErrSecondFactorRequired
	case s.RequireMFA:
		return domain.User{}, ErrMFASetupRequired
	}
	return u, nil
}

// authenticate finds the user by email or username and checks the password.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *LoginService) authenticate(ctx context.Context, identifier, password string) (domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	u, err := findUser(ctx, s.Store, identifier)
	if errors.Is(err, store.ErrNotFound) {
		// Hash anyway so response time does not reveal unknown accounts.
		_, _ = s.Hasher.Hash(password)
		return domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.Hasher.Verify(password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			slogx.FromContext(ctx).Error("stored password hash unreadable", "user_id", u.ID, "err", err)
		}
		return domain.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *LoginService) issueSetupToken(ctx context.Context, userID string) (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	now := s.now()
	ttl := s.SetupTokenTTL
	if ttl <= 0 {
		ttl = DefaultSetupTokenTTL
	}

	err = s.Store.SetupTokens().CreateSetupToken(ctx, domain.SetupToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store setup token: %w", err)
	}

	slogx.FromContext(ctx).Info("setup token issued", slog.String("user_id", userID))
	return token, nil
}

func (s *LoginService) trustedDeviceTTL() time.Duration {
	if s.TrustedDeviceTTL > 0 {
		return s.TrustedDeviceTTL
	}
	return DefaultTrustedDeviceTTL
}

// findUser resolves an identifier that is either an email or a username.
func findUser(ctx context.Context, st store.Store, identifier string) (domain.User, error) {
	if strings.Contains(identifier, "@") {
		return st.Users().GetUserByEmail(ctx, identifier)
	}
	return st.Users().GetUserByUsername(ctx, identifier)
}
