package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/labauth/internal/authority/domain"
	"github.com/aussiebroadwan/labauth/pkg/codefmt"
	"github.com/aussiebroadwan/labauth/pkg/slogx"
)

func TestSetupAndVerifyInitial(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.addUser(t, "nuevo@lab.test", false)

	_, err := h.mfa.SetupInitial(ctx, "nuevo@lab.test", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = h.mfa.VerifyInitial(ctx, "nuevo@lab.test", "123456")
	require.ErrorIs(t, err, ErrNoPendingEnrollment)

	enr, err := h.mfa.SetupInitial(ctx, "nuevo@lab.test", testPassword)
	require.NoError(t, err)
	require.Equal(t, "LabAuth", enr.Key.Issuer())
	require.Equal(t, "nuevo@lab.test", enr.Key.AccountName())

	_, _, err = h.mfa.VerifyInitial(ctx, "nuevo@lab.test", wrongCode(t, enr.Key))
	require.ErrorIs(t, err, ErrInvalidSecondFactor)

	u, codes, err := h.mfa.VerifyInitial(ctx, "nuevo@lab.test", code(t, enr.Key))
	require.NoError(t, err)
	require.True(t, u.HasMFA())
	require.Len(t, codes, BackupCodeCount)
	for _, c := range codes {
		require.True(t, codefmt.ValidateBackupCode(c), c)
	}

	_, err = h.mfa.SetupInitial(ctx, "nuevo@lab.test", testPassword)
	require.ErrorIs(t, err, ErrMFAAlreadyEnabled)
}

func TestVerifyInitial_PendingExpires(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.addUser(t, "lento@lab.test", false)

	enr, err := h.mfa.SetupInitial(ctx, "lento@lab.test", testPassword)
	require.NoError(t, err)

	later := time.Now().Add(DefaultEnrollmentTTL + time.Minute)
	h.mfa.Now = func() time.Time { return later }

	c, err := totp.GenerateCode(enr.Key.Secret(), later)
	require.NoError(t, err)
	_, _, err = h.mfa.VerifyInitial(ctx, "lento@lab.test", c)
	require.ErrorIs(t, err, ErrNoPendingEnrollment)
}

func TestAdminSetup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	boot := &BootstrapService{Store: h.store, Hasher: h.hasher, Logger: slogx.Discard()}
	_, err := boot.EnsureAdmin(ctx, domain.BootstrapAdmin{
		Username: "admin", Email: "admin@lab.test", Name: "Administrador", Password: testPassword,
	})
	require.NoError(t, err)

	res, err := h.login.Login(ctx, LoginRequest{Identifier: "admin@lab.test", Password: testPassword})
	require.NoError(t, err)
	require.Equal(t, LoginNeedsCredentialChange, res.Status)

	_, err = h.mfa.AdminSetupData(ctx, "bogus")
	require.ErrorIs(t, err, ErrInvalidSetupToken)

	data, err := h.mfa.AdminSetupData(ctx, res.SetupToken)
	require.NoError(t, err)
	require.Equal(t, "Administrador", data.User.Name)

	again, err := h.mfa.AdminSetupData(ctx, res.SetupToken)
	require.NoError(t, err)
	require.Equal(t, data.Key.Secret(), again.Key.Secret(), "pending key is reused")

	in := AdminSetupInput{
		SetupToken:      res.SetupToken,
		CurrentPassword: testPassword,
		NewEmail:        "jefa@lab.test",
		NewPassword:     "Nueva#Clave99",
		TOTPCode:        code(t, data.Key),
	}

	t.Run("rejections", func(t *testing.T) {
		bad := in
		bad.CurrentPassword = "wrong"
		_, _, err := h.mfa.CompleteAdminSetup(ctx, bad)
		require.ErrorIs(t, err, ErrInvalidCredentials)

		bad = in
		bad.NewPassword = "corta"
		_, _, err = h.mfa.CompleteAdminSetup(ctx, bad)
		require.ErrorIs(t, err, ErrWeakPassword)

		bad = in
		bad.TOTPCode = wrongCode(t, data.Key)
		_, _, err = h.mfa.CompleteAdminSetup(ctx, bad)
		require.ErrorIs(t, err, ErrInvalidSecondFactor)

		h.addUser(t, "ocupado@lab.test", false)
		bad = in
		bad.NewEmail = "ocupado@lab.test"
		_, _, err = h.mfa.CompleteAdminSetup(ctx, bad)
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	u, codes, err := h.mfa.CompleteAdminSetup(ctx, in)
	require.NoError(t, err)
	require.Len(t, codes, BackupCodeCount)
	require.Equal(t, "jefa@lab.test", u.Email)
	require.False(t, u.MustChangeCredentials)
	require.True(t, u.HasMFA())

	_, err = h.mfa.AdminSetupData(ctx, res.SetupToken)
	require.ErrorIs(t, err, ErrInvalidSetupToken, "token is consumed")

	login, err := h.login.Login(ctx, LoginRequest{
		Identifier: "jefa@lab.test", Password: "Nueva#Clave99", TOTPCode: code(t, data.Key),
	})
	require.NoError(t, err)
	require.Equal(t, LoginComplete, login.Status)
}

func TestRegenerateAndCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	u, key := h.addUser(t, "codigos@lab.test", true)
	plain, _ := h.addUser(t, "sin2fa@lab.test", false)

	_, err := h.mfa.RegenerateBackupCodes(ctx, plain.ID, "123456")
	require.ErrorIs(t, err, ErrMFANotEnabled)

	n, warning, err := h.mfa.BackupCodesCount(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, WarnNoBackupCodes, warning)

	_, err = h.mfa.RegenerateBackupCodes(ctx, u.ID, wrongCode(t, key))
	require.ErrorIs(t, err, ErrInvalidSecondFactor)

	first, err := h.mfa.RegenerateBackupCodes(ctx, u.ID, code(t, key))
	require.NoError(t, err)

	_, err = h.mfa.RegenerateBackupCodes(ctx, u.ID, first[0])
	require.ErrorIs(t, err, ErrInvalidSecondFactor, "backup codes cannot regenerate")

	second, err := h.mfa.RegenerateBackupCodes(ctx, u.ID, code(t, key))
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	ok, err := h.store.BackupCodes().ConsumeBackupCode(ctx, u.ID, codeHash(first[0]))
	require.NoError(t, err)
	require.False(t, ok, "previous set no longer works")

	n, warning, err = h.mfa.BackupCodesCount(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, BackupCodeCount, n)
	require.Empty(t, warning)

	for _, c := range second[:BackupCodeCount-2] {
		_, err := h.store.BackupCodes().ConsumeBackupCode(ctx, u.ID, codeHash(c))
		require.NoError(t, err)
	}
	n, warning, err = h.mfa.BackupCodesCount(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, WarnFewBackupCodes, warning)
}

func TestTOTPKeysRoundTrip(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	key, sealed, err := h.keys.Generate("x@lab.test")
	require.NoError(t, err)
	require.NotContains(t, sealed, key.Secret(), "stored form is encrypted")

	opened, err := h.keys.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, key.Secret(), opened.Secret())
	require.Equal(t, otp.AlgorithmSHA1, opened.Algorithm())

	ok, err := h.keys.Validate(code(t, key), sealed, time.Now())
	require.NoError(t, err)
	require.True(t, ok)
}
