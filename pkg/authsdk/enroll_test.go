package authsdk

import (
	"context"
	"net/http"
	"testing"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestSetupInitial(t *testing.T) {
	t.Parallel()

	t.Run("success derives issuer and account", func(t *testing.T) {
		t.Parallel()

		key, err := totp.Generate(totp.GenerateOpts{Issuer: "LabSamples", AccountName: "ana@lab.test"})
		require.NoError(t, err)

		f := newFakeAuthority(t)
		f.respond(pathSetupInitial, http.StatusOK, `{"secret":"`+key.Secret()+`","qrCode":"`+key.URL()+`","userId":"u1","email":"ana@lab.test"}`)

		setup, err := f.client().SetupInitial(context.Background(), " ana@lab.test ", "secret123")
		require.NoError(t, err)
		require.Equal(t, "u1", setup.UserID)
		require.Equal(t, key.Secret(), setup.Material.Secret)
		require.Equal(t, "LabSamples", setup.Material.Issuer)
		require.Equal(t, "ana@lab.test", setup.Material.Account)

		require.Equal(t, map[string]any{"email": "ana@lab.test", "password": "secret123"}, f.calls(pathSetupInitial)[0].Body)
	})

	t.Run("failure uses server message", func(t *testing.T) {
		t.Parallel()

		f := newFakeAuthority(t)
		f.respond(pathSetupInitial, http.StatusUnauthorized, `{"error":"Credenciales inválidas"}`)

		_, err := f.client().SetupInitial(context.Background(), "ana@lab.test", "wrong")
		authErr := requireAuthError(t, err, KindRejected)
		require.Equal(t, "Credenciales inválidas", authErr.Message)
	})

	t.Run("failure without message uses default", func(t *testing.T) {
		t.Parallel()

		f := newFakeAuthority(t)
		f.respond(pathSetupInitial, http.StatusBadRequest, ``)

		_, err := f.client().SetupInitial(context.Background(), "ana@lab.test", "wrong")
		authErr := requireAuthError(t, err, KindRejected)
		require.Equal(t, "Error al iniciar la configuración de 2FA", authErr.Message)
	})

	t.Run("empty material is malformed", func(t *testing.T) {
		t.Parallel()

		f := newFakeAuthority(t)
		f.respond(pathSetupInitial, http.StatusOK, `{"userId":"u1"}`)

		_, err := f.client().SetupInitial(context.Background(), "ana@lab.test", "secret123")
		requireAuthError(t, err, KindMalformedResponse)
	})

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()

		f := newFakeAuthority(t)
		_, err := f.client().SetupInitial(context.Background(), "", "secret123")
		requireAuthError(t, err, KindInvalidInput)
		require.Zero(t, f.total())
	})
}

func TestVerifyInitial(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		f := newFakeAuthority(t)
		f.respond(pathVerifyInitial, http.StatusOK, `{"enabled":true,"backupCodes":["AAAA-BBBB-CCCC","DDDD-EEEE-FFFF"],"totalCodes":2,"user":{"id":"u1","has2FA":true}}`)

		res, err := f.client().VerifyInitial(context.Background(), "ana@lab.test", "123456")
		require.NoError(t, err)
		require.True(t, res.Enabled)
		require.Equal(t, []string{"AAAA-BBBB-CCCC", "DDDD-EEEE-FFFF"}, res.Codes.Codes)
		require.Equal(t, 2, res.Codes.Total)
		require.True(t, res.User.Has2FA)
	})

	t.Run("malformed code never reaches the server", func(t *testing.T) {
		t.Parallel()

		f := newFakeAuthority(t)
		for _, code := range []string{"", "12345", "1234567", "abcdef"} {
			_, err := f.client().VerifyInitial(context.Background(), "ana@lab.test", code)
			authErr := requireAuthError(t, err, KindInvalidInput)
			require.Equal(t, msgInvalidTOTP, authErr.Message)
		}
		require.Zero(t, f.total())
	})
}

func TestCompleteAdminSetup(t *testing.T) {
	t.Parallel()

	valid := AdminSetupRequest{
		CurrentPassword: "admin",
		NewEmail:        "root@lab.test",
		NewPassword:     "N3w-Passw0rd!",
		TOTPCode:        "123456",
		SetupToken:      "tok",
	}

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		f := newFakeAuthority(t)
		f.respond(pathCompleteAdminSetup, http.StatusOK, `{"backupCodes":["AAAA-BBBB-CCCC"],"user":{"id":"admin","has2FA":true}}`)

		res, err := f.client().CompleteAdminSetup(context.Background(), valid)
		require.NoError(t, err)
		require.Equal(t, 1, res.Codes.Total)
		require.Equal(t, "admin", res.User.ID)
		require.Equal(t, "tok", f.calls(pathCompleteAdminSetup)[0].Body["setupToken"])
	})

	t.Run("default failure message", func(t *testing.T) {
		t.Parallel()

		f := newFakeAuthority(t)
		f.respond(pathCompleteAdminSetup, http.StatusInternalServerError, `{}`)

		_, err := f.client().CompleteAdminSetup(context.Background(), valid)
		authErr := requireAuthError(t, err, KindRejected)
		require.Equal(t, "Error al completar configuración", authErr.Message)
	})

	t.Run("short password", func(t *testing.T) {
		t.Parallel()

		req := valid
		req.NewPassword = "short"

		f := newFakeAuthority(t)
		_, err := f.client().CompleteAdminSetup(context.Background(), req)
		authErr := requireAuthError(t, err, KindInvalidInput)
		require.Contains(t, authErr.Message, "al menos 8 caracteres")
		require.Zero(t, f.total())
	})

	t.Run("bad totp", func(t *testing.T) {
		t.Parallel()

		req := valid
		req.TOTPCode = "12-456"

		f := newFakeAuthority(t)
		_, err := f.client().CompleteAdminSetup(context.Background(), req)
		requireAuthError(t, err, KindInvalidInput)
		require.Zero(t, f.total())
	})
}

func TestGetAdminSetupData(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		f := newFakeAuthority(t)
		f.respond(pathAdminSetup, http.StatusOK, `{"userId":"admin","name":"Administrador","qrCode":"otpauth://totp/Lab:admin?secret=JBSWY3DPEHPK3PXP&issuer=Lab","secret":"JBSWY3DPEHPK3PXP"}`)

		data, err := f.client().GetAdminSetupData(context.Background(), "a b")
		require.NoError(t, err)
		require.Equal(t, "Administrador", data.Name)
		require.Equal(t, "token=a+b", f.calls(pathAdminSetup)[0].Query)
		require.Equal(t, http.MethodGet, f.calls(pathAdminSetup)[0].Method)

		m := data.Material()
		require.Equal(t, "Lab", m.Issuer)
		require.Equal(t, "admin", m.Account)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()

		f := newFakeAuthority(t)
		f.respond(pathAdminSetup, http.StatusNotFound, ``)

		_, err := f.client().GetAdminSetupData(context.Background(), "expired")
		authErr := requireAuthError(t, err, KindRejected)
		require.Equal(t, "Token de configuración inválido o expirado", authErr.Message)
	})
}

func TestBackupCodes(t *testing.T) {
	t.Parallel()

	t.Run("regenerate", func(t *testing.T) {
		t.Parallel()

		f := newFakeAuthority(t)
		f.respond(pathRegenerateCodes, http.StatusOK, `{"backupCodes":["AAAA-BBBB-CCCC","DDDD-EEEE-FFFF","GGGG-HHHH-JJJJ"],"totalCodes":3}`)

		set, err := f.client().RegenerateBackupCodes(context.Background(), "123456")
		require.NoError(t, err)
		require.Len(t, set.Codes, 3)
		require.Equal(t, 3, set.Total)
	})

	t.Run("regenerate rejected", func(t *testing.T) {
		t.Parallel()

		f := newFakeAuthority(t)
		f.respond(pathRegenerateCodes, http.StatusUnauthorized, `{"error":"Código de autenticación inválido"}`)

		_, err := f.client().RegenerateBackupCodes(context.Background(), "123456")
		authErr := requireAuthError(t, err, KindRejected)
		require.Equal(t, "Código de autenticación inválido", authErr.Message)
	})

	t.Run("count forwards warning", func(t *testing.T) {
		t.Parallel()

		f := newFakeAuthority(t)
		f.respond(pathBackupCodesCount, http.StatusOK, `{"availableCodes":2,"warning":"Te quedan pocos códigos de respaldo"}`)

		count, err := f.client().GetBackupCodesCount(context.Background())
		require.NoError(t, err)
		require.Equal(t, &BackupCodesCount{Available: 2, Warning: "Te quedan pocos códigos de respaldo"}, count)
		require.Equal(t, http.MethodGet, f.calls(pathBackupCodesCount)[0].Method)
	})
}

func TestEnrollmentMaterial(t *testing.T) {
	t.Parallel()

	t.Run("key from otpauth payload", func(t *testing.T) {
		t.Parallel()

		key, err := totp.Generate(totp.GenerateOpts{Issuer: "LabSamples", AccountName: "ana@lab.test"})
		require.NoError(t, err)

		m := newEnrollmentMaterial("", key.URL(), "", "")
		require.Equal(t, key.Secret(), m.Secret)

		parsed, err := m.Key()
		require.NoError(t, err)
		require.Equal(t, key.Secret(), parsed.Secret())

		img, err := m.QRImage(200, 200)
		require.NoError(t, err)
		require.Equal(t, 200, img.Bounds().Dx())
	})

	t.Run("key rebuilt from secret", func(t *testing.T) {
		t.Parallel()

		m := EnrollmentMaterial{Secret: "JBSWY3DPEHPK3PXP", Issuer: "Lab", Account: "ana"}
		key, err := m.Key()
		require.NoError(t, err)
		require.Equal(t, "JBSWY3DPEHPK3PXP", key.Secret())
		require.Equal(t, "Lab", key.Issuer())
		require.Equal(t, "ana", key.AccountName())
	})

	t.Run("nothing to parse", func(t *testing.T) {
		t.Parallel()

		_, err := EnrollmentMaterial{}.Key()
		require.ErrorIs(t, err, ErrNoEnrollmentMaterial)
	})
}
