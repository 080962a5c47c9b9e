package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/labauth/pkg/httpx"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := LoadConfig()
		require.Equal(t, 8080, cfg.Port)
		require.Equal(t, "labauth", cfg.Issuer)
		require.True(t, cfg.PrimaryEnabled)
		require.True(t, cfg.RequireMFA)
		require.Equal(t, 30*time.Minute, cfg.RecoveryCodeTTL)
		require.Equal(t, httpx.StrictLimit, cfg.StrictLimit)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("ENV", "prod")
		t.Setenv("AUTHORITY_PORT", "9090")
		t.Setenv("AUTHORITY_PRIMARY_ENABLED", "false")
		t.Setenv("AUTHORITY_RECOVERY_CODE_TTL", "10")
		t.Setenv("AUTHORITY_SESSION_TTL", "2h")
		t.Setenv("AUTHORITY_RATELIMIT_STRICT_REQUESTS", "3")
		t.Setenv("AUTHORITY_BACKUP_CODE_WARN_THRESHOLD", "not-a-number")

		cfg := LoadConfig()
		require.Equal(t, 9090, cfg.Port)
		require.False(t, cfg.PrimaryEnabled)
		require.True(t, cfg.CookieSecure, "secure cookies outside dev")
		require.Equal(t, 10*time.Minute, cfg.RecoveryCodeTTL, "bare integers are minutes")
		require.Equal(t, 2*time.Hour, cfg.SessionTTL)
		require.Equal(t, 3, cfg.StrictLimit.RequestsPerWindow)
		require.Equal(t, 3, cfg.BackupCodeWarnThresh, "invalid values keep the default")
	})

	t.Run("dotenv does not override the environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("AUTHORITY_ISSUER=from-file\nAUTHORITY_ADMIN_NAME=Jefa\n"), 0o600))
		t.Setenv("AUTHORITY_ISSUER", "from-env")
		t.Setenv("AUTHORITY_ADMIN_NAME", "")
		require.NoError(t, os.Unsetenv("AUTHORITY_ADMIN_NAME"))

		LoadDotEnv(path)
		LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"))

		cfg := LoadConfig()
		require.Equal(t, "from-env", cfg.Issuer)
		require.Equal(t, "Jefa", cfg.AdminName)
	})
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	cfg := LoadConfig()
	cfg.DatabaseFile = filepath.Join(dir, "authority.db")
	cfg.PepperFile = filepath.Join(dir, "pepper")
	cfg.MasterKeyFile = filepath.Join(dir, "master.key")
	cfg.SessionSecretFile = filepath.Join(dir, "session.secret")
	cfg.LogLevel = "error"

	application, err := New(cfg)
	require.NoError(t, err)

	for _, f := range []string{cfg.PepperFile, cfg.MasterKeyFile, cfg.SessionSecretFile} {
		require.FileExists(t, f)
	}

	empty, err := application.db.Users().IsEmpty(t.Context())
	require.NoError(t, err)
	require.False(t, empty, "administrator bootstrapped")

	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, application.db.Close())

	// A second start reuses the secrets and skips the bootstrap.
	again, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, again.db.Close())
}
