package app

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/labauth/pkg/httpx"
)

type Config struct {
	Issuer            string        // Issuer claim of session tokens (default: labauth)
	Port              int           // HTTP server port (default: 8080)
	DatabaseFile      string        // Path to SQLite database file (default: ./authority.db)
	SessionSecret     string        // Optional: HMAC secret for session tokens, read from SessionSecretFile when empty
	SessionSecretFile string        // Path to the generated session secret (default: ./session.secret)
	SessionTTL        time.Duration // Full session lifetime (default: 8h)
	CookieSecure      bool          // Mark the session cookie Secure (default: true outside dev)
	PrimaryEnabled    bool          // Expose POST /api/auth/login (default: true)
	RequireMFA        bool          // Send users without a second factor to enrollment (default: true)

	RecoveryCodeTTL      time.Duration // Recovery code lifetime (default: 30m)
	BackupCodeWarnThresh int           // Remaining backup codes that trigger a warning (default: 3)

	AdminUsername string // Bootstrap administrator (default: admin)
	AdminEmail    string // Bootstrap administrator email (default: admin@localhost)
	AdminName     string
	AdminPassword string // Optional: generated and logged once when empty

	MasterKeyFile string // Path to the key sealing TOTP secrets (default: ./master.key)
	PepperFile    string // Path to the password hashing pepper (default: ./pepper)

	SMTPHost     string // Optional: recovery codes are only logged without it
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPTLS      bool

	StrictLimit   httpx.RateLimitConfig
	ModerateLimit httpx.RateLimitConfig
	LenientLimit  httpx.RateLimitConfig

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// LoadDotEnv loads path into the environment when it exists. Variables that
// are already set win.
func LoadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		slog.Warn("failed to load .env file", "path", path, "err", err)
	}
}

func LoadConfig() Config {
	env := getEnvOrDefault("ENV", "dev")

	return Config{
		Issuer:            getEnvOrDefault("AUTHORITY_ISSUER", "labauth"),
		Port:              getEnvIntOrDefault("AUTHORITY_PORT", 8080),
		DatabaseFile:      getEnvOrDefault("AUTHORITY_DATABASE_FILE", "authority.db"),
		SessionSecret:     os.Getenv("AUTHORITY_SESSION_SECRET"),
		SessionSecretFile: getEnvOrDefault("AUTHORITY_SESSION_SECRET_FILE", "session.secret"),
		SessionTTL:        getEnvDurationOrDefault("AUTHORITY_SESSION_TTL", 8*time.Hour),
		CookieSecure:      getEnvBoolOrDefault("AUTHORITY_COOKIE_SECURE", env != "dev"),
		PrimaryEnabled:    getEnvBoolOrDefault("AUTHORITY_PRIMARY_ENABLED", true),
		RequireMFA:        getEnvBoolOrDefault("AUTHORITY_REQUIRE_2FA", true),

		RecoveryCodeTTL:      getEnvDurationOrDefault("AUTHORITY_RECOVERY_CODE_TTL", 30*time.Minute),
		BackupCodeWarnThresh: getEnvIntOrDefault("AUTHORITY_BACKUP_CODE_WARN_THRESHOLD", 3),

		AdminUsername: getEnvOrDefault("AUTHORITY_ADMIN_USERNAME", "admin"),
		AdminEmail:    getEnvOrDefault("AUTHORITY_ADMIN_EMAIL", "admin@localhost"),
		AdminName:     getEnvOrDefault("AUTHORITY_ADMIN_NAME", "Administrador"),
		AdminPassword: os.Getenv("AUTHORITY_ADMIN_PASSWORD"),

		MasterKeyFile: getEnvOrDefault("AUTHORITY_MASTER_KEY_FILE", "master.key"),
		PepperFile:    getEnvOrDefault("AUTHORITY_PEPPER_FILE", "pepper"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnvOrDefault("SMTP_FROM", "no-reply@localhost"),
		SMTPTLS:      getEnvBoolOrDefault("SMTP_TLS", true),

		StrictLimit:   httpx.ParseRateLimitFromEnv("AUTHORITY_RATELIMIT_STRICT", httpx.StrictLimit),
		ModerateLimit: httpx.ParseRateLimitFromEnv("AUTHORITY_RATELIMIT_MODERATE", httpx.ModerateLimit),
		LenientLimit:  httpx.ParseRateLimitFromEnv("AUTHORITY_RATELIMIT_LENIENT", httpx.LenientLimit),

		Env:                  env,
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
