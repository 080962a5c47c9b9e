package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/labauth/internal/authority/domain"
	httpapi "github.com/aussiebroadwan/labauth/internal/authority/http"
	"github.com/aussiebroadwan/labauth/internal/authority/service"
	"github.com/aussiebroadwan/labauth/internal/authority/store"
	"github.com/aussiebroadwan/labauth/internal/authority/store/drivers/sqlite"
	"github.com/aussiebroadwan/labauth/pkg/cryptox"
	"github.com/aussiebroadwan/labauth/pkg/jwtx"
	"github.com/aussiebroadwan/labauth/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application is the reference authority with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	hasher   cryptox.Hasher
	keys     *service.TOTPKeys
	mailer   service.Mailer
	signer   *jwtx.Signer
	verifier *jwtx.Verifier

	loginService        *service.LoginService
	mfaService          *service.MFAService
	recoveryService     *service.RecoveryService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application and bootstraps the administrator on an empty
// database.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "labauth-authority",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initSecrets(); err != nil {
		return nil, err
	}
	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initMailer(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()

	if err := app.bootstrap(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()
	return app, nil
}

// Handler returns the authority's HTTP handler.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("authority starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"primary_login", app.cfg.PrimaryEnabled,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains the HTTP server, stops housekeeping and closes the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down authority...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("authority stopped")
	return nil
}

// initSecrets loads the pepper, the TOTP sealing key and the session secret,
// creating the files on first start.
func (app *Application) initSecrets() error {
	pepper, err := cryptox.LoadOrCreateSecret(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.Hasher{Pepper: pepper}

	master, err := cryptox.LoadOrCreateSecret(app.cfg.MasterKeyFile)
	if err != nil {
		return fmt.Errorf("failed to load master key: %w", err)
	}
	box, err := cryptox.NewSecretBox([]byte(master))
	if err != nil {
		return fmt.Errorf("failed to initialize secret box: %w", err)
	}
	app.keys = &service.TOTPKeys{Box: box, Issuer: app.cfg.Issuer}

	secret := app.cfg.SessionSecret
	if secret == "" {
		if secret, err = cryptox.LoadOrCreateSecret(app.cfg.SessionSecretFile); err != nil {
			return fmt.Errorf("failed to load session secret: %w", err)
		}
	}
	if app.signer, err = jwtx.NewSigner([]byte(secret)); err != nil {
		return fmt.Errorf("failed to initialize session signer: %w", err)
	}
	app.verifier = jwtx.NewVerifier([]byte(secret), app.cfg.Issuer, 30*time.Second)

	return nil
}

// initDatabase opens the database and applies migrations.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initMailer() error {
	if app.cfg.SMTPHost == "" {
		app.logger.Warn("SMTP_HOST not set, recovery codes will be written to the log")
		app.mailer = service.LogMailer{Logger: app.logger}
		return nil
	}

	m, err := service.NewSMTPMailer(service.SMTPConfig{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.SMTPFrom,
		TLS:      app.cfg.SMTPTLS,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}
	app.mailer = m
	return nil
}

func (app *Application) initServices() {
	app.loginService = &service.LoginService{
		Store:      app.db,
		Hasher:     app.hasher,
		Keys:       app.keys,
		RequireMFA: app.cfg.RequireMFA,
	}
	app.mfaService = &service.MFAService{
		Store:         app.db,
		Hasher:        app.hasher,
		Keys:          app.keys,
		WarnThreshold: app.cfg.BackupCodeWarnThresh,
	}
	app.recoveryService = &service.RecoveryService{
		Store:   app.db,
		Hasher:  app.hasher,
		Keys:    app.keys,
		Mailer:  app.mailer,
		CodeTTL: app.cfg.RecoveryCodeTTL,
	}
	app.bootstrapService = &service.BootstrapService{
		Store:  app.db,
		Hasher: app.hasher,
		Logger: app.logger,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) bootstrap(ctx context.Context) error {
	_, err := app.bootstrapService.EnsureAdmin(ctx, domain.BootstrapAdmin{
		Username: app.cfg.AdminUsername,
		Email:    app.cfg.AdminEmail,
		Name:     app.cfg.AdminName,
		Password: app.cfg.AdminPassword,
	})
	if errors.Is(err, service.ErrBootstrapAlready) {
		return nil
	}
	return err
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		httpapi.Config{
			Issuer:         app.cfg.Issuer,
			BuildVersion:   BuildVersion,
			CookieSecure:   app.cfg.CookieSecure,
			SessionTTL:     app.cfg.SessionTTL,
			PrimaryEnabled: app.cfg.PrimaryEnabled,
			StrictLimit:    app.cfg.StrictLimit,
			ModerateLimit:  app.cfg.ModerateLimit,
			LenientLimit:   app.cfg.LenientLimit,
		},
		app.db,
		app.signer,
		app.verifier,
		app.logger,
	)

	router.LoginService = app.loginService
	router.MFAService = app.mfaService
	router.RecoveryService = app.recoveryService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
