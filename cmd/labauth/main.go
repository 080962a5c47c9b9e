// Command labauth drives the authentication client against a deployment:
// login, enrollment, backup codes and password recovery.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/labauth/pkg/authsdk"
	"github.com/aussiebroadwan/labauth/pkg/codefmt"
	"github.com/aussiebroadwan/labauth/pkg/slogx"
)

const usage = `usage: labauth <command> [flags]

commands:
  login         sign in and print the user
  enroll        enroll a second factor for an account without one
  admin-setup   finish the first-run administrator setup
  backup-count  sign in and print the remaining backup codes
  regenerate    sign in and issue a new set of backup codes
  forgot        request a recovery code by email
  reset         reset the password with a recovery code
  strength      rate a password

environment:
  LABAUTH_BASE_URL  authority base URL (default http://localhost:8080)
  LABAUTH_TIMEOUT   request timeout (default 10s)
  LOG_LEVEL, LOG_FORMAT`

type cli struct {
	client *authsdk.SDKClient
	in     *bufio.Reader
}

func main() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	logger := slogx.New(slogx.Config{
		Service: "labauth-cli",
		Env:     getEnvOrDefault("ENV", "dev"),
		Level:   getEnvOrDefault("LOG_LEVEL", "warn"),
		Format:  getEnvOrDefault("LOG_FORMAT", "text"),
		Output:  os.Stderr,
	})

	client := authsdk.NewSDKClient(getEnvOrDefault("LABAUTH_BASE_URL", "http://localhost:8080"))
	client.Logger = logger
	if d, err := time.ParseDuration(os.Getenv("LABAUTH_TIMEOUT")); err == nil && d > 0 {
		client.HTTPClient.Timeout = d
	}

	c := &cli{client: client, in: bufio.NewReader(os.Stdin)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := c.run(ctx, os.Args[1], os.Args[2:])
	stop()

	if err != nil {
		var authErr *authsdk.AuthError
		if errors.As(err, &authErr) {
			fmt.Fprintln(os.Stderr, authErr.Message)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return c.login(ctx, args)
	case "enroll":
		return c.enroll(ctx, args)
	case "admin-setup":
		return c.adminSetup(ctx, args)
	case "backup-count":
		return c.backupCount(ctx, args)
	case "regenerate":
		return c.regenerate(ctx, args)
	case "forgot":
		return c.forgot(ctx, args)
	case "reset":
		return c.reset(ctx, args)
	case "strength":
		return strength(args)
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

// credentialFlags are shared by every command that signs in first.
type credentialFlags struct {
	identifier string
	password   string
	code       string
	device     string
	trust      bool
}

func (f *credentialFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.identifier, "user", "", "username or email")
	fs.StringVar(&f.password, "password", os.Getenv("LABAUTH_PASSWORD"), "password (default $LABAUTH_PASSWORD)")
	fs.StringVar(&f.code, "code", "", "TOTP or backup code")
	fs.StringVar(&f.device, "device", "", "device fingerprint")
	fs.BoolVar(&f.trust, "trust", false, "remember this device")
}

// signIn logs in, asking for a second-factor code on stdin when the
// authority requires one.
func (c *cli) signIn(ctx context.Context, f credentialFlags) (*authsdk.Authenticated, error) {
	creds := authsdk.Credentials{
		Identifier:        f.identifier,
		Password:          f.password,
		TOTPCode:          f.code,
		DeviceFingerprint: f.device,
		TrustDevice:       f.trust,
	}

	for {
		outcome, err := c.client.Login(ctx, creds)
		if err != nil {
			return nil, err
		}

		switch o := outcome.(type) {
		case *authsdk.Authenticated:
			return o, nil
		case *authsdk.SecondFactorRequired:
			if creds.TOTPCode != "" {
				return nil, errors.New(o.Message)
			}
			if creds.TOTPCode, err = c.prompt(o.Message + ": "); err != nil {
				return nil, err
			}
		case *authsdk.SecondFactorSetupRequired:
			return nil, fmt.Errorf("%s (run: labauth enroll)", o.Message)
		case *authsdk.CredentialChangeRequired:
			if o.SetupToken != "" {
				return nil, fmt.Errorf("%s (run: labauth admin-setup -token %s)", o.Message, o.SetupToken)
			}
			return nil, errors.New(o.Message)
		}
	}
}

func (c *cli) login(ctx context.Context, args []string) error {
	var f credentialFlags
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	f.register(fs)
	_ = fs.Parse(args)

	auth, err := c.signIn(ctx, f)
	if err != nil {
		return err
	}

	u := auth.User
	fmt.Printf("Sesión iniciada: %s <%s>\n", displayName(u), u.Email)
	fmt.Printf("  id:     %s\n", u.ID)
	fmt.Printf("  roles:  %s\n", strings.Join(u.Roles, ", "))
	fmt.Printf("  2FA:    %t\n", u.Has2FA)
	if auth.Legacy {
		fmt.Println("  (inicio de sesión heredado)")
	}
	return nil
}

func (c *cli) enroll(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("enroll", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("LABAUTH_PASSWORD"), "password (default $LABAUTH_PASSWORD)")
	qr := fs.String("qr", "", "write the QR code as PNG to this file")
	_ = fs.Parse(args)

	setup, err := c.client.SetupInitial(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := showMaterial(setup.Material, *qr); err != nil {
		return err
	}

	code, err := c.prompt("Código de la aplicación de autenticación: ")
	if err != nil {
		return err
	}
	res, err := c.client.VerifyInitial(ctx, *email, code)
	if err != nil {
		return err
	}

	fmt.Println("Autenticación de dos factores activada.")
	printCodes(res.Codes)
	return nil
}

func (c *cli) adminSetup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("admin-setup", flag.ExitOnError)
	token := fs.String("token", "", "setup token from the login response")
	current := fs.String("password", os.Getenv("LABAUTH_PASSWORD"), "current password (default $LABAUTH_PASSWORD)")
	newEmail := fs.String("new-email", "", "new email")
	newPassword := fs.String("new-password", "", "new password")
	qr := fs.String("qr", "", "write the QR code as PNG to this file")
	_ = fs.Parse(args)

	data, err := c.client.GetAdminSetupData(ctx, *token)
	if err != nil {
		return err
	}
	fmt.Printf("Configuración pendiente para %s\n", data.Name)
	if err := showMaterial(data.Material(), *qr); err != nil {
		return err
	}

	code, err := c.prompt("Código de la aplicación de autenticación: ")
	if err != nil {
		return err
	}
	res, err := c.client.CompleteAdminSetup(ctx, authsdk.AdminSetupRequest{
		CurrentPassword: *current,
		NewEmail:        *newEmail,
		NewPassword:     *newPassword,
		TOTPCode:        code,
		SetupToken:      *token,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Configuración completada para %s.\n", res.User.Email)
	printCodes(res.Codes)
	return nil
}

func (c *cli) backupCount(ctx context.Context, args []string) error {
	var f credentialFlags
	fs := flag.NewFlagSet("backup-count", flag.ExitOnError)
	f.register(fs)
	_ = fs.Parse(args)

	if _, err := c.signIn(ctx, f); err != nil {
		return err
	}
	count, err := c.client.GetBackupCodesCount(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Códigos de respaldo disponibles: %d\n", count.Available)
	if count.Warning != "" {
		fmt.Println(count.Warning)
	}
	return nil
}

func (c *cli) regenerate(ctx context.Context, args []string) error {
	var f credentialFlags
	fs := flag.NewFlagSet("regenerate", flag.ExitOnError)
	f.register(fs)
	_ = fs.Parse(args)

	if _, err := c.signIn(ctx, f); err != nil {
		return err
	}
	code, err := c.prompt("Código de la aplicación de autenticación: ")
	if err != nil {
		return err
	}
	set, err := c.client.RegenerateBackupCodes(ctx, code)
	if err != nil {
		return err
	}

	printCodes(*set)
	return nil
}

func (c *cli) forgot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("forgot", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	_ = fs.Parse(args)

	res, err := c.client.ForgotPassword(ctx, *email)
	if err != nil {
		return err
	}
	fmt.Println(res.Message)
	return nil
}

func (c *cli) reset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	recovery := fs.String("recovery-code", "", "code received by email")
	code := fs.String("code", "", "TOTP or backup code")
	newPassword := fs.String("new-password", "", "new password")
	_ = fs.Parse(args)

	res, err := c.client.ResetPassword(ctx, authsdk.ResetPasswordRequest{
		Email:        *email,
		RecoveryCode: *recovery,
		TOTPCode:     *code,
		NewPassword:  *newPassword,
	})
	if err != nil {
		return err
	}
	fmt.Println(res.Message)
	return nil
}

func strength(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: labauth strength <password>")
	}
	res := codefmt.ValidatePasswordStrength(args[0])
	if !res.Valid {
		return errors.New(res.Message)
	}
	fmt.Printf("%s (%s)\n", res.Message, res.Strength)
	return nil
}

func (c *cli) prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func showMaterial(m authsdk.EnrollmentMaterial, qrPath string) error {
	fmt.Printf("Emisor:  %s\n", m.Issuer)
	fmt.Printf("Cuenta:  %s\n", m.Account)
	fmt.Printf("Secreto: %s\n", m.Secret)
	if m.QRPayload != "" {
		fmt.Printf("URL:     %s\n", m.QRPayload)
	}
	if qrPath == "" {
		return nil
	}

	img, err := m.QRImage(256, 256)
	if err != nil {
		return fmt.Errorf("failed to render QR code: %w", err)
	}
	f, err := os.Create(qrPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to write QR code: %w", err)
	}
	slog.Debug("QR code written", "path", qrPath)
	fmt.Printf("QR:      %s\n", qrPath)
	return nil
}

func printCodes(set authsdk.BackupCodeSet) {
	fmt.Printf("Códigos de respaldo (%d). Guárdalos, no se volverán a mostrar:\n", set.Total)
	for _, code := range set.Codes {
		fmt.Printf("  %s\n", code)
	}
}

func displayName(u authsdk.UserSummary) string {
	if u.Name != "" {
		return u.Name
	}
	if n := strings.TrimSpace(u.FirstName + " " + u.LastName); n != "" {
		return n
	}
	return u.Email
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
