package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

// RecoveryMail is the content of a recovery code email.
type RecoveryMail struct {
	To        string
	Name      string
	Code      string
	ExpiresAt time.Time
}

// Mailer delivers recovery codes.
type Mailer interface {
	SendRecoveryCode(ctx context.Context, m RecoveryMail) error
}

// recoverySubject and recoveryBody are the email sent by ForgotPassword.
const recoverySubject = "Código de recuperación de contraseña"

func recoveryBody(m RecoveryMail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\n", m.Name)
	fmt.Fprintf(&b, "Tu código de recuperación es: %s\n\n", m.Code)
	fmt.Fprintf(&b, "Caduca el %s (UTC). Necesitarás también tu código de autenticación.\n\n",
		m.ExpiresAt.UTC().Format("02/01/2006 15:04"))
	b.WriteString("Si no has solicitado este cambio, ignora este mensaje.\n")
	return b.String()
}

// SMTPConfig configures SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      bool
}

// SMTPMailer sends recovery codes over SMTP.
type SMTPMailer struct {
	from   string
	client *mail.Client
}

// NewSMTPMailer builds a mailer. Authentication is used only when a username
// and password are configured.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(30 * time.Second),
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	if cfg.TLS {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return &SMTPMailer{from: cfg.From, client: client}, nil
}

func (m *SMTPMailer) SendRecoveryCode(ctx context.Context, rm RecoveryMail) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(rm.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(recoverySubject)
	msg.SetBodyString(mail.TypeTextPlain, recoveryBody(rm))

	return m.client.DialAndSendWithContext(ctx, msg)
}

// LogMailer writes recovery codes to the log instead of sending them. It is
// used when no SMTP host is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendRecoveryCode(ctx context.Context, rm RecoveryMail) error {
	m.Logger.WarnContext(ctx, "SMTP not configured, recovery code logged instead of mailed",
		"to", rm.To,
		"code", rm.Code,
		"expires_at", rm.ExpiresAt,
	)
	return nil
}
