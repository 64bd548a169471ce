package mailer

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/FACorreiaa/learnhub-api/config"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	templateVerifyEmail    = "verifyEmail.html"
	templateForgotPassword = "forgotPassword.html"
	templateLoginOTP       = "loginOtp.html"
)

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer renders the embedded OTP templates and delivers them over SMTP.
type Mailer struct {
	client    sender
	from      string
	templates *template.Template
	logger    *slog.Logger
}

type otpData struct {
	Name      string
	OTP       string
	ExpiresIn string
}

func New(cfg config.SMTPConfig, logger *slog.Logger) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return newMailer(client, cfg.From, logger)
}

func newMailer(client sender, from string, logger *slog.Logger) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &Mailer{client: client, from: from, templates: tmpl, logger: logger}, nil
}

func (m *Mailer) SendVerificationEmail(ctx context.Context, to, name, otp string, ttl time.Duration) error {
	return m.send(ctx, to, "Verify your email", templateVerifyEmail, otpData{Name: name, OTP: otp, ExpiresIn: ttl.String()})
}

func (m *Mailer) SendResetPasswordEmail(ctx context.Context, to, name, otp string, ttl time.Duration) error {
	return m.send(ctx, to, "Reset your password", templateForgotPassword, otpData{Name: name, OTP: otp, ExpiresIn: ttl.String()})
}

func (m *Mailer) SendLoginOTPEmail(ctx context.Context, to, name, otp string, ttl time.Duration) error {
	return m.send(ctx, to, "Your sign-in code", templateLoginOTP, otpData{Name: name, OTP: otp, ExpiresIn: ttl.String()})
}

func (m *Mailer) send(ctx context.Context, to, subject, name string, data any) error {
	l := m.logger.With(slog.String("method", "send"), slog.String("template", name))

	msg, err := m.build(to, subject, name, data)
	if err != nil {
		l.ErrorContext(ctx, "Failed to build email", slog.Any("error", err))
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		l.ErrorContext(ctx, "Failed to send email", slog.Any("error", err))
		return fmt.Errorf("failed to send %s email: %w", name, err)
	}
	l.InfoContext(ctx, "Email sent")
	return nil
}

func (m *Mailer) build(to, subject, name string, data any) (*mail.Msg, error) {
	tmpl := m.templates.Lookup(name)
	if tmpl == nil {
		return nil, fmt.Errorf("unknown email template %q", name)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	if err := msg.SetBodyHTMLTemplate(tmpl, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return msg, nil
}

// LogMailer replaces SMTP delivery when no host is configured. The code is
// only written to the log outside production.
type LogMailer struct {
	logger     *slog.Logger
	includeOTP bool
}

func NewLogMailer(logger *slog.Logger, includeOTP bool) *LogMailer {
	return &LogMailer{logger: logger, includeOTP: includeOTP}
}

func (m *LogMailer) SendVerificationEmail(ctx context.Context, to, name, otp string, ttl time.Duration) error {
	m.log(ctx, templateVerifyEmail, to, otp, ttl)
	return nil
}

func (m *LogMailer) SendResetPasswordEmail(ctx context.Context, to, name, otp string, ttl time.Duration) error {
	m.log(ctx, templateForgotPassword, to, otp, ttl)
	return nil
}

func (m *LogMailer) SendLoginOTPEmail(ctx context.Context, to, name, otp string, ttl time.Duration) error {
	m.log(ctx, templateLoginOTP, to, otp, ttl)
	return nil
}

func (m *LogMailer) log(ctx context.Context, tmpl, to, otp string, ttl time.Duration) {
	attrs := []any{slog.String("template", tmpl), slog.String("to", to), slog.Duration("ttl", ttl)}
	if m.includeOTP {
		attrs = append(attrs, slog.String("otp", otp))
	}
	m.logger.InfoContext(ctx, "Email skipped, smtp not configured", attrs...)
}
