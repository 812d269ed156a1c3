package notify

import (
	"context"

	"gopkg.in/gomail.v2"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/pkg/logging"
)

// mailDialer is satisfied by *gomail.Dialer.
type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender relays email through an SMTP server.
type SMTPSender struct {
	dialer    mailDialer
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// NewSMTPSender returns nil when no host is configured.
func NewSMTPSender(cfg SMTPConfig, logger *logging.Logger) *SMTPSender {
	if cfg.Host == "" {
		return nil
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.FromName == "" {
		cfg.FromName = DefaultFromName
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SMTPSender{
		dialer:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Send delivers msg over SMTP.
func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.dialer == nil {
		return &ProviderError{Provider: ProviderSMTP, Err: errClientNotConfigured}
	}
	if err := ctx.Err(); err != nil {
		return &ProviderError{Provider: ProviderSMTP, Err: err}
	}

	m, err := buildMIME(msg, s.fromEmail, s.fromName)
	if err != nil {
		return &ProviderError{Provider: ProviderSMTP, Err: err}
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("smtp send failed", "error", err, "to", msg.To)
		return &ProviderError{Provider: ProviderSMTP, Err: err}
	}

	s.logger.Info("email sent via smtp", "to", msg.To, "subject", msg.Subject)
	return nil
}

var _ EmailSender = (*SMTPSender)(nil)
