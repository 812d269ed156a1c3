package notify

import (
	"fmt"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/config"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/pkg/logging"
)

// NewSender builds the sender named by cfg.EmailProvider. It returns a nil
// sender when the provider is known but not configured, so handlers can
// answer with a configuration error instead of failing at startup.
func NewSender(cfg *config.Config, ses SESAPI, logger *logging.Logger) (EmailSender, error) {
	switch cfg.EmailProvider {
	case ProviderSendGrid, "":
		if s := NewSendGridSender(SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); s != nil {
			return s, nil
		}
		return nil, nil
	case ProviderSES:
		if s := NewSESSender(ses, SESConfig{FromEmail: cfg.EmailFrom, FromName: cfg.EmailFromName}, logger); s != nil {
			return s, nil
		}
		return nil, nil
	case ProviderSMTP:
		if s := NewSMTPSender(SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); s != nil {
			return s, nil
		}
		return nil, nil
	case ProviderStub:
		return NewStubEmailSender(logger), nil
	default:
		return nil, fmt.Errorf("notify: unknown email provider %q", cfg.EmailProvider)
	}
}
