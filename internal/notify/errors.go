package notify

import (
	"errors"
	"fmt"
)

// Provider names accepted by EMAIL_PROVIDER.
const (
	ProviderSendGrid = "sendgrid"
	ProviderSES      = "ses"
	ProviderSMTP     = "smtp"
	ProviderStub     = "stub"
)

// DefaultFromName is the display name used when none is configured.
const DefaultFromName = "Trade-In Appraisals"

var errClientNotConfigured = errors.New("client not configured")

// ProviderError is returned when the email provider rejects or fails a send.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("notify: %s send failed (status %d): %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("notify: %s send failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
