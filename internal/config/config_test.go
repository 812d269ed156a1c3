package config

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "EMAIL_PROVIDER", "LEAD_RECIPIENTS", "RELAY_RECIPIENTS",
		"MAX_ATTACHMENTS", "RELAY_MAX_ATTACHMENTS", "MAX_ATTACHMENT_SIZE",
		"MAX_TOTAL_ATTACHMENT_SIZE", "MAX_BODY_SIZE", "HONEYPOT_FIELD", "SUCCESS_URL",
		"BACKUP_WEBHOOK_TIMEOUT", "ATTACHMENT_FETCH_TIMEOUT", "VIN_CACHE_TTL", "VIN_ENRICH",
		"RELAY_MAX_ATTACHMENT_SIZE", "RELAY_MAX_TOTAL_ATTACHMENT_SIZE", "RELAY_WEBHOOK_SECRET",
	} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.EmailProvider != "sendgrid" {
		t.Fatalf("expected sendgrid provider, got %s", cfg.EmailProvider)
	}
	if !reflect.DeepEqual(cfg.LeadRecipients, []string{DefaultRecipients}) {
		t.Fatalf("expected default recipients, got %v", cfg.LeadRecipients)
	}
	if !reflect.DeepEqual(cfg.RelayRecipients, []string{DefaultRelayRecipients}) {
		t.Fatalf("expected default relay recipients, got %v", cfg.RelayRecipients)
	}
	if cfg.MaxAttachments != 10 || cfg.RelayMaxAttachments != 5 {
		t.Fatalf("unexpected attachment counts %d/%d", cfg.MaxAttachments, cfg.RelayMaxAttachments)
	}
	if cfg.MaxAttachmentBytes != 7*1024*1024 {
		t.Fatalf("expected 7MB per attachment, got %d", cfg.MaxAttachmentBytes)
	}
	if cfg.MaxTotalAttachmentBytes != 20*1024*1024 {
		t.Fatalf("expected 20MB total, got %d", cfg.MaxTotalAttachmentBytes)
	}
	if cfg.MaxBodyBytes != 30*1024*1024 {
		t.Fatalf("expected 30MB body, got %d", cfg.MaxBodyBytes)
	}
	if cfg.RelayMaxAttachmentBytes != cfg.MaxAttachmentBytes || cfg.RelayMaxTotalAttachmentBytes != cfg.MaxTotalAttachmentBytes {
		t.Fatalf("expected relay sizes to default to intake sizes, got %d/%d", cfg.RelayMaxAttachmentBytes, cfg.RelayMaxTotalAttachmentBytes)
	}
	if cfg.RelayWebhookSecret != "" {
		t.Fatalf("expected no relay secret by default")
	}
	if cfg.HoneypotField != "company" {
		t.Fatalf("expected company honeypot, got %s", cfg.HoneypotField)
	}
	if cfg.SuccessURL != "/thank-you.html" {
		t.Fatalf("unexpected success url %s", cfg.SuccessURL)
	}
	if cfg.BackupWebhookTimeout != 8*time.Second {
		t.Fatalf("expected 8s backup timeout, got %s", cfg.BackupWebhookTimeout)
	}
	if cfg.AttachmentFetchTimeout != 15*time.Second {
		t.Fatalf("expected 15s fetch timeout, got %s", cfg.AttachmentFetchTimeout)
	}
	if cfg.VINCacheTTL != 24*time.Hour {
		t.Fatalf("expected 24h vin cache ttl, got %s", cfg.VINCacheTTL)
	}
	if cfg.VINEnrich {
		t.Fatalf("expected vin enrichment disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("EMAIL_PROVIDER", " SES ")
	t.Setenv("LEAD_RECIPIENTS", "a@example.com, b@example.com,,")
	t.Setenv("RELAY_RECIPIENTS", "relay@example.com")
	t.Setenv("MAX_ATTACHMENT_SIZE", "2MB")
	t.Setenv("MAX_TOTAL_ATTACHMENT_SIZE", "1048576")
	t.Setenv("BACKUP_WEBHOOK_TIMEOUT", "3s")
	t.Setenv("VIN_ENRICH", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.EmailProvider != "ses" {
		t.Fatalf("expected provider normalized to ses, got %q", cfg.EmailProvider)
	}
	if !reflect.DeepEqual(cfg.LeadRecipients, []string{"a@example.com", "b@example.com"}) {
		t.Fatalf("unexpected lead recipients %v", cfg.LeadRecipients)
	}
	if !reflect.DeepEqual(cfg.RelayRecipients, []string{"relay@example.com"}) {
		t.Fatalf("unexpected relay recipients %v", cfg.RelayRecipients)
	}
	if cfg.MaxAttachmentBytes != 2*1024*1024 {
		t.Fatalf("expected 2MB, got %d", cfg.MaxAttachmentBytes)
	}
	if cfg.MaxTotalAttachmentBytes != 1048576 {
		t.Fatalf("expected plain byte count, got %d", cfg.MaxTotalAttachmentBytes)
	}
	if cfg.BackupWebhookTimeout != 3*time.Second {
		t.Fatalf("expected 3s, got %s", cfg.BackupWebhookTimeout)
	}
	if !cfg.VINEnrich {
		t.Fatalf("expected vin enrichment enabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected two origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("MAX_ATTACHMENTS", "lots")
	t.Setenv("MAX_BODY_SIZE", "huge")
	t.Setenv("BACKUP_WEBHOOK_TIMEOUT", "soon")
	cfg := Load()
	if cfg.MaxAttachments != 10 {
		t.Fatalf("expected fallback count, got %d", cfg.MaxAttachments)
	}
	if cfg.MaxBodyBytes != 30*1024*1024 {
		t.Fatalf("expected fallback body size, got %d", cfg.MaxBodyBytes)
	}
	if cfg.BackupWebhookTimeout != 8*time.Second {
		t.Fatalf("expected fallback timeout, got %s", cfg.BackupWebhookTimeout)
	}
}

func TestEmailSettings(t *testing.T) {
	cfg := &Config{
		EmailFrom:       "leads@example.com",
		EmailFromName:   "Appraisals",
		LeadRecipients:  []string{"sales@example.com"},
		RelayRecipients: []string{"relay@example.com"},
	}
	intake := cfg.EmailSettings(false)
	if intake.From != "leads@example.com" || intake.FromName != "Appraisals" {
		t.Fatalf("unexpected sender identity %+v", intake)
	}
	if intake.Recipients[0] != "sales@example.com" {
		t.Fatalf("unexpected intake recipients %v", intake.Recipients)
	}
	if got := cfg.EmailSettings(true).Recipients[0]; got != "relay@example.com" {
		t.Fatalf("unexpected relay recipient %s", got)
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		missing []string
	}{
		{
			name:    "sendgrid complete",
			cfg:     Config{EmailProvider: "sendgrid", SendGridAPIKey: "key", EmailFrom: "a@b.c", LeadRecipients: []string{"x@y.z"}},
			missing: nil,
		},
		{
			name:    "sendgrid missing key and from",
			cfg:     Config{EmailProvider: "sendgrid", LeadRecipients: []string{"x@y.z"}},
			missing: []string{"SENDGRID_API_KEY", "EMAIL_FROM"},
		},
		{
			name:    "smtp missing host",
			cfg:     Config{EmailProvider: "smtp", EmailFrom: "a@b.c", LeadRecipients: []string{"x@y.z"}},
			missing: []string{"SMTP_HOST"},
		},
		{
			name:    "ses needs only sender and recipients",
			cfg:     Config{EmailProvider: "ses", EmailFrom: "a@b.c"},
			missing: []string{"LEAD_RECIPIENTS"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateEmail()
			if tt.missing == nil {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if !reflect.DeepEqual(cfgErr.Missing, tt.missing) {
				t.Fatalf("expected missing %v, got %v", tt.missing, cfgErr.Missing)
			}
		})
	}
}

func TestRelayLimitsAreIndependent(t *testing.T) {
	t.Setenv("MAX_ATTACHMENT_SIZE", "2MB")
	t.Setenv("MAX_TOTAL_ATTACHMENT_SIZE", "")
	t.Setenv("RELAY_MAX_ATTACHMENT_SIZE", "")
	t.Setenv("RELAY_MAX_TOTAL_ATTACHMENT_SIZE", "12MB")
	t.Setenv("LEAD_RECIPIENTS", "sales@example.com")
	t.Setenv("RELAY_RECIPIENTS", "")
	cfg := Load()
	if cfg.RelayMaxAttachmentBytes != 2*1024*1024 {
		t.Fatalf("expected relay per-file size to follow intake override, got %d", cfg.RelayMaxAttachmentBytes)
	}
	if cfg.RelayMaxTotalAttachmentBytes != 12*1024*1024 || cfg.MaxTotalAttachmentBytes != 20*1024*1024 {
		t.Fatalf("expected independent total sizes, got relay %d intake %d", cfg.RelayMaxTotalAttachmentBytes, cfg.MaxTotalAttachmentBytes)
	}
	if !reflect.DeepEqual(cfg.RelayRecipients, []string{DefaultRelayRecipients}) {
		t.Fatalf("expected relay recipients to keep their own default, got %v", cfg.RelayRecipients)
	}
}
