package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/compose"
)

// DefaultRecipients receives leads when LEAD_RECIPIENTS is not set.
const DefaultRecipients = "sales@quirkvwma.com"

// DefaultRelayRecipients receives relayed submissions when RELAY_RECIPIENTS
// is not set.
const DefaultRelayRecipients = "internetleads@quirkvwma.com"

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Email delivery
	EmailProvider      string
	SendGridAPIKey     string
	EmailFrom          string
	EmailFromName      string
	LeadRecipients     []string
	RelayRecipients    []string
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	SubjectTemplate    string
	HoneypotField      string
	SuccessURL         string
	CORSAllowedOrigins []string
	StaticDir          string

	// Attachment budgets
	MaxAttachments          int
	RelayMaxAttachments     int
	MaxAttachmentBytes      int64
	MaxTotalAttachmentBytes int64
	MaxBodyBytes            int64
	AttachmentFetchTimeout  time.Duration

	// Relay limits default to the intake sizes
	RelayMaxAttachmentBytes      int64
	RelayMaxTotalAttachmentBytes int64
	RelayWebhookSecret           string

	// Backup webhook
	BackupWebhookURL     string
	BackupWebhookSecret  string
	BackupWebhookTimeout time.Duration

	// AWS (SES sender, s3:// attachments)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// VIN decoding
	VINDecodeURL  string
	VINEnrich     bool
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	VINCacheTTL   time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	maxAttachmentBytes := getEnvAsBytes("MAX_ATTACHMENT_SIZE", 7*units.MiB)
	maxTotalAttachmentBytes := getEnvAsBytes("MAX_TOTAL_ATTACHMENT_SIZE", 20*units.MiB)

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		EmailProvider:      strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:          strings.TrimSpace(getEnv("EMAIL_FROM", "")),
		EmailFromName:      getEnv("EMAIL_FROM_NAME", "Trade-In Appraisals"),
		LeadRecipients:     splitList(getEnv("LEAD_RECIPIENTS", DefaultRecipients)),
		RelayRecipients:    splitList(getEnv("RELAY_RECIPIENTS", DefaultRelayRecipients)),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SubjectTemplate:    getEnv("SUBJECT_TEMPLATE", compose.DefaultSubjectTemplate),
		HoneypotField:      getEnv("HONEYPOT_FIELD", "company"),
		SuccessURL:         getEnv("SUCCESS_URL", "/thank-you.html"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		StaticDir:          getEnv("STATIC_DIR", ""),

		MaxAttachments:          getEnvAsInt("MAX_ATTACHMENTS", 10),
		RelayMaxAttachments:     getEnvAsInt("RELAY_MAX_ATTACHMENTS", 5),
		MaxAttachmentBytes:      maxAttachmentBytes,
		MaxTotalAttachmentBytes: maxTotalAttachmentBytes,
		MaxBodyBytes:            getEnvAsBytes("MAX_BODY_SIZE", 30*units.MiB),
		AttachmentFetchTimeout:  getEnvAsDuration("ATTACHMENT_FETCH_TIMEOUT", 15*time.Second),

		RelayMaxAttachmentBytes:      getEnvAsBytes("RELAY_MAX_ATTACHMENT_SIZE", maxAttachmentBytes),
		RelayMaxTotalAttachmentBytes: getEnvAsBytes("RELAY_MAX_TOTAL_ATTACHMENT_SIZE", maxTotalAttachmentBytes),
		RelayWebhookSecret:           getEnv("RELAY_WEBHOOK_SECRET", ""),

		BackupWebhookURL:     strings.TrimSpace(getEnv("BACKUP_WEBHOOK_URL", "")),
		BackupWebhookSecret:  getEnv("BACKUP_WEBHOOK_SECRET", ""),
		BackupWebhookTimeout: getEnvAsDuration("BACKUP_WEBHOOK_TIMEOUT", 8*time.Second),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		VINDecodeURL:  getEnv("VIN_DECODE_URL", "https://vpic.nhtsa.dot.gov/api/vehicles"),
		VINEnrich:     getEnvAsBool("VIN_ENRICH", false),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		VINCacheTTL:   getEnvAsDuration("VIN_CACHE_TTL", 24*time.Hour),
	}
}

// EmailSettings is the sender identity and recipient list for one entry point.
type EmailSettings struct {
	From       string
	FromName   string
	Recipients []string
}

// EmailSettings returns the delivery settings for the intake handler, or for
// the submission relay when relay is true.
func (c *Config) EmailSettings(relay bool) EmailSettings {
	recipients := c.LeadRecipients
	if relay {
		recipients = c.RelayRecipients
	}
	return EmailSettings{
		From:       c.EmailFrom,
		FromName:   c.EmailFromName,
		Recipients: recipients,
	}
}

// ValidateEmail reports which email settings are missing for the configured
// provider. It returns nil when a lead can be delivered.
func (c *Config) ValidateEmail() error {
	var missing []string
	switch c.EmailProvider {
	case "sendgrid", "":
		if c.SendGridAPIKey == "" {
			missing = append(missing, "SENDGRID_API_KEY")
		}
	case "smtp":
		if c.SMTPHost == "" {
			missing = append(missing, "SMTP_HOST")
		}
	}
	if c.EmailFrom == "" {
		missing = append(missing, "EMAIL_FROM")
	}
	if len(c.LeadRecipients) == 0 {
		missing = append(missing, "LEAD_RECIPIENTS")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

// splitList turns a comma separated value into trimmed, non-empty entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBytes accepts plain byte counts or human sizes such as "7MB".
// Sizes are binary (1MB = 1024*1024 bytes).
func getEnvAsBytes(key string, defaultValue int64) int64 {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue
	}
	if value, err := units.RAMInBytes(valueStr); err == nil && value >= 0 {
		return value
	}
	return defaultValue
}
