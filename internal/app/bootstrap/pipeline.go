package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/attachments"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/backup"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/compose"
	appconfig "github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/config"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/intake"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/notify"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/observability/metrics"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/relay"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/vin"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/pkg/logging"
)

// Deps are the externally built clients the pipeline may use. Leave a field
// nil when the component is not configured.
type Deps struct {
	Registerer prometheus.Registerer
	SES        notify.SESAPI
	S3         attachments.S3API
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// Pipeline is the fully wired lead pipeline shared by the API server and the
// relay lambda.
type Pipeline struct {
	Metrics   *metrics.LeadMetrics
	Service   *notify.Service
	Intake    *intake.Handler
	Relay     *relay.Handler
	VIN       vin.Lookup
	VINRoutes *vin.Handler

	redis *redis.Client
}

// BuildPipeline wires the email sender, composer, backup webhook, attachment
// fetcher and VIN lookup from config. A missing email setting does not fail
// startup; handlers answer with a configuration error instead.
func BuildPipeline(ctx context.Context, cfg *appconfig.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	m := metrics.NewLeadMetrics(deps.Registerer)

	if err := cfg.ValidateEmail(); err != nil {
		logger.Warn("email delivery not fully configured", "error", err)
	}
	sender, err := notify.NewSender(cfg, deps.SES, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	composer, err := compose.NewComposer(cfg.SubjectTemplate, cfg.HoneypotField)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	notifier, err := backup.NewNotifier(backup.Config{
		URL:     cfg.BackupWebhookURL,
		Secret:  cfg.BackupWebhookSecret,
		Timeout: cfg.BackupWebhookTimeout,
		Client:  deps.HTTPClient,
	}, m, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if notifier == nil {
		logger.Info("backup webhook disabled")
	}

	service := notify.NewService(sender, cfg.EmailProvider, composer, notifier, m, logger)

	redisClient := BuildRedisClient(ctx, cfg, logger, true)
	lookup := BuildVINLookup(cfg, redisClient, deps.HTTPClient, m, logger)

	p := &Pipeline{
		Metrics: m,
		Service: service,
		VIN:     lookup,
		redis:   redisClient,
	}
	if lookup != nil {
		p.VINRoutes = vin.NewHandler(lookup, logger)
	}

	var enrich vin.Lookup
	if cfg.VINEnrich {
		enrich = lookup
	}
	p.Intake = intake.NewHandler(intake.HandlerConfig{
		Email: cfg.EmailSettings(false),
		Parse: intake.ParseLimits{
			MaxBodyBytes: cfg.MaxBodyBytes,
			MaxFileBytes: cfg.MaxAttachmentBytes,
		},
		Attachments: attachments.Limits{
			MaxCount:      cfg.MaxAttachments,
			MaxEachBytes:  cfg.MaxAttachmentBytes,
			MaxTotalBytes: cfg.MaxTotalAttachmentBytes,
		},
		HoneypotField: cfg.HoneypotField,
		SuccessURL:    cfg.SuccessURL,
	}, service, enrich, m, logger)

	fetcher := attachments.NewFetcher(attachments.FetcherConfig{
		Limits: attachments.Limits{
			MaxCount:      cfg.RelayMaxAttachments,
			MaxEachBytes:  cfg.RelayMaxAttachmentBytes,
			MaxTotalBytes: cfg.RelayMaxTotalAttachmentBytes,
		},
		Timeout: cfg.AttachmentFetchTimeout,
		Client:  deps.HTTPClient,
		S3:      deps.S3,
	}, logger)
	p.Relay = relay.NewHandler(relay.HandlerConfig{
		Email:         cfg.EmailSettings(true),
		HoneypotField: cfg.HoneypotField,
		WebhookSecret: cfg.RelayWebhookSecret,
	}, service, fetcher, m, logger)

	return p, nil
}

// Close waits for in-flight backup dispatches and releases the Redis client.
func (p *Pipeline) Close() error {
	if p == nil {
		return nil
	}
	p.Service.Wait()
	if p.redis != nil {
		return p.redis.Close()
	}
	return nil
}
