package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/attachments"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/backup"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/compose"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/config"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/leads"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/observability/metrics"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/pkg/logging"
)

var serviceTracer = otel.Tracer("appraisal.internal.notify.service")

// LeadDelivery is one lead ready to go out to the sales team.
type LeadDelivery struct {
	Source      string
	Lead        *leads.Lead
	Raw         map[string]any
	Settings    config.EmailSettings
	Attachments []attachments.Payload
	FileURLs    []string
}

// Service renders a lead, sends it and mirrors it to the backup webhook.
// Both the form intake and the submission relay deliver through it.
type Service struct {
	email    EmailSender
	provider string
	composer *compose.Composer
	backup   *backup.Notifier
	metrics  *metrics.LeadMetrics
	logger   *logging.Logger
}

// NewService creates a lead delivery service. email may be nil when the
// provider is not configured; Ready reports that case.
func NewService(email EmailSender, provider string, composer *compose.Composer, backup *backup.Notifier, m *metrics.LeadMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if provider == "" {
		provider = ProviderSendGrid
	}
	return &Service{
		email:    email,
		provider: provider,
		composer: composer,
		backup:   backup,
		metrics:  m,
		logger:   logger,
	}
}

// Ready reports the settings missing for a delivery with the given settings.
func (s *Service) Ready(settings config.EmailSettings) error {
	var missing []string
	if s.email == nil {
		missing = append(missing, "email provider ("+s.provider+")")
	}
	if settings.From == "" {
		missing = append(missing, "EMAIL_FROM")
	}
	if len(settings.Recipients) == 0 {
		missing = append(missing, "recipients")
	}
	if len(missing) > 0 {
		return &config.ConfigurationError{Missing: missing}
	}
	return nil
}

// DeliverLead composes and sends the lead email. The backup webhook is only
// dispatched after the provider accepted the message. Send failures are
// returned as *ProviderError and are not retried.
func (s *Service) DeliverLead(ctx context.Context, d LeadDelivery) error {
	if err := s.Ready(d.Settings); err != nil {
		return err
	}

	email, err := s.composer.Compose(d.Raw, d.Lead)
	if err != nil {
		return fmt.Errorf("notify: compose lead email: %w", err)
	}

	msg := EmailMessage{
		To:          d.Settings.Recipients,
		From:        d.Settings.From,
		FromName:    d.Settings.FromName,
		ReplyTo:     d.Lead.Email,
		Subject:     email.Subject,
		Body:        email.Text,
		HTML:        email.HTML,
		Attachments: d.Attachments,
	}

	ctx, span := serviceTracer.Start(ctx, "notify.deliver_lead")
	defer span.End()
	span.SetAttributes(
		attribute.String("appraisal.source", d.Source),
		attribute.String("appraisal.provider", s.provider),
		attribute.Int("appraisal.attachments", len(d.Attachments)),
	)

	start := time.Now()
	err = s.email.Send(ctx, msg)
	s.metrics.ObserveSend(s.provider, err == nil, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var providerErr *ProviderError
		if !errors.As(err, &providerErr) {
			err = &ProviderError{Provider: s.provider, Err: err}
		}
		s.logger.Error("notify: lead email failed", "error", err, "source", d.Source, "vin", d.Lead.VIN)
		return err
	}

	s.logger.Info("notify: lead email sent",
		"source", d.Source,
		"vin", d.Lead.VIN,
		"recipients", len(msg.To),
		"attachments", len(msg.Attachments),
	)

	s.backup.Dispatch(ctx, d.Lead.Fields(), d.FileURLs)
	return nil
}

// Wait blocks until background backup deliveries finish.
func (s *Service) Wait() {
	s.backup.Wait()
}
