// Package relay handles submission events forwarded by the hosted form platform.
package relay

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/attachments"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/config"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/intake"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/leads"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/notify"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/observability/metrics"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/pkg/logging"
)

// Source labels metrics and logs for this entry point.
const Source = "relay"

// DefaultMaxEventBytes bounds an event body; files arrive as URLs.
const DefaultMaxEventBytes = 1 << 20

// Fetcher downloads attachment descriptors. *attachments.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, descriptors []attachments.Descriptor) attachments.Result
}

// HandlerConfig carries relay settings built at startup.
type HandlerConfig struct {
	Email         config.EmailSettings
	HoneypotField string
	MaxEventBytes int64
	// WebhookSecret enables signature checks on every event when set.
	WebhookSecret string
}

// Handler processes submission-created events.
type Handler struct {
	cfg       HandlerConfig
	deliverer intake.Deliverer
	fetcher   Fetcher
	metrics   *metrics.LeadMetrics
	logger    *logging.Logger
}

// NewHandler creates the relay handler.
func NewHandler(cfg HandlerConfig, deliverer intake.Deliverer, fetcher Fetcher, m *metrics.LeadMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HoneypotField == "" {
		cfg.HoneypotField = intake.DefaultHoneypotField
	}
	if cfg.MaxEventBytes <= 0 {
		cfg.MaxEventBytes = DefaultMaxEventBytes
	}
	return &Handler{
		cfg:       cfg,
		deliverer: deliverer,
		fetcher:   fetcher,
		metrics:   m,
		logger:    logger,
	}
}

// ServeHTTP handles POST /webhooks/submission-created
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxEventBytes))
	if err != nil {
		h.logger.Warn("relay: failed to read event", "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	status, text := h.HandleEvent(r.Context(), r.Header.Get(SignatureHeader), body)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, text)
}

// HandleEvent processes one event body and returns the status and text to
// answer with. signature is the X-Webhook-Signature value. The HTTP handler
// and the lambda entry share it.
func (h *Handler) HandleEvent(ctx context.Context, signature string, body []byte) (int, string) {
	if h.cfg.WebhookSecret != "" {
		if err := VerifySignature(h.cfg.WebhookSecret, signature, body); err != nil {
			h.logger.Warn("relay: rejected unsigned event", "error", err)
			h.metrics.ObserveSubmission(Source, "unauthorized")
			return http.StatusUnauthorized, "invalid signature"
		}
	}

	env, err := ParseEnvelope(body)
	if err != nil {
		h.logger.Warn("relay: rejected event", "error", err)
		h.metrics.ObserveSubmission(Source, "invalid")
		return http.StatusBadRequest, "invalid payload"
	}

	if err := h.deliverer.Ready(h.cfg.Email); err != nil {
		h.logger.Error("relay: email delivery not configured", "error", err)
		h.metrics.ObserveSubmission(Source, "misconfigured")
		return http.StatusInternalServerError, "email delivery is not configured"
	}

	fields := env.Payload.Data
	if intake.Honeypot(fields, h.cfg.HoneypotField) {
		h.logger.Info("relay: submission fell into the honeypot")
		h.metrics.ObserveSubmission(Source, "honeypot")
		return http.StatusOK, "ok"
	}

	lead := leads.Normalize(fields)
	if err := lead.Validate(); err != nil {
		h.logger.Warn("relay: submission incomplete", "error", err)
		h.metrics.ObserveSubmission(Source, "invalid")
		return http.StatusBadRequest, err.Error()
	}

	result := h.fetcher.Fetch(ctx, env.Payload.Files)
	h.metrics.ObserveAttachments(Source, len(result.Admitted), len(result.Omitted))

	err = h.deliverer.DeliverLead(ctx, notify.LeadDelivery{
		Source:      Source,
		Lead:        lead,
		Raw:         fields,
		Settings:    h.cfg.Email,
		Attachments: result.Admitted,
		FileURLs:    env.Payload.FileURLs(),
	})
	if err != nil {
		h.metrics.ObserveSubmission(Source, "send_failed")
		var providerErr *notify.ProviderError
		if errors.As(err, &providerErr) {
			return http.StatusBadGateway, "email send failed"
		}
		h.logger.Error("relay: delivery failed", "error", err)
		return http.StatusInternalServerError, "email send failed"
	}

	h.metrics.ObserveSubmission(Source, "sent")
	h.logger.Info("relay: submission delivered", "attachments", len(result.Admitted), "omitted", len(result.Omitted))
	return http.StatusOK, "ok"
}
