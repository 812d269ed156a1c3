package intake

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/attachments"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/config"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/leads"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/notify"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/observability/metrics"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/vin"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/pkg/logging"
)

// Source labels metrics and logs for this entry point.
const Source = "intake"

// DefaultSuccessURL is where browsers land after a plain form post.
const DefaultSuccessURL = "/thank-you.html"

// Deliverer sends a normalized lead. *notify.Service implements it.
type Deliverer interface {
	Ready(settings config.EmailSettings) error
	DeliverLead(ctx context.Context, d notify.LeadDelivery) error
}

// HandlerConfig carries the per-entry-point settings built at startup.
type HandlerConfig struct {
	Email         config.EmailSettings
	Parse         ParseLimits
	Attachments   attachments.Limits
	HoneypotField string
	SuccessURL    string
}

// Handler accepts trade-in appraisal forms posted by the website.
type Handler struct {
	cfg       HandlerConfig
	deliverer Deliverer
	lookup    vin.Lookup
	metrics   *metrics.LeadMetrics
	logger    *logging.Logger
}

// NewHandler creates the form intake handler. lookup is optional and only
// used to fill in vehicle details the customer left blank.
func NewHandler(cfg HandlerConfig, deliverer Deliverer, lookup vin.Lookup, m *metrics.LeadMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HoneypotField == "" {
		cfg.HoneypotField = DefaultHoneypotField
	}
	if cfg.SuccessURL == "" {
		cfg.SuccessURL = DefaultSuccessURL
	}
	return &Handler{
		cfg:       cfg,
		deliverer: deliverer,
		lookup:    lookup,
		metrics:   m,
		logger:    logger,
	}
}

// ServeHTTP handles /api/lead
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		setCORSDefaults(w)
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	logger := h.logger.With("source", Source, "request_id", chimw.GetReqID(r.Context()))

	sub, err := ParseBody(r, h.cfg.Parse)
	if err != nil {
		logger.Warn("failed to parse lead body", "error", err)
		h.metrics.ObserveSubmission(Source, "invalid")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if Honeypot(sub.Fields, h.cfg.HoneypotField) {
		logger.Info("lead fell into the honeypot")
		h.metrics.ObserveSubmission(Source, "honeypot")
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "silent": true})
		return
	}

	lead := leads.Normalize(sub.Fields)
	if err := lead.Validate(); err != nil {
		logger.Info("lead rejected", "error", err)
		h.metrics.ObserveSubmission(Source, "invalid")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.deliverer.Ready(h.cfg.Email); err != nil {
		logger.Error("email delivery not configured", "error", err)
		h.metrics.ObserveSubmission(Source, "misconfigured")
		http.Error(w, "email delivery is not configured", http.StatusInternalServerError)
		return
	}

	if h.lookup != nil {
		if err := vin.Enrich(r.Context(), h.lookup, lead); err != nil {
			logger.Warn("vin enrichment skipped", "vin", lead.VIN, "error", err)
		}
	}

	admitted, omitted := attachments.FromUploads(sub.Files, h.cfg.Attachments)
	for _, name := range sub.Dropped {
		logger.Warn("attachment omitted", "filename", name, "reason", attachments.ReasonTooLarge)
	}
	for _, o := range omitted {
		logger.Warn("attachment omitted", "filename", o.Filename, "reason", o.Reason)
	}
	h.metrics.ObserveAttachments(Source, len(admitted), len(omitted)+len(sub.Dropped))

	err = h.deliverer.DeliverLead(r.Context(), notify.LeadDelivery{
		Source:      Source,
		Lead:        lead,
		Raw:         sub.Fields,
		Settings:    h.cfg.Email,
		Attachments: admitted,
	})
	if err != nil {
		status := statusFor(err)
		h.metrics.ObserveSubmission(Source, "send_failed")
		logger.Error("lead delivery failed", "error", err, "status", status)
		http.Error(w, http.StatusText(status)+": unable to send appraisal request", status)
		return
	}
	h.metrics.ObserveSubmission(Source, "sent")

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "files": len(admitted)})
		return
	}
	http.Redirect(w, r, h.cfg.SuccessURL, http.StatusSeeOther)
}

// statusFor maps delivery errors to response codes.
func statusFor(err error) int {
	var providerErr *notify.ProviderError
	if errors.As(err, &providerErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

// setCORSDefaults answers preflights when the handler is served without the
// CORS middleware in front of it.
func setCORSDefaults(w http.ResponseWriter) {
	h := w.Header()
	if h.Get("Access-Control-Allow-Origin") == "" {
		h.Set("Access-Control-Allow-Origin", "*")
	}
	if h.Get("Access-Control-Allow-Methods") == "" {
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	}
	if h.Get("Access-Control-Allow-Headers") == "" {
		h.Set("Access-Control-Allow-Headers", "Content-Type, Accept, X-Requested-With")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
