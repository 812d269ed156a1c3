// Package backup mirrors delivered leads to a spreadsheet webhook.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/observability/metrics"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/pkg/logging"
)

// DefaultTimeout bounds a webhook call when no timeout is configured.
const DefaultTimeout = 8 * time.Second

// Config configures the webhook notifier.
type Config struct {
	URL     string
	Secret  string
	Timeout time.Duration
	Client  *http.Client
}

// Notifier posts lead copies to the backup webhook. A nil Notifier is valid
// and does nothing.
type Notifier struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	metrics  *metrics.LeadMetrics
	logger   *logging.Logger
	now      func() time.Time

	wg sync.WaitGroup
}

// NewNotifier returns nil when no webhook URL is configured.
func NewNotifier(cfg Config, m *metrics.LeadMetrics, logger *logging.Logger) (*Notifier, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	endpoint, err := url.Parse(cfg.URL)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("backup: invalid webhook url %q", cfg.URL)
	}
	if cfg.Secret != "" {
		q := endpoint.Query()
		q.Set("secret", cfg.Secret)
		endpoint.RawQuery = q.Encode()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Notifier{
		endpoint: endpoint.String(),
		client:   cfg.Client,
		timeout:  cfg.Timeout,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Payload builds the webhook body: lead fields plus fileUrls and _ts.
func (n *Notifier) Payload(fields map[string]string, fileURLs []string) map[string]any {
	payload := make(map[string]any, len(fields)+2)
	for key, value := range fields {
		payload[key] = value
	}
	if fileURLs == nil {
		fileURLs = []string{}
	}
	payload["fileUrls"] = fileURLs
	payload["_ts"] = n.now().UTC().Format(time.RFC3339)
	return payload
}

// Notify posts payload to the webhook and reports any failure.
func (n *Notifier) Notify(ctx context.Context, payload map[string]any) error {
	if n == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("backup: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("backup: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("backup: post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backup: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Dispatch mirrors a lead in the background. The call is detached from the
// request context and bounded by the notifier timeout; failures are logged.
func (n *Notifier) Dispatch(ctx context.Context, fields map[string]string, fileURLs []string) {
	if n == nil {
		return
	}
	payload := n.Payload(fields, fileURLs)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		if err := n.Notify(ctx, payload); err != nil {
			n.logger.Warn("backup webhook failed", "error", err)
			n.metrics.ObserveBackup(false)
			return
		}
		n.metrics.ObserveBackup(true)
		n.logger.Debug("backup webhook delivered")
	}()
}

// Wait blocks until in-flight dispatches finish.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}
