package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/attachments"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/config"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/notify"
)

type spyDeliverer struct {
	mu        sync.Mutex
	readyErr  error
	err       error
	delivered []notify.LeadDelivery
}

func (s *spyDeliverer) Ready(config.EmailSettings) error { return s.readyErr }

func (s *spyDeliverer) DeliverLead(_ context.Context, d notify.LeadDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, d)
	return s.err
}

type stubFetcher struct {
	got    []attachments.Descriptor
	result attachments.Result
}

func (f *stubFetcher) Fetch(_ context.Context, d []attachments.Descriptor) attachments.Result {
	f.got = d
	return f.result
}

const validEvent = `{"payload":{"data":{"name":"Jane","email":"jane@example.com","phone":"617-555-1234","vin":"1hgcm82633a004352","company":""},"files":[{"url":"https://files.example/a.jpg","filename":"a.jpg","type":"image/jpeg"},{"url":"  ","filename":"b.jpg"},{"url":"https://files.example/c.jpg"}]}}`

func newHandler(d *spyDeliverer, f *stubFetcher) *Handler {
	return NewHandler(HandlerConfig{
		Email: config.EmailSettings{From: "leads@example.com", Recipients: []string{"relay@example.com"}},
	}, d, f, nil, nil)
}

func TestHandleEventDelivers(t *testing.T) {
	d := &spyDeliverer{}
	f := &stubFetcher{result: attachments.Result{
		Admitted: []attachments.Payload{{Filename: "a.jpg"}},
		Omitted:  []attachments.Omission{{Filename: "c.jpg", Reason: attachments.ReasonFetch}},
	}}

	status, body := newHandler(d, f).HandleEvent(context.Background(), "", []byte(validEvent))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)
	require.Len(t, d.delivered, 1)
	delivery := d.delivered[0]
	assert.Equal(t, Source, delivery.Source)
	assert.Equal(t, "1HGCM82633A004352", delivery.Lead.VIN)
	assert.Equal(t, []string{"relay@example.com"}, delivery.Settings.Recipients)
	assert.Len(t, delivery.Attachments, 1)
	assert.Equal(t, []string{"https://files.example/a.jpg", "https://files.example/c.jpg"}, delivery.FileURLs)
	assert.Len(t, f.got, 3)
}

func TestHandleEventStatuses(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		deliver  *spyDeliverer
		status   int
		text     string
		attempts int
	}{
		{"not json", `nope`, &spyDeliverer{}, http.StatusBadRequest, "invalid payload", 0},
		{"missing payload", `{}`, &spyDeliverer{}, http.StatusBadRequest, "invalid payload", 0},
		{"missing data", `{"payload":{"files":[]}}`, &spyDeliverer{}, http.StatusBadRequest, "invalid payload", 0},
		{"not configured", validEvent, &spyDeliverer{readyErr: &config.ConfigurationError{Missing: []string{"EMAIL_FROM"}}}, http.StatusInternalServerError, "email delivery is not configured", 0},
		{"honeypot", `{"payload":{"data":{"company":"Acme"}}}`, &spyDeliverer{}, http.StatusOK, "ok", 0},
		{"provider failure", validEvent, &spyDeliverer{err: &notify.ProviderError{Provider: "sendgrid", Err: errors.New("down")}}, http.StatusBadGateway, "email send failed", 1},
		{"incomplete lead rejected", `{"payload":{"data":{}}}`, &spyDeliverer{}, http.StatusBadRequest, "missing required fields: name, email, phone, vin", 0},
		{"blank vin rejected", `{"payload":{"data":{"name":"Jane","email":"jane@example.com","phone":"6175551234","vin":"  "}}}`, &spyDeliverer{}, http.StatusBadRequest, "missing required fields: vin", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, text := newHandler(tt.deliver, &stubFetcher{}).HandleEvent(context.Background(), "", []byte(tt.body))
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.text, text)
			assert.Len(t, tt.deliver.delivered, tt.attempts)
		})
	}
}

func TestServeHTTP(t *testing.T) {
	h := newHandler(&spyDeliverer{}, &stubFetcher{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhooks/submission-created", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/submission-created", strings.NewReader(validEvent)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHandleEventIncompleteLeadSkipsFetch(t *testing.T) {
	f := &stubFetcher{}
	d := &spyDeliverer{}
	body := `{"payload":{"data":{"name":"Jane"},"files":[{"url":"https://files.example/a.jpg"}]}}`

	status, _ := newHandler(d, f).HandleEvent(context.Background(), "", []byte(body))

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Nil(t, f.got)
	assert.Empty(t, d.delivered)
}

func newSignedHandler(d *spyDeliverer, secret string) *Handler {
	return NewHandler(HandlerConfig{
		Email:         config.EmailSettings{From: "leads@example.com", Recipients: []string{"relay@example.com"}},
		WebhookSecret: secret,
	}, d, &stubFetcher{}, nil, nil)
}

func TestHandleEventSignatures(t *testing.T) {
	const secret = "whsec-test"
	tests := []struct {
		name      string
		signature string
		status    int
		attempts  int
	}{
		{"valid", signEvent(t, secret, validEvent), http.StatusOK, 1},
		{"wrong secret", signEvent(t, "other-secret", validEvent), http.StatusUnauthorized, 0},
		{"missing", "", http.StatusUnauthorized, 0},
		{"garbage", "not-a-token", http.StatusUnauthorized, 0},
		{"body tampered", signEvent(t, secret, `{"payload":{"data":{}}}`), http.StatusUnauthorized, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &spyDeliverer{}
			status, _ := newSignedHandler(d, secret).HandleEvent(context.Background(), tt.signature, []byte(validEvent))
			assert.Equal(t, tt.status, status)
			assert.Len(t, d.delivered, tt.attempts)
		})
	}
}

func TestHandleEventSignatureCheckedBeforeParsing(t *testing.T) {
	status, text := newSignedHandler(&spyDeliverer{}, "whsec-test").HandleEvent(context.Background(), "", []byte(`nope`))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid signature", text)
}

func TestServeHTTPReadsSignatureHeader(t *testing.T) {
	const secret = "whsec-test"
	d := &spyDeliverer{}
	h := newSignedHandler(d, secret)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/submission-created", strings.NewReader(validEvent)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/submission-created", strings.NewReader(validEvent))
	req.Header.Set(SignatureHeader, signEvent(t, secret, validEvent))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, d.delivered, 1)
}

func TestServeHTTPRejectsOversizeEvent(t *testing.T) {
	h := NewHandler(HandlerConfig{MaxEventBytes: 16}, &spyDeliverer{}, &stubFetcher{}, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/submission-created", strings.NewReader(validEvent)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
