package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/attachments"
)

// Envelope is the submission-created event sent by the form platform.
type Envelope struct {
	Payload *Payload `json:"payload" validate:"required"`
}

// Payload holds the captured form fields and uploaded file references.
type Payload struct {
	Data  map[string]any           `json:"data" validate:"required"`
	Files []attachments.Descriptor `json:"files"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseEnvelope decodes and validates an event body.
func ParseEnvelope(body []byte) (*Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var env Envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("relay: decode envelope: %w", err)
	}
	if err := validate.Struct(env); err != nil {
		return nil, fmt.Errorf("relay: envelope validation failed: %w", err)
	}
	return &env, nil
}

// FileURLs returns the non-blank descriptor URLs in input order.
func (p *Payload) FileURLs() []string {
	urls := make([]string, 0, len(p.Files))
	for _, f := range p.Files {
		if u := strings.TrimSpace(f.URL); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
