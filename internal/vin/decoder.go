package vin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var decodeTracer = otel.Tracer("appraisal.internal.vin.decode")

// DefaultBaseURL is the NHTSA vPIC vehicles API.
const DefaultBaseURL = "https://vpic.nhtsa.dot.gov/api/vehicles"

var (
	// ErrInvalidVIN is returned for VINs that are not 17 valid characters.
	ErrInvalidVIN = errors.New("vin: invalid vin")

	// ErrNotFound is returned when the decoder knows nothing about a VIN.
	ErrNotFound = errors.New("vin: vehicle not found")
)

// Vehicle is the decoded description of a VIN.
type Vehicle struct {
	VIN             string `json:"vin"`
	Year            string `json:"year,omitempty"`
	Make            string `json:"make,omitempty"`
	Model           string `json:"model,omitempty"`
	Trim            string `json:"trim,omitempty"`
	BodyClass       string `json:"bodyClass,omitempty"`
	DriveType       string `json:"driveType,omitempty"`
	EngineCylinders string `json:"engineCylinders,omitempty"`
	FuelType        string `json:"fuelType,omitempty"`
}

// Lookup decodes a VIN into a Vehicle.
type Lookup interface {
	Decode(ctx context.Context, vin string) (*Vehicle, error)
}

// Decoder queries the vPIC DecodeVinValues endpoint.
type Decoder struct {
	baseURL    string
	httpClient *http.Client
}

// NewDecoder creates a Decoder. An empty baseURL uses DefaultBaseURL.
func NewDecoder(baseURL string, client *http.Client) *Decoder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Decoder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

type decodeResponse struct {
	Results []struct {
		ModelYear       string `json:"ModelYear"`
		Make            string `json:"Make"`
		Model           string `json:"Model"`
		Trim            string `json:"Trim"`
		BodyClass       string `json:"BodyClass"`
		DriveType       string `json:"DriveType"`
		EngineCylinders string `json:"EngineCylinders"`
		FuelTypePrimary string `json:"FuelTypePrimary"`
	} `json:"Results"`
}

// Decode looks up vin. Make and model names come back title-cased as vPIC
// reports them.
func (d *Decoder) Decode(ctx context.Context, vin string) (*Vehicle, error) {
	vin = Normalize(vin)
	if !Valid(vin) {
		return nil, ErrInvalidVIN
	}

	ctx, span := decodeTracer.Start(ctx, "vin.decode", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("appraisal.vin", vin))

	endpoint := fmt.Sprintf("%s/DecodeVinValues/%s?format=json", d.baseURL, url.PathEscape(vin))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("vin: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("vin: decode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("vin: decoder returned status %d", resp.StatusCode)
		span.RecordError(err)
		return nil, err
	}

	var parsed decodeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("vin: decode response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return nil, ErrNotFound
	}

	r := parsed.Results[0]
	v := &Vehicle{
		VIN:             vin,
		Year:            strings.TrimSpace(r.ModelYear),
		Make:            titleCase(r.Make),
		Model:           strings.TrimSpace(r.Model),
		Trim:            strings.TrimSpace(r.Trim),
		BodyClass:       strings.TrimSpace(r.BodyClass),
		DriveType:       strings.TrimSpace(r.DriveType),
		EngineCylinders: strings.TrimSpace(r.EngineCylinders),
		FuelType:        strings.TrimSpace(r.FuelTypePrimary),
	}
	if v.Make == "" && v.Model == "" && v.Year == "" {
		return nil, ErrNotFound
	}
	return v, nil
}

// titleCase turns "VOLKSWAGEN" into "Volkswagen" and "MERCEDES-BENZ" into
// "Mercedes-Benz". Short all-caps segments such as "BMW" or "GMC" are kept.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		parts := strings.Split(w, "-")
		for j, p := range parts {
			parts[j] = titleSegment(p)
		}
		words[i] = strings.Join(parts, "-")
	}
	return strings.Join(words, " ")
}

func titleSegment(s string) string {
	r := []rune(s)
	if len(r) <= 3 {
		return s
	}
	return string(unicode.ToUpper(r[0])) + strings.ToLower(string(r[1:]))
}

var _ Lookup = (*Decoder)(nil)
