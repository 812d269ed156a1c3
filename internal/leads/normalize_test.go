package leads

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(617) 555-1234 x9", "6175551234"},
		{"617.555.1234 ext. 204", "6175551234"},
		{"+1 (617) 555-1234", "16175551234"},
		{"1234567890123456789", "123456789012345"},
		{"call me", ""},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeAt(t *testing.T) {
	now := time.Date(2026, 3, 4, 15, 4, 5, 123456789, time.FixedZone("EST", -5*3600))
	raw := map[string]any{
		"name":          "  Jane Driver ",
		"email":         "jane@example.com",
		"phone":         "(617) 555-1234 x9",
		"vin":           " 1hgcm82633a004352",
		"year":          json.Number("2019"),
		"mileage":       float64(42000),
		"extColor":      "Pure White",
		"accidents":     []any{"minor", "", "rear bumper"},
		"smoker":        false,
		"utm_source":    "google",
		"unrelated":     "kept out of the lead",
		"warningLights": "",
	}

	lead := NormalizeAt(raw, now)

	if lead.Name != "Jane Driver" {
		t.Fatalf("expected trimmed name, got %q", lead.Name)
	}
	if lead.Phone != "6175551234" {
		t.Fatalf("unexpected phone %q", lead.Phone)
	}
	if lead.VIN != "1HGCM82633A004352" {
		t.Fatalf("expected uppercase vin, got %q", lead.VIN)
	}
	if lead.Year != "2019" || lead.Mileage != "42000" {
		t.Fatalf("unexpected coerced numbers %q %q", lead.Year, lead.Mileage)
	}
	if lead.Condition["accidents"] != "minor, rear bumper" {
		t.Fatalf("unexpected joined list %q", lead.Condition["accidents"])
	}
	if lead.Condition["smoker"] != "false" {
		t.Fatalf("unexpected bool coercion %q", lead.Condition["smoker"])
	}
	if _, ok := lead.Condition["warningLights"]; ok {
		t.Fatalf("blank questionnaire answers should be dropped")
	}
	if lead.Attribution["utm_source"] != "google" {
		t.Fatalf("missing attribution, got %v", lead.Attribution)
	}
	if !lead.SubmittedAt.Equal(time.Date(2026, 3, 4, 20, 4, 5, 123000000, time.UTC)) {
		t.Fatalf("unexpected submittedAt %s", lead.SubmittedAt)
	}
}

func TestLeadFieldsOmitBlanks(t *testing.T) {
	lead := &Lead{
		Name:        "Jane",
		Email:       "jane@example.com",
		Make:        "Volkswagen",
		Condition:   map[string]string{"title": "clean"},
		Attribution: map[string]string{"gclid": "abc"},
		SubmittedAt: time.Date(2026, 1, 2, 3, 4, 5, 6000000, time.UTC),
	}
	want := map[string]string{
		"name":        "Jane",
		"email":       "jane@example.com",
		"make":        "Volkswagen",
		"title":       "clean",
		"gclid":       "abc",
		"submittedAt": "2026-01-02T03:04:05.006Z",
	}
	if got := lead.Fields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Fields() = %v, want %v", got, want)
	}
}

func TestValidate(t *testing.T) {
	lead := NormalizeAt(map[string]any{"name": "Jane", "phone": "abc", "vin": "  "}, time.Now())
	err := lead.Validate()

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !reflect.DeepEqual(validationErr.Missing, []string{"email", "phone", "vin"}) {
		t.Fatalf("unexpected missing fields %v", validationErr.Missing)
	}
	if validationErr.Error() != "missing required fields: email, phone, vin" {
		t.Fatalf("unexpected message %q", validationErr.Error())
	}

	complete := &Lead{Name: "Jane", Email: "j@example.com", Phone: "6175551234", VIN: "1HGCM82633A004352"}
	if err := complete.Validate(); err != nil {
		t.Fatalf("expected complete lead to validate, got %v", err)
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "  hi ", "hi"},
		{"large float", float64(123456789), "123456789"},
		{"fraction", 1.5, "1.5"},
		{"int", 7, "7"},
		{"bool", true, "true"},
		{"strings", []string{"a", " ", "b"}, "a, b"},
		{"nested", []any{"a", []any{"b", "c"}}, "a, b, c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Coerce(tt.in); got != tt.want {
				t.Fatalf("Coerce(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
