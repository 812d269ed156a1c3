package leads

import (
	"time"
)

// Form keys shared by the intake form, the relay payload and the backup sheet.
const (
	KeyName          = "name"
	KeyEmail         = "email"
	KeyPhone         = "phone"
	KeyVIN           = "vin"
	KeyYear          = "year"
	KeyMake          = "make"
	KeyModel         = "model"
	KeyTrim          = "trim"
	KeyMileage       = "mileage"
	KeyExteriorColor = "extColor"
	KeyInteriorColor = "intColor"
	KeySubmittedAt   = "submittedAt"
)

// ConditionKeys are the questionnaire answers collected about the vehicle.
var ConditionKeys = []string{
	"title",
	"loan",
	"accidents",
	"warningLights",
	"mechanicalIssues",
	"cosmeticIssues",
	"tires",
	"keys",
	"smoker",
	"modifications",
	"notes",
}

// AttributionKeys are the marketing fields captured by the landing page.
var AttributionKeys = []string{
	"referrer",
	"landingPage",
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_term",
	"utm_content",
	"gclid",
	"fbclid",
}

// SubmittedAtLayout is the interchange format for SubmittedAt.
const SubmittedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// Lead represents a trade-in appraisal request
type Lead struct {
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Phone         string            `json:"phone"`
	VIN           string            `json:"vin"`
	Year          string            `json:"year,omitempty"`
	Make          string            `json:"make,omitempty"`
	Model         string            `json:"model,omitempty"`
	Trim          string            `json:"trim,omitempty"`
	Mileage       string            `json:"mileage,omitempty"`
	ExteriorColor string            `json:"extColor,omitempty"`
	InteriorColor string            `json:"intColor,omitempty"`
	Condition     map[string]string `json:"condition,omitempty"`
	Attribution   map[string]string `json:"attribution,omitempty"`
	SubmittedAt   time.Time         `json:"submittedAt"`
}

// FileUpload is a photo received in a multipart submission.
type FileUpload struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
	Size        int64
}

// Validate checks that the fields needed to follow up on a lead are present.
func (l *Lead) Validate() error {
	var missing []string
	if l.Name == "" {
		missing = append(missing, KeyName)
	}
	if l.Email == "" {
		missing = append(missing, KeyEmail)
	}
	if l.Phone == "" {
		missing = append(missing, KeyPhone)
	}
	if l.VIN == "" {
		missing = append(missing, KeyVIN)
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Fields flattens the lead into form keys. Blank values are left out.
func (l *Lead) Fields() map[string]string {
	out := make(map[string]string, 16)
	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	set(KeyName, l.Name)
	set(KeyEmail, l.Email)
	set(KeyPhone, l.Phone)
	set(KeyVIN, l.VIN)
	set(KeyYear, l.Year)
	set(KeyMake, l.Make)
	set(KeyModel, l.Model)
	set(KeyTrim, l.Trim)
	set(KeyMileage, l.Mileage)
	set(KeyExteriorColor, l.ExteriorColor)
	set(KeyInteriorColor, l.InteriorColor)
	for key, value := range l.Condition {
		set(key, value)
	}
	for key, value := range l.Attribution {
		set(key, value)
	}
	if !l.SubmittedAt.IsZero() {
		out[KeySubmittedAt] = l.SubmittedAt.UTC().Format(SubmittedAtLayout)
	}
	return out
}
