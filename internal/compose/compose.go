// Package compose renders a lead into the email sent to the sales team.
package compose

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/leads"
)

// DefaultSubjectTemplate is used when no subject template is configured.
const DefaultSubjectTemplate = "Trade-In Appraisal: {{.Name}} {{.Year}} {{.Make}} {{.Model}}"

const heading = "Trade-In Appraisal Request"

// controlFields carry form plumbing rather than lead data.
var controlFields = []string{"form-name", "bot-field", "company"}

// PreferredKeys lists the fields shown first, in this order.
var PreferredKeys = append([]string{
	leads.KeyName,
	leads.KeyEmail,
	leads.KeyPhone,
	leads.KeyVIN,
	leads.KeyYear,
	leads.KeyMake,
	leads.KeyModel,
	leads.KeyTrim,
	leads.KeyMileage,
	leads.KeyExteriorColor,
	leads.KeyInteriorColor,
}, leads.ConditionKeys...)

var labels = map[string]string{
	leads.KeyName:          "Name",
	leads.KeyEmail:         "Email",
	leads.KeyPhone:         "Phone",
	leads.KeyVIN:           "VIN",
	leads.KeyYear:          "Year",
	leads.KeyMake:          "Make",
	leads.KeyModel:         "Model",
	leads.KeyTrim:          "Trim",
	leads.KeyMileage:       "Mileage",
	leads.KeyExteriorColor: "Exterior Color",
	leads.KeyInteriorColor: "Interior Color",
	leads.KeySubmittedAt:   "Submitted At",
	"title":                "Title Status",
	"loan":                 "Loan / Lease Payoff",
	"accidents":            "Accidents",
	"warningLights":        "Warning Lights",
	"mechanicalIssues":     "Mechanical Issues",
	"cosmeticIssues":       "Cosmetic Issues",
	"tires":                "Tire Condition",
	"keys":                 "Number of Keys",
	"smoker":               "Smoked In",
	"modifications":        "Modifications",
	"notes":                "Additional Notes",
	"referrer":             "Referrer",
	"landingPage":          "Landing Page",
	"utm_source":           "UTM Source",
	"utm_medium":           "UTM Medium",
	"utm_campaign":         "UTM Campaign",
	"utm_term":             "UTM Term",
	"utm_content":          "UTM Content",
	"gclid":                "Google Click ID",
	"fbclid":               "Facebook Click ID",
}

var (
	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	whitespace  = regexp.MustCompile(`\s+`)
)

// Row is one rendered field.
type Row struct {
	Key   string
	Label string
	Value string
}

// Email is the rendered message content.
type Email struct {
	Subject string
	HTML    string
	Text    string
	Rows    []Row
}

// Composer renders leads. It is safe for concurrent use.
type Composer struct {
	subject   *template.Template
	preferred []string
	excluded  map[string]struct{}
}

// NewComposer parses the subject template. honeypot names an extra form
// field to keep out of the email.
func NewComposer(subjectTemplate, honeypot string) (*Composer, error) {
	if strings.TrimSpace(subjectTemplate) == "" {
		subjectTemplate = DefaultSubjectTemplate
	}
	tmpl, err := template.New("subject").Parse(subjectTemplate)
	if err != nil {
		return nil, fmt.Errorf("compose: parse subject template: %w", err)
	}
	if err := tmpl.Execute(io.Discard, &leads.Lead{}); err != nil {
		return nil, fmt.Errorf("compose: subject template: %w", err)
	}
	excluded := make(map[string]struct{}, len(controlFields)+1)
	for _, key := range controlFields {
		excluded[key] = struct{}{}
	}
	if honeypot = strings.TrimSpace(honeypot); honeypot != "" {
		excluded[honeypot] = struct{}{}
	}
	return &Composer{subject: tmpl, preferred: PreferredKeys, excluded: excluded}, nil
}

// Compose renders the subject, HTML and text bodies for a lead.
func (c *Composer) Compose(raw map[string]any, lead *leads.Lead) (Email, error) {
	subject, err := c.Subject(lead)
	if err != nil {
		return Email{}, err
	}
	rows := c.Rows(Merge(raw, lead))
	return Email{
		Subject: subject,
		HTML:    RenderHTML(rows),
		Text:    RenderText(rows),
		Rows:    rows,
	}, nil
}

// Subject executes the subject template with whitespace runs collapsed.
func (c *Composer) Subject(lead *leads.Lead) (string, error) {
	var b strings.Builder
	if err := c.subject.Execute(&b, lead); err != nil {
		return "", fmt.Errorf("compose: render subject: %w", err)
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(b.String(), " ")), nil
}

// Rows orders fields for display: preferred keys first, then the rest
// sorted by key. Blank values and control fields are skipped.
func (c *Composer) Rows(fields map[string]string) []Row {
	rows := make([]Row, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, key := range c.preferred {
		seen[key] = struct{}{}
		if c.skip(key, fields[key]) {
			continue
		}
		rows = append(rows, Row{Key: key, Label: Label(key), Value: fields[key]})
	}

	rest := make([]string, 0, len(fields))
	for key := range fields {
		if _, ok := seen[key]; !ok {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		if c.skip(key, fields[key]) {
			continue
		}
		rows = append(rows, Row{Key: key, Label: Label(key), Value: fields[key]})
	}
	return rows
}

func (c *Composer) skip(key, value string) bool {
	if _, ok := c.excluded[key]; ok {
		return true
	}
	return strings.TrimSpace(value) == ""
}

// Merge unions raw form fields with the normalized lead. Lead values win
// when both carry the same key.
func Merge(raw map[string]any, lead *leads.Lead) map[string]string {
	merged := make(map[string]string, len(raw)+16)
	for key, value := range raw {
		if s := leads.Coerce(value); s != "" {
			merged[key] = s
		}
	}
	if lead != nil {
		for key, value := range lead.Fields() {
			merged[key] = value
		}
	}
	return merged
}

// Label returns the display label for a form key.
func Label(key string) string {
	if label, ok := labels[key]; ok {
		return label
	}
	return key
}

// EscapeHTML escapes &, < and > for embedding in the HTML body.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// RenderHTML renders rows as a two column table.
func RenderHTML(rows []Row) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: sans-serif; max-width: 640px;">`)
	b.WriteString("\n<h2>" + heading + "</h2>\n")
	b.WriteString(`<table style="border-collapse: collapse;">`)
	b.WriteString("\n")
	for _, row := range rows {
		fmt.Fprintf(&b,
			`  <tr><td style="padding: 6px 12px; border-bottom: 1px solid #e5e7eb;"><strong>%s</strong></td><td style="padding: 6px 12px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>`+"\n",
			EscapeHTML(row.Label), EscapeHTML(row.Value))
	}
	b.WriteString("</table>\n</div>")
	return b.String()
}

// RenderText renders rows as "Label: value" lines.
func RenderText(rows []Row) string {
	var b strings.Builder
	b.WriteString(heading + "\n\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "%s: %s\n", row.Label, row.Value)
	}
	return b.String()
}
