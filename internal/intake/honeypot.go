package intake

import "github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/leads"

// DefaultHoneypotField is the hidden input real visitors leave empty.
const DefaultHoneypotField = "company"

// Honeypot reports whether the trap field was filled in.
func Honeypot(fields map[string]any, field string) bool {
	if field == "" {
		field = DefaultHoneypotField
	}
	return leads.Coerce(fields[field]) != ""
}
