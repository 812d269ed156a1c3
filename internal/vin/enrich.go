package vin

import (
	"context"
	"time"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/leads"
)

// EnrichTimeout bounds the lookup made while a submission is in flight.
const EnrichTimeout = 3 * time.Second

// Enrich fills blank year, make, model and trim on lead from a decode of its
// VIN. Fields the customer supplied are never overwritten. It returns the
// decode error, if any; the lead is left untouched in that case.
func Enrich(ctx context.Context, lookup Lookup, lead *leads.Lead) error {
	if lookup == nil || lead == nil || (lead.Make != "" && lead.Model != "") {
		return nil
	}
	if !Valid(lead.VIN) {
		return ErrInvalidVIN
	}

	ctx, cancel := context.WithTimeout(ctx, EnrichTimeout)
	defer cancel()

	v, err := lookup.Decode(ctx, lead.VIN)
	if err != nil {
		return err
	}
	fill(&lead.Year, v.Year)
	fill(&lead.Make, v.Make)
	fill(&lead.Model, v.Model)
	fill(&lead.Trim, v.Trim)
	return nil
}

func fill(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}
