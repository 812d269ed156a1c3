package vin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/pkg/logging"
)

// Handler serves GET /api/vin/{vin} for the form's VIN assist.
type Handler struct {
	lookup Lookup
	logger *logging.Logger
}

// NewHandler creates a VIN decode handler.
func NewHandler(lookup Lookup, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{lookup: lookup, logger: logger}
}

type decodeResult struct {
	*Vehicle
	CheckDigitValid bool `json:"checkDigitValid"`
}

// Decode handles GET /api/vin/{vin}
func (h *Handler) Decode(w http.ResponseWriter, r *http.Request) {
	vin := Normalize(chi.URLParam(r, "vin"))
	if !Valid(vin) {
		writeError(w, http.StatusBadRequest, "vin must be 17 characters (letters I, O and Q are not used)")
		return
	}

	vehicle, err := h.lookup.Decode(r.Context(), vin)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "vehicle not found")
			return
		}
		h.logger.Error("vin decode failed", "vin", vin, "error", err)
		writeError(w, http.StatusBadGateway, "vin decoder unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(decodeResult{Vehicle: vehicle, CheckDigitValid: CheckDigitValid(vin)})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
