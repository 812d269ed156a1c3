package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/http/middleware"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/vin"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	IntakeHandler      http.Handler
	RelayHandler       http.Handler
	VINHandler         *vin.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// StaticDir serves the site (including the success page) when set.
	StaticDir string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Both lead handlers enforce their own methods.
	if cfg.IntakeHandler != nil {
		r.Handle("/api/lead", cfg.IntakeHandler)
	}
	if cfg.RelayHandler != nil {
		r.Handle("/webhooks/submission-created", cfg.RelayHandler)
	}
	if cfg.VINHandler != nil {
		r.Get("/api/vin/{vin}", cfg.VINHandler.Decode)
	}

	if cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
