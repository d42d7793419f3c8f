// Package router assembles the HTTP surface of the lead intake service.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/advisorhq/lead-intake-platform/internal/http/middleware"
	"github.com/advisorhq/lead-intake-platform/internal/leads"
	"github.com/advisorhq/lead-intake-platform/pkg/logging"
)

// Version reported by the liveness endpoint.
const Version = "1.0.0"

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	LeadsHandler       *leads.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Per-IP rate limit applied to the public intake endpoint. Zero
	// disables limiting.
	LeadRateLimitRPS   float64
	LeadRateLimitBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/", livenessRoot)
	r.Head("/", livenessRoot)
	r.Get("/health", health)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Group(func(submit chi.Router) {
			if cfg.LeadRateLimitRPS > 0 {
				submit.Use(httpmiddleware.RateLimit(cfg.LeadRateLimitRPS, cfg.LeadRateLimitBurst))
			}
			submit.Post("/leads", cfg.LeadsHandler.Create)
		})

		api.Get("/leads", cfg.LeadsHandler.List)
		api.Get("/leads/{id}", cfg.LeadsHandler.Get)
		api.Patch("/leads/{id}", cfg.LeadsHandler.Update)
		api.Get("/stats", cfg.LeadsHandler.GetStats)
	})

	return r
}

func livenessRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"message": "Lead Qualification API",
		"version": Version,
	})
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
