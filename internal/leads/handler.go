package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/advisorhq/lead-intake-platform/pkg/logging"
)

// IntakeService runs the screen -> qualify -> persist -> notify pipeline
// for a validated submission. Implemented by the intake package.
type IntakeService interface {
	Submit(ctx context.Context, req *CreateLeadRequest) (*Lead, error)
}

// Handler handles HTTP requests for leads
type Handler struct {
	intake IntakeService
	repo   Repository
	stats  StatsProvider
	logger *logging.Logger
}

// NewHandler creates a new leads handler. stats may wrap the repository
// with a cache; when nil the repository serves stats directly.
func NewHandler(intake IntakeService, repo Repository, stats StatsProvider, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if stats == nil {
		stats = repo
	}
	return &Handler{
		intake: intake,
		repo:   repo,
		stats:  stats,
		logger: logger,
	}
}

// Create handles POST /api/leads: validates, then runs the intake
// pipeline. Fraud rejections come back as 400 with the signal list;
// validation failures as 422.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	req.IPAddress = clientIP(r)

	lead, err := h.intake.Submit(r.Context(), &req)
	if err != nil {
		var fraudErr *FraudRejectionError
		switch {
		case errors.As(err, &fraudErr):
			writeError(w, http.StatusBadRequest, fraudErr.Error())
		case IsValidationError(err):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.Error("failed to create lead", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create lead")
		}
		return
	}

	h.logger.Info("lead created", "id", lead.ID, "score", derefInt(lead.QualityScore))
	writeJSON(w, http.StatusCreated, lead)
}

// List handles GET /api/leads with skip/limit/status/min_score/max_score.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := Filter{Limit: 100}

	query := r.URL.Query()
	if v := query.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			if limit > 500 {
				limit = 500
			}
			filter.Limit = limit
		}
	}
	if v := query.Get("skip"); v != "" {
		if skip, err := strconv.Atoi(v); err == nil && skip >= 0 {
			filter.Offset = skip
		}
	}
	filter.Status = query.Get("status")
	if v := query.Get("min_score"); v != "" {
		if score, err := strconv.Atoi(v); err == nil {
			filter.MinScore = &score
		}
	}
	if v := query.Get("max_score"); v != "" {
		if score, err := strconv.Atoi(v); err == nil {
			filter.MaxScore = &score
		}
	}

	result, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	if result == nil {
		result = []*Lead{}
	}

	writeJSON(w, http.StatusOK, result)
}

// Get handles GET /api/leads/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lead, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		h.logger.Error("failed to fetch lead", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to fetch lead")
		return
	}

	writeJSON(w, http.StatusOK, lead)
}

// Update handles PATCH /api/leads/{id}; only status and assigned_to are
// mutable.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	lead, err := h.repo.Update(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrLeadNotFound):
			writeError(w, http.StatusNotFound, "Lead not found")
		case IsValidationError(err):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.Error("failed to update lead", "error", err, "id", id)
			writeError(w, http.StatusInternalServerError, "failed to update lead")
		}
		return
	}

	h.logger.Info("lead updated", "id", lead.ID, "status", lead.Status)
	writeJSON(w, http.StatusOK, lead)
}

// GetStats handles GET /api/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to aggregate stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to aggregate stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func clientIP(r *http.Request) string {
	// RealIP middleware rewrites RemoteAddr; fall back to splitting the
	// host:port form.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
