package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"citation-monitor/internal/cache"
	"citation-monitor/internal/repo"
)

// MonitorHandler serves the read-only dashboard API over stored runs,
// responses and citation aggregates.
type MonitorHandler struct {
	repo     repo.Repository
	cache    *cache.RedisCache
	statsTTL time.Duration
}

func NewMonitorHandler(r repo.Repository, c *cache.RedisCache, statsTTL time.Duration) *MonitorHandler {
	return &MonitorHandler{repo: r, cache: c, statsTTL: statsTTL}
}

// RegisterRoutes mounts the dashboard routes.
func (h *MonitorHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/runs", h.ListRuns)
		r.Get("/runs/{runID}", h.GetRun)
		r.Get("/runs/{runID}/responses", h.ListResponses)
		r.Get("/stats/citations", h.CitationStats)
	})
}

// ListRuns returns the most recent runs, newest first.
func (h *MonitorHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := int32(20)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 || parsed > 100 {
			http.Error(w, "invalid limit value (must be 1-100)", http.StatusBadRequest)
			return
		}
		limit = int32(parsed)
	}

	runs, err := h.repo.ListRuns(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list runs")
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"runs": runs})
}

// GetRun returns one run's summary row.
func (h *MonitorHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := h.repo.GetRunSummary(r.Context(), runID)
	if errors.Is(err, repo.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		http.Error(w, "failed to get run", http.StatusInternalServerError)
		return
	}

	writeJSON(w, run)
}

// ListResponses returns every stored response for a run, in insertion order.
func (h *MonitorHandler) ListResponses(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	if _, err := h.repo.GetRunSummary(r.Context(), runID); errors.Is(err, repo.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		http.Error(w, "failed to get run", http.StatusInternalServerError)
		return
	}

	responses, err := h.repo.ListResponses(r.Context(), runID)
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("Failed to list responses")
		http.Error(w, "failed to list responses", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"run_id": runID, "responses": responses})
}

// CitationStats returns per-provider citation counts and rates, cached for
// statsTTL — the aggregate only moves when a run writes new rows.
func (h *MonitorHandler) CitationStats(w http.ResponseWriter, r *http.Request) {
	data, err := h.cache.GetOrSet(r.Context(), cache.CitationStatsKey(), h.statsTTL, func() (any, error) {
		stats, err := h.repo.CitationStats(r.Context())
		if err != nil {
			return nil, err
		}
		return map[string]any{"stats": stats}, nil
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute citation stats")
		http.Error(w, "failed to compute citation stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
