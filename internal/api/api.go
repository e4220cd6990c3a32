// Package api serves archived run results over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bricegnichols/fast-trips/internal/store"
)

// Store is the archive the API reads from. Both the SQLite and Postgres
// backends satisfy it.
type Store interface {
	Ping(ctx context.Context) error
	ListRuns(ctx context.Context) ([]store.RunRecord, error)
	GetRun(ctx context.Context, runID string) (*store.RunRecord, error)
	Pathsets(ctx context.Context, runID string, iteration int) ([]store.PathRow, error)
	Performance(ctx context.Context, runID string) ([]store.PerfRow, error)
}

type Handler struct {
	store Store
}

func NewHandler(s Store) *Handler {
	return &Handler{store: s}
}

// Routes returns the API's route tree. The command wraps it with CORS and
// mounts it at the server root.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Get("/api/runs", h.ListRuns)
	r.Get("/api/runs/{runID}", h.GetRun)
	r.Get("/api/runs/{runID}/pathsets", h.GetPathsets)
	r.Get("/api/runs/{runID}/performance", h.GetPerformance)
	return r
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type RunsResponse struct {
	Runs  []store.RunRecord `json:"runs"`
	Count int               `json:"count"`
}

type PathsetsResponse struct {
	RunID string          `json:"run_id"`
	Rows  []store.PathRow `json:"rows"`
	Count int             `json:"count"`
}

type PerformanceResponse struct {
	RunID string          `json:"run_id"`
	Steps []store.PerfRow `json:"steps"`
	Count int             `json:"count"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Database: "down"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Database: "up"})
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListRuns(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list runs", err)
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	writeJSON(w, http.StatusOK, RunsResponse{Runs: runs, Count: len(runs)})
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) GetPathsets(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookupRun(w, r)
	if !ok {
		return
	}

	iteration := -1
	if v := r.URL.Query().Get("iteration"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "iteration must be a non-negative integer", nil)
			return
		}
		iteration = n
	}
	tripList := -1
	if v := r.URL.Query().Get("trip_list_id_num"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "trip_list_id_num must be a non-negative integer", nil)
			return
		}
		tripList = n
	}

	rows, err := h.store.Pathsets(r.Context(), rec.RunID, iteration)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load pathsets", err)
		return
	}
	if tripList >= 0 {
		kept := rows[:0]
		for _, row := range rows {
			if row.TripListIDNum == tripList {
				kept = append(kept, row)
			}
		}
		rows = kept
	}
	if rows == nil {
		rows = []store.PathRow{}
	}
	writeJSON(w, http.StatusOK, PathsetsResponse{RunID: rec.RunID, Rows: rows, Count: len(rows)})
}

func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookupRun(w, r)
	if !ok {
		return
	}

	steps, err := h.store.Performance(r.Context(), rec.RunID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load performance", err)
		return
	}
	if steps == nil {
		steps = []store.PerfRow{}
	}
	writeJSON(w, http.StatusOK, PerformanceResponse{RunID: rec.RunID, Steps: steps, Count: len(steps)})
}

func (h *Handler) lookupRun(w http.ResponseWriter, r *http.Request) (*store.RunRecord, bool) {
	runID := chi.URLParam(r, "runID")
	rec, err := h.store.GetRun(r.Context(), runID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "run not found", nil)
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load run", err)
		return nil, false
	}
	return rec, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
