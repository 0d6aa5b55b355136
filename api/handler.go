// Package api exposes planning over HTTP for inspection tooling.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/guileen/planlite/binder"
	"github.com/guileen/planlite/catalog"
	cerrors "github.com/guileen/planlite/catalog/errors"
	"github.com/guileen/planlite/logger"
	"github.com/guileen/planlite/planner"
)

// Handler serves explain requests against one catalog snapshot.
type Handler struct {
	snapshot *catalog.Snapshot
	planner  *planner.Planner
	binder   *binder.Binder
}

// NewHandler creates a handler over a catalog snapshot.
func NewHandler(snap *catalog.Snapshot, config planner.Config) *Handler {
	return &Handler{
		snapshot: snap,
		planner:  planner.New(snap, config),
		binder:   binder.New(snap),
	}
}

// RegisterRoutes mounts the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/explain", h.Explain)
	r.Get("/catalog/tables", h.ListTables)
}

type ExplainRequest struct {
	SQL string `json:"sql"`
}

type ExplainResponse struct {
	Plan       string  `json:"plan"`
	TotalCost  float64 `json:"total_cost"`
	Rows       float64 `json:"rows"`
	SnapshotID string  `json:"snapshot_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Explain binds and plans a SELECT statement, returning the rendered
// plan.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SQL == "" {
		writeError(w, http.StatusBadRequest, "request body must be {\"sql\": \"...\"}")
		return
	}

	ctx := context.WithValue(r.Context(), logger.RequestIDKey, uuid.NewString())
	ctx = context.WithValue(ctx, logger.SnapshotIDKey, h.snapshot.ID().String())

	q, err := h.binder.Bind(req.SQL)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, cerrors.ErrUnknownRelation) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}

	plan, err := h.planner.Plan(ctx, q)
	if err != nil {
		logger.ErrorContext(ctx, "planning failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ExplainResponse{
		Plan:       planner.Explain(plan),
		TotalCost:  plan.Cost.TotalCost,
		Rows:       plan.Cost.Rows,
		SnapshotID: h.snapshot.ID().String(),
	})
}

// ListTables reports the tables of the serving snapshot.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"snapshot_id": h.snapshot.ID().String(),
		"tables":      h.snapshot.Tables(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
