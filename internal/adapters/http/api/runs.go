package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	service "github.com/okian/compintel/internal/app"
	"github.com/okian/compintel/internal/domain/model"
)

const defaultListLimit = 20

// runRequest is the POST /runs body: a run request plus an optional
// idempotency key.
type runRequest struct {
	RequestID string `json:"request_id"`
	model.Request
}

type submitResponse struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// RunsHandler handles run submission and lookup.
type RunsHandler struct {
	deps Dependencies
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps Dependencies) *RunsHandler {
	return &RunsHandler{deps: deps}
}

// HandleSubmit handles POST /runs requests.
func (h *RunsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_run"
	var req runRequest
	// An empty body submits the configured default watchlist.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	id, dup, err := h.deps.Submit(r.Context(), service.SubmitRequest{RequestID: req.RequestID, Request: req.Request})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if dup {
		writeJSON(w, http.StatusOK, submitResponse{RunID: id, Status: "duplicate", Duplicate: true})
		return
	}
	w.Header().Set("Location", "/runs/"+id)
	writeJSON(w, http.StatusAccepted, submitResponse{RunID: id, Status: "accepted"})
}

// HandleList handles GET /runs?limit=N requests.
func (h *RunsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_runs"
	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	runs, err := h.deps.List(r.Context(), limit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// HandleGet handles GET /runs/{id} requests.
func (h *RunsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.deps.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "api.get_run", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// HandleReport handles GET /runs/{id}/report requests.
func (h *RunsHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	text, err := h.deps.Report(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "api.get_report", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(text)
}
