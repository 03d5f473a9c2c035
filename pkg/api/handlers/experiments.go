package handlers

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/crucible/pkg/api"
	"mercator-hq/crucible/pkg/api/types"
	"mercator-hq/crucible/pkg/experiment"
	"mercator-hq/crucible/pkg/store"
)

// Config configures the experiment handlers.
type Config struct {
	// MaxBodyBytes caps request bodies. Default: 1MB
	MaxBodyBytes int64

	// RetryAfter is advertised on admission denials. Default: 5s
	RetryAfter time.Duration

	Logger *slog.Logger
}

// ExperimentHandler serves the /v1 experiment routes.
type ExperimentHandler struct {
	svc        ExperimentService
	maxBody    int64
	retryAfter time.Duration
	logger     *slog.Logger
}

// NewExperimentHandler creates the experiment handlers.
func NewExperimentHandler(svc ExperimentService, cfg Config) *ExperimentHandler {
	h := &ExperimentHandler{
		svc:        svc,
		maxBody:    cfg.MaxBodyBytes,
		retryAfter: cfg.RetryAfter,
		logger:     cfg.Logger,
	}
	if h.maxBody <= 0 {
		h.maxBody = api.DefaultMaxBodyBytes
	}
	if h.retryAfter <= 0 {
		h.retryAfter = 5 * time.Second
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.logger = h.logger.With("component", "api.handlers")
	return h
}

// Register mounts every experiment route on mux.
func (h *ExperimentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/experiments", h.create)
	mux.HandleFunc("GET /v1/experiments", h.list)
	mux.HandleFunc("GET /v1/experiments/{id}", h.get)
	mux.HandleFunc("POST /v1/experiments/{id}/submit", h.transition(h.svc.Submit))
	mux.HandleFunc("POST /v1/experiments/{id}/start", h.transition(h.svc.Start))
	mux.HandleFunc("POST /v1/experiments/{id}/complete", h.transition(h.svc.Complete))
	mux.HandleFunc("POST /v1/experiments/{id}/cancel", h.transition(h.svc.Cancel))
	mux.HandleFunc("POST /v1/experiments/{id}/fail", h.fail)
	mux.HandleFunc("POST /v1/experiments/{id}/results", h.recordResult)
	mux.HandleFunc("POST /v1/experiments/{id}/validation-notes", h.addValidationNote)
	mux.HandleFunc("POST /v1/experiments/{id}/promote", h.promote)
	mux.HandleFunc("GET /v1/statistics", h.statistics)
}

func (h *ExperimentHandler) create(w http.ResponseWriter, r *http.Request) {
	var req types.CreateExperimentRequest
	if err := api.DecodeJSON(w, r, h.maxBody, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, &api.RequestError{Message: err.Error()})
		return
	}

	snap, err := h.svc.Create(r.Context(), req.Definition())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/experiments/"+snap.ID)
	h.writeJSON(w, r, http.StatusCreated, types.NewExperiment(snap))
}

func (h *ExperimentHandler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	snaps := h.svc.List(r.Context(), filter)
	resp := types.ListExperimentsResponse{
		Experiments: make([]types.Experiment, len(snaps)),
		Count:       len(snaps),
	}
	for i, s := range snaps {
		resp.Experiments[i] = types.NewExperiment(s)
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// parseFilter reads the state, creator and type query parameters.
func parseFilter(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	filter := store.Filter{Creator: q.Get("creator")}

	if v := q.Get("state"); v != "" {
		state, err := experiment.ParseState(v)
		if err != nil {
			return filter, &api.RequestError{Message: err.Error()}
		}
		filter.State = state
	}
	if v := q.Get("type"); v != "" {
		typ, err := experiment.ParseType(v)
		if err != nil {
			return filter, &api.RequestError{Message: err.Error()}
		}
		filter.Type = typ
	}
	return filter, nil
}

func (h *ExperimentHandler) get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, types.NewExperiment(snap))
}

// transition adapts a body-less lifecycle operation to a handler.
func (h *ExperimentHandler) transition(op func(context.Context, string) (experiment.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := op(r.Context(), r.PathValue("id"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, types.NewExperiment(snap))
	}
}

func (h *ExperimentHandler) fail(w http.ResponseWriter, r *http.Request) {
	var req types.FailRequest
	if err := api.DecodeJSON(w, r, h.maxBody, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, &api.RequestError{Message: err.Error()})
		return
	}

	snap, err := h.svc.Fail(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, types.NewExperiment(snap))
}

func (h *ExperimentHandler) recordResult(w http.ResponseWriter, r *http.Request) {
	var req types.RecordResultRequest
	if err := api.DecodeJSON(w, r, h.maxBody, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, &api.RequestError{Message: err.Error()})
		return
	}

	out, err := h.svc.RecordResult(r.Context(), r.PathValue("id"), req.Result())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, types.NewRecordResultResponse(out))
}

func (h *ExperimentHandler) addValidationNote(w http.ResponseWriter, r *http.Request) {
	var req types.ValidationNoteRequest
	if err := api.DecodeJSON(w, r, h.maxBody, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	snap, err := h.svc.AddValidationNote(r.Context(), r.PathValue("id"), req.Note, req.Author)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, types.NewExperiment(snap))
}

func (h *ExperimentHandler) promote(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Promote(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, types.NewPromoteResponse(out))
}

func (h *ExperimentHandler) statistics(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.svc.Statistics(r.Context()))
}

func (h *ExperimentHandler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	if err := api.WriteJSONResponse(w, status, body); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write response", "error", err)
	}
}

// writeError maps err to an error response. Admission denials carry a
// Retry-After header; unexpected errors are logged since their detail is
// withheld from the client.
func (h *ExperimentHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	errResp := api.HandleError(err)

	switch status := errResp.Error.HTTPStatusCode(); {
	case status == http.StatusTooManyRequests:
		secs := int(math.Ceil(h.retryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	case status >= http.StatusInternalServerError:
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}

	if werr := api.WriteErrorResponse(w, errResp); werr != nil {
		h.logger.ErrorContext(r.Context(), "failed to write error response", "error", werr)
	}
}
