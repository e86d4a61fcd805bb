package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/training"
)

// RunHandlers serves the training history.
type RunHandlers struct {
	runs *training.RunRepository
	log  zerolog.Logger
}

// NewRunHandlers creates run handlers
func NewRunHandlers(runs *training.RunRepository, log zerolog.Logger) *RunHandlers {
	return &RunHandlers{
		runs: runs,
		log:  log.With().Str("handler", "runs").Logger(),
	}
}

// HandleList handles GET /api/runs?algorithm=&limit=
func (h *RunHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, h.log, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := h.runs.List(r.URL.Query().Get("algorithm"), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		writeError(w, h.log, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []training.Run{}
	}
	writeJSON(w, h.log, http.StatusOK, runs)
}

// HandleGet handles GET /api/runs/{id}
func (h *RunHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, training.ErrRunNotFound) {
			writeError(w, h.log, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, h.log, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, h.log, http.StatusOK, run)
}
