package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/metrics"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/evaluation"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/training"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/work"
)

// accuracyTimeout caps one accuracy request.
const accuracyTimeout = 50 * time.Second

// AlgorithmHandlers serves algorithm metadata, saved state and accuracy reports.
type AlgorithmHandlers struct {
	registry     domain.AlgorithmRegistry
	materializer domain.Materializer
	states       *training.StateStore
	results      work.Snapshotter
	metrics      *metrics.Registry
	log          zerolog.Logger
}

// NewAlgorithmHandlers creates algorithm handlers
func NewAlgorithmHandlers(
	registry domain.AlgorithmRegistry,
	materializer domain.Materializer,
	states *training.StateStore,
	results work.Snapshotter,
	m *metrics.Registry,
	log zerolog.Logger,
) *AlgorithmHandlers {
	return &AlgorithmHandlers{
		registry:     registry,
		materializer: materializer,
		states:       states,
		results:      results,
		metrics:      m,
		log:          log.With().Str("handler", "algorithms").Logger(),
	}
}

// HandleList handles GET /api/algorithms
func (h *AlgorithmHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.log, http.StatusOK, h.registry.List())
}

// HandleGet handles GET /api/algorithms/{id}
func (h *AlgorithmHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	info, ok := h.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, h.log, http.StatusNotFound, "algorithm not found")
		return
	}
	writeJSON(w, h.log, http.StatusOK, info)
}

// HandleState handles GET /api/algorithms/{id}/state
func (h *AlgorithmHandlers) HandleState(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Read(chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, training.ErrStateNotFound):
			writeError(w, h.log, http.StatusNotFound, err.Error())
		case errors.Is(err, training.ErrStateCorrupt):
			writeError(w, h.log, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, h.log, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, h.log, http.StatusOK, state)
}

// HandleAccuracy handles GET /api/algorithms/{id}/accuracy
//
// Query parameters: from, to (YYYY-MM-DD, default the full data range),
// peers (comma-separated), source ("state" or "defaults"; default uses the
// saved state when one exists).
func (h *AlgorithmHandlers) HandleAccuracy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, ok := h.registry.Get(id)
	if !ok {
		writeError(w, h.log, http.StatusNotFound, "algorithm not found")
		return
	}

	store, err := h.results.Snapshot()
	if err != nil {
		writeError(w, h.log, http.StatusInternalServerError, err.Error())
		return
	}
	first, ok := store.First()
	if !ok {
		writeError(w, h.log, http.StatusUnprocessableEntity, "no results loaded")
		return
	}
	last, _ := store.Last()

	q := r.URL.Query()
	from, err := dateParam(q.Get("from"), first.Date)
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, err.Error())
		return
	}
	to, err := dateParam(q.Get("to"), last.Date)
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, err.Error())
		return
	}

	vector, source, err := h.states.Vector(info, q.Get("source"))
	if err != nil {
		writeError(w, h.log, http.StatusNotFound, err.Error())
		return
	}

	var peers []string
	if raw := q.Get("peers"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				peers = append(peers, p)
			}
		}
	}

	eval := evaluation.NewEvaluator(store, h.registry, h.materializer,
		evaluation.Config{TargetID: id, PeerIDs: peers},
		nil, nil, h.metrics, h.log)

	ctx, cancel := context.WithTimeout(r.Context(), accuracyTimeout)
	defer cancel()

	report, err := eval.Accuracy(ctx, vector, from, to)
	if err != nil {
		writeError(w, h.log, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"algorithm": id,
		"source":    source,
		"params":    vector,
		"report":    report,
	})
}

func dateParam(raw string, def time.Time) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	return domain.ParseDate(raw)
}
