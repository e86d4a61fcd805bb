package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/training"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/work"
)

// StartJobRequest is the POST /api/jobs body.
type StartJobRequest struct {
	TargetAlgorithmID string                `json:"target_algorithm_id"`
	PeerAlgorithmIDs  []string              `json:"peer_algorithm_ids"`
	StartDate         string                `json:"start_date"` // YYYY-MM-DD; optional when resuming
	TimeLimitSeconds  int                   `json:"time_limit_seconds"`
	StreakLimitDays   int                   `json:"streak_limit_days"`
	Mode              domain.Mode           `json:"mode"`
	Explore           domain.ExploreConfig  `json:"explore"`
	Generate          domain.GenerateConfig `json:"generate"`
	Resume            bool                  `json:"resume"`
	AcceptMismatch    bool                  `json:"accept_mismatch"`
}

// JobRequest converts the body into an engine request.
func (b StartJobRequest) JobRequest() (domain.JobRequest, error) {
	req := domain.JobRequest{
		TargetAlgorithmID: b.TargetAlgorithmID,
		PeerAlgorithmIDs:  b.PeerAlgorithmIDs,
		TimeLimitSeconds:  b.TimeLimitSeconds,
		StreakLimitDays:   b.StreakLimitDays,
		Mode:              b.Mode,
		Explore:           b.Explore,
		Generate:          b.Generate,
	}
	if b.StartDate != "" {
		d, err := domain.ParseDate(b.StartDate)
		if err != nil {
			return req, err
		}
		req.StartDate = d
	}
	if req.Explore.InitialVector != nil {
		req.Explore.InitialVector = domain.NormalizeParams(req.Explore.InitialVector)
	}
	return req, nil
}

// JobHandlers controls the worker.
type JobHandlers struct {
	runner *work.Runner
	log    zerolog.Logger
}

// NewJobHandlers creates job handlers
func NewJobHandlers(runner *work.Runner, log zerolog.Logger) *JobHandlers {
	return &JobHandlers{
		runner: runner,
		log:    log.With().Str("handler", "jobs").Logger(),
	}
}

// HandleStart handles POST /api/jobs
func (h *JobHandlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	var body StartJobRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeError(w, h.log, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	req, err := body.JobRequest()
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, err.Error())
		return
	}

	if body.Resume {
		if err := h.runner.PrepareResume(&req, body.AcceptMismatch); err != nil {
			h.writeResumeError(w, err)
			return
		}
	}

	id, err := h.runner.Start(req)
	if err != nil {
		if errors.Is(err, work.ErrBusy) {
			writeError(w, h.log, http.StatusConflict, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to start job")
		writeError(w, h.log, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, h.log, http.StatusAccepted, map[string]interface{}{
		"job_id":  id,
		"resumed": body.Resume,
	})
}

func (h *JobHandlers) writeResumeError(w http.ResponseWriter, err error) {
	var mismatch *work.MismatchError
	switch {
	case errors.As(err, &mismatch):
		writeJSON(w, h.log, http.StatusConflict, map[string]interface{}{
			"error":    err.Error(),
			"mismatch": mismatch.Mismatch,
		})
	case errors.Is(err, training.ErrStateNotFound):
		writeError(w, h.log, http.StatusNotFound, err.Error())
	case errors.Is(err, training.ErrStateNotResumable), errors.Is(err, training.ErrStateCorrupt):
		writeError(w, h.log, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrConfig):
		writeError(w, h.log, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Failed to prepare resume")
		writeError(w, h.log, http.StatusInternalServerError, err.Error())
	}
}

// HandleStatus handles GET /api/jobs/status
func (h *JobHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.log, http.StatusOK, h.runner.Status())
}

// HandleStop handles POST /api/jobs/stop
func (h *JobHandlers) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.control(w, "stopping", h.runner.Stop)
}

// HandlePause handles POST /api/jobs/pause
func (h *JobHandlers) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.control(w, "pausing", h.runner.Pause)
}

// HandleResume handles POST /api/jobs/resume
func (h *JobHandlers) HandleResume(w http.ResponseWriter, r *http.Request) {
	h.control(w, "resuming", h.runner.Resume)
}

func (h *JobHandlers) control(w http.ResponseWriter, status string, fn func() error) {
	if err := fn(); err != nil {
		if errors.Is(err, work.ErrIdle) {
			writeError(w, h.log, http.StatusConflict, err.Error())
			return
		}
		writeError(w, h.log, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string]string{
		"status": status,
		"job_id": h.runner.ActiveJobID(),
	})
}
