package work

import (
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
)

// Worker states reported by Status.
const (
	StateIdle    = "idle"
	StateRunning = "running"
	StatePaused  = "paused"
)

// Summary describes a finished job.
type Summary struct {
	JobID      string                 `json:"job_id"`
	Algorithm  string                 `json:"algorithm"`
	Mode       domain.Mode            `json:"mode"`
	Reason     domain.TerminalReason  `json:"reason"`
	Success    bool                   `json:"success"`
	Message    string                 `json:"message"`
	BestStreak int                    `json:"best_streak"`
	BestParams domain.ParameterVector `json:"best_params,omitempty"`
	Evaluated  int                    `json:"evaluated"`
	SetsTested *int                   `json:"sets_tested,omitempty"`
	Artifact   string                 `json:"artifact,omitempty"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
}

// Status is a point-in-time view of the worker.
type Status struct {
	State     string      `json:"state"`
	JobID     string      `json:"job_id,omitempty"`
	Algorithm string      `json:"algorithm,omitempty"`
	Mode      domain.Mode `json:"mode,omitempty"`
	StartedAt *time.Time  `json:"started_at,omitempty"`
	Last      *Summary    `json:"last,omitempty"`
}

// Status reports what the worker is doing.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{State: StateIdle, Last: r.last}
	if aj := r.current; aj != nil {
		st.State = StateRunning
		if aj.ctl.Paused() {
			st.State = StatePaused
		}
		started := aj.started
		st.JobID = aj.id
		st.Algorithm = aj.req.TargetAlgorithmID
		st.Mode = aj.req.Mode
		st.StartedAt = &started
	}
	return st
}
