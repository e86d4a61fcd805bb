package work

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/control"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/events"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/metrics"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/optimization"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/results"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/training"
)

var (
	// ErrBusy is returned by Start while another job is running.
	ErrBusy = errors.New("a job is already running")
	// ErrIdle is returned by control calls when nothing is running.
	ErrIdle = errors.New("no job is running")
)

// Snapshotter yields an immutable results store for one job.
type Snapshotter interface {
	Snapshot() (*results.Store, error)
}

// Uploader receives files to copy off-host.
type Uploader interface {
	Enqueue(path string) bool
}

// Deps are the Runner's collaborators. Runs, Mirror, Artifacts and Metrics
// may be nil.
type Deps struct {
	Results      Snapshotter
	Registry     domain.AlgorithmRegistry
	Materializer domain.Materializer
	States       *training.StateStore
	Artifacts    optimization.ArtifactWriter
	Runs         *training.RunRepository
	Events       *events.Manager
	Metrics      *metrics.Registry
	Mirror       Uploader
	Settings     optimization.Settings
	ScratchRoot  string
}

// Runner executes optimization jobs one at a time.
type Runner struct {
	deps Deps
	log  zerolog.Logger
	now  func() time.Time

	mu      sync.Mutex
	current *activeJob
	last    *Summary
}

type activeJob struct {
	id      string
	req     domain.JobRequest
	ctl     *control.Flags
	cancel  context.CancelFunc
	done    chan struct{}
	started time.Time
	scratch string
}

// NewRunner creates the worker and empties the scratch root.
func NewRunner(deps Deps, log zerolog.Logger) (*Runner, error) {
	if deps.Results == nil || deps.Registry == nil || deps.Materializer == nil || deps.States == nil {
		return nil, fmt.Errorf("runner requires results, registry, materializer and state store")
	}
	if deps.ScratchRoot == "" {
		return nil, fmt.Errorf("runner requires a scratch root")
	}
	if deps.Events == nil {
		deps.Events = events.NewManager(nil, log)
	}

	if err := os.RemoveAll(deps.ScratchRoot); err != nil {
		return nil, fmt.Errorf("failed to clear scratch root: %w", err)
	}
	if err := os.MkdirAll(deps.ScratchRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch root: %w", err)
	}

	r := &Runner{
		deps: deps,
		log:  log.With().Str("component", "runner").Logger(),
		now:  time.Now,
	}
	if deps.Mirror != nil {
		deps.States.OnSaved(func(_ string, path string) {
			deps.Mirror.Enqueue(path)
		})
	}
	return r, nil
}

// Start launches req on the worker goroutine and returns the job id.
func (r *Runner) Start(req domain.JobRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		return "", ErrBusy
	}

	store, err := r.deps.Results.Snapshot()
	if err != nil {
		return "", fmt.Errorf("failed to snapshot results: %w", err)
	}

	id := uuid.New().String()
	scratch := filepath.Join(r.deps.ScratchRoot, id)
	if err := os.MkdirAll(scratch, 0755); err != nil {
		return "", fmt.Errorf("failed to create job scratch: %w", err)
	}

	if r.deps.Runs != nil {
		if _, err := r.deps.Runs.Start(id, req); err != nil {
			r.log.Warn().Err(err).Str("job_id", id).Msg("Failed to record run start")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	aj := &activeJob{
		id:      id,
		req:     req,
		ctl:     control.New(),
		cancel:  cancel,
		done:    make(chan struct{}),
		started: r.now(),
		scratch: scratch,
	}
	r.current = aj

	engine := optimization.NewEngine(
		store,
		r.deps.Registry,
		r.deps.Materializer,
		r.deps.States,
		r.deps.Artifacts,
		r.deps.Events.ForJob(id),
		r.deps.Metrics,
		r.deps.Settings,
		r.log,
	)

	r.log.Info().
		Str("job_id", id).
		Str("algorithm", req.TargetAlgorithmID).
		Str("mode", string(req.Mode)).
		Msg("Job started")

	go r.execute(ctx, engine, aj)
	return id, nil
}

func (r *Runner) execute(ctx context.Context, engine *optimization.Engine, aj *activeJob) {
	defer close(aj.done)
	defer aj.cancel()

	res := engine.Run(ctx, aj.req, aj.ctl, aj.scratch)

	if err := os.RemoveAll(aj.scratch); err != nil {
		r.log.Warn().Err(err).Str("path", aj.scratch).Msg("Failed to remove job scratch")
	}

	if r.deps.Runs != nil {
		err := r.deps.Runs.Finish(aj.id, training.RunOutcome{
			Reason:     res.Reason,
			Success:    res.Success,
			BestStreak: res.Best.Streak,
			BestParams: res.Best.Params,
			Evaluated:  res.Evaluated,
			SetsTested: res.SetsTested,
			Artifact:   res.Artifact,
		})
		if err != nil {
			r.log.Warn().Err(err).Str("job_id", aj.id).Msg("Failed to record run outcome")
		}
	}

	if res.Artifact != "" && r.deps.Mirror != nil {
		r.deps.Mirror.Enqueue(res.Artifact)
	}

	summary := &Summary{
		JobID:      aj.id,
		Algorithm:  aj.req.TargetAlgorithmID,
		Mode:       aj.req.Mode,
		Reason:     res.Reason,
		Success:    res.Success,
		Message:    res.Message,
		BestStreak: res.Best.Streak,
		BestParams: res.Best.Params,
		Evaluated:  res.Evaluated,
		SetsTested: res.SetsTested,
		Artifact:   res.Artifact,
		StartedAt:  aj.started,
		FinishedAt: r.now(),
	}

	r.mu.Lock()
	r.current = nil
	r.last = summary
	r.mu.Unlock()
}

// Stop asks the running job to finish at its next checkpoint.
func (r *Runner) Stop() error {
	return r.control(func(f *control.Flags) { f.Stop() })
}

// Pause suspends the running job at its next checkpoint.
func (r *Runner) Pause() error {
	return r.control(func(f *control.Flags) { f.Pause() })
}

// Resume continues a paused job.
func (r *Runner) Resume() error {
	return r.control(func(f *control.Flags) { f.Resume() })
}

func (r *Runner) control(fn func(*control.Flags)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return ErrIdle
	}
	fn(r.current.ctl)
	return nil
}

// ActiveJobID returns the running job id, or "".
func (r *Runner) ActiveJobID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return ""
	}
	return r.current.id
}

// Wait blocks until the running job, if any, has finished.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	aj := r.current
	r.mu.Unlock()
	if aj == nil {
		return nil
	}
	select {
	case <-aj.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the running job and waits for it, cancelling it outright
// when ctx expires first.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	aj := r.current
	r.mu.Unlock()
	if aj == nil {
		return nil
	}

	aj.ctl.Stop()
	select {
	case <-aj.done:
		return nil
	case <-ctx.Done():
		aj.cancel()
		<-aj.done
		return ctx.Err()
	}
}
