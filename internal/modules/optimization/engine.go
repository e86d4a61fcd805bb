// Package optimization drives the streak search: Explore hill-climbs from the
// best known vector, GenerateSets walks a bounded parameter grid.
package optimization

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/control"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/events"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/metrics"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/evaluation"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/results"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/search"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/training"
	"github.com/rs/zerolog"
)

const module = "optimization"

// Settings are the engine tunables.
type Settings struct {
	MaxStallCycles       int
	MaxNeighborsPerCycle int
	CombinationSizeLimit int
	PauseInterval        time.Duration
	GridYieldEvery       int
	ProgressPerSecond    float64
	PeerCacheDays        int
}

// DefaultSettings returns the stock tunables.
func DefaultSettings() Settings {
	return Settings{
		MaxStallCycles:       20,
		MaxNeighborsPerCycle: search.DefaultMaxNeighbors,
		CombinationSizeLimit: search.DefaultCombinationSizeLimit,
		PauseInterval:        evaluation.DefaultPauseInterval,
		GridYieldEvery:       search.DefaultYieldEvery,
		ProgressPerSecond:    events.DefaultProgressRate,
		PeerCacheDays:        evaluation.DefaultPeerCacheDays,
	}
}

// ArtifactWriter stores a trained copy of an algorithm.
type ArtifactWriter interface {
	Write(algorithmID string, params domain.ParameterVector, streak int) (string, error)
}

// Result is the terminal outcome of one job. It mirrors the finished event.
type Result struct {
	Reason     domain.TerminalReason
	Success    bool
	Message    string
	Best       domain.BestState
	Improved   bool
	Evaluated  int
	SetsTested *int
	Artifact   string
	Elapsed    time.Duration
}

// Engine runs optimization jobs against one results snapshot.
type Engine struct {
	store        *results.Store
	registry     domain.AlgorithmRegistry
	materializer domain.Materializer
	states       *training.StateStore
	artifacts    ArtifactWriter
	events       *events.Manager
	metrics      *metrics.Registry
	settings     Settings
	log          zerolog.Logger
	now          func() time.Time
}

// NewEngine creates an engine. artifacts, em and m may be nil.
func NewEngine(
	store *results.Store,
	registry domain.AlgorithmRegistry,
	materializer domain.Materializer,
	states *training.StateStore,
	artifacts ArtifactWriter,
	em *events.Manager,
	m *metrics.Registry,
	settings Settings,
	log zerolog.Logger,
) *Engine {
	defaults := DefaultSettings()
	if settings.MaxStallCycles <= 0 {
		settings.MaxStallCycles = defaults.MaxStallCycles
	}
	if settings.MaxNeighborsPerCycle <= 0 {
		settings.MaxNeighborsPerCycle = defaults.MaxNeighborsPerCycle
	}
	if settings.CombinationSizeLimit <= 0 {
		settings.CombinationSizeLimit = defaults.CombinationSizeLimit
	}
	if settings.PauseInterval <= 0 {
		settings.PauseInterval = defaults.PauseInterval
	}
	if settings.GridYieldEvery <= 0 {
		settings.GridYieldEvery = defaults.GridYieldEvery
	}
	if settings.ProgressPerSecond <= 0 {
		settings.ProgressPerSecond = defaults.ProgressPerSecond
	}
	if em == nil {
		em = events.NewManager(nil, log)
	}
	return &Engine{
		store:        store,
		registry:     registry,
		materializer: materializer,
		states:       states,
		artifacts:    artifacts,
		events:       em,
		metrics:      m,
		settings:     settings,
		log:          log.With().Str("component", "optimization_engine").Logger(),
		now:          time.Now,
	}
}

// Run executes req to completion and publishes its finished event. ctl may be
// nil. scratchDir receives the peer cache spill files; empty keeps them in memory.
// Run never fails: configuration problems end the job with a failure reason.
func (e *Engine) Run(ctx context.Context, req domain.JobRequest, ctl *control.Flags, scratchDir string) Result {
	if ctl == nil {
		ctl = control.New()
	}
	started := e.now()
	e.metrics.JobStarted()

	j := &job{
		engine:   e,
		req:      req,
		ctl:      ctl,
		em:       e.events,
		progress: events.NewProgressReporter(e.events, module, e.settings.ProgressPerSecond),
		log:      e.log.With().Str("algorithm", req.TargetAlgorithmID).Str("mode", string(req.Mode)).Logger(),
		started:  started,
	}
	if req.TimeLimitSeconds > 0 {
		j.deadline = started.Add(time.Duration(req.TimeLimitSeconds) * time.Second)
	}

	res := j.run(ctx, scratchDir)
	res.Elapsed = e.now().Sub(started)

	e.metrics.JobFinished(string(req.Mode), string(res.Reason), res.Elapsed)
	j.finish(&res)
	return res
}

// job is the per-run state owned by the worker.
type job struct {
	engine   *Engine
	req      domain.JobRequest
	ctl      *control.Flags
	em       *events.Manager
	progress *events.ProgressReporter
	log      zerolog.Logger

	eval     *evaluation.Evaluator
	defaults domain.ParameterVector

	best      domain.BestState
	improved  bool
	resumed   bool
	evaluated int
	started   time.Time
	deadline  time.Time
}

func (j *job) run(ctx context.Context, scratchDir string) Result {
	info, err := j.validate()
	if err != nil {
		reason := domain.ReasonCriticalError
		if errors.Is(err, errNoParams) {
			reason = domain.ReasonNoParams
		}
		j.em.EmitError(module, err, map[string]interface{}{"algorithm": j.req.TargetAlgorithmID})
		return j.result(reason, err.Error())
	}

	e := j.engine
	j.defaults = domain.NormalizeParams(info.Parameters)
	j.eval = evaluation.NewEvaluator(
		e.store, e.registry, e.materializer,
		evaluation.Config{
			TargetID:      j.req.TargetAlgorithmID,
			PeerIDs:       j.req.PeerAlgorithmIDs,
			StreakLimit:   j.req.StreakLimitDays,
			Deadline:      j.deadline,
			PauseInterval: e.settings.PauseInterval,
		},
		j.ctl,
		evaluation.NewPeerCache(scratchDir, e.settings.PeerCacheDays),
		e.metrics,
		j.log,
	)
	j.eval.OnPause(j.onPause)
	j.eval.OnPeerFailure(func(peer string, err error) {
		j.em.Log(module, zerolog.WarnLevel, "peer", fmt.Sprintf("Peer %s failed and contributes nothing: %v", peer, err))
	})
	if err := j.eval.ResetCaches(); err != nil {
		j.log.Warn().Err(err).Msg("Failed to clear evaluator caches")
	}

	j.best = domain.BestState{
		Params:    j.defaults.Clone(),
		Mode:      j.req.Mode,
		StartDate: domain.TruncateDay(j.req.StartDate),
		PeerIDs:   append([]string(nil), j.req.PeerAlgorithmIDs...),
		UpdatedAt: e.now(),
	}

	if j.req.Mode == domain.ModeGenerateSets {
		return j.generateSets(ctx)
	}
	return j.explore(ctx)
}

var errNoParams = errors.New("algorithm declares no numeric parameters")

// validate checks the request before any state is touched.
func (j *job) validate() (domain.AlgorithmInfo, error) {
	e := j.engine
	req := j.req

	info, ok := e.registry.Get(req.TargetAlgorithmID)
	if !ok {
		return info, fmt.Errorf("%w: target algorithm %q not found", domain.ErrConfig, req.TargetAlgorithmID)
	}
	if !req.Mode.Valid() {
		return info, fmt.Errorf("%w: unknown mode %q", domain.ErrConfig, req.Mode)
	}
	if req.StartDate.IsZero() || !e.store.Has(req.StartDate) {
		return info, fmt.Errorf("%w: start date %s has no results", domain.ErrConfig, req.StartDate.Format(domain.DateLayout))
	}
	if e.store.IsLast(req.StartDate) {
		return info, fmt.Errorf("%w: start date %s is the last recorded day", domain.ErrConfig, req.StartDate.Format(domain.DateLayout))
	}
	for _, peer := range req.PeerAlgorithmIDs {
		if _, ok := e.registry.Get(peer); !ok {
			return info, fmt.Errorf("%w: peer algorithm %q not found", domain.ErrConfig, peer)
		}
	}
	if len(info.Parameters.NumericKeys()) == 0 {
		return info, errNoParams
	}
	if req.Mode == domain.ModeGenerateSets {
		n := req.Generate.ValuesPerParam
		if n < search.MinValuesPerParam || n > search.MaxValuesPerParam {
			return info, fmt.Errorf("%w: values per parameter must be in %d..%d, got %d",
				domain.ErrConfig, search.MinValuesPerParam, search.MaxValuesPerParam, n)
		}
	}
	return info, nil
}

// halted reports the boundary condition that ends the job, if any.
func (j *job) halted(ctx context.Context) (domain.TerminalReason, bool) {
	if j.ctl.Stopped() || ctx.Err() != nil {
		return domain.ReasonStopped, true
	}
	if j.ctl.Paused() && !j.ctl.WaitWhilePaused(ctx, j.engine.settings.PauseInterval, j.onPause) {
		return domain.ReasonStopped, true
	}
	if !j.deadline.IsZero() && !j.engine.now().Before(j.deadline) {
		return domain.ReasonTimeLimit, true
	}
	if j.limitReached() {
		return domain.ReasonStreakLimitReached, true
	}
	return "", false
}

func (j *job) limitReached() bool {
	return j.req.StreakLimitDays > 0 && j.best.Streak >= j.req.StreakLimitDays
}

// evaluate simulates one candidate. ok is false when a stop or deadline cut
// the simulation short; the candidate then has no valid streak.
func (j *job) evaluate(ctx context.Context, v domain.ParameterVector) (evaluation.Outcome, bool) {
	out := j.eval.Simulate(ctx, v, j.best.StartDate)
	switch out.Reason {
	case domain.SimStopped, domain.SimTimeLimit:
		return out, false
	case domain.SimPredictionError:
		j.em.Log(module, zerolog.WarnLevel, "prediction", fmt.Sprintf("Prediction failed for %s: %v", search.Canonical(v), out.Err))
	}
	j.evaluated++
	return out, true
}

// consider replaces the best state on a strict improvement.
func (j *job) consider(v domain.ParameterVector, streak int) bool {
	if streak <= j.best.Streak {
		return false
	}
	j.best.Params = v.Clone()
	j.best.Streak = streak
	j.best.UpdatedAt = j.engine.now()
	j.improved = true

	j.save(training.SaveImprovement)
	j.engine.metrics.SetBestStreak(j.req.TargetAlgorithmID, streak)
	j.em.EmitTyped(module, &events.BestUpdateData{Params: map[string]any(j.best.Params.Clone()), Streak: streak})
	j.log.Info().Int("streak", streak).Str("params", search.Canonical(v)).Msg("New best streak")
	return true
}

// save persists the best state once it is worth keeping: after an improvement
// in this job, or when the job resumed from a saved state.
func (j *job) save(reason string) {
	if j.engine.states == nil || !(j.improved || j.resumed) {
		return
	}
	if _, err := j.engine.states.Save(j.req.TargetAlgorithmID, j.best, reason); err != nil {
		j.em.EmitError(module, err, map[string]interface{}{"save_reason": reason})
	}
}

func (j *job) onPause() {
	j.save(training.SavePaused)
	j.em.Status(module, "Paused")
	j.log.Info().Int("best_streak", j.best.Streak).Msg("Job paused")
}

func (j *job) elapsed() float64 {
	return j.engine.now().Sub(j.started).Seconds()
}

func (j *job) result(reason domain.TerminalReason, message string) Result {
	return Result{
		Reason:    reason,
		Success:   reason.Success(),
		Message:   message,
		Best:      j.best,
		Improved:  j.improved,
		Evaluated: j.evaluated,
	}
}

// finish persists, writes the artifact and publishes the finished event.
func (j *job) finish(res *Result) {
	switch {
	case res.Reason == domain.ReasonStopped:
		j.save(training.SaveStopped)
	case res.Success && j.improved:
		j.save(training.SaveFinished)
	}

	if res.Success && j.improved && j.best.Streak > 0 && j.engine.artifacts != nil {
		path, err := j.engine.artifacts.Write(j.req.TargetAlgorithmID, j.best.Params, j.best.Streak)
		if err != nil {
			j.em.EmitError(module, err, map[string]interface{}{"stage": "artifact"})
		} else {
			res.Artifact = path
		}
	}

	if j.eval != nil {
		j.progress.ReportUnthrottled(&events.ProgressData{
			Mode:           string(j.req.Mode),
			Evaluated:      j.evaluated,
			BestStreak:     j.best.Streak,
			ElapsedSeconds: res.Elapsed.Seconds(),
		})
	}

	var params map[string]any
	if j.best.Params != nil {
		params = map[string]any(j.best.Params.Clone())
	}
	j.em.EmitTyped(module, &events.FinishedData{
		Message:    res.Message,
		Success:    res.Success,
		Reason:     string(res.Reason),
		SetsTested: res.SetsTested,
		BestStreak: j.best.Streak,
		BestParams: params,
		Artifact:   res.Artifact,
	})

	j.log.Info().
		Str("reason", string(res.Reason)).
		Bool("success", res.Success).
		Int("best_streak", j.best.Streak).
		Int("evaluated", j.evaluated).
		Dur("elapsed", res.Elapsed).
		Msg("Job finished")
}
