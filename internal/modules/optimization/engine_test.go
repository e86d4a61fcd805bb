package optimization

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/control"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/events"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/results"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/training"
	testingpkg "github.com/junlangzi/Lottery-Predictor-sub001/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArtifacts struct {
	mu     sync.Mutex
	calls  int
	streak int
	params domain.ParameterVector
}

func (f *fakeArtifacts) Write(id string, params domain.ParameterVector, streak int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.streak = streak
	f.params = params.Clone()
	return "/trained/" + id, nil
}

type harness struct {
	engine    *Engine
	bus       *events.Bus
	states    *training.StateStore
	artifacts *fakeArtifacts
}

func newHarness(t *testing.T, algos *testingpkg.MockAlgorithms, winners ...int) *harness {
	t.Helper()
	store, err := results.NewStore(testingpkg.NewDailyResults(winners...))
	require.NoError(t, err)

	bus := events.NewBus(100_000)
	states := training.NewStateStore(t.TempDir(), zerolog.Nop())
	artifacts := &fakeArtifacts{}
	engine := NewEngine(store, algos, algos, states, artifacts,
		events.NewManager(bus, zerolog.Nop()), nil,
		Settings{PauseInterval: time.Millisecond, ProgressPerSecond: 1000},
		zerolog.Nop())
	return &harness{engine: engine, bus: bus, states: states, artifacts: artifacts}
}

func explore(start time.Time) domain.JobRequest {
	return domain.JobRequest{
		TargetAlgorithmID: "target",
		StartDate:         start,
		Mode:              domain.ModeExplore,
		Explore:           domain.ExploreConfig{Seed: 1},
	}
}

// sevenWhenK2 predicts 07 only for k == 2 and 00 otherwise.
func sevenWhenK2(params domain.ParameterVector) domain.PredictFunc {
	hot := params["k"] == int64(2)
	return func(time.Time, []domain.DailyResult) (domain.Scores, error) {
		if hot {
			return domain.Scores{"07": 1}, nil
		}
		return domain.Scores{"00": 1}, nil
	}
}

func eventTypes(evs []events.Event) []events.EventType {
	out := make([]events.EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

func finishedEvent(t *testing.T, evs []events.Event) *events.FinishedData {
	t.Helper()
	require.NotEmpty(t, evs)
	last := evs[len(evs)-1]
	require.Equal(t, events.Finished, last.Type, "finished is the last event")
	return last.Data.(*events.FinishedData)
}

func TestScenario_NoNumericParams(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().
		Add("target", domain.ParameterVector{"label": "x"}, testingpkg.Constant(domain.Scores{"07": 1}))
	h := newHarness(t, algos, 7, 7, 7)

	res := h.engine.Run(context.Background(), explore(testingpkg.Day(0)), nil, "")

	assert.Equal(t, domain.ReasonNoParams, res.Reason)
	assert.False(t, res.Success)
	fin := finishedEvent(t, h.bus.Drain())
	assert.False(t, fin.Success)
	assert.Equal(t, "no_params", fin.Reason)
}

func TestScenario_StreakCounting(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().
		Add("target", domain.ParameterVector{"k": 1}, testingpkg.Constant(domain.Scores{"07": 1}))
	h := newHarness(t, algos, 7, 7, 7)

	res := h.engine.Run(context.Background(), explore(testingpkg.Day(0)), nil, "")

	assert.Equal(t, domain.ReasonNoImprovement, res.Reason)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Best.Streak)
	assert.Equal(t, domain.ParameterVector{"k": int64(1)}, res.Best.Params)
}

func TestScenario_StreakBreak(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().
		Add("target", domain.ParameterVector{"k": 1}, testingpkg.Constant(domain.Scores{"07": 1}))
	h := newHarness(t, algos, 7, 7, 3)

	res := h.engine.Run(context.Background(), explore(testingpkg.Day(0)), nil, "")

	assert.Equal(t, 1, res.Best.Streak)
}

func TestScenario_ExploreImprovesThenStalls(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().Add("target", domain.ParameterVector{"k": 1}, sevenWhenK2)
	h := newHarness(t, algos, testingpkg.RepeatWinner(7, 10)...)

	res := h.engine.Run(context.Background(), explore(testingpkg.Day(0)), nil, "")

	assert.Equal(t, domain.ReasonNoImprovement, res.Reason)
	assert.True(t, res.Success)
	assert.Equal(t, 9, res.Best.Streak)
	assert.Equal(t, domain.ParameterVector{"k": int64(2)}, res.Best.Params)
	assert.True(t, res.Improved)

	evs := h.bus.Drain()
	fin := finishedEvent(t, evs)
	assert.Equal(t, "no_improvement", fin.Reason)
	assert.Equal(t, 9, fin.BestStreak)
	assert.Equal(t, "/trained/target", fin.Artifact)

	var bests []int
	for _, ev := range evs {
		if ev.Type == events.BestUpdate {
			bests = append(bests, ev.Data.(*events.BestUpdateData).Streak)
		}
	}
	assert.Equal(t, []int{9}, bests)

	saved, err := h.states.Load("target")
	require.NoError(t, err)
	assert.Equal(t, 9, saved.Streak)
	assert.Equal(t, domain.ParameterVector{"k": int64(2)}, saved.Params)

	raw, err := h.states.Read("target")
	require.NoError(t, err)
	assert.Equal(t, training.SaveFinished, raw.SaveReason)

	assert.Equal(t, 1, h.artifacts.calls)
	assert.Equal(t, 9, h.artifacts.streak)
}

func TestScenario_GenerateSetsEnumeration(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().
		Add("target", domain.ParameterVector{"a": 1, "b": 1}, testingpkg.Constant(domain.Scores{"07": 1}))
	h := newHarness(t, algos, 7, 7, 7)

	req := domain.JobRequest{
		TargetAlgorithmID: "target",
		StartDate:         testingpkg.Day(0),
		Mode:              domain.ModeGenerateSets,
		Generate:          domain.GenerateConfig{ValuesPerParam: 3, Sampling: domain.SamplingSequential},
	}
	res := h.engine.Run(context.Background(), req, nil, "")

	assert.Equal(t, domain.ReasonAllSetsTested, res.Reason)
	require.NotNil(t, res.SetsTested)
	assert.Equal(t, 9, *res.SetsTested)
	assert.Equal(t, 9, res.Evaluated)
	assert.Equal(t, 2, res.Best.Streak)
	assert.Equal(t, domain.ParameterVector{"a": int64(1), "b": int64(1)}, res.Best.Params, "ties keep the earlier vector")

	fin := finishedEvent(t, h.bus.Drain())
	require.NotNil(t, fin.SetsTested)
	assert.Equal(t, 9, *fin.SetsTested)
}

func TestScenario_ResumeStallsImmediately(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().Add("target", domain.ParameterVector{"k": 1}, sevenWhenK2)
	h := newHarness(t, algos, testingpkg.RepeatWinner(7, 10)...)

	req := explore(testingpkg.Day(0))
	req.Explore.InitialVector = domain.ParameterVector{"k": 2}
	req.Explore.InitialBestStreak = 9

	res := h.engine.Run(context.Background(), req, nil, "")

	assert.Equal(t, domain.ReasonNoImprovement, res.Reason)
	assert.Equal(t, 9, res.Best.Streak)
	assert.Equal(t, domain.ParameterVector{"k": int64(2)}, res.Best.Params)
	assert.False(t, res.Improved)
	assert.Zero(t, h.artifacts.calls)
	for _, ev := range h.bus.Drain() {
		assert.NotEqual(t, events.BestUpdate, ev.Type)
	}
}

func TestRun_ValidationFailures(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().
		Add("target", domain.ParameterVector{"k": 1}, testingpkg.Constant(domain.Scores{"07": 1}))

	tests := []struct {
		name   string
		mutate func(*domain.JobRequest)
	}{
		{"unknown target", func(r *domain.JobRequest) { r.TargetAlgorithmID = "nope" }},
		{"start date not in data", func(r *domain.JobRequest) { r.StartDate = testingpkg.Day(30) }},
		{"start date is last day", func(r *domain.JobRequest) { r.StartDate = testingpkg.Day(2) }},
		{"unknown peer", func(r *domain.JobRequest) { r.PeerAlgorithmIDs = []string{"ghost"} }},
		{"bad mode", func(r *domain.JobRequest) { r.Mode = "Sideways" }},
		{"grid size out of range", func(r *domain.JobRequest) {
			r.Mode = domain.ModeGenerateSets
			r.Generate.ValuesPerParam = 101
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, algos, 7, 7, 7)
			req := explore(testingpkg.Day(0))
			tt.mutate(&req)

			res := h.engine.Run(context.Background(), req, nil, "")

			assert.Equal(t, domain.ReasonCriticalError, res.Reason)
			assert.False(t, res.Success)
			assert.Zero(t, res.Evaluated)
			_, err := h.states.Read("target")
			assert.ErrorIs(t, err, training.ErrStateNotFound, "no state is written")

			types := eventTypes(h.bus.Drain())
			assert.Contains(t, types, events.ErrorOccurred)
			assert.Equal(t, events.Finished, types[len(types)-1])
		})
	}
}

func TestRun_StoppedBeforeStart(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().
		Add("target", domain.ParameterVector{"k": 1}, testingpkg.Constant(domain.Scores{"07": 1}))
	h := newHarness(t, algos, 7, 7, 7)
	ctl := control.New()
	ctl.Stop()

	res := h.engine.Run(context.Background(), explore(testingpkg.Day(0)), ctl, "")

	assert.Equal(t, domain.ReasonStopped, res.Reason)
	assert.Zero(t, res.Evaluated)
	_, err := h.states.Read("target")
	assert.ErrorIs(t, err, training.ErrStateNotFound, "nothing worth saving yet")
}

func TestRun_StopAfterImprovementSavesState(t *testing.T) {
	ctl := control.New()
	algos := testingpkg.NewMockAlgorithms().Add("target", domain.ParameterVector{"k": 1},
		func(params domain.ParameterVector) domain.PredictFunc {
			if params["k"] == int64(0) {
				ctl.Stop()
			}
			return sevenWhenK2(params)
		})
	h := newHarness(t, algos, testingpkg.RepeatWinner(7, 10)...)

	res := h.engine.Run(context.Background(), explore(testingpkg.Day(0)), ctl, "")

	assert.Equal(t, domain.ReasonStopped, res.Reason)
	assert.Equal(t, 9, res.Best.Streak)

	raw, err := h.states.Read("target")
	require.NoError(t, err)
	assert.Equal(t, training.SaveStopped, raw.SaveReason)
	assert.Equal(t, 9, raw.BestStreak)
}

func TestRun_PauseThenResume(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().
		Add("target", domain.ParameterVector{"k": 1}, testingpkg.Constant(domain.Scores{"07": 1}))
	h := newHarness(t, algos, 7, 7, 7)
	ctl := control.New()
	ctl.Pause()
	go func() {
		time.Sleep(20 * time.Millisecond)
		ctl.Resume()
	}()

	res := h.engine.Run(context.Background(), explore(testingpkg.Day(0)), ctl, "")

	assert.Equal(t, domain.ReasonNoImprovement, res.Reason)
	paused := false
	for _, ev := range h.bus.Drain() {
		if ev.Type == events.StatusChanged && ev.Data.(*events.StatusData).Text == "Paused" {
			paused = true
		}
	}
	assert.True(t, paused)
}

func TestRun_StopDuringPause(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().
		Add("target", domain.ParameterVector{"k": 1}, testingpkg.Constant(domain.Scores{"07": 1}))
	h := newHarness(t, algos, 7, 7, 7)
	ctl := control.New()
	ctl.Pause()
	go func() {
		time.Sleep(20 * time.Millisecond)
		ctl.Stop()
	}()

	res := h.engine.Run(context.Background(), explore(testingpkg.Day(0)), ctl, "")
	assert.Equal(t, domain.ReasonStopped, res.Reason)
}

func TestRun_TimeLimit(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().
		Add("target", domain.ParameterVector{"k": 1}, testingpkg.Constant(domain.Scores{"07": 1}))
	h := newHarness(t, algos, 7, 7, 7)

	base := time.Now()
	calls := 0
	h.engine.now = func() time.Time {
		calls++
		if calls == 1 {
			return base
		}
		return base.Add(time.Hour)
	}

	req := explore(testingpkg.Day(0))
	req.TimeLimitSeconds = 5
	res := h.engine.Run(context.Background(), req, nil, "")

	assert.Equal(t, domain.ReasonTimeLimit, res.Reason)
	assert.True(t, res.Success)
	assert.Zero(t, res.Evaluated)
}

func TestRun_StreakLimit(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().Add("target", domain.ParameterVector{"k": 1}, sevenWhenK2)
	h := newHarness(t, algos, testingpkg.RepeatWinner(7, 10)...)

	req := explore(testingpkg.Day(0))
	req.StreakLimitDays = 3
	res := h.engine.Run(context.Background(), req, nil, "")

	assert.Equal(t, domain.ReasonStreakLimitReached, res.Reason)
	assert.Equal(t, 3, res.Best.Streak)
}

func TestRun_GenerateSetsStreakLimit(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().
		Add("target", domain.ParameterVector{"a": 1, "b": 1}, testingpkg.Constant(domain.Scores{"07": 1}))
	h := newHarness(t, algos, 7, 7, 7)

	req := domain.JobRequest{
		TargetAlgorithmID: "target",
		StartDate:         testingpkg.Day(0),
		StreakLimitDays:   1,
		Mode:              domain.ModeGenerateSets,
		Generate:          domain.GenerateConfig{ValuesPerParam: 3, Sampling: domain.SamplingSequential},
	}
	res := h.engine.Run(context.Background(), req, nil, "")

	assert.Equal(t, domain.ReasonStreakLimitReached, res.Reason)
	require.NotNil(t, res.SetsTested)
	assert.Equal(t, 1, *res.SetsTested)
}

func TestRun_GenerationError(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().
		Add("target", domain.ParameterVector{"a": 1, "b": 1}, testingpkg.Constant(domain.Scores{"07": 1}))
	h := newHarness(t, algos, 7, 7, 7)
	h.engine.settings.CombinationSizeLimit = 5

	req := domain.JobRequest{
		TargetAlgorithmID: "target",
		StartDate:         testingpkg.Day(0),
		Mode:              domain.ModeGenerateSets,
		Generate:          domain.GenerateConfig{ValuesPerParam: 3, Sampling: domain.SamplingSequential},
	}
	res := h.engine.Run(context.Background(), req, nil, "")

	assert.Equal(t, domain.ReasonGenerationError, res.Reason)
	assert.False(t, res.Success)
	require.NotNil(t, res.SetsTested)
	assert.Zero(t, *res.SetsTested)
}

func TestRun_FailingPeerDoesNotStopTheRun(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().
		Add("target", domain.ParameterVector{"k": 1}, testingpkg.Constant(domain.Scores{"07": 1})).
		Add("flaky", nil, testingpkg.Failing(os.ErrInvalid))
	h := newHarness(t, algos, 7, 7, 7)

	req := explore(testingpkg.Day(0))
	req.PeerAlgorithmIDs = []string{"flaky"}
	res := h.engine.Run(context.Background(), req, nil, t.TempDir())

	assert.Equal(t, domain.ReasonNoImprovement, res.Reason)
	assert.Equal(t, 2, res.Best.Streak)

	peerLogs := 0
	for _, ev := range h.bus.Drain() {
		if ev.Type == events.LogEmitted && ev.Data.(*events.LogData).Tag == "peer" {
			peerLogs++
		}
	}
	assert.Equal(t, 1, peerLogs, "a failing peer is reported once per job")
}

func TestRun_ProgressIsMonotonic(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().Add("target", domain.ParameterVector{"k": 1}, sevenWhenK2)
	h := newHarness(t, algos, testingpkg.RepeatWinner(7, 10)...)

	h.engine.Run(context.Background(), explore(testingpkg.Day(0)), nil, "")

	last := -1
	for _, ev := range h.bus.Drain() {
		if ev.Type != events.Progress {
			continue
		}
		n := ev.Data.(*events.ProgressData).Evaluated
		assert.GreaterOrEqual(t, n, last)
		last = n
	}
	assert.Positive(t, last)
}
