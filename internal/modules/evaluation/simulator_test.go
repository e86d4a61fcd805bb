package evaluation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/control"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/results"
	testingpkg "github.com/junlangzi/Lottery-Predictor-sub001/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, winners ...int) *results.Store {
	t.Helper()
	store, err := results.NewStore(testingpkg.NewDailyResults(winners...))
	require.NoError(t, err)
	return store
}

func newEvaluator(t *testing.T, store *results.Store, algos *testingpkg.MockAlgorithms, cfg Config, ctl *control.Flags) *Evaluator {
	t.Helper()
	if cfg.TargetID == "" {
		cfg.TargetID = "target"
	}
	return NewEvaluator(store, algos, algos, cfg, ctl, nil, nil, zerolog.Nop())
}

func sevens() *testingpkg.MockAlgorithms {
	return testingpkg.NewMockAlgorithms().
		Add("target", domain.ParameterVector{"k": 1}, testingpkg.Constant(domain.Scores{"07": 1.0}))
}

func TestSimulate_CountsToEndOfData(t *testing.T) {
	store := newStore(t, 7, 7, 7)
	ev := newEvaluator(t, store, sevens(), Config{}, control.New())

	out := ev.Simulate(context.Background(), domain.ParameterVector{"k": int64(1)}, testingpkg.Day(0))

	assert.Equal(t, 2, out.Streak)
	assert.Equal(t, domain.SimEndOfData, out.Reason)
	assert.True(t, out.LastDate.Equal(testingpkg.Day(2)))
}

func TestSimulate_StreakBroken(t *testing.T) {
	store := newStore(t, 7, 7, 3)
	ev := newEvaluator(t, store, sevens(), Config{}, control.New())

	out := ev.Simulate(context.Background(), domain.ParameterVector{"k": int64(1)}, testingpkg.Day(0))

	assert.Equal(t, 1, out.Streak)
	assert.Equal(t, domain.SimStreakBroken, out.Reason)
	assert.True(t, out.LastDate.Equal(testingpkg.Day(1)))

	top, err := ev.Top3(domain.ParameterVector{"k": int64(1)}, testingpkg.Day(1))
	require.NoError(t, err)
	assert.Equal(t, []int{7, 0, 1}, top)
}

func TestSimulate_NonDrawDayIsSkipped(t *testing.T) {
	store := newStore(t, 7, -1, 7, 7)
	ev := newEvaluator(t, store, sevens(), Config{}, control.New())

	out := ev.Simulate(context.Background(), nil, testingpkg.Day(0))

	assert.Equal(t, 2, out.Streak)
	assert.Equal(t, domain.SimEndOfData, out.Reason)
}

func TestSimulate_StreakLimit(t *testing.T) {
	store := newStore(t, testingpkg.RepeatWinner(7, 10)...)
	ev := newEvaluator(t, store, sevens(), Config{StreakLimit: 3}, control.New())

	out := ev.Simulate(context.Background(), nil, testingpkg.Day(0))

	assert.Equal(t, 3, out.Streak)
	assert.Equal(t, domain.SimStreakLimitReached, out.Reason)
}

func TestSimulate_MissingHistory(t *testing.T) {
	store := newStore(t, 7, 7)
	ev := newEvaluator(t, store, sevens(), Config{}, control.New())

	out := ev.Simulate(context.Background(), nil, testingpkg.Day(-5))

	assert.Equal(t, 0, out.Streak)
	assert.Equal(t, domain.SimMissingHistory, out.Reason)
}

func TestSimulate_TargetErrorIsPredictionError(t *testing.T) {
	algos := testingpkg.NewMockAlgorithms().Add("target", nil, testingpkg.Failing(errors.New("bad input")))
	ev := newEvaluator(t, newStore(t, 7, 7, 7), algos, Config{}, control.New())

	out := ev.Simulate(context.Background(), nil, testingpkg.Day(0))

	assert.Equal(t, 0, out.Streak)
	assert.Equal(t, domain.SimPredictionError, out.Reason)
	assert.ErrorIs(t, out.Err, domain.ErrPrediction)
}

func TestSimulate_UnknownTargetIsPredictionError(t *testing.T) {
	ev := newEvaluator(t, newStore(t, 7, 7), testingpkg.NewMockAlgorithms(), Config{}, control.New())

	out := ev.Simulate(context.Background(), nil, testingpkg.Day(0))
	assert.Equal(t, domain.SimPredictionError, out.Reason)
}

func TestSimulate_Stopped(t *testing.T) {
	ctl := control.New()
	ctl.Stop()
	ev := newEvaluator(t, newStore(t, 7, 7, 7), sevens(), Config{}, ctl)

	out := ev.Simulate(context.Background(), nil, testingpkg.Day(0))

	assert.Equal(t, domain.StreakStopped, out.Streak)
	assert.Equal(t, domain.SimStopped, out.Reason)
}

func TestSimulate_TimeLimit(t *testing.T) {
	ev := newEvaluator(t, newStore(t, 7, 7, 7), sevens(), Config{Deadline: time.Now().Add(-time.Second)}, control.New())

	out := ev.Simulate(context.Background(), nil, testingpkg.Day(0))

	assert.Equal(t, domain.StreakTimeLimit, out.Streak)
	assert.Equal(t, domain.SimTimeLimit, out.Reason)
}

func TestSimulate_PauseRunsHookOnceThenContinues(t *testing.T) {
	ctl := control.New()
	ctl.Pause()
	ev := newEvaluator(t, newStore(t, 7, 7, 7), sevens(), Config{PauseInterval: time.Millisecond}, ctl)

	var pauses atomic.Int32
	ev.OnPause(func() {
		pauses.Add(1)
		go func() {
			time.Sleep(10 * time.Millisecond)
			ctl.Resume()
		}()
	})

	out := ev.Simulate(context.Background(), nil, testingpkg.Day(0))

	assert.Equal(t, int32(1), pauses.Load())
	assert.Equal(t, 2, out.Streak)
}

func TestSimulate_PeersBlendIntoTop3(t *testing.T) {
	// Target alone favors 07; the peer pushes 03 above it.
	algos := sevens().Add("peer", nil, testingpkg.Constant(domain.Scores{"03": 5.0, "07": -3.0, "08": 2.0}))
	store := newStore(t, 7, 3, 3)
	ev := newEvaluator(t, store, algos, Config{PeerIDs: []string{"peer"}}, control.New())

	top, err := ev.Top3(nil, testingpkg.Day(0))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 8, 0}, top)

	out := ev.Simulate(context.Background(), nil, testingpkg.Day(0))
	assert.Equal(t, 2, out.Streak)
	assert.Equal(t, domain.SimEndOfData, out.Reason)
	assert.Equal(t, 1, algos.Materializations("peer"), "peers are materialized once per job")
}

func TestSimulate_FailingPeerContributesNothing(t *testing.T) {
	algos := sevens().Add("flaky", nil, testingpkg.Failing(errors.New("boom")))
	ev := newEvaluator(t, newStore(t, 7, 7, 7, 7), algos, Config{PeerIDs: []string{"flaky"}}, control.New())

	var failures []string
	ev.OnPeerFailure(func(peer string, err error) {
		assert.ErrorIs(t, err, domain.ErrPeer)
		failures = append(failures, peer)
	})

	out := ev.Simulate(context.Background(), nil, testingpkg.Day(0))

	assert.Equal(t, 3, out.Streak)
	assert.Equal(t, domain.SimEndOfData, out.Reason)
	assert.Equal(t, []string{"flaky"}, failures, "each peer failure is reported once")
}

func TestSimulate_IsDeterministic(t *testing.T) {
	store := newStore(t, 7, 7, 3, 7, 7, 7)
	ev := newEvaluator(t, store, sevens(), Config{}, control.New())

	a := ev.Simulate(context.Background(), nil, testingpkg.Day(2))
	require.NoError(t, ev.ResetCaches())
	b := ev.Simulate(context.Background(), nil, testingpkg.Day(2))

	assert.Equal(t, a, b)
}
