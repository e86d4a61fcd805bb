// Package evaluation simulates hit streaks of candidate parameter vectors and
// provides the legacy accuracy evaluator.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/control"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/metrics"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/results"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/scoring"
	"github.com/rs/zerolog"
)

// DefaultPauseInterval is how often a paused simulation re-checks its flags.
const DefaultPauseInterval = 200 * time.Millisecond

// Outcome is the result of one streak simulation.
type Outcome struct {
	Streak   int
	Reason   domain.SimReason
	LastDate time.Time
	Err      error // set for prediction_error
}

// Config fixes everything about a simulation except the candidate vector.
type Config struct {
	TargetID      string
	PeerIDs       []string
	StreakLimit   int       // 0 = unbounded
	Deadline      time.Time // zero = unbounded
	PauseInterval time.Duration
}

// PeerFailureFunc is told about the first failure of each peer in a job.
type PeerFailureFunc func(peerID string, err error)

// Evaluator runs deterministic forward streak simulations over a Store.
type Evaluator struct {
	store        *results.Store
	materializer domain.Materializer
	registry     domain.AlgorithmRegistry
	cfg          Config
	ctl          *control.Flags
	cache        *PeerCache
	metrics      *metrics.Registry
	log          zerolog.Logger
	now          func() time.Time

	onPause       func()
	onPeerFailure PeerFailureFunc

	peersMu     sync.Mutex
	peers       map[string]domain.PredictFunc
	peerErrs    map[string]error
	peersLogged map[string]bool
}

// NewEvaluator creates an evaluator. cache may be nil for an in-memory cache.
func NewEvaluator(
	store *results.Store,
	registry domain.AlgorithmRegistry,
	materializer domain.Materializer,
	cfg Config,
	ctl *control.Flags,
	cache *PeerCache,
	m *metrics.Registry,
	log zerolog.Logger,
) *Evaluator {
	if cfg.PauseInterval <= 0 {
		cfg.PauseInterval = DefaultPauseInterval
	}
	if cache == nil {
		cache = NewPeerCache("", 0)
	}
	peers := append([]string(nil), cfg.PeerIDs...)
	sort.Strings(peers)
	cfg.PeerIDs = peers

	return &Evaluator{
		store:        store,
		registry:     registry,
		materializer: materializer,
		cfg:          cfg,
		ctl:          ctl,
		cache:        cache,
		metrics:      m,
		log:          log.With().Str("component", "evaluator").Str("algorithm", cfg.TargetID).Logger(),
		now:          time.Now,
		peers:        make(map[string]domain.PredictFunc),
		peerErrs:     make(map[string]error),
		peersLogged:  make(map[string]bool),
	}
}

// OnPause registers a hook run once at the start of every pause episode.
func (e *Evaluator) OnPause(fn func()) {
	e.onPause = fn
}

// OnPeerFailure registers a hook run once per failing peer.
func (e *Evaluator) OnPeerFailure(fn PeerFailureFunc) {
	e.onPeerFailure = fn
}

// ResetCaches drops memoized peer predictions and failure bookkeeping.
func (e *Evaluator) ResetCaches() error {
	e.peersMu.Lock()
	e.peers = make(map[string]domain.PredictFunc)
	e.peerErrs = make(map[string]error)
	e.peersLogged = make(map[string]bool)
	e.peersMu.Unlock()
	return e.cache.Clear()
}

// Simulate walks forward from start counting consecutive days on which the
// combined top-3 intersects the next day's winners.
func (e *Evaluator) Simulate(ctx context.Context, vector domain.ParameterVector, start time.Time) Outcome {
	e.metrics.RecordEvaluation()

	d := domain.TruncateDay(start)
	predict, err := e.materializer.Materialize(e.cfg.TargetID, vector)
	if err != nil {
		return Outcome{Streak: 0, Reason: domain.SimPredictionError, LastDate: d, Err: err}
	}

	streak := 0
	for {
		if reason, sentinel, halted := e.checkpoint(ctx); halted {
			return Outcome{Streak: sentinel, Reason: reason, LastDate: d}
		}

		if !e.store.Has(d) {
			return Outcome{Streak: streak, Reason: domain.SimMissingHistory, LastDate: d}
		}
		hist := e.store.HistoryBefore(d)

		next := d.AddDate(0, 0, 1)
		actual, ok := e.store.On(next)
		if !ok {
			return Outcome{Streak: streak, Reason: domain.SimEndOfData, LastDate: d}
		}

		top3, err := e.top3(predict, d, hist)
		if err != nil {
			return Outcome{Streak: streak, Reason: domain.SimPredictionError, LastDate: d, Err: err}
		}
		e.metrics.RecordDay()

		winners := results.WinnerSet(actual)
		if len(winners) == 0 {
			d = next
			continue
		}

		if !intersects(top3, winners) {
			return Outcome{Streak: streak, Reason: domain.SimStreakBroken, LastDate: d}
		}
		streak++
		if e.cfg.StreakLimit > 0 && streak >= e.cfg.StreakLimit {
			return Outcome{Streak: streak, Reason: domain.SimStreakLimitReached, LastDate: d}
		}
		d = next
	}
}

// checkpoint observes stop, pause and the deadline before a simulated day.
func (e *Evaluator) checkpoint(ctx context.Context) (domain.SimReason, int, bool) {
	if e.ctl.Stopped() || ctx.Err() != nil {
		return domain.SimStopped, domain.StreakStopped, true
	}
	if e.ctl.Paused() && !e.ctl.WaitWhilePaused(ctx, e.cfg.PauseInterval, e.onPause) {
		return domain.SimStopped, domain.StreakStopped, true
	}
	if !e.cfg.Deadline.IsZero() && !e.now().Before(e.cfg.Deadline) {
		return domain.SimTimeLimit, domain.StreakTimeLimit, true
	}
	return "", 0, false
}

// Top3 materializes vector and returns the combined top-3 for date.
func (e *Evaluator) Top3(vector domain.ParameterVector, date time.Time) ([]int, error) {
	predict, err := e.materializer.Materialize(e.cfg.TargetID, vector)
	if err != nil {
		return nil, err
	}
	d := domain.TruncateDay(date)
	return e.top3(predict, d, e.store.HistoryBefore(d))
}

func (e *Evaluator) top3(predict domain.PredictFunc, d time.Time, hist []domain.DailyResult) ([]int, error) {
	scores, err := e.combined(predict, d, hist)
	if err != nil {
		return nil, err
	}
	return scoring.Top3(scores)
}

// combined returns the absolute per-number scores for day d.
func (e *Evaluator) combined(predict domain.PredictFunc, d time.Time, hist []domain.DailyResult) (domain.Scores, error) {
	target, err := predict(d, hist)
	if err != nil {
		if !errors.Is(err, domain.ErrPrediction) {
			err = fmt.Errorf("%w: %s: %v", domain.ErrPrediction, e.cfg.TargetID, err)
		}
		return nil, err
	}

	contributions := make([]scoring.Contribution, 0, 1+len(e.cfg.PeerIDs))
	contributions = append(contributions, scoring.Contribution{AlgorithmID: e.cfg.TargetID, Deltas: target})
	for _, peer := range e.cfg.PeerIDs {
		if deltas, ok := e.peerDeltas(peer, d, hist); ok {
			contributions = append(contributions, scoring.Contribution{AlgorithmID: peer, Deltas: deltas})
		}
	}
	return scoring.Combine(contributions)
}

// peerDeltas returns a peer's deltas for d, or false if the peer failed.
func (e *Evaluator) peerDeltas(peer string, d time.Time, hist []domain.DailyResult) (domain.Scores, bool) {
	key := d.Format(domain.DateLayout)
	entry, where := e.cache.Get(key, peer)
	e.metrics.RecordPeerCacheLookup(where)
	if where != LookupMiss {
		return entry.Scores, !entry.Failed
	}

	predict, err := e.peerPredict(peer)
	var scores domain.Scores
	if err == nil {
		scores, err = predict(d, hist)
	}
	if err != nil {
		e.peerFailed(peer, fmt.Errorf("%w: %s: %v", domain.ErrPeer, peer, err))
		_ = e.cache.Put(key, peer, PeerEntry{Failed: true})
		return nil, false
	}

	if err := e.cache.Put(key, peer, PeerEntry{Scores: scores}); err != nil {
		e.log.Warn().Err(err).Msg("Peer cache spill failed")
	}
	return scores, true
}

// peerPredict materializes a peer with its declared parameters, once per job.
func (e *Evaluator) peerPredict(peer string) (domain.PredictFunc, error) {
	e.peersMu.Lock()
	defer e.peersMu.Unlock()

	if p, ok := e.peers[peer]; ok {
		return p, nil
	}
	if err, ok := e.peerErrs[peer]; ok {
		return nil, err
	}

	var params domain.ParameterVector
	if info, ok := e.registry.Get(peer); ok {
		params = info.Parameters
	}
	p, err := e.materializer.Materialize(peer, params)
	if err != nil {
		e.peerErrs[peer] = err
		return nil, err
	}
	e.peers[peer] = p
	return p, nil
}

func (e *Evaluator) peerFailed(peer string, err error) {
	e.metrics.RecordPeerFailure(peer)

	e.peersMu.Lock()
	first := !e.peersLogged[peer]
	e.peersLogged[peer] = true
	e.peersMu.Unlock()

	if !first {
		return
	}
	e.log.Warn().Err(err).Str("peer", peer).Msg("Peer prediction failed; contributing nothing")
	if e.onPeerFailure != nil {
		e.onPeerFailure(peer, err)
	}
}

func intersects(top []int, winners map[int]bool) bool {
	for _, n := range top {
		if winners[n] {
			return true
		}
	}
	return false
}
