package optimization

import (
	"context"
	"fmt"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/events"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/search"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/training"
)

// explore hill-climbs from the starting vector. The queue holds vectors not yet
// evaluated; when it drains, one neighbor round runs and counts as a stall
// cycle. A strict improvement resets the stall count.
func (j *job) explore(ctx context.Context) Result {
	settings := j.engine.settings
	start := j.startVector()

	visited := search.NewVisitedSet()
	visited.Add(start)
	neighbors := search.NewNeighborGenerator(j.req.Explore.StepConfig, settings.MaxNeighborsPerCycle, j.req.Explore.Seed, j.log)

	j.em.Status(module, fmt.Sprintf("Explore started for %s from %s (best streak %d)",
		j.req.TargetAlgorithmID, j.best.StartDate.Format(domain.DateLayout), j.best.Streak))

	queue := []domain.ParameterVector{start}
	stall := 0
	for {
		if reason, stop := j.halted(ctx); stop {
			return j.result(reason, j.exploreMessage(reason, settings.MaxStallCycles))
		}
		if stall >= settings.MaxStallCycles {
			return j.result(domain.ReasonNoImprovement, j.exploreMessage(domain.ReasonNoImprovement, settings.MaxStallCycles))
		}

		if len(queue) == 0 {
			found := neighbors.Generate(j.best.Params, visited)
			stall++
			queue = append(queue, found...)
			j.log.Debug().Int("neighbors", len(found)).Int("stall_cycles", stall).Int("visited", visited.Len()).Msg("Neighbor cycle")
			continue
		}

		v := queue[0]
		queue = queue[1:]

		out, ok := j.evaluate(ctx, v)
		if !ok {
			continue
		}
		if j.consider(v, out.Streak) {
			stall = 0
		}

		j.progress.Report(&events.ProgressData{
			Mode:            string(domain.ModeExplore),
			Evaluated:       j.evaluated,
			CandidateStreak: out.Streak,
			BestStreak:      j.best.Streak,
			StallCycles:     stall,
			QueueLength:     len(queue),
			ElapsedSeconds:  j.elapsed(),
			Params:          map[string]any(v),
		})
	}
}

// startVector returns the resume vector restricted to the current schema, or
// the declared defaults.
func (j *job) startVector() domain.ParameterVector {
	initial := j.req.Explore.InitialVector
	if len(initial) == 0 {
		return j.defaults.Clone()
	}

	saved := domain.NormalizeParams(initial)
	if m := training.Validate(saved, j.defaults); !m.OK() {
		j.log.Warn().Strs("missing", m.Missing).Strs("extra", m.Extra).Msg("Resume vector restricted to current parameters")
	}
	start := training.Restrict(saved, j.defaults)

	j.resumed = true
	j.best.Params = start.Clone()
	if j.req.Explore.InitialBestStreak > 0 {
		j.best.Streak = j.req.Explore.InitialBestStreak
	}
	return start
}

func (j *job) exploreMessage(reason domain.TerminalReason, maxStall int) string {
	switch reason {
	case domain.ReasonNoImprovement:
		return fmt.Sprintf("No improvement after %d stall cycles; best streak %d", maxStall, j.best.Streak)
	case domain.ReasonStreakLimitReached:
		return fmt.Sprintf("Streak limit %d reached; best streak %d", j.req.StreakLimitDays, j.best.Streak)
	case domain.ReasonTimeLimit:
		return fmt.Sprintf("Time limit of %ds reached; best streak %d", j.req.TimeLimitSeconds, j.best.Streak)
	case domain.ReasonStopped:
		return fmt.Sprintf("Stopped after %d evaluations; best streak %d", j.evaluated, j.best.Streak)
	}
	return string(reason)
}
