package optimization

import (
	"context"
	"errors"
	"fmt"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/events"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/search"
)

// generateSets builds the whole grid up front and evaluates it in order.
func (j *job) generateSets(ctx context.Context) Result {
	settings := j.engine.settings
	cfg := j.req.Generate

	grid := search.NewGridGenerator(search.GridConfig{
		ValuesPerParam: cfg.ValuesPerParam,
		Sampling:       cfg.Sampling,
		Seed:           cfg.Seed,
		SizeLimit:      settings.CombinationSizeLimit,
		YieldEvery:     settings.GridYieldEvery,
	}, j.ctl, j.log)

	j.em.Status(module, fmt.Sprintf("Generating %s parameter sets for %s (%d values per parameter)",
		cfg.Sampling, j.req.TargetAlgorithmID, cfg.ValuesPerParam))

	sets, err := grid.Generate(ctx, j.defaults)
	if err != nil {
		reason := domain.ReasonGenerationError
		if errors.Is(err, domain.ErrConfig) {
			reason = domain.ReasonCriticalError
		}
		j.em.EmitError(module, err, map[string]interface{}{"stage": "generate"})
		return j.withSets(j.result(reason, err.Error()), 0)
	}

	total := len(sets)
	tested := 0
	if total == 0 {
		if reason, stop := j.halted(ctx); stop {
			return j.withSets(j.result(reason, "Stopped while generating parameter sets"), 0)
		}
	}
	j.em.Status(module, fmt.Sprintf("Evaluating %d parameter sets", total))

	for i, v := range sets {
		if reason, stop := j.halted(ctx); stop {
			return j.withSets(j.result(reason, j.generateMessage(reason, tested, total)), tested)
		}

		out, ok := j.evaluate(ctx, v)
		if !ok {
			continue
		}
		tested++
		j.consider(v, out.Streak)

		j.progress.Report(&events.ProgressData{
			Mode:            string(domain.ModeGenerateSets),
			Evaluated:       j.evaluated,
			SetIndex:        i + 1,
			Total:           total,
			CandidateStreak: out.Streak,
			BestStreak:      j.best.Streak,
			ElapsedSeconds:  j.elapsed(),
			Params:          map[string]any(v),
		})

		if j.limitReached() {
			return j.withSets(j.result(domain.ReasonStreakLimitReached, j.generateMessage(domain.ReasonStreakLimitReached, tested, total)), tested)
		}
	}

	// only the last simulation can have been cut short without a following check
	if tested < total {
		if reason, stop := j.halted(ctx); stop {
			return j.withSets(j.result(reason, j.generateMessage(reason, tested, total)), tested)
		}
	}
	return j.withSets(j.result(domain.ReasonAllSetsTested, j.generateMessage(domain.ReasonAllSetsTested, tested, total)), tested)
}

func (j *job) withSets(res Result, tested int) Result {
	res.SetsTested = &tested
	return res
}

func (j *job) generateMessage(reason domain.TerminalReason, tested, total int) string {
	switch reason {
	case domain.ReasonAllSetsTested:
		return fmt.Sprintf("All %d parameter sets tested; best streak %d", tested, j.best.Streak)
	case domain.ReasonStreakLimitReached:
		return fmt.Sprintf("Streak limit %d reached after %d of %d sets", j.req.StreakLimitDays, tested, total)
	case domain.ReasonTimeLimit:
		return fmt.Sprintf("Time limit of %ds reached after %d of %d sets; best streak %d", j.req.TimeLimitSeconds, tested, total, j.best.Streak)
	case domain.ReasonStopped:
		return fmt.Sprintf("Stopped after %d of %d sets; best streak %d", tested, total, j.best.Streak)
	}
	return string(reason)
}
