package evaluation

import (
	"context"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/results"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/scoring"
	"github.com/junlangzi/Lottery-Predictor-sub001/pkg/formulas"
)

// AccuracyCutoffs are the top-k sizes reported by Accuracy.
var AccuracyCutoffs = []int{1, 3, 5, 10}

// AccuracyReport summarizes how often the combined ranking hit over a date range.
type AccuracyReport struct {
	From          time.Time        `json:"from"`
	To            time.Time        `json:"to"`
	DaysEvaluated int              `json:"days_evaluated"`
	Hits          map[int]int      `json:"hits"`
	TopPercent    map[int]float64  `json:"top_percent"`
	RepeatMeanGap float64          `json:"repeat_mean_gap_days"`
	RepeatStdDev  float64          `json:"repeat_std_dev_days"`
	Reason        domain.SimReason `json:"reason"`
}

// Accuracy predicts every recorded day in [from, to] that has a following day
// and counts top-1/3/5/10 hits against it. The repeat statistic is the mean
// number of days between consecutive top-3 appearances of the same number.
// Stop, pause and the deadline are honored before each day; a partial report
// is returned with the matching reason.
func (e *Evaluator) Accuracy(ctx context.Context, vector domain.ParameterVector, from, to time.Time) (AccuracyReport, error) {
	report := AccuracyReport{
		From:       domain.TruncateDay(from),
		To:         domain.TruncateDay(to),
		Hits:       make(map[int]int, len(AccuracyCutoffs)),
		TopPercent: make(map[int]float64, len(AccuracyCutoffs)),
		Reason:     domain.SimEndOfData,
	}

	predict, err := e.materializer.Materialize(e.cfg.TargetID, vector)
	if err != nil {
		report.Reason = domain.SimPredictionError
		return report, err
	}

	lastSeen := make(map[int]time.Time)
	var gaps []float64

	for _, day := range e.store.Between(report.From, report.To) {
		if reason, _, halted := e.checkpoint(ctx); halted {
			report.Reason = reason
			break
		}

		actual, ok := e.store.On(day.Date.AddDate(0, 0, 1))
		if !ok {
			continue
		}
		winners := results.WinnerSet(actual)
		if len(winners) == 0 {
			continue
		}

		scores, err := e.combined(predict, day.Date, e.store.HistoryBefore(day.Date))
		if err != nil {
			report.Reason = domain.SimPredictionError
			e.summarize(&report, gaps)
			return report, err
		}
		e.metrics.RecordDay()

		ranked := scoring.Ranked(scores)
		for _, k := range AccuracyCutoffs {
			if k <= len(ranked) && intersects(ranked[:k], winners) {
				report.Hits[k]++
			}
		}
		for _, n := range ranked[:min(3, len(ranked))] {
			if prev, ok := lastSeen[n]; ok {
				gaps = append(gaps, day.Date.Sub(prev).Hours()/24)
			}
			lastSeen[n] = day.Date
		}
		report.DaysEvaluated++
	}

	e.summarize(&report, gaps)
	return report, nil
}

func (e *Evaluator) summarize(report *AccuracyReport, gaps []float64) {
	for _, k := range AccuracyCutoffs {
		report.TopPercent[k] = formulas.Percent(report.Hits[k], report.DaysEvaluated)
	}
	report.RepeatMeanGap = formulas.Mean(gaps)
	report.RepeatStdDev = formulas.StdDev(gaps)
}
