package algorithms

import (
	"fmt"
	"sort"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/results"
	"github.com/junlangzi/Lottery-Predictor-sub001/pkg/formulas"
)

// Kind builds a prediction callable from a fully merged parameter set.
type Kind func(params domain.ParameterVector) (domain.PredictFunc, error)

// BuiltinKinds returns the algorithm kinds shipped with the trainer.
func BuiltinKinds() map[string]Kind {
	return map[string]Kind{
		"frequency": frequencyKind,
		"gap":       gapKind,
		"zscore":    zscoreKind,
		"ema_trend": emaTrendKind,
		"fixed":     fixedKind,
	}
}

// NumberKey formats n as the two-digit score key.
func NumberKey(n int) string {
	return fmt.Sprintf("%02d", n)
}

// frequencyKind favors numbers drawn most often in the last window days.
func frequencyKind(p domain.ParameterVector) (domain.PredictFunc, error) {
	window := intParam(p, "window", 30)
	top := intParam(p, "top", 10)
	weight := floatParam(p, "weight", 1.0)
	if window < 1 || top < 1 {
		return nil, fmt.Errorf("%w: frequency needs window >= 1 and top >= 1", domain.ErrConfig)
	}
	if top > 100 {
		top = 100
	}

	return func(_ time.Time, hist []domain.DailyResult) (domain.Scores, error) {
		counts := appearanceCounts(recent(hist, window))
		scores := make(domain.Scores, top)
		for _, n := range rankByCount(counts)[:top] {
			if counts[n] > 0 {
				scores[NumberKey(n)] = weight * float64(counts[n])
			}
		}
		return scores, nil
	}, nil
}

// gapKind favors numbers that have not been drawn for a long time.
func gapKind(p domain.ParameterVector) (domain.PredictFunc, error) {
	limit := intParam(p, "cap", 60)
	weight := floatParam(p, "weight", 1.0)
	if limit < 1 {
		return nil, fmt.Errorf("%w: gap needs cap >= 1", domain.ErrConfig)
	}

	return func(_ time.Time, hist []domain.DailyResult) (domain.Scores, error) {
		days := recent(hist, limit)
		lastSeen := make(map[int]int, 100)
		for i, r := range days {
			for _, n := range results.WinningNumbers(r) {
				lastSeen[n] = i
			}
		}
		scores := make(domain.Scores, 100)
		for n := 0; n < 100; n++ {
			gap := limit
			if i, ok := lastSeen[n]; ok {
				gap = len(days) - 1 - i
			}
			scores[NumberKey(n)] = weight * float64(gap) / float64(limit)
		}
		return scores, nil
	}, nil
}

// zscoreKind scores numbers by how unusual their recent frequency is.
func zscoreKind(p domain.ParameterVector) (domain.PredictFunc, error) {
	window := intParam(p, "window", 60)
	weight := floatParam(p, "weight", 1.0)
	threshold := floatParam(p, "threshold", 0.0)
	if window < 1 {
		return nil, fmt.Errorf("%w: zscore needs window >= 1", domain.ErrConfig)
	}

	return func(_ time.Time, hist []domain.DailyResult) (domain.Scores, error) {
		counts := appearanceCounts(recent(hist, window))
		series := make([]float64, 100)
		for n := range series {
			series[n] = float64(counts[n])
		}
		scores := make(domain.Scores)
		for n, z := range formulas.ZScores(series) {
			if z >= threshold {
				scores[NumberKey(n)] = weight * z
			}
		}
		return scores, nil
	}, nil
}

// emaTrendKind scores numbers by the EMA of their daily appearance series.
func emaTrendKind(p domain.ParameterVector) (domain.PredictFunc, error) {
	window := intParam(p, "window", 60)
	period := intParam(p, "period", 10)
	weight := floatParam(p, "weight", 10.0)
	if window < 1 || period < 1 {
		return nil, fmt.Errorf("%w: ema_trend needs window >= 1 and period >= 1", domain.ErrConfig)
	}

	return func(_ time.Time, hist []domain.DailyResult) (domain.Scores, error) {
		days := recent(hist, window)
		if len(days) == 0 {
			return domain.Scores{}, nil
		}
		series := make([][]float64, 100)
		for n := range series {
			series[n] = make([]float64, len(days))
		}
		for i, r := range days {
			for _, n := range results.WinningNumbers(r) {
				series[n][i] = 1
			}
		}
		scores := make(domain.Scores, 100)
		for n := range series {
			if v := formulas.CalculateEMA(series[n], period); v > 0 {
				scores[NumberKey(n)] = weight * v
			}
		}
		return scores, nil
	}, nil
}

// fixedKind emits constant deltas from parameters named "00".."99".
func fixedKind(p domain.ParameterVector) (domain.PredictFunc, error) {
	deltas := make(domain.Scores)
	for k, v := range p {
		if len(k) != 2 || k[0] < '0' || k[0] > '9' || k[1] < '0' || k[1] > '9' {
			continue
		}
		if f, ok := domain.ToFloat(v); ok {
			deltas[k] = f
		}
	}

	return func(time.Time, []domain.DailyResult) (domain.Scores, error) {
		out := make(domain.Scores, len(deltas))
		for k, v := range deltas {
			out[k] = v
		}
		return out, nil
	}, nil
}

func recent(hist []domain.DailyResult, window int) []domain.DailyResult {
	if len(hist) > window {
		return hist[len(hist)-window:]
	}
	return hist
}

func appearanceCounts(days []domain.DailyResult) [100]int {
	var counts [100]int
	for _, r := range days {
		for _, n := range results.WinningNumbers(r) {
			counts[n]++
		}
	}
	return counts
}

// rankByCount orders 0..99 by count descending, ties by ascending number.
func rankByCount(counts [100]int) []int {
	order := make([]int, 100)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	return order
}

func intParam(p domain.ParameterVector, name string, def int) int {
	if f, ok := domain.ToFloat(p[name]); ok {
		return int(f)
	}
	return def
}

func floatParam(p domain.ParameterVector, name string, def float64) float64 {
	if f, ok := domain.ToFloat(p[name]); ok {
		return f
	}
	return def
}
