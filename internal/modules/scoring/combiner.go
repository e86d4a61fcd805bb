// Package scoring merges per-number score deltas from several algorithms into
// absolute scores and ranks the top numbers.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
)

// BaseScore is the absolute score of a number no algorithm has an opinion on.
const BaseScore = 100.0

// Contribution is one algorithm's deltas for one day.
type Contribution struct {
	AlgorithmID string
	Deltas      domain.Scores
}

// Combine returns score(NN) = 100 + sum of finite deltas for every NN in 00..99.
// Keys that are not numbers in 0..99 are ignored. Contributions are summed in
// the given order so results are reproducible.
func Combine(contributions []Contribution) (domain.Scores, error) {
	var totals [100]float64
	for _, c := range contributions {
		for key, delta := range c.Deltas {
			n, ok := ParseNumber(key)
			if !ok || math.IsNaN(delta) || math.IsInf(delta, 0) {
				continue
			}
			totals[n] += delta
		}
	}

	out := make(domain.Scores, 100)
	for n, delta := range totals {
		score := BaseScore + delta
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, fmt.Errorf("%w: non-finite combined score for %02d", domain.ErrPrediction, n)
		}
		out[fmt.Sprintf("%02d", n)] = score
	}
	return out, nil
}

// ParseNumber parses a score key such as "07" or "7" into 0..99.
func ParseNumber(key string) (int, bool) {
	if key == "" || len(key) > 2 {
		return 0, false
	}
	n, err := strconv.Atoi(key)
	if err != nil || n < 0 || n > 99 {
		return 0, false
	}
	return n, true
}

// Ranked orders the numbers in scores by descending score, ties by ascending number.
func Ranked(scores domain.Scores) []int {
	type entry struct {
		n     int
		score float64
	}
	entries := make([]entry, 0, len(scores))
	for key, s := range scores {
		if n, ok := ParseNumber(key); ok {
			entries = append(entries, entry{n, s})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].n < entries[j].n
	})

	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.n
	}
	return out
}

// TopN returns the first n numbers of Ranked.
func TopN(scores domain.Scores, n int) ([]int, error) {
	ranked := Ranked(scores)
	if len(ranked) < n {
		return nil, fmt.Errorf("%w: only %d scored numbers, need %d", domain.ErrPrediction, len(ranked), n)
	}
	return ranked[:n], nil
}

// Top3 returns the three best numbers.
func Top3(scores domain.Scores) ([]int, error) {
	return TopN(scores, 3)
}
