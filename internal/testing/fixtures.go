package testing

import (
	"fmt"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
)

// Day returns the n-th fixture date (day 0 is 2024-01-01).
func Day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// NewDailyResults builds consecutive results starting at Day(0), one per entry
// in winners. Each number becomes the special prize with a five-digit draw
// ending in that number; a negative number yields a day with no draws.
func NewDailyResults(winners ...int) []domain.DailyResult {
	out := make([]domain.DailyResult, 0, len(winners))
	for i, w := range winners {
		draws := map[string]any{
			"_source":    "fixture",
			"created_at": "2024-01-01T18:30:00",
		}
		if w >= 0 {
			draws["special"] = fmt.Sprintf("123%02d", w)
			draws["first"] = []string{fmt.Sprintf("9%02d", w)}
		}
		out = append(out, domain.DailyResult{Date: Day(i), Draws: draws})
	}
	return out
}

// RepeatWinner returns n days all drawing the same number.
func RepeatWinner(number, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = number
	}
	return out
}
