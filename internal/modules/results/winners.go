package results

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
)

// metadataFields are draw keys that never carry drawn numbers.
var metadataFields = map[string]bool{
	"date":          true,
	"created":       true,
	"created_at":    true,
	"createdat":     true,
	"timestamp":     true,
	"updated_at":    true,
	"province":      true,
	"province_id":   true,
	"provinceid":    true,
	"province_code": true,
	"region":        true,
	"day_of_week":   true,
	"dayofweek":     true,
	"weekday":       true,
	"thu":           true,
}

// IsMetadataField reports whether a draw key is metadata.
func IsMetadataField(key string) bool {
	if strings.HasPrefix(key, "_") {
		return true
	}
	return metadataFields[strings.ToLower(key)]
}

// WinningNumbers extracts the trailing two digits of every non-metadata draw
// field. The result is sorted and deduplicated; an empty set marks a non-draw day.
func WinningNumbers(r domain.DailyResult) []int {
	seen := make(map[int]bool)
	for key, value := range r.Draws {
		if IsMetadataField(key) {
			continue
		}
		for _, s := range drawStrings(value) {
			if n, ok := trailingTwoDigits(s); ok {
				seen[n] = true
			}
		}
	}

	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// WinnerSet is WinningNumbers as a lookup set.
func WinnerSet(r domain.DailyResult) map[int]bool {
	nums := WinningNumbers(r)
	set := make(map[int]bool, len(nums))
	for _, n := range nums {
		set[n] = true
	}
	return set
}

func drawStrings(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, drawStrings(item)...)
		}
		return out
	case json.Number:
		return []string{v.String()}
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}
	case int:
		return []string{strconv.Itoa(v)}
	case int64:
		return []string{strconv.FormatInt(v, 10)}
	}
	return nil
}

func trailingTwoDigits(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if len(s) > 2 {
		s = s[len(s)-2:]
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
