// Package domain provides core domain models and types.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// DateLayout is the ISO calendar-date layout used for result dates.
const DateLayout = "2006-01-02"

// StateDateLayout is the day-first layout used in persisted training state.
const StateDateLayout = "02/01/2006"

// DailyResult is one day of drawn numbers keyed by prize-position label.
// Values are either a decimal string or a list of decimal strings.
type DailyResult struct {
	Date  time.Time      `json:"date"`
	Draws map[string]any `json:"result"`
}

// DateKey returns the ISO date of the result.
func (r DailyResult) DateKey() string {
	return r.Date.Format(DateLayout)
}

// TruncateDay strips the time-of-day component, keeping the calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO date, tolerating a trailing time component.
func ParseDate(s string) (time.Time, error) {
	if len(s) >= len(DateLayout) {
		if t, err := time.Parse(DateLayout, s[:len(DateLayout)]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
}

// Mode selects the search strategy.
type Mode string

const (
	ModeExplore      Mode = "Explore"
	ModeGenerateSets Mode = "GenerateSets"
)

// Valid reports whether the mode is known.
func (m Mode) Valid() bool {
	return m == ModeExplore || m == ModeGenerateSets
}

// Sampling selects how grid menus are built.
type Sampling string

const (
	SamplingRandom     Sampling = "Random"
	SamplingSequential Sampling = "Sequential"
)

// StepKind distinguishes proportional from user-enumerated steps.
type StepKind string

const (
	StepAuto   StepKind = "Auto"
	StepCustom StepKind = "Custom"
)

// StepConfig describes how one numeric parameter is perturbed.
type StepConfig struct {
	Kind  StepKind  `json:"kind"`
	Steps []float64 `json:"steps,omitempty"`
}

// ExploreConfig holds Explore-only job settings.
type ExploreConfig struct {
	StepConfig        map[string]StepConfig `json:"step_config,omitempty"`
	InitialVector     ParameterVector       `json:"initial_vector,omitempty"`
	InitialBestStreak int                   `json:"initial_best_streak"`
	Seed              int64                 `json:"seed,omitempty"` // 0 draws a time-based seed
}

// GenerateConfig holds GenerateSets-only job settings.
type GenerateConfig struct {
	ValuesPerParam int      `json:"n_values_per_param"`
	Sampling       Sampling `json:"sampling"`
	Seed           int64    `json:"seed,omitempty"`
}

// JobRequest is the immutable description of one optimization job.
type JobRequest struct {
	TargetAlgorithmID string         `json:"target_algorithm_id"`
	PeerAlgorithmIDs  []string       `json:"peer_algorithm_ids,omitempty"`
	StartDate         time.Time      `json:"start_date"`
	TimeLimitSeconds  int            `json:"time_limit_seconds"`
	StreakLimitDays   int            `json:"streak_limit_days"`
	Mode              Mode           `json:"mode"`
	Explore           ExploreConfig  `json:"explore"`
	Generate          GenerateConfig `json:"generate"`
}

// BestState is the best vector found so far plus the metadata needed to resume.
type BestState struct {
	Params    ParameterVector `json:"params"`
	Streak    int             `json:"streak"`
	Mode      Mode            `json:"mode"`
	StartDate time.Time       `json:"start_date"`
	PeerIDs   []string        `json:"peer_ids"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TerminalReason is why a job ended.
type TerminalReason string

const (
	ReasonAllSetsTested      TerminalReason = "all_sets_tested"
	ReasonStreakLimitReached TerminalReason = "streak_limit_reached"
	ReasonTimeLimit          TerminalReason = "time_limit"
	ReasonNoImprovement      TerminalReason = "no_improvement"
	ReasonStopped            TerminalReason = "stopped"
	ReasonNoParams           TerminalReason = "no_params"
	ReasonGenerationError    TerminalReason = "generation_error"
	ReasonCriticalError      TerminalReason = "critical_error"
)

// Success reports whether the reason counts as a successful run.
func (r TerminalReason) Success() bool {
	switch r {
	case ReasonCriticalError, ReasonGenerationError, ReasonNoParams:
		return false
	}
	return true
}

// SimReason is why a single streak simulation ended.
type SimReason string

const (
	SimEndOfData          SimReason = "end_of_data"
	SimStreakBroken       SimReason = "streak_broken"
	SimMissingHistory     SimReason = "missing_history"
	SimPredictionError    SimReason = "prediction_error"
	SimStreakLimitReached SimReason = "streak_limit_reached"
	SimTimeLimit          SimReason = "time_limit"
	SimStopped            SimReason = "stopped"
)

// Streak sentinels returned alongside SimStopped and SimTimeLimit.
const (
	StreakStopped   = -1
	StreakTimeLimit = -2
)

// ParameterVector maps parameter names to integer, real or opaque values.
// Numeric entries are held as int64 or float64 after NormalizeParams.
type ParameterVector map[string]any

// Clone returns a shallow copy; values are scalars or carried through untouched.
func (p ParameterVector) Clone() ParameterVector {
	out := make(ParameterVector, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// NumericKeys returns the sorted names of integer and real entries.
func (p ParameterVector) NumericKeys() []string {
	keys := make([]string, 0, len(p))
	for k, v := range p {
		if IsNumeric(v) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Numeric returns only the numeric entries.
func (p ParameterVector) Numeric() ParameterVector {
	out := make(ParameterVector)
	for k, v := range p {
		if IsNumeric(v) {
			out[k] = v
		}
	}
	return out
}

// IsNumeric reports whether v is an integer or real value. Booleans are opaque.
func IsNumeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// IsInteger reports whether v is an integer kind.
func IsInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// ToFloat converts a numeric value to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// NormalizeValue maps every integer kind to int64 and every real kind to float64.
// json.Number values become int64 when they parse as integers.
func NormalizeValue(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case float32:
		return float64(n)
	case float64:
		return n
	}
	if IsInteger(v) {
		f, _ := ToFloat(v)
		return int64(f)
	}
	return v
}

// NormalizeParams returns a copy of p with numeric values normalized.
func NormalizeParams(p map[string]any) ParameterVector {
	out := make(ParameterVector, len(p))
	for k, v := range p {
		out[k] = NormalizeValue(v)
	}
	return out
}

// CoerceLike casts value to the numeric kind of like: int64 params round, float64 params widen.
func CoerceLike(value, like any) any {
	f, ok := ToFloat(value)
	if !ok {
		return value
	}
	if IsInteger(like) {
		return int64(math.Round(f))
	}
	return RoundSignificant(f, 6)
}

// RoundSignificant rounds f to the given number of significant digits.
func RoundSignificant(f float64, digits int) float64 {
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'g', digits, 64), 64)
	if err != nil {
		return f
	}
	return r
}
