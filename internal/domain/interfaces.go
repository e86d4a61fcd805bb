package domain

import (
	"errors"
	"time"
)

// Error taxonomy. Callers test with errors.Is.
var (
	// ErrConfig covers missing algorithms, unusable start dates and bad step configs.
	ErrConfig = errors.New("configuration error")
	// ErrGeneration is returned when a grid cannot be materialized.
	ErrGeneration = errors.New("generation error")
	// ErrPrediction marks target failures and invalid combined scores.
	ErrPrediction = errors.New("prediction error")
	// ErrPeer marks a failing peer algorithm; its contribution for the day is dropped.
	ErrPeer = errors.New("peer error")
)

// Scores maps two-digit number strings "00".."99" to signed deltas relative to 100.0.
type Scores map[string]float64

// PredictFunc produces per-number deltas for date from the history strictly before it.
// Implementations must not mutate history.
type PredictFunc func(date time.Time, history []DailyResult) (Scores, error)

// AlgorithmInfo describes a discovered prediction algorithm.
type AlgorithmInfo struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Parameters  ParameterVector `json:"parameters"`
	SourcePath  string          `json:"source_path,omitempty"`
}

// AlgorithmRegistry returns algorithm descriptors by id.
type AlgorithmRegistry interface {
	Get(id string) (AlgorithmInfo, bool)
	List() []AlgorithmInfo
}

// Materializer yields a fresh prediction callable for an algorithm and parameter vector.
// Numeric entries of params replace the algorithm's declared parameters; everything else
// in the declared config is preserved.
type Materializer interface {
	Materialize(algorithmID string, params ParameterVector) (PredictFunc, error)
}
