package algorithms

import (
	"fmt"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
)

// Materializer turns (algorithm id, parameter vector) into a prediction callable.
// Parameters are passed by value; no source is rewritten.
type Materializer struct {
	registry *Registry
}

// NewMaterializer creates a materializer backed by registry.
func NewMaterializer(registry *Registry) *Materializer {
	return &Materializer{registry: registry}
}

// MergeParams overlays the numeric entries of vector onto declared, keeping
// non-numeric declared entries and ignoring names the algorithm does not declare.
func MergeParams(declared, vector domain.ParameterVector) domain.ParameterVector {
	merged := declared.Clone()
	for k, v := range vector {
		current, ok := declared[k]
		if !ok || !domain.IsNumeric(v) || !domain.IsNumeric(current) {
			continue
		}
		merged[k] = domain.NormalizeValue(v)
	}
	return merged
}

// Materialize implements domain.Materializer.
func (m *Materializer) Materialize(algorithmID string, vector domain.ParameterVector) (domain.PredictFunc, error) {
	d, ok := m.registry.Descriptor(algorithmID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown algorithm %s", domain.ErrConfig, algorithmID)
	}
	kind, ok := m.registry.kind(d.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrConfig, d.Kind)
	}

	predict, err := kind(MergeParams(d.Parameters, vector))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrPrediction, algorithmID, err)
	}
	return guard(algorithmID, predict), nil
}

// guard converts panics inside predict into prediction errors.
func guard(id string, predict domain.PredictFunc) domain.PredictFunc {
	return func(date time.Time, hist []domain.DailyResult) (scores domain.Scores, err error) {
		defer func() {
			if p := recover(); p != nil {
				scores = nil
				err = fmt.Errorf("%w: %s panicked: %v", domain.ErrPrediction, id, p)
			}
		}()
		return predict(date, hist)
	}
}
