package testing

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
)

// PredictFactory builds a prediction callable for a concrete parameter vector.
type PredictFactory func(params domain.ParameterVector) domain.PredictFunc

// MockAlgorithms is an in-memory registry and materializer for tests.
type MockAlgorithms struct {
	mu        sync.RWMutex
	infos     map[string]domain.AlgorithmInfo
	factories map[string]PredictFactory
	calls     map[string]int
}

// NewMockAlgorithms creates an empty mock registry.
func NewMockAlgorithms() *MockAlgorithms {
	return &MockAlgorithms{
		infos:     make(map[string]domain.AlgorithmInfo),
		factories: make(map[string]PredictFactory),
		calls:     make(map[string]int),
	}
}

// Add registers an algorithm with default parameters and a factory.
func (m *MockAlgorithms) Add(id string, params domain.ParameterVector, factory PredictFactory) *MockAlgorithms {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos[id] = domain.AlgorithmInfo{ID: id, Kind: "mock", Parameters: domain.NormalizeParams(params)}
	m.factories[id] = factory
	return m
}

// Get implements domain.AlgorithmRegistry.
func (m *MockAlgorithms) Get(id string) (domain.AlgorithmInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.infos[id]
	return info, ok
}

// List implements domain.AlgorithmRegistry.
func (m *MockAlgorithms) List() []domain.AlgorithmInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.AlgorithmInfo, 0, len(m.infos))
	for _, info := range m.infos {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Materialize implements domain.Materializer by merging params over the defaults.
func (m *MockAlgorithms) Materialize(id string, params domain.ParameterVector) (domain.PredictFunc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.infos[id]
	if !ok {
		return nil, errors.New("unknown algorithm " + id)
	}
	merged := info.Parameters.Clone()
	for k, v := range params {
		if domain.IsNumeric(v) {
			merged[k] = v
		}
	}
	m.calls[id]++
	return m.factories[id](merged), nil
}

// Materializations returns how many callables were produced for id.
func (m *MockAlgorithms) Materializations(id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[id]
}

// Constant returns a factory that always predicts the same deltas.
func Constant(scores domain.Scores) PredictFactory {
	return func(domain.ParameterVector) domain.PredictFunc {
		return func(time.Time, []domain.DailyResult) (domain.Scores, error) {
			out := make(domain.Scores, len(scores))
			for k, v := range scores {
				out[k] = v
			}
			return out, nil
		}
	}
}

// Failing returns a factory whose callables always fail.
func Failing(err error) PredictFactory {
	return func(domain.ParameterVector) domain.PredictFunc {
		return func(time.Time, []domain.DailyResult) (domain.Scores, error) {
			return nil, err
		}
	}
}
