package training

import (
	"sort"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
)

// Mismatch lists the numeric parameters that differ between a saved vector
// and the algorithm's current declaration.
type Mismatch struct {
	Missing []string `json:"missing"` // declared now, absent from the snapshot
	Extra   []string `json:"extra"`   // in the snapshot, no longer declared
}

// OK reports whether the schemas agree.
func (m Mismatch) OK() bool {
	return len(m.Missing) == 0 && len(m.Extra) == 0
}

// Validate compares the numeric keys of a saved vector with the declared parameters.
func Validate(saved, declared domain.ParameterVector) Mismatch {
	var m Mismatch
	for _, k := range declared.NumericKeys() {
		if v, ok := saved[k]; !ok || !domain.IsNumeric(v) {
			m.Missing = append(m.Missing, k)
		}
	}
	for _, k := range saved.NumericKeys() {
		if v, ok := declared[k]; !ok || !domain.IsNumeric(v) {
			m.Extra = append(m.Extra, k)
		}
	}
	sort.Strings(m.Missing)
	sort.Strings(m.Extra)
	return m
}

// Restrict keeps the saved values for numeric keys both sides share, coerced to
// the declared kind, and fills every other declared entry from the defaults.
func Restrict(saved, declared domain.ParameterVector) domain.ParameterVector {
	out := declared.Clone()
	for _, k := range declared.NumericKeys() {
		if v, ok := saved[k]; ok && domain.IsNumeric(v) {
			out[k] = domain.CoerceLike(v, declared[k])
		}
	}
	return out
}

// Vector sources accepted by (*StateStore).Vector.
const (
	SourceState    = "state"
	SourceDefaults = "defaults"
)

// Vector picks the parameter vector to evaluate for info. SourceDefaults uses
// the declared parameters. SourceState requires a saved state. An empty source
// prefers the saved state and falls back to the declared parameters.
func (s *StateStore) Vector(info domain.AlgorithmInfo, source string) (domain.ParameterVector, string, error) {
	defaults := domain.NormalizeParams(info.Parameters)
	if source == SourceDefaults {
		return defaults, SourceDefaults, nil
	}

	state, err := s.Read(info.ID)
	if err != nil || state.BestParams == nil {
		if source == SourceState {
			if err == nil {
				err = ErrStateNotResumable
			}
			return nil, "", err
		}
		return defaults, SourceDefaults, nil
	}
	return Restrict(domain.NormalizeParams(state.BestParams), defaults), SourceState, nil
}
