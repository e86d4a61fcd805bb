package search

import (
	"testing"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   domain.ParameterVector
		want string
	}{
		{name: "sorted numeric only", in: domain.ParameterVector{"b": int64(2), "a": 0.5, "label": "x"}, want: "a=0.5;b=2"},
		{name: "six significant digits", in: domain.ParameterVector{"x": 1.0 / 3.0}, want: "x=0.333333"},
		{name: "empty", in: domain.ParameterVector{"flag": true}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonical(tt.in))
		})
	}
}

func TestVisitedSet_IgnoresOpaqueEntries(t *testing.T) {
	s := NewVisitedSet()

	assert.True(t, s.Add(domain.ParameterVector{"k": int64(1), "name": "a"}))
	assert.False(t, s.Add(domain.ParameterVector{"k": int64(1), "name": "b"}))
	assert.True(t, s.Contains(domain.ParameterVector{"k": int64(1)}))
	assert.False(t, s.Contains(domain.ParameterVector{"k": int64(2)}))
	assert.Equal(t, 1, s.Len())
}

func TestVisitedSet_RealPrecision(t *testing.T) {
	s := NewVisitedSet()
	assert.True(t, s.Add(domain.ParameterVector{"x": 0.1 + 0.2}))
	assert.False(t, s.Add(domain.ParameterVector{"x": 0.3}), "values equal to six digits are the same point")
}
