package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAndStdDev(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-12)
	assert.Equal(t, 0.0, StdDev([]float64{5}))
	assert.InDelta(t, 1.2909944, StdDev([]float64{1, 2, 3, 4}), 1e-6)
}

func TestZScores(t *testing.T) {
	z := ZScores([]float64{1, 2, 3})
	assert.InDelta(t, -1.0, z[0], 1e-12)
	assert.InDelta(t, 0.0, z[1], 1e-12)
	assert.InDelta(t, 1.0, z[2], 1e-12)

	assert.Equal(t, []float64{0, 0, 0}, ZScores([]float64{4, 4, 4}))
}

func TestCalculateEMA(t *testing.T) {
	assert.Equal(t, 0.0, CalculateEMA(nil, 5))
	// Shorter than the period: simple mean
	assert.InDelta(t, 0.5, CalculateEMA([]float64{1, 0}, 5), 1e-12)
	// Constant series converges to the constant
	assert.InDelta(t, 1.0, CalculateEMA([]float64{1, 1, 1, 1, 1, 1}, 3), 1e-12)
	// Recent ones weigh more than old ones
	assert.Greater(t, CalculateEMA([]float64{0, 0, 0, 1, 1, 1}, 3), CalculateEMA([]float64{1, 1, 1, 0, 0, 0}, 3))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(1, 0))
	assert.Equal(t, 25.0, Percent(1, 4))
}
