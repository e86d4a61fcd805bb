package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// CalculateEMA returns the latest exponential moving average of series.
// With fewer points than length it falls back to the simple mean.
func CalculateEMA(series []float64, length int) float64 {
	if len(series) == 0 {
		return 0
	}
	if length < 1 {
		length = 1
	}
	if len(series) < length {
		return Mean(series)
	}

	ema := talib.Ema(series, length)
	if last := ema[len(ema)-1]; !math.IsNaN(last) {
		return last
	}
	return Mean(series[len(series)-length:])
}
