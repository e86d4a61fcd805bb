// Package formulas provides the numeric helpers shared by built-in algorithms
// and the accuracy evaluator.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// ZScores standardizes data. A zero spread yields all zeros.
func ZScores(data []float64) []float64 {
	out := make([]float64, len(data))
	if len(data) < 2 {
		return out
	}
	mean, std := stat.MeanStdDev(data, nil)
	if std == 0 || math.IsNaN(std) {
		return out
	}
	for i, v := range data {
		out[i] = (v - mean) / std
	}
	return out
}

// Percent returns 100*part/total, or 0 when total is zero.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}
