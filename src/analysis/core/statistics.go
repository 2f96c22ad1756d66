package core

import "math"

// -----------------------------------------------------------------------------

// MeanStd computes mean and population standard deviation.
func MeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	if len(data) == 1 {
		return mean, 0
	}

	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(varianceSum / float64(len(data)))
}

// -----------------------------------------------------------------------------

// ChangePercent calculates fractional change from previous to current.
func ChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous
}

// -----------------------------------------------------------------------------

// AnomalyRatio compares current volume against its historical average.
func AnomalyRatio(currentVol, avgVol float64) float64 {
	if avgVol <= 0 {
		if currentVol == 0 {
			return 1.0
		}
		return currentVol
	}
	return currentVol / avgVol
}
