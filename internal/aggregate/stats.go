package aggregate

import (
	"math"

	"trawlscope/pkg/contracts/domain"
)

// WeightedMean computes sum(x*w)/sum(w) over the pairs where both the value
// and its weight are present. A pair is excluded when either side is
// missing; a missing value is never treated as zero, and a zero weight never
// contributes. When no pair survives, or the surviving weights sum to zero,
// the mean is undefined and the missing sentinel is returned.
func WeightedMean(values, weights []float64) float64 {
	var sumWeighted, sumWeights float64
	for i, v := range values {
		if i >= len(weights) {
			break
		}
		w := weights[i]
		if domain.IsMissing(v) || domain.IsMissing(w) {
			continue
		}
		sumWeighted += v * w
		sumWeights += w
	}
	if sumWeights == 0 {
		return domain.Missing()
	}
	return sumWeighted / sumWeights
}

// Mean is the unweighted arithmetic mean over the present values.
func Mean(values []float64) float64 {
	var sum float64
	n := 0
	for _, v := range values {
		if domain.IsMissing(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return domain.Missing()
	}
	return sum / float64(n)
}

// SampleStdDev is the sample standard deviation (n-1 denominator) over the
// present values. Undefined below two observations.
func SampleStdDev(values []float64) float64 {
	mean := Mean(values)
	if domain.IsMissing(mean) {
		return domain.Missing()
	}

	var sumSquaredDiff float64
	n := 0
	for _, v := range values {
		if domain.IsMissing(v) {
			continue
		}
		diff := v - mean
		sumSquaredDiff += diff * diff
		n++
	}
	if n < 2 {
		return domain.Missing()
	}
	return math.Sqrt(sumSquaredDiff / float64(n-1))
}

// Sum adds the present values.
func Sum(values []float64) float64 {
	var sum float64
	for _, v := range values {
		if domain.IsMissing(v) {
			continue
		}
		sum += v
	}
	return sum
}
