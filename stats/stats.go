package stats

import (
	"math"
	"sort"
)

// VarianceMode selects the standard-deviation denominator. Loop-level
// aggregates treat the executed loops as the full population; raw latency
// samples are treated as a draw from a larger population and get the
// Bessel-corrected estimator.
type VarianceMode int

const (
	Population VarianceMode = iota // divide by n
	Sample                         // divide by n-1
)

// Summary holds the derived statistics for one sequence of values.
type Summary struct {
	Average float64
	Min     float64
	Max     float64
	Median  float64 // P50
	P90     float64
	P95     float64
	P99     float64
	StdDev  float64
}

// Calculate computes summary statistics over values. An empty input yields a
// zero Summary, never an error.
func Calculate(values []float64, mode VarianceMode) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sum := 0.0
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values {
		sum += v
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	avg := sum / float64(len(values))

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	variance := 0.0
	for _, v := range values {
		variance += (v - avg) * (v - avg)
	}
	n := float64(len(values))
	switch mode {
	case Sample:
		if len(values) > 1 {
			variance /= n - 1
		} else {
			variance = 0
		}
	default:
		variance /= n
	}

	return Summary{
		Average: avg,
		Min:     minVal,
		Max:     maxVal,
		Median:  percentile(sorted, 0.50),
		P90:     percentile(sorted, 0.90),
		P95:     percentile(sorted, 0.95),
		P99:     percentile(sorted, 0.99),
		StdDev:  math.Sqrt(variance),
	}
}

// percentile interpolates linearly between the two ranks surrounding
// p*(n-1) on an already-sorted slice, clamping at the last element.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	index := p * float64(n-1)
	lower := int(index)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1.0-weight) + sorted[upper]*weight
}

// ForLatency summarizes a latency metric. Raw per-access samples carry far
// more distributional information than per-loop averages, so they are
// preferred whenever any were collected; the per-loop sequence is the
// fallback. The two inputs have different numerical meaning
// (distribution of individual accesses vs. distribution of loop averages),
// which is why the choice is made in one place.
func ForLatency(samples, perLoop []float64) Summary {
	if len(samples) > 0 {
		return Calculate(samples, Sample)
	}
	return Calculate(perLoop, Population)
}
