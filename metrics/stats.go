package metrics

import (
	"math"
	"sort"

	"github.com/xiaot623/driftscope/domain"
)

// GapStats summarizes a slice of relative latency gaps. An empty input
// yields a zero-count result.
func GapStats(gaps []float64) domain.GapStats {
	if len(gaps) == 0 {
		return domain.GapStats{}
	}
	stats := domain.GapStats{Count: len(gaps)}

	var sum float64
	for _, g := range gaps {
		sum += g
		if g > stats.Max {
			stats.Max = g
		}
	}
	stats.Mean = sum / float64(len(gaps))

	var sq float64
	for _, g := range gaps {
		d := g - stats.Mean
		sq += d * d
	}
	// Population standard deviation; the input is the full set of
	// observed pairs, not a sample.
	stats.StdDev = math.Sqrt(sq / float64(len(gaps)))
	stats.Median = medianFloat(gaps)
	return stats
}

// DistanceStats summarizes recovery turn distances.
func DistanceStats(distances []int) domain.DistanceStats {
	if len(distances) == 0 {
		return domain.DistanceStats{}
	}
	stats := domain.DistanceStats{Count: len(distances)}
	var sum int
	fs := make([]float64, len(distances))
	for i, d := range distances {
		sum += d
		fs[i] = float64(d)
	}
	stats.Mean = float64(sum) / float64(len(distances))
	stats.Median = medianFloat(fs)
	return stats
}

func medianFloat(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
