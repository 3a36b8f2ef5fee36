package pipeline

import "gonum.org/v1/gonum/floats"

// ratio computes a/b, returning 0 for a zero denominator.
func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// sumCounts adds a slice of per-region integer counts, used by the report's
// cross-partition aggregation (stages B and F run per-region in the worker
// pool; their counts are summed once every worker has returned).
func sumCounts(counts []int) int {
	floatCounts := make([]float64, len(counts))
	for i, c := range counts {
		floatCounts[i] = float64(c)
	}
	return int(floats.Sum(floatCounts))
}
