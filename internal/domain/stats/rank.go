package stats

import (
	"math"
	"sort"
)

// Rank assigns 1-based ranks to xs, giving tied values the average of the
// ranks they span. NaN inputs receive NaN.
func Rank(xs []float64) []float64 {
	ranks := make([]float64, len(xs))
	idx := make([]int, 0, len(xs))
	for i, x := range xs {
		if math.IsNaN(x) {
			ranks[i] = math.NaN()
			continue
		}
		idx = append(idx, i)
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	for start := 0; start < len(idx); {
		end := start + 1
		for end < len(idx) && xs[idx[end]] == xs[idx[start]] {
			end++
		}
		avg := float64(start+end+1) / 2 // mean of ranks start+1..end
		for k := start; k < end; k++ {
			ranks[idx[k]] = avg
		}
		start = end
	}
	return ranks
}

// tieCounts returns the size of every group of equal values in xs.
func tieCounts(xs []float64) []int {
	counts := make(map[float64]int, len(xs))
	for _, x := range xs {
		counts[x]++
	}
	out := make([]int, 0, len(counts))
	for _, c := range counts {
		out = append(out, c)
	}
	return out
}
