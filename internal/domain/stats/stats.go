// Package stats holds the numerical routines behind the year-over-year
// comparison: descriptive summaries, two-sample hypothesis tests and ranks.
//
// Results follow the conventions of the usual scientific Python stack
// (sample standard deviation, linear quantile interpolation, two-sided
// p-values) so figures can be cross-checked against spreadsheets.
package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Alpha is the significance level used to flag test results.
const Alpha = 0.05

// Summary mirrors a describe() row for one series.
type Summary struct {
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// Describe summarises xs. NaN values are ignored; an empty input yields NaNs.
func Describe(xs []float64) Summary {
	vals := finite(xs)
	s := Summary{Count: len(vals)}
	if len(vals) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Q1, s.Median, s.Q3, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}

	sorted := slices.Clone(vals)
	slices.Sort(sorted)

	s.Mean = stat.Mean(vals, nil)
	s.Std = math.NaN()
	if len(vals) > 1 {
		s.Std = stat.StdDev(vals, nil)
	}
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q1 = quantileSorted(sorted, 0.25)
	s.Median = quantileSorted(sorted, 0.5)
	s.Q3 = quantileSorted(sorted, 0.75)
	return s
}

// Quantile returns the p-quantile of xs using linear interpolation between
// closest ranks.
func Quantile(xs []float64, p float64) float64 {
	vals := finite(xs)
	if len(vals) == 0 || p < 0 || p > 1 || math.IsNaN(p) {
		return math.NaN()
	}
	slices.Sort(vals)
	return quantileSorted(vals, p)
}

func quantileSorted(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// Distinct counts distinct non-NaN values.
func Distinct(xs []float64) int {
	seen := make(map[float64]struct{}, len(xs))
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		seen[x] = struct{}{}
	}
	return len(seen)
}

// finite returns a copy of xs without NaN values.
func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}
