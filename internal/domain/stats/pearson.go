package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Pearson returns the correlation coefficient of paired samples and its
// two-sided p-value. Samples must have equal length; pairs containing NaN
// are dropped. Two pairs give r = ±1 with p = 1.
func Pearson(x, y []float64) (TestResult, bool) {
	if len(x) != len(y) {
		return nanResult(), false
	}
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	n := len(xs)
	if n < 2 {
		return nanResult(), true
	}

	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return nanResult(), true
	}
	r = math.Max(-1, math.Min(1, r))
	if n == 2 {
		return TestResult{Statistic: math.Copysign(1, r), PValue: 1}, true
	}
	if math.Abs(r) == 1 {
		return TestResult{Statistic: r, PValue: 0}, true
	}

	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return TestResult{Statistic: r, PValue: clamp01(2 * dist.Survival(math.Abs(t)))}, true
}
