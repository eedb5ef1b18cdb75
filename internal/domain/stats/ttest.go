package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TestResult is a test statistic with its two-sided p-value.
type TestResult struct {
	Statistic float64
	PValue    float64
}

// Significant reports whether the p-value is below Alpha.
func (r TestResult) Significant() bool {
	return !math.IsNaN(r.PValue) && r.PValue < Alpha
}

func nanResult() TestResult {
	return TestResult{Statistic: math.NaN(), PValue: math.NaN()}
}

// TTest runs Student's two-sample t-test with pooled variance. The statistic
// is positive when a has the larger mean.
func TTest(a, b []float64) TestResult {
	a, b = finite(a), finite(b)
	n1, n2 := float64(len(a)), float64(len(b))
	if n1 < 2 || n2 < 2 {
		return nanResult()
	}

	m1, v1 := stat.MeanVariance(a, nil)
	m2, v2 := stat.MeanVariance(b, nil)
	df := n1 + n2 - 2
	pooled := ((n1-1)*v1 + (n2-1)*v2) / df
	se := math.Sqrt(pooled * (1/n1 + 1/n2))
	if se == 0 {
		return nanResult()
	}

	t := (m1 - m2) / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return TestResult{Statistic: t, PValue: clamp01(2 * dist.Survival(math.Abs(t)))}
}

func clamp01(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return p
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
