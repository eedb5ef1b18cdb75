package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// OneWayANOVA computes the F statistic for equal group means.
func OneWayANOVA(groups ...[]float64) TestResult {
	var (
		all   []float64
		clean = make([][]float64, 0, len(groups))
	)
	for _, g := range groups {
		g = finite(g)
		if len(g) == 0 {
			return nanResult()
		}
		clean = append(clean, g)
		all = append(all, g...)
	}
	k := float64(len(clean))
	n := float64(len(all))
	if k < 2 || n <= k {
		return nanResult()
	}

	grand := stat.Mean(all, nil)
	var between, within float64
	for _, g := range clean {
		m := stat.Mean(g, nil)
		between += float64(len(g)) * (m - grand) * (m - grand)
		for _, x := range g {
			within += (x - m) * (x - m)
		}
	}

	dfb, dfw := k-1, n-k
	if within == 0 {
		if between == 0 {
			return nanResult()
		}
		return TestResult{Statistic: math.Inf(1), PValue: 0}
	}

	f := (between / dfb) / (within / dfw)
	dist := distuv.F{D1: dfb, D2: dfw}
	return TestResult{Statistic: f, PValue: clamp01(dist.Survival(f))}
}
