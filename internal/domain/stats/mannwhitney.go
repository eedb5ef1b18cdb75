package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// exactMWUMaxSize is the largest sample for which the exact null
// distribution is used when the other sample is large.
const exactMWUMaxSize = 8

// MannWhitneyU runs the two-sided Mann-Whitney U test. The statistic is U for
// sample a. The exact null distribution is used when either sample has at
// most eight values and there are no ties; otherwise a normal approximation
// with tie and continuity correction.
func MannWhitneyU(a, b []float64) TestResult {
	a, b = finite(a), finite(b)
	n1, n2 := len(a), len(b)
	if n1 == 0 || n2 == 0 {
		return nanResult()
	}

	combined := make([]float64, 0, n1+n2)
	combined = append(combined, a...)
	combined = append(combined, b...)
	ranks := Rank(combined)

	var r1 float64
	for i := 0; i < n1; i++ {
		r1 += ranks[i]
	}
	fn1, fn2 := float64(n1), float64(n2)
	u1 := r1 - fn1*(fn1+1)/2
	u2 := fn1*fn2 - u1
	u := math.Max(u1, u2)

	ties := tieCounts(combined)
	hasTies := len(ties) < len(combined)

	var p float64
	if (n1 <= exactMWUMaxSize || n2 <= exactMWUMaxSize) && !hasTies {
		p = mwuExactSF(n1, n2, int(math.Round(u)))
	} else {
		p = mwuAsymptoticSF(fn1, fn2, u, ties)
	}
	return TestResult{Statistic: u1, PValue: clamp01(2 * p)}
}

// mwuExactSF returns P(U >= u) under the null for sample sizes n1, n2.
func mwuExactSF(n1, n2, u int) float64 {
	freq := mwuFrequencies(n1, n2)
	var total, tail float64
	for k, c := range freq {
		total += c
		if k >= u {
			tail += c
		}
	}
	return tail / total
}

// mwuFrequencies counts rank arrangements per U value. counts(m, n)[k] =
// counts(m-1, n)[k-n] + counts(m, n-1)[k].
func mwuFrequencies(n1, n2 int) []float64 {
	prev := make([][]float64, n2+1) // row m-1, indexed by n
	for n := 0; n <= n2; n++ {
		prev[n] = []float64{1}
	}
	for m := 1; m <= n1; m++ {
		cur := make([][]float64, n2+1)
		cur[0] = []float64{1}
		for n := 1; n <= n2; n++ {
			row := make([]float64, m*n+1)
			for k, c := range prev[n] {
				row[k+n] += c
			}
			for k, c := range cur[n-1] {
				row[k] += c
			}
			cur[n] = row
		}
		prev = cur
	}
	return prev[n2]
}

func mwuAsymptoticSF(n1, n2, u float64, ties []int) float64 {
	n := n1 + n2
	var tieTerm float64
	for _, t := range ties {
		ft := float64(t)
		tieTerm += ft*ft*ft - ft
	}
	s := math.Sqrt(n1 * n2 / 12 * ((n + 1) - tieTerm/(n*(n-1))))
	if s == 0 || math.IsNaN(s) {
		return math.NaN()
	}
	z := (u - n1*n2/2 - 0.5) / s
	return distuv.UnitNormal.Survival(z)
}
