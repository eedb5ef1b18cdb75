package stats

import (
	"math"
	"slices"
)

// exactKSMaxTotal bounds the combined sample size for exact lattice-path
// counting; path totals beyond it overflow float64.
const exactKSMaxTotal = 1000

// KolmogorovSmirnov runs the two-sided two-sample KS test. The statistic is
// the largest gap between the empirical distribution functions.
func KolmogorovSmirnov(a, b []float64) TestResult {
	a, b = finite(a), finite(b)
	n1, n2 := len(a), len(b)
	if n1 == 0 || n2 == 0 {
		return nanResult()
	}
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)

	d := ksStatistic(a, b)
	if n1+n2 <= exactKSMaxTotal {
		if p, ok := ksExactSF(n1, n2, d); ok {
			return TestResult{Statistic: d, PValue: p}
		}
	}

	en := float64(n1) * float64(n2) / float64(n1+n2)
	return TestResult{Statistic: d, PValue: clamp01(kolmogorovSF(math.Sqrt(en) * d))}
}

func ksStatistic(a, b []float64) float64 {
	var i, j int
	var d float64
	n1, n2 := float64(len(a)), float64(len(b))
	for i < len(a) && j < len(b) {
		x := math.Min(a[i], b[j])
		for i < len(a) && a[i] <= x {
			i++
		}
		for j < len(b) && b[j] <= x {
			j++
		}
		d = math.Max(d, math.Abs(float64(i)/n1-float64(j)/n2))
	}
	return d
}

// ksExactSF returns P(D >= d) by counting monotone lattice paths from (0,0)
// to (n1,n2) that never reach the band |i/n1 - j/n2| >= d.
func ksExactSF(n1, n2 int, d float64) (float64, bool) {
	g := gcd(n1, n2)
	lcm := (n1 / g) * n2
	h := int(math.Round(d * float64(lcm)))
	if h == 0 {
		return 1, true
	}
	step1, step2 := lcm/n1, lcm/n2

	inside := func(i, j int) bool {
		diff := i*step1 - j*step2
		if diff < 0 {
			diff = -diff
		}
		return diff < h
	}

	row := make([]float64, n2+1)
	for j := 0; j <= n2; j++ {
		if inside(0, j) && (j == 0 || row[j-1] > 0) {
			row[j] = 1
		}
	}
	for i := 1; i <= n1; i++ {
		if !inside(i, 0) {
			row[0] = 0
		}
		for j := 1; j <= n2; j++ {
			if inside(i, j) {
				row[j] += row[j-1]
			} else {
				row[j] = 0
			}
		}
	}

	total := binomial(n1+n2, n1)
	if math.IsInf(total, 0) || math.IsNaN(total) {
		return 0, false
	}
	return clamp01(1 - row[n2]/total), true
}

// kolmogorovSF is the survival function of the limiting Kolmogorov
// distribution.
func kolmogorovSF(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return math.NaN()
	case x <= 0:
		return 1
	case x < 1:
		// small-x form converges faster
		var s float64
		for k := 1; k <= 20; k++ {
			odd := float64(2*k - 1)
			s += math.Exp(-odd * odd * math.Pi * math.Pi / (8 * x * x))
		}
		return 1 - math.Sqrt(2*math.Pi)/x*s
	}
	var s float64
	for k := 1; k <= 100; k++ {
		term := math.Exp(-2 * float64(k*k) * x * x)
		if k%2 == 0 {
			s -= term
		} else {
			s += term
		}
		if term < 1e-16 {
			break
		}
	}
	return 2 * s
}

func binomial(n, k int) float64 {
	lg, _ := math.Lgamma(float64(n + 1))
	lk, _ := math.Lgamma(float64(k + 1))
	lnk, _ := math.Lgamma(float64(n - k + 1))
	return math.Round(math.Exp(lg - lk - lnk))
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
