package deviation

import (
	"math"

	"github.com/okian/glwatch/internal/domain/accountrow"
	"github.com/okian/glwatch/internal/domain/stats"
)

// Materiality holds per-metric percentile ranks for a batch, indexed by row.
type Materiality struct {
	mean map[string][]float64
	std  map[string][]float64
}

// RankMateriality ranks abs(<M>_CY_Mean) and abs(<M>_CY_Std) across all rows.
// Ranks lie in (0, 1]; missing or infinite inputs rank NaN.
func RankMateriality(rows []accountrow.Row, metrics []string) Materiality {
	m := Materiality{
		mean: make(map[string][]float64, len(metrics)),
		std:  make(map[string][]float64, len(metrics)),
	}
	for _, metric := range metrics {
		m.mean[metric] = percentileAbs(rows, metric+"_CY_Mean")
		m.std[metric] = percentileAbs(rows, metric+"_CY_Std")
	}
	return m
}

// MeanPct returns the mean percentile of row i, or NaN.
func (m Materiality) MeanPct(metric string, i int) float64 {
	return at(m.mean[metric], i)
}

// StdPct returns the std percentile of row i, or NaN.
func (m Materiality) StdPct(metric string, i int) float64 {
	return at(m.std[metric], i)
}

func at(xs []float64, i int) float64 {
	if i < 0 || i >= len(xs) {
		return math.NaN()
	}
	return xs[i]
}

func percentileAbs(rows []accountrow.Row, column string) []float64 {
	vals := make([]float64, len(rows))
	valid := 0
	for i, r := range rows {
		vals[i] = math.Abs(r.Float(column))
		if !math.IsNaN(vals[i]) {
			valid++
		}
	}
	ranks := stats.Rank(vals)
	for i := range ranks {
		ranks[i] /= float64(valid)
	}
	return ranks
}

// passes reports p >= threshold; NaN never passes.
func passes(p, threshold float64) bool {
	return !math.IsNaN(p) && p >= threshold
}
