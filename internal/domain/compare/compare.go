// Package compare contrasts two years of period totals for one account.
package compare

import (
	"math"

	"github.com/okian/glwatch/internal/domain/ledger"
	"github.com/okian/glwatch/internal/domain/stats"
)

// Result is the comparison of every eligible metric for one account.
// Metrics that fail the distinct-value gate are absent from Metrics.
type Result struct {
	Prior   ledger.Aggregation
	Current ledger.Aggregation
	Metrics map[string]MetricComparison
	Order   []string
}

// Empty reports whether no metric could be compared.
func (r Result) Empty() bool { return len(r.Order) == 0 }

// MetricComparison holds the year-over-year evidence for one metric.
type MetricComparison struct {
	Prior   stats.Summary
	Current stats.Summary

	MeanDiff   float64
	StdDiff    float64
	MinDiff    float64
	MaxDiff    float64
	Q1Diff     float64
	MedianDiff float64
	Q3Diff     float64

	TTest       stats.TestResult
	MannWhitney stats.TestResult
	ANOVA       stats.TestResult
	KS          stats.TestResult

	CohensD    float64
	EffectSize EffectSize

	HasCorrelation      bool
	Correlation         stats.TestResult
	CorrelationStrength CorrelationStrength
}

// Compare runs every test for each metric on prior and current totals.
// A metric is compared only when both years have more than one distinct
// value. Metric order follows metrics.
func Compare(prior, current ledger.Aggregation, metrics []string) Result {
	res := Result{Prior: prior, Current: current, Metrics: make(map[string]MetricComparison)}
	if prior.Empty() || current.Empty() {
		return res
	}
	for _, m := range metrics {
		ly, cy := prior.Values(m), current.Values(m)
		if ly == nil || cy == nil {
			continue
		}
		if stats.Distinct(ly) <= 1 || stats.Distinct(cy) <= 1 {
			continue
		}
		res.Metrics[m] = compareMetric(ly, cy)
		res.Order = append(res.Order, m)
	}
	return res
}

func compareMetric(ly, cy []float64) MetricComparison {
	p, c := stats.Describe(ly), stats.Describe(cy)
	mc := MetricComparison{
		Prior:      p,
		Current:    c,
		MeanDiff:   c.Mean - p.Mean,
		StdDiff:    c.Std - p.Std,
		MinDiff:    c.Min - p.Min,
		MaxDiff:    c.Max - p.Max,
		Q1Diff:     c.Q1 - p.Q1,
		MedianDiff: c.Median - p.Median,
		Q3Diff:     c.Q3 - p.Q3,

		TTest:       stats.TTest(ly, cy),
		MannWhitney: stats.MannWhitneyU(ly, cy),
		ANOVA:       stats.OneWayANOVA(ly, cy),
		KS:          stats.KolmogorovSmirnov(ly, cy),
	}

	if r, ok := stats.Pearson(ly, cy); ok {
		mc.HasCorrelation = true
		mc.Correlation = r
		mc.CorrelationStrength = ClassifyCorrelation(r.Statistic)
	}

	pooled := math.Sqrt((p.Std*p.Std + c.Std*c.Std) / 2)
	if pooled == 0 || math.IsNaN(pooled) {
		mc.CohensD = math.NaN()
		mc.EffectSize = EffectNone
	} else {
		mc.CohensD = mc.MeanDiff / pooled
		mc.EffectSize = ClassifyEffect(mc.CohensD)
	}
	return mc
}
