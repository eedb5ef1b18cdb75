// Package accountrow flattens per-account comparisons into wide rows keyed by
// "<Metric>_<Statistic>" column names, the exchange format between the
// comparison and deviation stages.
package accountrow

import (
	"regexp"
	"sort"
	"strings"

	"github.com/okian/glwatch/internal/domain/compare"
)

// Identity columns present on every row.
const (
	ColAccountCode = "Account Code"
	ColAccountName = "Account Name"
)

// PreferredMetrics fixes the leading metric order; others follow alphabetically.
var PreferredMetrics = []string{"Credit", "Debit", "Running_Balance", "GST"}

var cyMeanColumn = regexp.MustCompile(`^(.*)_CY_Mean$`)

// Row is one account's flattened evidence. Values may hold float64, bool,
// string or nil; readers coerce leniently.
type Row struct {
	Code   string
	Name   string
	Values map[string]any
}

// Get returns the raw value stored under column.
func (r Row) Get(column string) any {
	switch column {
	case ColAccountCode:
		return r.Code
	case ColAccountName:
		return r.Name
	}
	return r.Values[column]
}

// Table is an ordered set of rows with a stable column order.
type Table struct {
	Columns []string
	Rows    []Row
}

// Metrics detects metric prefixes from "<Metric>_CY_Mean" columns.
func (t Table) Metrics() []string {
	return DetectMetrics(t.Columns)
}

// HasColumn reports whether column is part of the table.
func (t Table) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// DetectMetrics returns metric prefixes found in columns, ordered Credit,
// Debit, Running_Balance, GST, then alphabetically.
func DetectMetrics(columns []string) []string {
	seen := make(map[string]struct{})
	for _, c := range columns {
		if m := cyMeanColumn.FindStringSubmatch(c); m != nil {
			seen[m[1]] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	SortMetrics(out)
	return out
}

// SortMetrics orders metric prefixes in place.
func SortMetrics(metrics []string) {
	rank := func(m string) int {
		for i, p := range PreferredMetrics {
			if p == m {
				return i
			}
		}
		return len(PreferredMetrics)
	}
	sort.SliceStable(metrics, func(i, j int) bool {
		ri, rj := rank(metrics[i]), rank(metrics[j])
		if ri != rj {
			return ri < rj
		}
		return metrics[i] < metrics[j]
	})
}

// Prefix converts a ledger column name into a metric prefix.
func Prefix(metric string) string {
	return strings.ReplaceAll(metric, " ", "_")
}

// Extract flattens one comparison into a row. Only compared metrics
// contribute columns.
func Extract(code, name string, res compare.Result) Row {
	row := Row{Code: code, Name: name, Values: make(map[string]any)}
	for _, metric := range res.Order {
		mc := res.Metrics[metric]
		p := Prefix(metric)
		set := func(suffix string, v any) { row.Values[p+"_"+suffix] = v }

		set("LY_Mean", mc.Prior.Mean)
		set("LY_Std", mc.Prior.Std)
		set("LY_Min", mc.Prior.Min)
		set("LY_Max", mc.Prior.Max)
		set("LY_Median", mc.Prior.Median)
		set("CY_Mean", mc.Current.Mean)
		set("CY_Std", mc.Current.Std)
		set("CY_Min", mc.Current.Min)
		set("CY_Max", mc.Current.Max)
		set("CY_Median", mc.Current.Median)

		set("Mean_Diff", mc.MeanDiff)
		set("Std_Diff", mc.StdDiff)
		set("Min_Diff", mc.MinDiff)
		set("Max_Diff", mc.MaxDiff)
		set("Median_Diff", mc.MedianDiff)

		set("TTest_Statistic", mc.TTest.Statistic)
		set("TTest_PValue", mc.TTest.PValue)
		set("TTest_Significant", mc.TTest.Significant())
		set("MannWhitney_Statistic", mc.MannWhitney.Statistic)
		set("MannWhitney_PValue", mc.MannWhitney.PValue)
		set("MannWhitney_Significant", mc.MannWhitney.Significant())
		set("ANOVA_FStatistic", mc.ANOVA.Statistic)
		set("ANOVA_PValue", mc.ANOVA.PValue)
		set("ANOVA_Significant", mc.ANOVA.Significant())
		set("KS_Statistic", mc.KS.Statistic)
		set("KS_PValue", mc.KS.PValue)
		set("KS_Significant", mc.KS.Significant())

		set("Cohens_D", mc.CohensD)
		set("Effect_Size", string(mc.EffectSize))

		if mc.HasCorrelation {
			set("Correlation", mc.Correlation.Statistic)
			set("Correlation_PValue", mc.Correlation.PValue)
			set("Correlation_Significant", mc.Correlation.Significant())
			set("Correlation_Strength", string(mc.CorrelationStrength))
		} else {
			set("Correlation", nil)
			set("Correlation_PValue", nil)
			set("Correlation_Significant", nil)
			set("Correlation_Strength", nil)
		}
	}
	return row
}

// StatisticSuffixes lists per-metric columns in output order.
var StatisticSuffixes = []string{
	"LY_Mean", "LY_Std", "LY_Min", "LY_Max", "LY_Median",
	"CY_Mean", "CY_Std", "CY_Min", "CY_Max", "CY_Median",
	"Mean_Diff", "Std_Diff", "Min_Diff", "Max_Diff", "Median_Diff",
	"TTest_Statistic", "TTest_PValue", "TTest_Significant",
	"MannWhitney_Statistic", "MannWhitney_PValue", "MannWhitney_Significant",
	"ANOVA_FStatistic", "ANOVA_PValue", "ANOVA_Significant",
	"KS_Statistic", "KS_PValue", "KS_Significant",
	"Cohens_D", "Effect_Size",
	"Correlation", "Correlation_PValue", "Correlation_Significant", "Correlation_Strength",
}

// NewTable assembles rows into a table. Columns are the identity columns
// followed by each configured metric's statistics, in metricOrder, for every
// metric that appears on at least one row.
func NewTable(rows []Row, metricOrder []string) Table {
	present := make(map[string]bool)
	for _, r := range rows {
		for col := range r.Values {
			if m := cyMeanColumn.FindStringSubmatch(col); m != nil {
				present[m[1]] = true
			}
		}
	}
	cols := []string{ColAccountCode, ColAccountName}
	for _, metric := range metricOrder {
		p := Prefix(metric)
		if !present[p] {
			continue
		}
		for _, s := range StatisticSuffixes {
			cols = append(cols, p+"_"+s)
		}
	}
	return Table{Columns: cols, Rows: rows}
}
