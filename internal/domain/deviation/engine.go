// Package deviation scores per-account comparison rows into a tiered
// watchlist with trigger lists, numeric evidence and a plain-language
// interpretation.
package deviation

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/okian/glwatch/internal/domain/accountrow"
)

// Output column names.
const (
	ColTier           = "Tier"
	ColKeyMetrics     = "Key Metrics Triggered"
	ColMetricValues   = "Metric Values"
	ColInterpretation = "Accounting Interpretation"
	ColScore          = "Score"
	ColDominantMetric = "Dominant Metric"
)

// OutputColumns is the watchlist column order.
var OutputColumns = []string{
	ColTier,
	accountrow.ColAccountCode,
	accountrow.ColAccountName,
	ColKeyMetrics,
	ColMetricValues,
	ColInterpretation,
	ColScore,
	ColDominantMetric,
}

// Row is one watchlist entry.
type Row struct {
	Tier           Tier      `json:"tier"`
	AccountCode    string    `json:"account_code"`
	AccountName    string    `json:"account_name"`
	Triggers       []Trigger `json:"triggers"`
	KeyMetrics     string    `json:"key_metrics_triggered"`
	MetricValues   string    `json:"metric_values"`
	Interpretation string    `json:"accounting_interpretation"`
	Score          int       `json:"score"`
	DominantMetric string    `json:"dominant_metric"`
}

// Record renders the row in OutputColumns order.
func (r Row) Record() []string {
	return []string{
		string(r.Tier),
		r.AccountCode,
		r.AccountName,
		r.KeyMetrics,
		r.MetricValues,
		r.Interpretation,
		fmt.Sprint(r.Score),
		r.DominantMetric,
	}
}

// Builder turns a comparison table into a watchlist.
type Builder interface {
	// Build scores every row, honoring ctx for cancellation.
	Build(ctx context.Context, table accountrow.Table) ([]Row, error)
}

// Engine scores against a private snapshot of its config.
type Engine struct {
	cfg Config
}

var _ Builder = (*Engine)(nil)

// NewEngine validates cfg and snapshots it. Later edits to cfg are not seen.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg.Clone()}, nil
}

// Config returns a copy of the engine's config.
func (e *Engine) Config() Config {
	return e.cfg.Clone()
}

// ValidateTable lists every problem with an input table. An empty result
// means the table can be scored.
func ValidateTable(table accountrow.Table) []string {
	if len(table.Rows) == 0 || len(table.Columns) == 0 {
		return []string{"CSV looks empty."}
	}
	var issues []string
	for _, col := range []string{accountrow.ColAccountCode, accountrow.ColAccountName} {
		if !table.HasColumn(col) {
			issues = append(issues, "Missing required column: "+col)
		}
	}
	if len(table.Metrics()) == 0 {
		issues = append(issues, "No '<Metric>_CY_Mean' columns found. Input doesn't look like a comparison results table.")
	}
	return issues
}

// Build scores, tiers and sorts the table. Accounts that do not qualify are
// absent from the result.
func (e *Engine) Build(ctx context.Context, table accountrow.Table) ([]Row, error) {
	for _, col := range []string{accountrow.ColAccountCode, accountrow.ColAccountName} {
		if !table.HasColumn(col) {
			return nil, fmt.Errorf("%w: expected column %q", ErrMissingColumns, col)
		}
	}
	metrics := table.Metrics()
	if len(metrics) == 0 {
		return nil, fmt.Errorf("%w: no '<Metric>_CY_Mean' columns detected", ErrMissingColumns)
	}

	mat := RankMateriality(table.Rows, metrics)

	out := make([]Row, 0, len(table.Rows))
	for i, r := range table.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if row, ok := e.scoreAccount(r, i, metrics, mat); ok {
			out = append(out, row)
		}
	}

	sortRows(out)
	capTier1(out, e.cfg.Tiers.MaxTier1)
	return out, nil
}

func (e *Engine) scoreAccount(r accountrow.Row, i int, metrics []string, mat Materiality) (Row, bool) {
	var scored []metricScore
	maxMeanPct := math.NaN()
	for _, m := range metrics {
		s := readSignals(r, m)
		s.meanPct = mat.MeanPct(m, i)
		s.stdPct = mat.StdPct(m, i)
		ms, ok := scoreMetric(e.cfg, m, s)
		if !ok {
			continue
		}
		scored = append(scored, ms)
		if !math.IsNaN(s.meanPct) && (math.IsNaN(maxMeanPct) || s.meanPct > maxMeanPct) {
			maxMeanPct = s.meanPct
		}
	}
	if len(scored) == 0 {
		return Row{}, false
	}

	var all []Trigger
	for _, ms := range scored {
		all = append(all, ms.triggers...)
	}
	all = dedupe(all)

	total := accountScore(scored)
	tier, ok := assignTier(e.cfg.Tiers, all, total, maxMeanPct)
	if !ok {
		return Row{}, false
	}

	dominant := scored[0]
	for _, ms := range scored[1:] {
		if ms.score > dominant.score {
			dominant = ms
		}
	}

	ordered := orderTriggers(all)
	key := ordered
	if len(key) > maxKeyTriggers {
		key = key[:maxKeyTriggers]
	}

	byScore := slices.Clone(scored)
	slices.SortStableFunc(byScore, func(a, b metricScore) int { return b.score - a.score })

	return Row{
		Tier:           tier,
		AccountCode:    r.Code,
		AccountName:    r.Name,
		Triggers:       ordered,
		KeyMetrics:     joinTriggers(key),
		MetricValues:   metricValues(byScore),
		Interpretation: Interpret(r.Name, dominant.metric, ordered, e.cfg.Language),
		Score:          total,
		DominantMetric: dominant.metric,
	}, true
}

// orderTriggers sorts fired triggers by headline priority.
func orderTriggers(fired []Trigger) []Trigger {
	out := make([]Trigger, 0, len(fired))
	for _, p := range triggerPriority {
		if slices.Contains(fired, p) {
			out = append(out, p)
		}
	}
	for _, t := range fired {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func joinTriggers(ts []Trigger) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
