// Package ledger turns one account's transactions for one year into
// period totals per metric.
package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cast"
)

// DefaultMetrics are the transaction columns compared year over year.
var DefaultMetrics = []string{"Debit", "Credit", "Running Balance", "GST"}

// Transaction is one ledger line. Values holds every raw cell keyed by
// column name; metric cells are coerced to numbers during aggregation.
type Transaction struct {
	Date   string
	Values map[string]any
}

// UnmarshalJSON reads a flat JSON object whose "Date" key holds the date.
func (t *Transaction) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t.Values = raw
	t.Date = ""
	if d, ok := raw["Date"]; ok && d != nil {
		t.Date = cast.ToString(d)
	}
	return nil
}

// MarshalJSON writes the transaction as one flat object.
func (t Transaction) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Values)+1)
	for k, v := range t.Values {
		out[k] = v
	}
	out["Date"] = t.Date
	return json.Marshal(out)
}

// Pair holds both years of one account. Either side may be empty.
type Pair struct {
	Code    string
	Name    string
	Prior   []Transaction
	Current []Transaction
}

// Aggregation holds chronologically ordered period totals.
type Aggregation struct {
	Periods []string
	Series  map[string][]float64
}

// Values returns the totals for metric, or nil if it was not aggregated.
func (a Aggregation) Values(metric string) []float64 {
	return a.Series[metric]
}

// Empty reports whether no transaction survived date parsing.
func (a Aggregation) Empty() bool {
	return len(a.Periods) == 0
}

// Aggregator buckets transactions by a fixed granularity.
type Aggregator struct {
	granularity Granularity
	metrics     []string
	loc         *time.Location
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithMetrics overrides the metric columns to aggregate.
func WithMetrics(metrics []string) Option {
	return func(a *Aggregator) {
		if len(metrics) > 0 {
			a.metrics = append([]string(nil), metrics...)
		}
	}
}

// WithLocation sets the zone naive dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// NewAggregator validates g and returns an aggregator for it.
func NewAggregator(g Granularity, opts ...Option) (*Aggregator, error) {
	if _, err := ParseGranularity(string(g)); err != nil {
		return nil, err
	}
	a := &Aggregator{
		granularity: g,
		metrics:     append([]string(nil), DefaultMetrics...),
		loc:         time.UTC,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Granularity returns the configured granularity.
func (a *Aggregator) Granularity() Granularity { return a.granularity }

// Metrics returns the aggregated metric columns.
func (a *Aggregator) Metrics() []string { return append([]string(nil), a.metrics...) }

// Aggregate sums each metric per period. Rows with unparsable dates are
// dropped; unparsable values are treated as missing and skipped.
func (a *Aggregator) Aggregate(txs []Transaction) Aggregation {
	sums := make(map[string]map[string]float64)
	for _, tx := range txs {
		t, err := ParseDate(tx.Date, a.loc)
		if err != nil {
			continue
		}
		key := a.granularity.periodKey(t)
		bucket, ok := sums[key]
		if !ok {
			bucket = make(map[string]float64, len(a.metrics))
			sums[key] = bucket
		}
		for _, m := range a.metrics {
			if v := ToNumber(tx.Values[m]); !math.IsNaN(v) {
				bucket[m] += v
			}
		}
	}

	periods := make([]string, 0, len(sums))
	for k := range sums {
		periods = append(periods, k)
	}
	sort.Strings(periods)

	out := Aggregation{Periods: periods, Series: make(map[string][]float64, len(a.metrics))}
	for _, m := range a.metrics {
		vals := make([]float64, len(periods))
		for i, p := range periods {
			vals[i] = sums[p][m]
		}
		out.Series[m] = vals
	}
	return out
}

// ParseDate parses a ledger date leniently. Ambiguous numeric dates are read
// day first, so 03/04/2024 is the 3rd of April; a date that only makes sense
// month first, such as 12/31/2023, is read that way.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidDate)
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := dateparse.ParseIn(s, loc, dateparse.PreferMonthFirst(false))
	if err != nil {
		t, err = dateparse.ParseIn(s, loc)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidDate, s, err)
	}
	return t, nil
}

// ToNumber coerces a raw cell to float64. Blank or unparsable cells are NaN.
func ToNumber(v any) float64 {
	switch x := v.(type) {
	case nil:
		return math.NaN()
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return math.NaN()
		}
		v = s
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return math.NaN()
	}
	return f
}
