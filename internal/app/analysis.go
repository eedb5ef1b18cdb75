package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/okian/glwatch/internal/adapters/repository"
	"github.com/okian/glwatch/internal/adapters/worker"
	"github.com/okian/glwatch/internal/domain/accountrow"
	"github.com/okian/glwatch/internal/domain/compare"
	"github.com/okian/glwatch/internal/domain/deviation"
	"github.com/okian/glwatch/internal/domain/ledger"
	"github.com/okian/glwatch/pkg/logger"
	"github.com/okian/glwatch/pkg/metrics"
)

// Reasons an account is left out of an analysis.
const (
	SkipEmpty            = "empty"
	SkipInsufficientData = "insufficient_data"
	SkipError            = "error"
)

// Analysis is the comparison table for one period granularity.
type Analysis struct {
	Period  ledger.Granularity `json:"period"`
	Table   accountrow.Table   `json:"-"`
	Summary repository.Summary `json:"summary"`
}

// RunResult is a persisted (or, without a store, transient) watchlist run.
type RunResult struct {
	Run   repository.Run   `json:"run"`
	Rows  []deviation.Row  `json:"rows"`
	Table accountrow.Table `json:"-"`
}

type accountOutcome struct {
	row  accountrow.Row
	skip string
}

// Analyze compares every account's prior and current year at period
// granularity. Accounts are compared concurrently and the table is ordered
// by account code. A failing account is skipped, never fatal.
func (s *Service) Analyze(ctx context.Context, pairs []ledger.Pair, period ledger.Granularity) (Analysis, error) {
	start := time.Now()
	pool, err := s.workerPool()
	if err != nil {
		return Analysis{}, err
	}
	agg, err := ledger.NewAggregator(period, ledger.WithMetrics(s.metrics), ledger.WithLocation(s.location))
	if err != nil {
		return Analysis{}, err
	}

	ordered := slices.Clone(pairs)
	slices.SortStableFunc(ordered, func(a, b ledger.Pair) int { return cmp.Compare(a.Code, b.Code) })

	results, err := worker.Map(ctx, pool, len(ordered), func(_ context.Context, i int) (accountOutcome, error) {
		return compareAccount(agg, ordered[i]), nil
	})
	if err != nil {
		metrics.RecordRun("analyze", "canceled")
		return Analysis{}, fmt.Errorf("analyze %s: %w", period, err)
	}

	summary := repository.Summary{SkipReasons: make(map[string]int)}
	rows := make([]accountrow.Row, 0, len(ordered))
	for _, r := range results {
		reason := r.Value.skip
		if r.Err != nil {
			reason = SkipError
			s.logger.Warn(ctx, "account comparison failed",
				logger.String("account", ordered[r.Index].Code),
				logger.Error(r.Err),
			)
		}
		if reason != "" {
			summary.Skipped++
			summary.SkipReasons[reason]++
			metrics.RecordAccountSkipped(reason)
			continue
		}
		summary.Processed++
		metrics.RecordAccountProcessed(string(period))
		rows = append(rows, r.Value.row)
	}

	elapsed := time.Since(start)
	metrics.RecordRunDuration("analyze", float64(elapsed.Milliseconds()))
	metrics.RecordRun("analyze", "ok")
	s.logger.Info(ctx, "analysis complete",
		logger.String("period", string(period)),
		logger.Int("processed", summary.Processed),
		logger.Int("skipped", summary.Skipped),
		logger.Duration("elapsed", elapsed),
	)

	return Analysis{
		Period:  period,
		Table:   accountrow.NewTable(rows, agg.Metrics()),
		Summary: summary,
	}, nil
}

// AnalyzeAll runs Analyze once per granularity, in the given order.
func (s *Service) AnalyzeAll(ctx context.Context, pairs []ledger.Pair, periods []ledger.Granularity) ([]Analysis, error) {
	out := make([]Analysis, 0, len(periods))
	for _, p := range periods {
		a, err := s.Analyze(ctx, pairs, p)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func compareAccount(agg *ledger.Aggregator, p ledger.Pair) accountOutcome {
	start := time.Now()
	defer func() {
		metrics.RecordCompareLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	prior := agg.Aggregate(p.Prior)
	current := agg.Aggregate(p.Current)
	if prior.Empty() && current.Empty() {
		return accountOutcome{skip: SkipEmpty}
	}
	res := compare.Compare(prior, current, agg.Metrics())
	if res.Empty() {
		return accountOutcome{skip: SkipInsufficientData}
	}
	for _, m := range res.Order {
		metrics.RecordMetricCompared(m)
	}
	return accountOutcome{row: accountrow.Extract(p.Code, p.Name, res)}
}

// Watchlist scores a comparison table. A nil cfg uses the service default.
func (s *Service) Watchlist(ctx context.Context, table accountrow.Table, cfg *deviation.Config) ([]deviation.Row, error) {
	start := time.Now()
	c := s.DeviationConfig()
	if cfg != nil {
		c = *cfg
	}
	engine, err := deviation.NewEngine(c)
	if err != nil {
		metrics.RecordRun("watchlist", "invalid_config")
		return nil, err
	}
	rows, err := engine.Build(ctx, table)
	if err != nil {
		metrics.RecordRun("watchlist", "failed")
		return nil, err
	}

	tiers := countTiers(rows)
	for _, t := range []deviation.Tier{deviation.Tier1, deviation.Tier2, deviation.Tier3} {
		metrics.UpdateWatchlistRows(string(t), tiers[string(t)])
	}
	metrics.RecordRunDuration("watchlist", float64(time.Since(start).Milliseconds()))
	metrics.RecordRun("watchlist", "ok")
	if s.logger != nil {
		s.logger.Info(ctx, "watchlist built",
			logger.Int("accounts", len(table.Rows)),
			logger.Int("flagged", len(rows)),
			logger.Int("tier1", tiers[string(deviation.Tier1)]),
		)
	}
	return rows, nil
}

// Run analyzes pairs, builds the watchlist and stores both when history is
// enabled.
func (s *Service) Run(ctx context.Context, pairs []ledger.Pair, period ledger.Granularity, cfg *deviation.Config) (RunResult, error) {
	analysis, err := s.Analyze(ctx, pairs, period)
	if err != nil {
		return RunResult{}, err
	}
	c := s.DeviationConfig()
	if cfg != nil {
		c = cfg.Clone()
	}
	rows, err := s.runWatchlist(ctx, analysis, c)
	if err != nil {
		return RunResult{}, err
	}

	summary := analysis.Summary
	summary.Tiers = countTiers(rows)
	run := repository.Run{
		CreatedAt: time.Now().UTC(),
		Period:    string(period),
		Config:    c.ToFlat(),
		Summary:   summary,
	}
	if s.store != nil {
		run, err = s.store.SaveRun(ctx, run, rows)
		if err != nil {
			metrics.RecordErrorByComponent("service", "save_run")
			return RunResult{}, err
		}
		s.logger.Info(ctx, "run saved", logger.String("id", run.ID), logger.Int("rows", len(rows)))
	}
	return RunResult{Run: run, Rows: rows, Table: analysis.Table}, nil
}

// runWatchlist scores the analysis. When every account was skipped there is
// nothing to score: the watchlist is empty and the summary carries the skips.
func (s *Service) runWatchlist(ctx context.Context, analysis Analysis, c deviation.Config) ([]deviation.Row, error) {
	if len(analysis.Table.Rows) > 0 {
		return s.Watchlist(ctx, analysis.Table, &c)
	}
	if _, err := deviation.NewEngine(c); err != nil {
		metrics.RecordRun("watchlist", "invalid_config")
		return nil, err
	}
	for _, t := range []deviation.Tier{deviation.Tier1, deviation.Tier2, deviation.Tier3} {
		metrics.UpdateWatchlistRows(string(t), 0)
	}
	metrics.RecordRun("watchlist", "ok")
	s.logger.Info(ctx, "no accounts to score",
		logger.String("period", string(analysis.Period)),
		logger.Int("skipped", analysis.Summary.Skipped),
	)
	return []deviation.Row{}, nil
}

// ListRuns returns the newest stored runs first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]repository.Run, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.ListRuns(ctx, limit)
}

// GetRun returns a stored run and its watchlist.
func (s *Service) GetRun(ctx context.Context, id string) (repository.Run, []deviation.Row, error) {
	if s.store == nil {
		return repository.Run{}, nil, ErrNoStore
	}
	return s.store.GetRun(ctx, id)
}

func countTiers(rows []deviation.Row) map[string]int {
	out := make(map[string]int, 3)
	for _, r := range rows {
		out[string(r.Tier)]++
	}
	return out
}
