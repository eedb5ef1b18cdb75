package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/glwatch/internal/domain/deviation"
	"github.com/okian/glwatch/pkg/metrics"
)

const defaultMaxListLimit = 100

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	period     TEXT NOT NULL,
	config     TEXT NOT NULL,
	summary    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS watchlist_rows (
	run_id          TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	tier            TEXT    NOT NULL,
	account_code    TEXT    NOT NULL,
	account_name    TEXT    NOT NULL,
	triggers        TEXT    NOT NULL,
	key_metrics     TEXT    NOT NULL,
	metric_values   TEXT    NOT NULL,
	interpretation  TEXT    NOT NULL,
	score           INTEGER NOT NULL,
	dominant_metric TEXT    NOT NULL,
	PRIMARY KEY (run_id, position)
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at);
`

const (
	insertRunQuery = `INSERT INTO runs (id, created_at, period, config, summary) VALUES (?, ?, ?, ?, ?)`

	insertRowQuery = `INSERT INTO watchlist_rows (run_id, position, tier, account_code, account_name, triggers,
	key_metrics, metric_values, interpretation, score, dominant_metric) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectRunQuery = `SELECT id, created_at, period, config, summary FROM runs WHERE id = ?`

	selectRowsQuery = `SELECT tier, account_code, account_name, triggers, key_metrics, metric_values,
	interpretation, score, dominant_metric FROM watchlist_rows WHERE run_id = ? ORDER BY position`

	listRunsQuery = `SELECT id, created_at, period, config, summary FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`
)

// SQLStore implements Store on database/sql. Queries use "?" placeholders
// and run on SQLite.
type SQLStore struct {
	db           *sql.DB
	maxListLimit int
	now          func() time.Time
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an open database.
func NewSQLStore(db *sql.DB, opts ...Option) *SQLStore {
	s := &SQLStore{
		db:           db,
		maxListLimit: defaultMaxListLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the schema when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	defer observe("migrate", time.Now())
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		metrics.RecordErrorByComponent("repository", "migrate")
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SaveRun stores a run and its rows in one transaction.
func (s *SQLStore) SaveRun(ctx context.Context, run Run, rows []deviation.Row) (Run, error) {
	defer observe("save_run", time.Now())

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now()
	}
	run.CreatedAt = run.CreatedAt.UTC()

	cfg, err := json.Marshal(run.Config)
	if err != nil {
		return Run{}, fmt.Errorf("encode config: %w", err)
	}
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return Run{}, fmt.Errorf("encode summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "begin")
		return Run{}, fmt.Errorf("begin SaveRun: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertRunQuery,
		run.ID, run.CreatedAt.Format(time.RFC3339Nano), run.Period, string(cfg), string(summary)); err != nil {
		metrics.RecordErrorByComponent("repository", "insert_run")
		return Run{}, fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for i, r := range rows {
		triggers, err := json.Marshal(r.Triggers)
		if err != nil {
			return Run{}, fmt.Errorf("encode triggers: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertRowQuery,
			run.ID, i, string(r.Tier), r.AccountCode, r.AccountName, string(triggers),
			r.KeyMetrics, r.MetricValues, r.Interpretation, r.Score, r.DominantMetric); err != nil {
			metrics.RecordErrorByComponent("repository", "insert_row")
			return Run{}, fmt.Errorf("insert watchlist row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordErrorByComponent("repository", "commit")
		return Run{}, fmt.Errorf("commit SaveRun: %w", err)
	}
	return run, nil
}

// GetRun loads a run and its watchlist.
func (s *SQLStore) GetRun(ctx context.Context, id string) (Run, []deviation.Row, error) {
	defer observe("get_run", time.Now())

	run, err := scanRun(s.db.QueryRowContext(ctx, selectRunQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Run{}, nil, fmt.Errorf("query GetRun: %w", err)
	}

	rs, err := s.db.QueryContext(ctx, selectRowsQuery, id)
	if err != nil {
		return Run{}, nil, fmt.Errorf("query GetRun rows: %w", err)
	}
	defer rs.Close()

	var out []deviation.Row
	for rs.Next() {
		var (
			r        deviation.Row
			tier     string
			triggers string
		)
		if err := rs.Scan(&tier, &r.AccountCode, &r.AccountName, &triggers, &r.KeyMetrics,
			&r.MetricValues, &r.Interpretation, &r.Score, &r.DominantMetric); err != nil {
			return Run{}, nil, fmt.Errorf("scan watchlist row: %w", err)
		}
		r.Tier = deviation.Tier(tier)
		if err := json.Unmarshal([]byte(triggers), &r.Triggers); err != nil {
			return Run{}, nil, fmt.Errorf("decode triggers: %w", err)
		}
		out = append(out, r)
	}
	if err := rs.Err(); err != nil {
		return Run{}, nil, fmt.Errorf("iterate watchlist rows: %w", err)
	}
	return run, out, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *SQLStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	defer observe("list_runs", time.Now())

	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if limit > s.maxListLimit {
		limit = s.maxListLimit
	}

	rs, err := s.db.QueryContext(ctx, listRunsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("query ListRuns: %w", err)
	}
	defer rs.Close()

	runs := make([]Run, 0, limit)
	for rs.Next() {
		run, err := scanRun(rs)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run                      Run
		created, cfg, summaryRaw string
	)
	if err := sc.Scan(&run.ID, &created, &run.Period, &cfg, &summaryRaw); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	run.CreatedAt = t
	if err := json.Unmarshal([]byte(cfg), &run.Config); err != nil {
		return Run{}, fmt.Errorf("decode config: %w", err)
	}
	if err := json.Unmarshal([]byte(summaryRaw), &run.Summary); err != nil {
		return Run{}, fmt.Errorf("decode summary: %w", err)
	}
	return run, nil
}

func observe(operation string, start time.Time) {
	metrics.RecordRepositoryLatency(operation, float64(time.Since(start).Milliseconds()))
}
