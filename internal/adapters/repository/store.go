// Package repository persists analysis runs and their watchlists.
package repository

import (
	"context"
	"time"

	"github.com/okian/glwatch/internal/domain/deviation"
)

// Summary counts what a run did.
type Summary struct {
	Processed   int            `json:"processed"`
	Skipped     int            `json:"skipped"`
	SkipReasons map[string]int `json:"skip_reasons,omitempty"`
	Tiers       map[string]int `json:"tiers,omitempty"`
}

// Run is one persisted analysis.
type Run struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Period    string         `json:"period"`
	Config    map[string]any `json:"config"`
	Summary   Summary        `json:"summary"`
}

// Store provides read/write access to run history.
type Store interface {
	// Migrate creates the schema when missing.
	Migrate(ctx context.Context) error

	// SaveRun stores a run and its watchlist atomically. An empty ID or
	// CreatedAt is filled in and the stored run is returned.
	SaveRun(ctx context.Context, run Run, rows []deviation.Row) (Run, error)

	// GetRun returns a run and its watchlist in stored order.
	// Returns ErrNotFound if the run is unknown.
	GetRun(ctx context.Context, id string) (Run, []deviation.Row, error)

	// ListRuns returns the newest runs first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}
