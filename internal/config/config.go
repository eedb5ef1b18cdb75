// Package config defines process configuration and its loading.
//
// Settings are layered: defaults from New, an optional YAML file named by
// GLWATCH_CONFIG, then GLWATCH_ environment variables.
package config

import (
	"context"
	"runtime"

	"github.com/okian/glwatch/internal/domain/ledger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Period is the default comparison granularity list, e.g. "monthly,quarterly".
	Period string `koanf:"period"`

	// Timezone is the IANA zone ledger dates are read in.
	Timezone string `koanf:"timezone"`

	// WorkerCount sets the number of account comparison workers.
	WorkerCount int `koanf:"worker_count"`

	// Metrics lists the ledger columns that are aggregated.
	Metrics []string `koanf:"metrics"`

	// DBPath is the SQLite run history database. Empty disables history.
	DBPath string `koanf:"db_path"`

	// DeviationConfig is an optional YAML file with watchlist settings.
	DeviationConfig string `koanf:"deviation_config"`

	// MaxRequestBytes caps HTTP request bodies.
	MaxRequestBytes int64 `koanf:"max_request_bytes"`

	// MaxListLimit caps GET /api/v1/runs?limit.
	MaxListLimit int `koanf:"max_list_limit"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		Period:          string(ledger.Monthly),
		Timezone:        "UTC",
		WorkerCount:     runtime.NumCPU() * 2,
		Metrics:         append([]string(nil), ledger.DefaultMetrics...),
		DBPath:          "glwatch.db",
		MaxRequestBytes: 32 << 20,
		MaxListLimit:    100,
	}
}
