package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/glwatch/internal/domain/deviation"
	"github.com/okian/glwatch/internal/domain/ledger"
)

const (
	envPrefix     = "GLWATCH_"
	envConfigPath = envPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if GLWATCH_CONFIG is set
//  3. env (prefix GLWATCH_)
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, "")
}

// LoadFile is Load with an explicit config file. An empty path falls back
// to GLWATCH_CONFIG.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// GLWATCH_WORKER_COUNT -> worker_count. Keys stay flat so underscores
	// match the koanf tags. GLWATCH_METRICS is a comma separated list.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if key == "config" {
			return "", nil
		}
		if key == "metrics" {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if k.Exists("metrics") {
		cfg.Metrics = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.MaxRequestBytes <= 0:
		return fmt.Errorf("%w: max_request_bytes must be positive, got %d", ErrInvalidConfig, c.MaxRequestBytes)
	case c.MaxListLimit <= 0:
		return fmt.Errorf("%w: max_list_limit must be positive, got %d", ErrInvalidConfig, c.MaxListLimit)
	case len(c.Metrics) == 0:
		return fmt.Errorf("%w: metrics must not be empty", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if _, err := c.Periods(); err != nil {
		return fmt.Errorf("%w: period: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: timezone: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Periods parses the configured granularity list.
func (c *Config) Periods() ([]ledger.Granularity, error) {
	return ledger.ParseGranularities(c.Period)
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Deviation returns the watchlist settings: defaults, overlaid by the file
// named in deviation_config when set.
func (c *Config) Deviation() (deviation.Config, error) {
	if c.DeviationConfig == "" {
		return deviation.DefaultConfig(), nil
	}
	cfg, err := deviation.LoadFile(c.DeviationConfig)
	if err != nil {
		return deviation.Config{}, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
