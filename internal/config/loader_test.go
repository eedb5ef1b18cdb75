package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/glwatch/internal/config"
	"github.com/okian/glwatch/internal/domain/deviation"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New(ctx))
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("GLWATCH_ADDR", ":8080")
			_ = os.Setenv("GLWATCH_WORKER_COUNT", "16")
			_ = os.Setenv("GLWATCH_PERIOD", "monthly, quarterly")
			_ = os.Setenv("GLWATCH_METRICS", "Debit, Credit")
			_ = os.Setenv("GLWATCH_DB_PATH", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.Metrics, convey.ShouldResemble, []string{"Debit", "Credit"})
				convey.So(cfg.DBPath, convey.ShouldEqual, "")
				periods, err := cfg.Periods()
				convey.So(err, convey.ShouldBeNil)
				convey.So(periods, convey.ShouldHaveLength, 2)
			})
		})

		convey.Convey("When loading config from a YAML file", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
worker_count: 3
log_format: json
metrics:
  - Credit
`)
			_ = os.Setenv("GLWATCH_CONFIG", tmpFile)
			_ = os.Setenv("GLWATCH_WORKER_COUNT", "5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins over the file and defaults fill the rest", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 5)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.Metrics, convey.ShouldResemble, []string{"Credit"})
				convey.So(cfg.Period, convey.ShouldEqual, "monthly")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("GLWATCH_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the config file is not valid YAML", func() {
			_ = os.Setenv("GLWATCH_CONFIG", createTempConfigFile(t, "addr: [unclosed"))
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When loading config with invalid values", func() {
			cases := map[string]string{
				"GLWATCH_ADDR":         "",
				"GLWATCH_WORKER_COUNT": "0",
				"GLWATCH_PERIOD":       "daily",
				"GLWATCH_LOG_FORMAT":   "xml",
				"GLWATCH_LOG_LEVEL":    "loud",
				"GLWATCH_TIMEZONE":     "Mars/Olympus",
			}
			for key, value := range cases {
				clearConfigEnvVars()
				_ = os.Setenv(key, value)

				cfg, err := config.Load(ctx)

				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			}
			clearConfigEnvVars()
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("GLWATCH_WORKER_COUNT", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestConfigDeviation(t *testing.T) {
	convey.Convey("Given deviation settings", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When no file is named the defaults apply", func() {
			dc, err := cfg.Deviation()
			convey.So(err, convey.ShouldBeNil)
			convey.So(dc.ToFlat(), convey.ShouldResemble, deviation.DefaultConfig().ToFlat())
		})

		convey.Convey("When a file is named its keys are layered over the defaults", func() {
			cfg.DeviationConfig = createTempConfigFile(t, "tiers:\n  max_tier1: 3\n")
			dc, err := cfg.Deviation()
			convey.So(err, convey.ShouldBeNil)
			convey.So(dc.ToFlat()["tiers.max_tier1"], convey.ShouldEqual, 3)
		})

		convey.Convey("When the file is missing a load error is returned", func() {
			cfg.DeviationConfig = filepath.Join(t.TempDir(), "nope.yaml")
			_, err := cfg.Deviation()
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"GLWATCH_CONFIG",
		"GLWATCH_ADDR",
		"GLWATCH_LOG_LEVEL",
		"GLWATCH_LOG_FORMAT",
		"GLWATCH_PERIOD",
		"GLWATCH_TIMEZONE",
		"GLWATCH_WORKER_COUNT",
		"GLWATCH_METRICS",
		"GLWATCH_DB_PATH",
		"GLWATCH_DEVIATION_CONFIG",
		"GLWATCH_MAX_REQUEST_BYTES",
		"GLWATCH_MAX_LIST_LIMIT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "glwatch-config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigLoadFile(t *testing.T) {
	convey.Convey("Given an explicit config file", t, func() {
		clearConfigEnvVars()
		_ = os.Setenv("GLWATCH_CONFIG", filepath.Join(t.TempDir(), "ignored.yaml"))
		defer clearConfigEnvVars()
		path := createTempConfigFile(t, "period: quarterly\n")

		cfg, err := config.LoadFile(context.Background(), path)

		convey.Convey("Then it wins over GLWATCH_CONFIG", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Period, convey.ShouldEqual, "quarterly")
		})
	})
}
