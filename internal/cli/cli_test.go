package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/glwatch/internal/adapters/repository"
	"github.com/okian/glwatch/internal/adapters/tabular"
	"github.com/okian/glwatch/internal/cli"
	"github.com/okian/glwatch/internal/config"
	"github.com/okian/glwatch/internal/domain/deviation"
	. "github.com/smartystreets/goconvey/convey"
)

// execute runs the command tree without a dotenv file and returns stdout.
func execute(ctx context.Context, args ...string) (string, error) {
	var out, errOut bytes.Buffer
	cmd := cli.NewRootCmd()
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

// fixture generates a ledger pair and a config file pointing history at dir.
func fixture(t *testing.T) (dir, prior, current, cfgPath string) {
	dir = t.TempDir()
	prior = filepath.Join(dir, "prior.json")
	current = filepath.Join(dir, "current.json")
	cfgPath = filepath.Join(dir, "glwatch.yaml")
	yaml := "db_path: " + filepath.Join(dir, "runs.db") + "\nworker_count: 4\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := execute(context.Background(), "generate",
		"--accounts", "20", "--seed", "7", "--year", "2024",
		"--out-prior", prior, "--out-current", current)
	if err != nil {
		t.Fatal(err)
	}
	return dir, prior, current, cfgPath
}

func flaggedCodes(rows []deviation.Row) []string {
	codes := make([]string, 0, len(rows))
	for _, r := range rows {
		codes = append(codes, r.AccountCode)
	}
	return codes
}

func TestAnalyzeCommand(t *testing.T) {
	Convey("Given a generated ledger pair", t, func() {
		ctx := context.Background()
		dir, prior, current, cfgPath := fixture(t)

		Convey("When analyzing one period to stdout", func() {
			out, err := execute(ctx, "--config", cfgPath, "analyze", "--prior", prior, "--current", current)
			So(err, ShouldBeNil)

			Convey("Then a comparison table with one row per usable account is written", func() {
				table, err := tabular.ReadTable(strings.NewReader(out))
				So(err, ShouldBeNil)
				So(table.Rows, ShouldHaveLength, 16)
				So(deviation.ValidateTable(table), ShouldBeEmpty)
			})
		})

		Convey("When analyzing several periods as JSON", func() {
			out, err := execute(ctx, "--config", cfgPath, "analyze", "--prior", prior, "--current", current,
				"--period", "monthly,quarterly", "--format", "json")
			So(err, ShouldBeNil)

			var analyses []struct {
				Period  string             `json:"period"`
				Summary repository.Summary `json:"summary"`
			}
			So(json.Unmarshal([]byte(out), &analyses), ShouldBeNil)
			So(analyses, ShouldHaveLength, 2)
			So(analyses[0].Period, ShouldEqual, "monthly")
			So(analyses[0].Summary.Processed, ShouldEqual, 16)
			So(analyses[1].Period, ShouldEqual, "quarterly")
		})

		Convey("When analyzing several periods as CSV", func() {
			_, err := execute(ctx, "--config", cfgPath, "analyze", "--prior", prior, "--current", current,
				"--period", "monthly,quarterly")
			So(errors.Is(err, cli.ErrUsage), ShouldBeTrue)

			outDir := filepath.Join(dir, "tables")
			_, err = execute(ctx, "--config", cfgPath, "analyze", "--prior", prior, "--current", current,
				"--period", "monthly,quarterly", "--out", outDir)
			So(err, ShouldBeNil)
			for _, name := range []string{"comparison_monthly.csv", "comparison_quarterly.csv"} {
				_, err := os.Stat(filepath.Join(outDir, name))
				So(err, ShouldBeNil)
			}
		})

		Convey("When flags are wrong", func() {
			_, err := execute(ctx, "--config", cfgPath, "analyze", "--prior", prior, "--current", current, "--format", "xml")
			So(errors.Is(err, cli.ErrUsage), ShouldBeTrue)

			_, err = execute(ctx, "--config", cfgPath, "analyze", "--prior", prior, "--current", filepath.Join(dir, "missing.json"))
			So(err, ShouldNotBeNil)

			_, err = execute(ctx, "--config", cfgPath, "--log-format", "xml", "analyze", "--prior", prior, "--current", current)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestWatchlistCommand(t *testing.T) {
	Convey("Given a comparison table on disk", t, func() {
		ctx := context.Background()
		dir, prior, current, cfgPath := fixture(t)
		tablePath := filepath.Join(dir, "comparison.csv")
		_, err := execute(ctx, "--config", cfgPath, "analyze", "--prior", prior, "--current", current, "--out", tablePath)
		So(err, ShouldBeNil)

		Convey("When building the watchlist as JSON", func() {
			out, err := execute(ctx, "--config", cfgPath, "watchlist", "--in", tablePath, "--format", "json")
			So(err, ShouldBeNil)

			Convey("Then every shifted account is flagged", func() {
				var rows []deviation.Row
				So(json.Unmarshal([]byte(out), &rows), ShouldBeNil)
				codes := flaggedCodes(rows)
				So(codes, ShouldContain, "1010")
				So(codes, ShouldContain, "1110")
			})
		})

		Convey("When building the watchlist as CSV", func() {
			outPath := filepath.Join(dir, "watchlist.csv")
			_, err := execute(ctx, "--config", cfgPath, "watchlist", "--in", tablePath, "--out", outPath)
			So(err, ShouldBeNil)
			raw, err := os.ReadFile(outPath)
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, "1010")
		})

		Convey("When a setting override is invalid", func() {
			_, err := execute(ctx, "--config", cfgPath, "watchlist", "--in", tablePath, "--set", "tiers.max_tier1=-1")
			So(errors.Is(err, deviation.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the input is not a comparison table", func() {
			bad := filepath.Join(dir, "bad.csv")
			So(os.WriteFile(bad, []byte("a,b\n1,2\n"), 0o600), ShouldBeNil)
			_, err := execute(ctx, "--config", cfgPath, "watchlist", "--in", bad)
			So(errors.Is(err, cli.ErrInvalidTable), ShouldBeTrue)
		})
	})
}

func TestRunCommands(t *testing.T) {
	Convey("Given a generated ledger pair and a history database", t, func() {
		ctx := context.Background()
		_, prior, current, cfgPath := fixture(t)

		out, err := execute(ctx, "--config", cfgPath, "run", "--prior", prior, "--current", current, "--format", "json")
		So(err, ShouldBeNil)

		var res struct {
			Run  repository.Run  `json:"run"`
			Rows []deviation.Row `json:"rows"`
		}
		So(json.Unmarshal([]byte(out), &res), ShouldBeNil)

		Convey("Then the run is recorded with its watchlist", func() {
			So(res.Run.ID, ShouldNotBeBlank)
			So(res.Run.Period, ShouldEqual, "monthly")
			So(flaggedCodes(res.Rows), ShouldContain, "1010")
		})

		Convey("Then it is listed and can be shown", func() {
			out, err := execute(ctx, "--config", cfgPath, "runs", "list")
			So(err, ShouldBeNil)
			var runs []repository.Run
			So(json.Unmarshal([]byte(out), &runs), ShouldBeNil)
			So(runs, ShouldHaveLength, 1)
			So(runs[0].ID, ShouldEqual, res.Run.ID)

			out, err = execute(ctx, "--config", cfgPath, "runs", "show", res.Run.ID)
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, res.Run.ID)
		})

		Convey("Then unknown runs are not found", func() {
			_, err := execute(ctx, "--config", cfgPath, "runs", "show", "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then run refuses several periods", func() {
			_, err := execute(ctx, "--config", cfgPath, "run", "--prior", prior, "--current", current, "--period", "weekly,monthly")
			So(errors.Is(err, cli.ErrUsage), ShouldBeTrue)
		})
	})
}

func TestGenerateAndConfigCommands(t *testing.T) {
	Convey("Given the generate command", t, func() {
		Convey("When no destination is named", func() {
			_, err := execute(context.Background(), "generate")
			So(errors.Is(err, cli.ErrUsage), ShouldBeTrue)
		})
	})

	Convey("Given the config command", t, func() {
		ctx := context.Background()

		Convey("When printing defaults as JSON", func() {
			out, err := execute(ctx, "config", "defaults", "--format", "json")
			So(err, ShouldBeNil)
			var flat map[string]any
			So(json.Unmarshal([]byte(out), &flat), ShouldBeNil)
			So(flat["tiers.max_tier1"], ShouldEqual, 10.0)
		})

		Convey("When the YAML defaults are loaded back", func() {
			out, err := execute(ctx, "config", "defaults")
			So(err, ShouldBeNil)
			path := filepath.Join(t.TempDir(), "deviation.yaml")
			So(os.WriteFile(path, []byte(out), 0o600), ShouldBeNil)

			cfg, err := deviation.LoadFile(path)
			So(err, ShouldBeNil)
			So(cfg.ToFlat(), ShouldResemble, deviation.DefaultConfig().ToFlat())
		})

		Convey("When showing the effective settings", func() {
			out, err := execute(ctx, "config", "show", "--format", "json")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, `"process"`)
			So(out, ShouldContainSubstring, `"deviation"`)
		})
	})
}

func TestServeCommand(t *testing.T) {
	Convey("Given a serve command on an ephemeral port", t, func() {
		_, _, _, cfgPath := fixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		errCh := make(chan error, 1)
		go func() {
			_, err := execute(ctx, "--config", cfgPath, "serve", "--addr", "127.0.0.1:0")
			errCh <- err
		}()

		Convey("When the context is cancelled it shuts down cleanly", func() {
			time.Sleep(200 * time.Millisecond)
			cancel()
			select {
			case err := <-errCh:
				So(err, ShouldBeNil)
			case <-time.After(10 * time.Second):
				So("serve did not stop", ShouldBeEmpty)
			}
		})
	})
}
