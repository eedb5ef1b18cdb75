package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/glwatch/internal/adapters/tabular"
	"github.com/okian/glwatch/internal/domain/deviation"
	"github.com/okian/glwatch/pkg/logger"
)

// ErrInvalidTable reports a watchlist input that is not a comparison table.
var ErrInvalidTable = errors.New("input is not a comparison results table")

// deviationFlags are the watchlist settings shared by watchlist and run.
type deviationFlags struct {
	configPath string
	set        map[string]string
}

func (d *deviationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.configPath, "deviation-config", "", "Watchlist settings YAML (overrides deviation_config)")
	cmd.Flags().StringToStringVar(&d.set, "set", nil, "Override a watchlist setting, e.g. --set tiers.max_tier1=5")
}

// resolve layers the flags over the configured watchlist settings.
func (d *deviationFlags) resolve(r *root) (deviation.Config, error) {
	var (
		cfg deviation.Config
		err error
	)
	if d.configPath != "" {
		cfg, err = deviation.LoadFile(d.configPath)
	} else {
		cfg, err = r.cfg.Deviation()
	}
	if err != nil {
		return deviation.Config{}, err
	}
	if len(d.set) == 0 {
		return cfg, nil
	}
	overrides := make(map[string]any, len(d.set))
	for k, v := range d.set {
		overrides[k] = v
	}
	return cfg.Overlay(overrides)
}

type watchlistCmd struct {
	root   *root
	in     string
	out    string
	format string
	dev    deviationFlags
}

func newWatchlistCmd(r *root) *cobra.Command {
	wc := &watchlistCmd{root: r}
	cmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Score a comparison table and write the deviation watchlist",
		RunE:  wc.run,
	}

	cmd.Flags().StringVar(&wc.in, "in", "", "Comparison table CSV ('-' for stdin)")
	cmd.Flags().StringVar(&wc.out, "out", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&wc.format, "format", formatCSV, "Output format: csv or json")
	wc.dev.register(cmd)

	_ = cmd.MarkFlagRequired("in")

	return cmd
}

func (wc *watchlistCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := checkFormat(wc.format); err != nil {
		return err
	}
	cfg, err := wc.dev.resolve(wc.root)
	if err != nil {
		return err
	}

	in, closeIn, err := openInput(cmd, wc.in)
	if err != nil {
		return err
	}
	table, err := tabular.ReadTable(in)
	_ = closeIn()
	if err != nil {
		return err
	}
	if issues := deviation.ValidateTable(table); len(issues) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidTable, strings.Join(issues, "\n  - "))
	}

	svc, stop, err := wc.root.newService(ctx, false)
	if err != nil {
		return err
	}
	defer stop()

	rows, err := svc.Watchlist(ctx, table, &cfg)
	if err != nil {
		return err
	}
	logger.Get().Named("watchlist").Info(ctx, "watchlist built",
		logger.Int("accounts", len(table.Rows)),
		logger.Int("flagged", len(rows)),
	)
	return writeOutput(cmd, wc.out, func(w io.Writer) error { return writeRows(w, wc.format, rows) })
}

func writeRows(w io.Writer, format string, rows []deviation.Row) error {
	if format == formatJSON {
		return tabular.WriteWatchlistJSON(w, rows)
	}
	return tabular.WriteWatchlistCSV(w, rows)
}
