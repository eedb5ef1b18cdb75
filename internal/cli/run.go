package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/glwatch/pkg/logger"
)

type runCmd struct {
	root    *root
	prior   string
	current string
	period  string
	out     string
	format  string
	dev     deviationFlags
}

func newRunCmd(r *root) *cobra.Command {
	rc := &runCmd{root: r}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compare two ledger years, build the watchlist and record the run",
		RunE:  rc.run,
	}

	cmd.Flags().StringVar(&rc.prior, "prior", "", "Prior year ledger JSON")
	cmd.Flags().StringVar(&rc.current, "current", "", "Current year ledger JSON")
	cmd.Flags().StringVar(&rc.period, "period", "", "Period (default from config)")
	cmd.Flags().StringVar(&rc.out, "out", "", "Watchlist output file (default stdout)")
	cmd.Flags().StringVar(&rc.format, "format", formatCSV, "Output format: csv or json")
	rc.dev.register(cmd)

	_ = cmd.MarkFlagRequired("prior")
	_ = cmd.MarkFlagRequired("current")

	return cmd
}

func (rc *runCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := checkFormat(rc.format); err != nil {
		return err
	}
	periods, err := parsePeriods(rc.period, rc.root.cfg.Period)
	if err != nil {
		return err
	}
	if len(periods) != 1 {
		return fmt.Errorf("%w: run takes exactly one period, got %d", ErrUsage, len(periods))
	}
	cfg, err := rc.dev.resolve(rc.root)
	if err != nil {
		return err
	}
	pairs, err := readPairs(rc.prior, rc.current)
	if err != nil {
		return err
	}

	svc, stop, err := rc.root.newService(ctx, true)
	if err != nil {
		return err
	}
	defer stop()

	res, err := svc.Run(ctx, pairs, periods[0], &cfg)
	if err != nil {
		return err
	}
	logger.Get().Named("run").Info(ctx, "run complete",
		logger.String("id", res.Run.ID),
		logger.String("period", res.Run.Period),
		logger.Int("processed", res.Run.Summary.Processed),
		logger.Int("flagged", len(res.Rows)),
	)
	if rc.format == formatJSON {
		return writeOutput(cmd, rc.out, func(w io.Writer) error { return encodeJSON(w, res) })
	}
	return writeOutput(cmd, rc.out, func(w io.Writer) error { return writeRows(w, rc.format, res.Rows) })
}
