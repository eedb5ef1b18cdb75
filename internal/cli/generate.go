package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/glwatch/internal/adapters/tabular"
	"github.com/okian/glwatch/internal/ledgergen"
	"github.com/okian/glwatch/pkg/logger"
)

// ErrMissedShift reports shifted accounts a submitted run did not flag.
var ErrMissedShift = errors.New("shifted accounts missing from the watchlist")

type generateCmd struct {
	cfg        ledgergen.Config
	outPrior   string
	outCurrent string
	submit     string
	period     string
	timeout    time.Duration
}

func newGenerateCmd(_ *root) *cobra.Command {
	gc := &generateCmd{cfg: ledgergen.DefaultConfig()}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic two-year ledger pair",
		Long: "Generate deterministic prior and current year ledgers. Some accounts\n" +
			"shift, swing or reverse between the years. With --submit the pair is\n" +
			"posted to a running server and every shifted account must be flagged.",
		Args: cobra.NoArgs,
		RunE: gc.run,
	}

	cmd.Flags().IntVar(&gc.cfg.Accounts, "accounts", gc.cfg.Accounts, "Number of accounts")
	cmd.Flags().Uint64Var(&gc.cfg.Seed, "seed", gc.cfg.Seed, "Random seed")
	cmd.Flags().IntVar(&gc.cfg.Year, "year", gc.cfg.Year, "Current year; the prior year is one earlier")
	cmd.Flags().IntVar(&gc.cfg.PostingsPerMonth, "postings", gc.cfg.PostingsPerMonth, "Postings per active month")
	cmd.Flags().IntVar(&gc.cfg.Workers, "workers", gc.cfg.Workers, "Concurrent generators")
	cmd.Flags().StringVar(&gc.outPrior, "out-prior", "", "Prior year ledger JSON output")
	cmd.Flags().StringVar(&gc.outCurrent, "out-current", "", "Current year ledger JSON output")
	cmd.Flags().StringVar(&gc.submit, "submit", "", "Base URL of a running glwatch server")
	cmd.Flags().StringVar(&gc.period, "period", "monthly", "Period used with --submit")
	cmd.Flags().DurationVar(&gc.timeout, "timeout", 30*time.Second, "Request timeout used with --submit")

	return cmd
}

func (gc *generateCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if gc.submit == "" && (gc.outPrior == "" || gc.outCurrent == "") {
		return fmt.Errorf("%w: need --out-prior and --out-current, or --submit", ErrUsage)
	}

	res, err := ledgergen.Generate(ctx, gc.cfg)
	if err != nil {
		return err
	}
	if gc.outPrior != "" {
		if err := writeOutput(cmd, gc.outPrior, func(w io.Writer) error { return tabular.WriteLedger(w, res.Prior) }); err != nil {
			return err
		}
	}
	if gc.outCurrent != "" {
		if err := writeOutput(cmd, gc.outCurrent, func(w io.Writer) error { return tabular.WriteLedger(w, res.Current) }); err != nil {
			return err
		}
	}
	if gc.submit == "" {
		return nil
	}

	sub, err := ledgergen.Submit(ctx, gc.submit, res, gc.period, gc.timeout)
	if err != nil {
		return err
	}
	if missing := ledgergen.Verify(res, sub.Rows); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissedShift, strings.Join(missing, ", "))
	}
	logger.Get().Named("generate").Info(ctx, "every shifted account was flagged",
		logger.String("run", sub.Run.ID),
		logger.Int("shifted", len(res.Codes(ledgergen.Shifted))),
	)
	return nil
}
