package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/okian/glwatch/internal/adapters/repository"
	"github.com/okian/glwatch/internal/adapters/tabular"
	"github.com/okian/glwatch/internal/domain/ledger"
	"github.com/okian/glwatch/pkg/logger"
)

type analyzeCmd struct {
	root    *root
	prior   string
	current string
	period  string
	out     string
	format  string
}

type analysisOutput struct {
	Period  string             `json:"period"`
	Summary repository.Summary `json:"summary"`
	Columns []string           `json:"columns"`
	Rows    []map[string]any   `json:"rows"`
}

func newAnalyzeCmd(r *root) *cobra.Command {
	ac := &analyzeCmd{root: r}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compare two ledger years and write the comparison table",
		Long: "Compare the prior and current year ledgers account by account.\n" +
			"With several periods and CSV output, --out names a directory that\n" +
			"receives one comparison_<period>.csv per period.",
		RunE: ac.run,
	}

	cmd.Flags().StringVar(&ac.prior, "prior", "", "Prior year ledger JSON")
	cmd.Flags().StringVar(&ac.current, "current", "", "Current year ledger JSON")
	cmd.Flags().StringVar(&ac.period, "period", "", "Comma separated periods (default from config)")
	cmd.Flags().StringVar(&ac.out, "out", "", "Output file or directory (default stdout)")
	cmd.Flags().StringVar(&ac.format, "format", formatCSV, "Output format: csv or json")

	_ = cmd.MarkFlagRequired("prior")
	_ = cmd.MarkFlagRequired("current")

	return cmd
}

func (ac *analyzeCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := checkFormat(ac.format); err != nil {
		return err
	}
	periods, err := parsePeriods(ac.period, ac.root.cfg.Period)
	if err != nil {
		return err
	}
	pairs, err := readPairs(ac.prior, ac.current)
	if err != nil {
		return err
	}

	svc, stop, err := ac.root.newService(ctx, false)
	if err != nil {
		return err
	}
	defer stop()

	analyses, err := svc.AnalyzeAll(ctx, pairs, periods)
	if err != nil {
		return err
	}
	log := logger.Get().Named("analyze")
	for _, a := range analyses {
		log.Info(ctx, "analysis complete",
			logger.String("period", string(a.Period)),
			logger.Int("processed", a.Summary.Processed),
			logger.Int("skipped", a.Summary.Skipped),
		)
	}

	if ac.format == formatJSON {
		out := make([]analysisOutput, 0, len(analyses))
		for _, a := range analyses {
			out = append(out, analysisOutput{
				Period:  string(a.Period),
				Summary: a.Summary,
				Columns: a.Table.Columns,
				Rows:    tabular.Records(a.Table),
			})
		}
		return writeOutput(cmd, ac.out, func(w io.Writer) error { return encodeJSON(w, out) })
	}

	if len(analyses) == 1 {
		return writeOutput(cmd, ac.out, func(w io.Writer) error {
			return tabular.WriteTable(w, analyses[0].Table)
		})
	}
	if ac.out == "" || ac.out == "-" {
		return fmt.Errorf("%w: csv output for several periods needs --out <dir>", ErrUsage)
	}
	if err := os.MkdirAll(ac.out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, a := range analyses {
		path := filepath.Join(ac.out, "comparison_"+string(a.Period)+".csv")
		if err := writeOutput(cmd, path, func(w io.Writer) error { return tabular.WriteTable(w, a.Table) }); err != nil {
			return err
		}
	}
	return nil
}

func parsePeriods(flag, fallback string) ([]ledger.Granularity, error) {
	if flag == "" {
		flag = fallback
	}
	return ledger.ParseGranularities(flag)
}

func readPairs(priorPath, currentPath string) ([]ledger.Pair, error) {
	prior, err := tabular.ReadLedgerFile(priorPath)
	if err != nil {
		return nil, fmt.Errorf("prior ledger: %w", err)
	}
	current, err := tabular.ReadLedgerFile(currentPath)
	if err != nil {
		return nil, fmt.Errorf("current ledger: %w", err)
	}
	return tabular.Pair(prior, current), nil
}
