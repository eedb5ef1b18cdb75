package cli

import (
	"fmt"
	"io"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/spf13/cobra"

	"github.com/okian/glwatch/internal/domain/deviation"
)

func newConfigCmd(r *root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print configuration",
	}

	var format string
	defaults := &cobra.Command{
		Use:   "defaults",
		Short: "Print the default watchlist settings as flat keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printSettings(cmd.OutOrStdout(), format, deviation.DefaultConfig().ToFlat())
		},
	}
	defaults.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or json")

	var showFormat string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective process and watchlist settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dc, err := r.cfg.Deviation()
			if err != nil {
				return err
			}
			effective := map[string]any{
				"process": map[string]any{
					"log_level":         r.cfg.LogLevel,
					"log_format":        r.cfg.LogFormat,
					"addr":              r.cfg.Addr,
					"period":            r.cfg.Period,
					"timezone":          r.cfg.Timezone,
					"worker_count":      r.cfg.WorkerCount,
					"metrics":           r.cfg.Metrics,
					"db_path":           r.cfg.DBPath,
					"deviation_config":  r.cfg.DeviationConfig,
					"max_request_bytes": r.cfg.MaxRequestBytes,
					"max_list_limit":    r.cfg.MaxListLimit,
				},
				"deviation": dc.ToFlat(),
			}
			return printSettings(cmd.OutOrStdout(), showFormat, effective)
		},
	}
	show.Flags().StringVar(&showFormat, "format", "yaml", "Output format: yaml or json")

	cmd.AddCommand(defaults, show)
	return cmd
}

func printSettings(w io.Writer, format string, settings map[string]any) error {
	switch format {
	case "yaml":
		b, err := yaml.Parser().Marshal(settings)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = w.Write(b)
		return err
	case formatJSON:
		return encodeJSON(w, settings)
	default:
		return fmt.Errorf("%w: --format must be yaml or json, got %q", ErrUsage, format)
	}
}
