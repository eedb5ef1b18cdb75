// Package cli implements the glwatch command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/okian/glwatch/internal/adapters/repository"
	service "github.com/okian/glwatch/internal/app"
	"github.com/okian/glwatch/internal/config"
	"github.com/okian/glwatch/pkg/database"
	"github.com/okian/glwatch/pkg/logger"
)

// root holds the persistent flags and the configuration they produce.
type root struct {
	envFile    string
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
}

// NewRootCmd builds the glwatch command tree.
func NewRootCmd() *cobra.Command {
	r := &root{}
	cmd := &cobra.Command{
		Use:               "glwatch",
		Short:             "Flag general ledger accounts whose behaviour changed year over year",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: r.setup,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&r.envFile, "env-file", ".env", "Dotenv file loaded before configuration")
	flags.StringVar(&r.configPath, "config", "", "YAML config file (overrides GLWATCH_CONFIG)")
	flags.StringVar(&r.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&r.logFormat, "log-format", "", "Log format: text or json")

	cmd.AddCommand(
		newAnalyzeCmd(r),
		newWatchlistCmd(r),
		newRunCmd(r),
		newRunsCmd(r),
		newServeCmd(r),
		newGenerateCmd(r),
		newConfigCmd(r),
	)
	return cmd
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (r *root) setup(cmd *cobra.Command, _ []string) error {
	if r.envFile != "" {
		if err := godotenv.Load(r.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", r.envFile, err)
		}
	}

	cfg, err := config.LoadFile(cmd.Context(), r.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = r.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = r.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	r.cfg = cfg
	return nil
}

// newService starts a service from the loaded configuration. With history
// set and a db_path configured, runs are kept in SQLite. The returned func
// stops the service and closes the database.
func (r *root) newService(ctx context.Context, history bool) (*service.Service, func(), error) {
	loc, err := r.cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	dc, err := r.cfg.Deviation()
	if err != nil {
		return nil, nil, err
	}

	opts := []service.Option{
		service.WithLogger(logger.Get().Named("service")),
		service.WithWorkerCount(r.cfg.WorkerCount),
		service.WithMetrics(r.cfg.Metrics),
		service.WithLocation(loc),
		service.WithDeviationConfig(dc),
	}
	closeDB := func() {}
	if history && r.cfg.DBPath != "" {
		db, err := database.New(ctx, database.WithDataSource(r.cfg.DBPath))
		if err != nil {
			return nil, nil, err
		}
		closeDB = func() { _ = db.Close() }
		store := repository.NewSQLStore(db, repository.WithMaxListLimit(r.cfg.MaxListLimit))
		opts = append(opts, service.WithStore(store))
	}

	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		closeDB()
		return nil, nil, err
	}
	return svc, func() {
		svc.Stop()
		closeDB()
	}, nil
}
