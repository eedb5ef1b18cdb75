package cli

import (
	"github.com/spf13/cobra"

	"github.com/okian/glwatch/internal/adapters/repository"
	"github.com/okian/glwatch/internal/domain/deviation"
)

func newRunsCmd(r *root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded runs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, stop, err := r.newService(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer stop()

			runs, err := svc.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if runs == nil {
				runs = []repository.Run{}
			}
			return encodeJSON(cmd.OutOrStdout(), runs)
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a run and its watchlist rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, stop, err := r.newService(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer stop()

			run, rows, err := svc.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rows == nil {
				rows = []deviation.Row{}
			}
			return encodeJSON(cmd.OutOrStdout(), struct {
				Run  repository.Run  `json:"run"`
				Rows []deviation.Row `json:"rows"`
			}{run, rows})
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}
