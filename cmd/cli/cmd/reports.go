package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/perf-diff/internal/repository"
	apperrors "github.com/perf-diff/pkg/errors"
)

var (
	reportsName  string
	reportsSince time.Duration
	reportsLimit int
)

// reportsCmd groups the commands that read saved comparison reports.
var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List, show or delete saved comparison reports",
	Long: `Read the comparison reports saved to the database configured in the
"database" section. Reports hold the totals and top changes of a
comparison, never the trees.`,
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeFn, err := openReports(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		filter := repository.ListFilter{Name: reportsName, Limit: reportsLimit}
		if reportsSince > 0 {
			filter.Since = time.Now().Add(-reportsSince)
		}
		reports, err := repo.List(cmd.Context(), filter)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCREATED\tGROUP BY\tWEIGHT\tCHANGES")
		for _, r := range reports {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d -> %d\t%d\n",
				r.ID, r.Name, r.CreatedAt.Format(time.RFC3339), r.GroupBy,
				r.BaseWeight, r.TargetWeight, len(r.Changes))
		}
		return tw.Flush()
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a saved report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeFn, err := openReports(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		report, err := repo.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), report)
		if len(report.Artifacts) > 0 {
			printFiles(cmd.OutOrStdout(), nil, report.Artifacts)
		}
		return nil
	},
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeFn, err := openReports(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := repo.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted report %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd, reportsShowCmd, reportsDeleteCmd)

	reportsListCmd.Flags().StringVar(&reportsName, "name", "", "Only reports with this name")
	reportsListCmd.Flags().DurationVar(&reportsSince, "since", 0, "Only reports newer than this, e.g. 24h")
	reportsListCmd.Flags().IntVar(&reportsLimit, "limit", 20, "Maximum number of reports")
}

func openReports(cmd *cobra.Command) (repository.ReportRepository, func(), error) {
	if !cfg.Database.Enabled {
		return nil, nil, apperrors.New(apperrors.CodeConfigError,
			"no database configured, set database.enabled in the configuration")
	}
	svc, err := newService(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return svc.Reports(), func() { svc.Close() }, nil
}
