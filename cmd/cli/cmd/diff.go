package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/perf-diff/internal/service"
	"github.com/perf-diff/pkg/model"
)

var (
	// Diff command flags
	diffBase      []string
	diffTarget    []string
	diffName      string
	diffStatistic string
)

// Output flags shared by diff and aggregate
var (
	groupBy     string
	outputDir   string
	format      string
	compression string
	topN        int
	folded      bool
	textTree    bool
)

// diffCmd represents the diff command
var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare target profiles against a baseline",
	Long: `Compare target profiles against baseline profiles node by node.

Without --statistic, the profiles of each side are merged and their
processes or threads are paired by name; every pair gets its own
differential tree. With --statistic (e.g. "Duration", "Self Time"), all
profiles of a side are merged into one tree and compared on that value.

The report lists the call paths whose weight changed the most and is
written with the flame graph data below <output>/<report id>/.`,
	Args: cobra.NoArgs,
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)

	binName := BinName()
	diffCmd.Example = `  # Thread by thread comparison
  ` + binName + ` diff -b before.folded -t after.folded

  # Several runs per side, compared on the aggregated duration
  ` + binName + ` diff -b run1.json -b run2.json -t run3.json --statistic Duration

  # Baseline from object storage, gzip-compressed output
  ` + binName + ` diff -b store://profiles/base.pb.gz -t new.pb.gz --compression gzip`

	diffCmd.Flags().StringSliceVarP(&diffBase, "base", "b", nil, "Baseline profile (repeatable, required)")
	diffCmd.Flags().StringSliceVarP(&diffTarget, "target", "t", nil, "Target profile (repeatable, required)")
	diffCmd.Flags().StringVar(&diffName, "name", "", "Report name")
	diffCmd.Flags().StringVar(&diffStatistic, "statistic", "", "Compare on a statistic of instrumented call sites")
	diffCmd.MarkFlagRequired("base")
	diffCmd.MarkFlagRequired("target")
	addOutputFlags(diffCmd)
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&groupBy, "group-by", "g", "", "Grouping level: all, process or thread (default from config)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Input format: auto, collapsed, pprof or chrome (default from config)")
	cmd.Flags().StringVar(&compression, "compression", "", "Output compression: none, gzip or zstd (default from config)")
	cmd.Flags().IntVarP(&topN, "top", "n", 0, "Number of changes or threads to report (default from config)")
	cmd.Flags().BoolVar(&folded, "folded", false, "Also write folded stacks")
	cmd.Flags().BoolVar(&textTree, "text", false, "Also write an indented text tree")
}

// applyOutputFlags overrides the configuration with the flags that were set.
func applyOutputFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("format") {
		cfg.Analysis.Format = format
	}
	if cmd.Flags().Changed("compression") {
		cfg.Output.Compression = compression
	}
	if cmd.Flags().Changed("top") {
		cfg.Analysis.TopN = topN
	}
	if folded {
		cfg.Output.Folded = true
	}
	if textTree {
		cfg.Output.Text = true
	}
}

func runDiff(cmd *cobra.Command, args []string) error {
	applyOutputFlags(cmd)

	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	result, err := svc.Compare(cmd.Context(), &service.CompareRequest{
		Name:      diffName,
		Base:      diffBase,
		Target:    diffTarget,
		GroupBy:   groupBy,
		Statistic: diffStatistic,
		OutputDir: outputDir,
	})
	if err != nil {
		return err
	}

	printReport(cmd.OutOrStdout(), result.Report)
	printFiles(cmd.OutOrStdout(), result.Files, result.Report.Artifacts)
	GetLogger().Debug("%s", result.Summary)
	return nil
}

func printReport(w io.Writer, r *model.ComparisonReport) {
	fmt.Fprintf(w, "Report %s (%s)\n", r.ID, r.WeightType)
	fmt.Fprintf(w, "  Weight:        %d -> %d\n", r.BaseWeight, r.TargetWeight)
	fmt.Fprintf(w, "  Paired groups: %d\n", r.PairedGroups)
	fmt.Fprintf(w, "  Call sites:    %d (%d new)\n", r.NodeCount, r.NewNodes)

	if len(r.Changes) == 0 {
		fmt.Fprintln(w, "\nNo significant changes.")
		return
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tCHANGE\tBASE\tTARGET\tELEMENT\tSYMBOL")
	for _, c := range r.Changes {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			c.Kind, c.Formatted, c.BaseWeight, c.TargetWeight, c.Element, truncate(c.Symbol, 80))
	}
	tw.Flush()
}

func printFiles(w io.Writer, files, urls []string) {
	fmt.Fprintln(w, "\nOutput files:")
	for _, f := range files {
		fmt.Fprintf(w, "  %s\n", f)
	}
	if len(urls) > 0 {
		fmt.Fprintln(w, "Published:")
		for _, u := range urls {
			fmt.Fprintf(w, "  %s\n", u)
		}
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
