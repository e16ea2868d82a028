package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perf-diff/internal/service"
)

var aggregateName string

// aggregateCmd represents the aggregate command
var aggregateCmd = &cobra.Command{
	Use:   "aggregate <input>...",
	Short: "Merge profiles into one grouped call tree",
	Long: `Merge one or more profiles into a single call graph grouped by process,
thread or as a whole, and write its flame graph data, folded stacks or
text tree below <output>/<run id>/.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAggregate,
}

func init() {
	rootCmd.AddCommand(aggregateCmd)

	binName := BinName()
	aggregateCmd.Example = `  # Per-thread flame graph of one profile
  ` + binName + ` aggregate cpu.folded

  # Merge every thread of several runs and print the text tree
  ` + binName + ` aggregate run1.folded run2.folded -g all --text`

	aggregateCmd.Flags().StringVar(&aggregateName, "name", "", "Run name")
	addOutputFlags(aggregateCmd)
}

func runAggregate(cmd *cobra.Command, args []string) error {
	applyOutputFlags(cmd)

	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	result, err := svc.Aggregate(cmd.Context(), &service.AggregateRequest{
		Name:      aggregateName,
		Inputs:    args,
		GroupBy:   groupBy,
		OutputDir: outputDir,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	weightType := result.Provider.WeightType()
	fmt.Fprintf(w, "Run %s (%s)\n", result.ID, weightType.Title)
	fmt.Fprintf(w, "  Total weight: %s\n", weightType.FormatValue(float64(result.TotalWeight)))
	fmt.Fprintf(w, "  Elements:     %d\n", len(result.Graph.Elements()))

	if threads := result.Threads.Threads; len(threads) > 0 {
		fmt.Fprintln(w, "\nTop threads:")
		for i, t := range threads {
			fmt.Fprintf(w, "  %2d. %6.2f%%  %s (tid %d)\n", i+1, t.Percentage, truncate(t.ThreadName, 60), t.TID)
		}
	}
	printFiles(w, result.Files, result.Artifacts)
	GetLogger().Debug("%s", result.Summary)
	return nil
}
