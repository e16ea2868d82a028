package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/perf-diff/internal/service"
	"github.com/perf-diff/pkg/config"
	apperrors "github.com/perf-diff/pkg/errors"
	"github.com/perf-diff/pkg/telemetry"
	"github.com/perf-diff/pkg/utils"
)

// Version information (injected by build flags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Command line flags
var (
	configPath string
	jobNames   []string
	keepGoing  bool
	verbose    bool
)

// binName returns the base name of the current executable
func binName() string {
	return filepath.Base(os.Args[0])
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "perf-diff-analyzer",
	Short: "Run the comparisons listed in a configuration file",
	Long: `perf-diff-analyzer runs every comparison job of the "jobs" section of
its configuration file, e.g. nightly comparisons of a release candidate
against the last release. Reports are written to the output directory,
published to the configured storage and saved to the configured database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runJobs,
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s version %s\n", binName(), Version)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Go Version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	bin := binName()
	rootCmd.Example = `  # Run every job
  ` + bin + ` -c /etc/perf-diff/config.yaml

  # Run two jobs and continue after failures
  ` + bin + ` -c ./config.yaml -j checkout -j search --keep-going`

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (required)")
	rootCmd.Flags().StringSliceVarP(&jobNames, "job", "j", nil, "Only run the named jobs (repeatable)")
	rootCmd.Flags().BoolVarP(&keepGoing, "keep-going", "k", false, "Run the remaining jobs after a failure")
	rootCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(versionCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeConfigError, "failed to load configuration", err)
	}

	logLevel := utils.ParseLogLevel(cfg.Log.Level)
	if verbose {
		logLevel = utils.LevelDebug
	}
	logger := utils.NewDefaultLogger(logLevel, os.Stdout)
	utils.SetGlobalLogger(logger)

	logger.Info("Starting %s %s (commit %s, built %s)", binName(), Version, GitCommit, BuildTime)

	jobs, err := selectJobs(cfg.Jobs, jobNames)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("Failed to flush traces: %v", err)
		}
	}()

	svc, err := service.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	if err := svc.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	defer svc.Close()

	var failed int
	for i, job := range jobs {
		log := logger.WithField("job", job.Name)
		log.Info("Running job %d/%d", i+1, len(jobs))

		result, err := svc.Compare(ctx, &service.CompareRequest{
			Name:      job.Name,
			Base:      job.Base,
			Target:    job.Target,
			GroupBy:   job.GroupBy,
			Statistic: job.Statistic,
		})
		if err != nil {
			failed++
			log.Error("Job failed: %v", err)
			if ctx.Err() != nil || !keepGoing {
				return err
			}
			continue
		}

		report := result.Report
		log.Info("Report %s: %d regressions, %d improvements, weight %d -> %d",
			report.ID, len(report.Regressions()), len(report.Improvements()),
			report.BaseWeight, report.TargetWeight)
		log.Debug("%s", result.Summary)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(jobs))
	}
	logger.Info("All %d jobs done", len(jobs))
	return nil
}

// selectJobs returns the jobs named in names, in configuration order, or
// every job when names is empty.
func selectJobs(jobs []config.JobConfig, names []string) ([]config.JobConfig, error) {
	if len(jobs) == 0 {
		return nil, apperrors.New(apperrors.CodeConfigError, "no jobs configured")
	}
	if len(names) == 0 {
		return jobs, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []config.JobConfig
	for _, j := range jobs {
		if wanted[j.Name] {
			out = append(out, j)
			delete(wanted, j.Name)
		}
	}
	for _, n := range names {
		if wanted[n] {
			return nil, apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("unknown job %q", n))
		}
	}
	return out, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
}
