// Package cmd implements the perf-diff command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/perf-diff/internal/service"
	"github.com/perf-diff/pkg/config"
	apperrors "github.com/perf-diff/pkg/errors"
	"github.com/perf-diff/pkg/selfprofile"
	"github.com/perf-diff/pkg/telemetry"
	"github.com/perf-diff/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Self-profiling flags
	selfProfile      bool
	selfProfileDir   string
	selfProfileTypes string

	cfg       *config.Config
	logger    utils.Logger
	logFile   *os.File
	collector *selfprofile.Collector
	shutdown  telemetry.ShutdownFunc
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "perf-diff",
	Short: "Aggregate and compare weighted call trees",
	Long: `perf-diff builds call trees from profiling data, groups them by process,
thread or as a whole, and compares two sets of profiles node by node.

Supported inputs are collapsed stacks (perf, async-profiler), pprof
profiles and Chrome trace-event JSON. Inputs may be gzip or zstd
compressed, and "store://<key>" reads an object of the configured storage.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		teardown()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	teardown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	rootCmd.PersistentFlags().BoolVar(&selfProfile, "self-profile", false, "Record pprof profiles of this run")
	rootCmd.PersistentFlags().StringVar(&selfProfileDir, "self-profile-dir", "./self-profile", "Output directory for self profiles")
	rootCmd.PersistentFlags().StringVar(&selfProfileTypes, "self-profile-types", "cpu,heap", "Comma-separated profile types: cpu,heap,goroutine,block,mutex,allocs")

	binName := BinName()
	rootCmd.Example = `  # Compare two collapsed profiles thread by thread
  ` + binName + ` diff --base before.folded --target after.folded

  # Compare pprof profiles per process and write folded stacks
  ` + binName + ` diff -b base.pb.gz -t new.pb.gz --group-by process --folded

  # Aggregate several profiles into one flame graph
  ` + binName + ` aggregate run1.folded run2.folded --group-by all

  # Profile perf-diff itself, then compare two of its runs
  ` + binName + ` diff -b a.folded -t b.folded --self-profile --self-profile-dir ./prof`
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeConfigError, "failed to load configuration", err)
	}

	level := utils.ParseLogLevel(cfg.Log.Level)
	if verbose {
		level = utils.LevelDebug
	}
	var out io.Writer = os.Stderr
	if cfg.Log.OutputPath != "" {
		logFile, err = os.OpenFile(cfg.Log.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return apperrors.Wrapf(apperrors.CodeConfigError, err, "failed to open log file %s", cfg.Log.OutputPath)
		}
		out = logFile
	}
	logger = utils.NewDefaultLogger(level, out)
	utils.SetGlobalLogger(logger)

	shutdown, err = telemetry.Init(cmd.Context(), cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	if selfProfile {
		types, err := selfprofile.ParseProfileTypes(selfProfileTypes)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInvalidInput, "invalid self-profile types", err)
		}
		collector, err = selfprofile.NewCollector(&selfprofile.Config{
			Enabled:  true,
			Dir:      selfProfileDir,
			Label:    cmd.Name(),
			Profiles: types,
		})
		if err != nil {
			return err
		}
		if err := collector.Start(); err != nil {
			return err
		}
		logger.Debug("Self-profiling started (%s, dir: %s)", selfProfileTypes, selfProfileDir)
	}
	return nil
}

// teardown stops self-profiling and flushes telemetry. It runs once.
func teardown() {
	if collector != nil {
		files, err := collector.Stop()
		if err != nil {
			logger.Warn("Failed to stop self-profiling: %v", err)
		}
		for _, f := range files {
			logger.Info("Self profile written to %s", f)
		}
		collector = nil
	}
	if shutdown != nil {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("Failed to flush traces: %v", err)
		}
		shutdown = nil
	}
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// newService creates the comparison service with the sinks enabled in
// the configuration.
func newService(ctx context.Context) (*service.Service, error) {
	svc, err := service.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := svc.Initialize(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	return utils.OrNull(logger)
}
