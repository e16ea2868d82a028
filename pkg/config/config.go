// Package config provides configuration management for perf-diff.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/perf-diff/pkg/compression"
	"github.com/perf-diff/pkg/telemetry"
)

// EnvPrefix prefixes every environment variable that overrides a setting,
// e.g. PERFDIFF_ANALYSIS_GROUP_BY.
const EnvPrefix = "PERFDIFF"

// Config holds all configuration for the application.
type Config struct {
	Analysis     AnalysisConfig     `mapstructure:"analysis"`
	Differential DifferentialConfig `mapstructure:"differential"`
	Output       OutputConfig       `mapstructure:"output"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Telemetry    telemetry.Config   `mapstructure:"telemetry"`
	Log          LogConfig          `mapstructure:"log"`
	Jobs         []JobConfig        `mapstructure:"jobs"`
}

// AnalysisConfig controls how call graphs are built and compared.
type AnalysisConfig struct {
	Format         string `mapstructure:"format"` // auto, collapsed, pprof or chrome
	SampleType     string `mapstructure:"sample_type"`
	GroupBy        string `mapstructure:"group_by"`
	Statistic      string `mapstructure:"statistic"`
	TopN           int    `mapstructure:"top_n"`
	KernelSplit    bool   `mapstructure:"kernel_split"`
	KernelSuffix   string `mapstructure:"kernel_suffix"`
	IncludeSwapper bool   `mapstructure:"include_swapper"`
	ThreadGroups   bool   `mapstructure:"thread_groups"`
	Workers        int    `mapstructure:"workers"`
}

// DifferentialConfig holds the thresholds used to classify changes.
type DifferentialConfig struct {
	MinHeat        float64 `mapstructure:"min_heat"` // percent
	MaxHeat        float64 `mapstructure:"max_heat"` // percent
	FlameThreshold float64 `mapstructure:"flame_threshold"`
	MinChange      float64 `mapstructure:"min_change"`
}

// OutputConfig controls the artifacts written for each comparison.
type OutputConfig struct {
	Dir         string `mapstructure:"dir"`
	Compression string `mapstructure:"compression"` // none, gzip or zstd
	Pretty      bool   `mapstructure:"pretty"`
	Folded      bool   `mapstructure:"folded"`
	FlameGraph  bool   `mapstructure:"flamegraph"`
	Text        bool   `mapstructure:"text"`
}

// StorageConfig holds object storage configuration for published artifacts.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"` // cos or local
	Prefix    string `mapstructure:"prefix"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`   // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`   // e.g., "https" or "http"
	BaseURL   string `mapstructure:"base_url"` // overrides bucket, region and domain
	LocalPath string `mapstructure:"local_path"`
}

// DatabaseConfig holds the connection settings of the report database.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Type     string `mapstructure:"type"` // sqlite, mysql or postgres
	DSN      string `mapstructure:"dsn"`
	Path     string `mapstructure:"path"` // sqlite file
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
	LogLevel string `mapstructure:"log_level"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"` // empty means stderr
}

// JobConfig is one comparison run by the batch analyzer.
type JobConfig struct {
	Name      string   `mapstructure:"name"`
	Base      []string `mapstructure:"base"`
	Target    []string `mapstructure:"target"`
	GroupBy   string   `mapstructure:"group_by"`
	Statistic string   `mapstructure:"statistic"`
}

// Load reads configuration from the specified file path. A missing file
// leaves the defaults in place.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/perf-diff")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFromReader loads configuration from raw content (useful for testing).
// The result is not validated.
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return unmarshal(v)
}

// Default returns the default configuration.
func Default() *Config {
	cfg, err := unmarshal(newViper())
	if err != nil {
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Telemetry.ApplyEnv()
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Analysis defaults
	v.SetDefault("analysis.format", "auto")
	v.SetDefault("analysis.sample_type", "")
	v.SetDefault("analysis.group_by", "Thread")
	v.SetDefault("analysis.statistic", "")
	v.SetDefault("analysis.top_n", 20)
	v.SetDefault("analysis.kernel_split", true)
	v.SetDefault("analysis.kernel_suffix", "_[k]")
	v.SetDefault("analysis.include_swapper", false)
	v.SetDefault("analysis.thread_groups", false)
	v.SetDefault("analysis.workers", 4)

	// Differential defaults
	v.SetDefault("differential.min_heat", 0.0)
	v.SetDefault("differential.max_heat", 4.0)
	v.SetDefault("differential.flame_threshold", 1.0)
	v.SetDefault("differential.min_change", 0.05)

	// Output defaults
	v.SetDefault("output.dir", "./output")
	v.SetDefault("output.compression", "none")
	v.SetDefault("output.pretty", false)
	v.SetDefault("output.folded", false)
	v.SetDefault("output.flamegraph", true)
	v.SetDefault("output.text", false)

	// Storage defaults
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.prefix", "reports")
	v.SetDefault("storage.scheme", "https")
	v.SetDefault("storage.domain", "myqcloud.com")
	v.SetDefault("storage.local_path", "./storage")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./perf-diff.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.log_level", "warn")

	// Telemetry defaults
	defaults := telemetry.DefaultConfig()
	v.SetDefault("telemetry.enabled", defaults.Enabled)
	v.SetDefault("telemetry.service_name", defaults.ServiceName)
	v.SetDefault("telemetry.service_version", defaults.ServiceVersion)
	v.SetDefault("telemetry.protocol", defaults.Protocol)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.sampler", "")
	v.SetDefault("telemetry.sampler_arg", "")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Analysis.GroupBy == "" {
		return fmt.Errorf("analysis group_by is required")
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis workers must be at least 1")
	}
	if c.Analysis.TopN < 0 {
		return fmt.Errorf("analysis top_n must not be negative")
	}
	if c.Differential.FlameThreshold < 0 || c.Differential.MinChange < 0 {
		return fmt.Errorf("differential thresholds must not be negative")
	}
	if _, err := compression.ParseType(c.Output.Compression); err != nil {
		return err
	}

	if c.Database.Enabled {
		switch c.Database.Type {
		case "sqlite":
		case "mysql", "postgres":
			if c.Database.DSN == "" && c.Database.Host == "" {
				return fmt.Errorf("database host is required")
			}
		default:
			return fmt.Errorf("unsupported database type: %s", c.Database.Type)
		}
	}

	// Storage config validation is delegated to storage package

	for i, job := range c.Jobs {
		if job.Name == "" {
			return fmt.Errorf("job %d: name is required", i)
		}
		if len(job.Base) == 0 || len(job.Target) == 0 {
			return fmt.Errorf("job %s: base and target inputs are required", job.Name)
		}
	}
	return nil
}

// EnsureOutputDir creates the output directory if it doesn't exist.
func (c *Config) EnsureOutputDir() error {
	if c.Output.Dir == "" {
		return nil
	}
	return os.MkdirAll(c.Output.Dir, 0755)
}
