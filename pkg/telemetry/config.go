package telemetry

import (
	"os"
	"strings"
)

// Config holds OpenTelemetry settings. The zero value disables tracing.
type Config struct {
	Enabled        bool              `mapstructure:"enabled"`
	ServiceName    string            `mapstructure:"service_name"`
	ServiceVersion string            `mapstructure:"service_version"`
	Endpoint       string            `mapstructure:"endpoint"`
	Protocol       string            `mapstructure:"protocol"` // grpc or http/protobuf
	Headers        map[string]string `mapstructure:"headers"`
	Insecure       bool              `mapstructure:"insecure"`

	// Sampler is one of always_on, always_off, traceidratio,
	// parentbased_always_on, parentbased_always_off and
	// parentbased_traceidratio. Empty means always_on.
	Sampler    string            `mapstructure:"sampler"`
	SamplerArg string            `mapstructure:"sampler_arg"`
	Attributes map[string]string `mapstructure:"attributes"`
}

// DefaultConfig returns a disabled configuration with service defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "perf-diff",
		ServiceVersion: "unknown",
		Protocol:       "grpc",
	}
}

// ApplyEnv overrides c with the standard OTEL_* environment variables
// that are set.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv("OTEL_ENABLED"); ok {
		c.Enabled = strings.EqualFold(v, "true")
	}
	setString(&c.ServiceName, "OTEL_SERVICE_NAME")
	setString(&c.ServiceVersion, "OTEL_SERVICE_VERSION")
	setString(&c.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&c.Protocol, "OTEL_EXPORTER_OTLP_PROTOCOL")
	setString(&c.Sampler, "OTEL_TRACES_SAMPLER")
	setString(&c.SamplerArg, "OTEL_TRACES_SAMPLER_ARG")
	if v, ok := os.LookupEnv("OTEL_EXPORTER_OTLP_INSECURE"); ok {
		c.Insecure = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		c.Headers = ParseKeyValuePairs(v)
	}
	if v := os.Getenv("OTEL_RESOURCE_ATTRIBUTES"); v != "" {
		c.Attributes = ParseKeyValuePairs(v)
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ParseKeyValuePairs parses "k1=v1,k2=v2". Values may contain '='.
func ParseKeyValuePairs(s string) map[string]string {
	result := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		result[key] = strings.TrimSpace(value)
	}
	return result
}
