// Package selfprofile records pprof profiles of the running tool. Every
// profile is written as a gzip-compressed protobuf file that perf-diff can
// read back, so two runs of a command can be compared with each other.
package selfprofile

import (
	"fmt"
	"strings"
)

// ProfileType defines the type of profile to collect.
type ProfileType string

const (
	ProfileCPU       ProfileType = "cpu"
	ProfileHeap      ProfileType = "heap"
	ProfileGoroutine ProfileType = "goroutine"
	ProfileBlock     ProfileType = "block"
	ProfileMutex     ProfileType = "mutex"
	ProfileAllocs    ProfileType = "allocs"
)

// AllProfileTypes returns all supported profile types.
func AllProfileTypes() []ProfileType {
	return []ProfileType{
		ProfileCPU,
		ProfileHeap,
		ProfileGoroutine,
		ProfileBlock,
		ProfileMutex,
		ProfileAllocs,
	}
}

// DefaultProfileTypes returns the profile types collected when none are
// given.
func DefaultProfileTypes() []ProfileType {
	return []ProfileType{ProfileCPU, ProfileHeap}
}

// ParseProfileTypes parses a comma-separated string into profile types.
func ParseProfileTypes(s string) ([]ProfileType, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultProfileTypes(), nil
	}

	valid := make(map[ProfileType]bool)
	for _, pt := range AllProfileTypes() {
		valid[pt] = true
	}

	parts := strings.Split(s, ",")
	types := make([]ProfileType, 0, len(parts))
	for _, p := range parts {
		pt := ProfileType(strings.TrimSpace(strings.ToLower(p)))
		if !valid[pt] {
			return nil, fmt.Errorf("unknown profile type: %q", p)
		}
		types = append(types, pt)
	}
	return types, nil
}

// Config holds the self-profiling configuration.
type Config struct {
	Enabled bool `mapstructure:"enabled"`

	// Dir receives one "<label>.<type>.pb.gz" file per profile type.
	Dir string `mapstructure:"dir"`

	// Label prefixes the file names, e.g. the command name.
	Label string `mapstructure:"label"`

	Profiles []ProfileType `mapstructure:"profiles"`

	// CPURate is the CPU sampling rate in Hz. Zero keeps the runtime
	// default.
	CPURate int `mapstructure:"cpu_rate"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Dir:      "./self-profile",
		Label:    "run",
		Profiles: DefaultProfileTypes(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Profiles) == 0 {
		return fmt.Errorf("at least one profile type must be specified")
	}
	if c.Dir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.CPURate < 0 {
		return fmt.Errorf("CPU rate must not be negative")
	}
	return nil
}

// HasProfile checks if a profile type is enabled.
func (c *Config) HasProfile(pt ProfileType) bool {
	for _, p := range c.Profiles {
		if p == pt {
			return true
		}
	}
	return false
}
