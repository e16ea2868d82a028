package selfprofile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sync"
)

// Collector records the profiles of one run between Start and Stop.
type Collector struct {
	config *Config

	mu      sync.Mutex
	running bool
	cpuFile *os.File
	files   []string
}

// NewCollector creates a new Collector.
func NewCollector(cfg *Config) (*Collector, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Collector{config: cfg}, nil
}

// Path returns the file a profile of type pt is written to.
func (c *Collector) Path(pt ProfileType) string {
	label := c.config.Label
	if label == "" {
		label = "run"
	}
	return filepath.Join(c.config.Dir, fmt.Sprintf("%s.%s.pb.gz", label, pt))
}

// Start enables the requested runtime profiles and starts the CPU profile.
func (c *Collector) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("collector is already running")
	}

	if err := os.MkdirAll(c.config.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if c.config.HasProfile(ProfileBlock) {
		runtime.SetBlockProfileRate(1)
	}
	if c.config.HasProfile(ProfileMutex) {
		runtime.SetMutexProfileFraction(1)
	}

	if c.config.HasProfile(ProfileCPU) {
		if c.config.CPURate > 0 {
			runtime.SetCPUProfileRate(c.config.CPURate)
		}
		path := c.Path(ProfileCPU)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			os.Remove(path)
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		c.cpuFile = f
	}

	c.running = true
	return nil
}

// Stop ends the CPU profile, writes a snapshot of every other requested
// profile and returns the written files. Stopping a stopped collector is
// a no-op.
func (c *Collector) Stop() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return c.files, nil
	}
	c.running = false

	var firstErr error
	if c.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := c.cpuFile.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close CPU profile: %w", err)
		} else {
			c.files = append(c.files, c.cpuFile.Name())
		}
		c.cpuFile = nil
	}

	for _, pt := range c.config.Profiles {
		if pt == ProfileCPU {
			continue
		}
		path := c.Path(pt)
		if err := c.writeSnapshot(pt, path); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		c.files = append(c.files, path)
	}

	runtime.SetBlockProfileRate(0)
	runtime.SetMutexProfileFraction(0)
	return c.files, firstErr
}

func (c *Collector) writeSnapshot(pt ProfileType, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s profile: %w", pt, err)
	}
	if err := Snapshot(pt, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Snapshot writes the current profile of type pt to w.
func Snapshot(pt ProfileType, w io.Writer) error {
	switch pt {
	case ProfileCPU:
		return fmt.Errorf("CPU profiles are recorded between Start and Stop")
	case ProfileHeap:
		runtime.GC()
		if err := pprof.WriteHeapProfile(w); err != nil {
			return fmt.Errorf("failed to write heap profile: %w", err)
		}
		return nil
	case ProfileGoroutine, ProfileBlock, ProfileMutex, ProfileAllocs:
		p := pprof.Lookup(string(pt))
		if p == nil {
			return fmt.Errorf("%s profile not found", pt)
		}
		if err := p.WriteTo(w, 0); err != nil {
			return fmt.Errorf("failed to write %s profile: %w", pt, err)
		}
		return nil
	}
	return fmt.Errorf("unknown profile type: %s", pt)
}

// Run records the profiles configured in cfg while fn runs. A disabled
// config runs fn alone.
func Run(cfg *Config, fn func() error) ([]string, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fn()
	}

	c, err := NewCollector(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Start(); err != nil {
		return nil, err
	}

	runErr := fn()
	files, stopErr := c.Stop()
	if runErr != nil {
		return files, runErr
	}
	return files, stopErr
}
