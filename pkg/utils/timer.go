package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Stage is one timed step of a pipeline run.
type Stage struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`

	start     time.Time
	completed bool
}

// StageTimer records the duration of named pipeline stages in start order.
type StageTimer struct {
	mu      sync.Mutex
	name    string
	clock   Clock
	started time.Time
	stages  []*Stage
	index   map[string]*Stage
	logger  Logger
}

// TimerOption configures a StageTimer.
type TimerOption func(*StageTimer)

// WithClock sets the clock used for measurements.
func WithClock(clock Clock) TimerOption {
	return func(t *StageTimer) {
		t.clock = clock
	}
}

// WithLogger makes Summary lines go to logger at debug level as stages finish.
func WithLogger(logger Logger) TimerOption {
	return func(t *StageTimer) {
		t.logger = logger
	}
}

// NewStageTimer creates a timer named after the pipeline it measures.
func NewStageTimer(name string, opts ...TimerOption) *StageTimer {
	t := &StageTimer{
		name:  name,
		clock: NewRealClock(),
		index: make(map[string]*Stage),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.started = t.clock.Now()
	return t
}

// Start begins timing stage and returns a function that stops it.
// Restarting a completed stage is a no-op that returns the original stop.
func (t *StageTimer) Start(stage string) func() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.index[stage]; !ok {
		s := &Stage{Name: stage, start: t.clock.Now()}
		t.stages = append(t.stages, s)
		t.index[stage] = s
	}
	return func() time.Duration { return t.Stop(stage) }
}

// Stop ends stage and returns its duration. Only the first call counts.
func (t *StageTimer) Stop(stage string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.index[stage]
	if !ok {
		return 0
	}
	if !s.completed {
		s.Duration = t.clock.Since(s.start)
		s.completed = true
		if t.logger != nil {
			t.logger.Debug("%s: %s took %v", t.name, stage, s.Duration)
		}
	}
	return s.Duration
}

// Time runs fn as stage.
func (t *StageTimer) Time(stage string, fn func() error) error {
	stop := t.Start(stage)
	defer stop()
	return fn()
}

// Duration returns the recorded duration of stage.
func (t *StageTimer) Duration(stage string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.index[stage]; ok {
		return s.Duration
	}
	return 0
}

// Total returns the time since the timer was created.
func (t *StageTimer) Total() time.Duration {
	return t.clock.Since(t.started)
}

// Stages returns copies of the recorded stages in start order.
func (t *StageTimer) Stages() []Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Stage, 0, len(t.stages))
	for _, s := range t.stages {
		out = append(out, Stage{Name: s.Name, Duration: s.Duration})
	}
	return out
}

// Summary renders one line per stage followed by the total.
func (t *StageTimer) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s timings ===\n", t.name)
	for i, s := range t.Stages() {
		fmt.Fprintf(&sb, "%d. %s: %v\n", i+1, s.Name, s.Duration)
	}
	fmt.Fprintf(&sb, "total: %v\n", t.Total())
	return sb.String()
}
