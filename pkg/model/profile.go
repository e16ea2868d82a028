// Package model defines the data exchanged between parsers, the call-graph
// engine and the report sinks.
package model

// Kind tells how the values of a profile were obtained.
type Kind string

const (
	// KindSampled profiles carry sample counts per call stack.
	KindSampled Kind = "sampled"
	// KindInstrumented profiles carry timed spans.
	KindInstrumented Kind = "instrumented"
)

// Sample represents a single profiling sample.
type Sample struct {
	ProcessName string   `json:"process_name,omitempty"`
	PID         int      `json:"pid,omitempty"`
	ThreadName  string   `json:"thread_name"`
	TID         int      `json:"tid,omitempty"`
	CallStack   []string `json:"callstack"` // outermost frame first
	Value       int64    `json:"value"`
}

// Span is one timed call observed by an instrumenting tracer.
// Times are in nanoseconds.
type Span struct {
	ProcessName string `json:"process_name,omitempty"`
	PID         int    `json:"pid"`
	ThreadName  string `json:"thread_name,omitempty"`
	TID         int    `json:"tid"`
	Name        string `json:"name"`
	Start       int64  `json:"start"`
	Duration    int64  `json:"duration"`
	CPUTime     int64  `json:"cpu_time"` // -1 when unknown
}

// End returns the end timestamp of the span.
func (s *Span) End() int64 {
	return s.Start + s.Duration
}

// ThreadInfo summarizes the samples of one thread.
type ThreadInfo struct {
	PID        int     `json:"pid,omitempty"`
	TID        int     `json:"tid"`
	ThreadName string  `json:"thread_name"`
	Samples    int64   `json:"samples"`
	Percentage float64 `json:"percentage"`
}

// ParseResult holds the result of parsing profiling data.
type ParseResult struct {
	Format       string                 `json:"format"`
	Kind         Kind                   `json:"kind"`
	ValueType    string                 `json:"value_type,omitempty"`
	ValueUnit    string                 `json:"value_unit,omitempty"`
	Samples      []*Sample              `json:"samples,omitempty"`
	Spans        []*Span                `json:"spans,omitempty"`
	TotalSamples int64                  `json:"total_samples"`
	ThreadStats  map[string]*ThreadInfo `json:"thread_stats,omitempty"`
}

// Instrumented reports whether the result carries spans rather than samples.
func (r *ParseResult) Instrumented() bool {
	return r.Kind == KindInstrumented
}

// Empty reports whether the result carries no data at all.
func (r *ParseResult) Empty() bool {
	return len(r.Samples) == 0 && len(r.Spans) == 0
}
