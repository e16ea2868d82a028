// Package chrome reads Chrome trace-event JSON (as written by Chrome
// tracing, Perfetto exports and many tracers) into timed spans.
//
// Complete events ("X") and matched begin/end pairs ("B"/"E") become spans;
// "process_name" and "thread_name" metadata events name their owners.
// Timestamps are in microseconds and converted to nanoseconds.
package chrome

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strconv"

	gojson "github.com/goccy/go-json"

	"github.com/perf-diff/internal/parser"
	apperrors "github.com/perf-diff/pkg/errors"
	"github.com/perf-diff/pkg/model"
)

// Event is one trace event.
type Event struct {
	Name  string         `json:"name"`
	Phase string         `json:"ph"`
	PID   int            `json:"pid"`
	TID   int            `json:"tid"`
	TS    float64        `json:"ts"`
	Dur   float64        `json:"dur"`
	TDur  *float64       `json:"tdur,omitempty"`
	TTS   *float64       `json:"tts,omitempty"`
	Args  map[string]any `json:"args,omitempty"`
}

type document struct {
	TraceEvents []Event `json:"traceEvents"`
}

// Parser parses Chrome trace-event files.
type Parser struct{}

// NewParser creates a new Chrome trace parser.
func NewParser() *Parser {
	return &Parser{}
}

// Register adds a Chrome trace parser to registry.
func Register(registry *parser.Registry) {
	registry.Register(NewParser())
}

// SupportedFormats returns the formats supported by this parser.
func (p *Parser) SupportedFormats() []string {
	return []string{parser.FormatChrome, "trace-event"}
}

// Name returns the name of this parser.
func (p *Parser) Name() string {
	return "chrome"
}

type threadID struct{ pid, tid int }

// Parse decodes the trace. Both the object form {"traceEvents": [...]}
// and the bare array form are accepted.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*model.ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeParseError, "failed to read input", err)
	}
	events, err := decode(data)
	if err != nil {
		return nil, err
	}
	return p.Convert(ctx, events)
}

func decode(data []byte) ([]Event, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, parser.ErrEmptyInput
	}

	var events []Event
	if trimmed[0] == '[' {
		if err := gojson.Unmarshal(trimmed, &events); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeParseError, "invalid trace event array", err)
		}
		return events, nil
	}

	var doc document
	if err := gojson.Unmarshal(trimmed, &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeParseError, "invalid trace document", err)
	}
	return doc.TraceEvents, nil
}

// Convert turns decoded events into spans. Unmatched "E" events are
// ignored and unmatched "B" events are dropped.
func (p *Parser) Convert(ctx context.Context, events []Event) (*model.ParseResult, error) {
	processes := make(map[int]string)
	threads := make(map[threadID]string)
	open := make(map[threadID][]Event)
	var spans []*model.Span

	for _, ev := range events {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		id := threadID{ev.PID, ev.TID}
		switch ev.Phase {
		case "M":
			name, _ := ev.Args["name"].(string)
			switch ev.Name {
			case "process_name":
				processes[ev.PID] = name
			case "thread_name":
				threads[id] = name
			}
		case "X":
			spans = append(spans, newSpan(ev, ev.Dur, ev.TDur))
		case "B":
			open[id] = append(open[id], ev)
		case "E":
			stack := open[id]
			if len(stack) == 0 {
				continue
			}
			begin := stack[len(stack)-1]
			open[id] = stack[:len(stack)-1]
			var cpu *float64
			if begin.TTS != nil && ev.TTS != nil {
				d := *ev.TTS - *begin.TTS
				cpu = &d
			}
			spans = append(spans, newSpan(begin, ev.TS-begin.TS, cpu))
		}
	}

	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Start < spans[j].Start
	})

	result := &model.ParseResult{
		Format:      parser.FormatChrome,
		Kind:        model.KindInstrumented,
		ValueType:   "duration",
		ValueUnit:   "nanoseconds",
		Spans:       spans,
		ThreadStats: make(map[string]*model.ThreadInfo),
	}
	for _, s := range spans {
		s.ProcessName = processes[s.PID]
		s.ThreadName = threads[threadID{s.PID, s.TID}]

		key := strconv.Itoa(s.PID) + "/" + strconv.Itoa(s.TID)
		info, ok := result.ThreadStats[key]
		if !ok {
			info = &model.ThreadInfo{PID: s.PID, TID: s.TID, ThreadName: s.ThreadName}
			result.ThreadStats[key] = info
		}
		info.Samples++
		result.TotalSamples++
	}
	for _, info := range result.ThreadStats {
		info.Percentage = float64(info.Samples) / float64(result.TotalSamples) * 100
	}
	return result, nil
}

func newSpan(ev Event, durMicros float64, cpuMicros *float64) *model.Span {
	cpu := int64(-1)
	if cpuMicros != nil {
		cpu = micros(*cpuMicros)
	}
	return &model.Span{
		PID:      ev.PID,
		TID:      ev.TID,
		Name:     ev.Name,
		Start:    micros(ev.TS),
		Duration: micros(durMicros),
		CPUTime:  cpu,
	}
}

func micros(v float64) int64 {
	return int64(v*1000 + 0.5)
}
