// Package pprof turns pprof protobuf profiles into samples.
package pprof

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/pprof/profile"

	"github.com/perf-diff/internal/parser"
	apperrors "github.com/perf-diff/pkg/errors"
	"github.com/perf-diff/pkg/model"
)

// Label keys read from samples.
const (
	LabelThread = "thread"
	LabelTID    = "tid"
	LabelPID    = "pid"
)

// alternatives lists sample type names that stand for the same value in
// profiles written by different tools.
var alternatives = map[string][]string{
	"cpu":           {"cpu", "nanoseconds", "samples"},
	"samples":       {"samples", "count"},
	"inuse_space":   {"inuse_space", "inuse_bytes"},
	"inuse_objects": {"inuse_objects", "inuse_count"},
	"alloc_space":   {"alloc_space", "alloc_bytes"},
	"alloc_objects": {"alloc_objects", "alloc_count"},
	"contentions":   {"contentions", "count"},
	"delay":         {"delay", "nanoseconds"},
}

// Options configures the pprof parser.
type Options struct {
	// SampleType selects the value to read. Empty selects the profile's
	// default sample type, or its last one.
	SampleType string
}

// Parser parses pprof profiles.
type Parser struct {
	opts Options
}

// NewParser creates a new pprof parser.
func NewParser(opts Options) *Parser {
	return &Parser{opts: opts}
}

// Register adds a pprof parser to registry.
func Register(registry *parser.Registry, opts Options) {
	registry.Register(NewParser(opts))
}

// SupportedFormats returns the formats supported by this parser.
func (p *Parser) SupportedFormats() []string {
	return []string{parser.FormatPprof}
}

// Name returns the name of this parser.
func (p *Parser) Name() string {
	return "pprof"
}

// Parse reads a (possibly gzipped) pprof profile. Samples with identical
// thread and stack are folded together.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*model.ParseResult, error) {
	prof, err := profile.Parse(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeParseError, "failed to parse pprof", err)
	}
	return p.Convert(ctx, prof)
}

// Convert turns an already decoded profile into samples.
func (p *Parser) Convert(ctx context.Context, prof *profile.Profile) (*model.ParseResult, error) {
	idx, err := sampleIndex(prof, p.opts.SampleType)
	if err != nil {
		return nil, err
	}

	result := &model.ParseResult{
		Format:      parser.FormatPprof,
		Kind:        model.KindSampled,
		ValueType:   prof.SampleType[idx].Type,
		ValueUnit:   prof.SampleType[idx].Unit,
		Samples:     make([]*model.Sample, 0),
		ThreadStats: make(map[string]*model.ThreadInfo),
	}
	process := mainBinary(prof)

	folded := make(map[string]*model.Sample)
	for _, s := range prof.Sample {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		value := s.Value[idx]
		if value == 0 || len(s.Location) == 0 {
			continue
		}

		sample := &model.Sample{
			ProcessName: process,
			PID:         int(numLabel(s, LabelPID)),
			ThreadName:  label(s, LabelThread),
			TID:         int(numLabel(s, LabelTID)),
			CallStack:   stack(s.Location),
		}
		key := fmt.Sprintf("%d/%s/%d;%s", sample.PID, sample.ThreadName, sample.TID, strings.Join(sample.CallStack, ";"))
		if prev, ok := folded[key]; ok {
			prev.Value += value
		} else {
			sample.Value = value
			folded[key] = sample
			result.Samples = append(result.Samples, sample)
		}
		result.TotalSamples += value
	}

	for _, s := range result.Samples {
		key := fmt.Sprintf("%d", s.TID)
		info, ok := result.ThreadStats[key]
		if !ok {
			info = &model.ThreadInfo{PID: s.PID, TID: s.TID, ThreadName: s.ThreadName}
			result.ThreadStats[key] = info
		}
		info.Samples += s.Value
	}
	if result.TotalSamples > 0 {
		for _, info := range result.ThreadStats {
			info.Percentage = float64(info.Samples) / float64(result.TotalSamples) * 100
		}
	}

	return result, nil
}

// sampleIndex finds the value index to read.
func sampleIndex(prof *profile.Profile, sampleType string) (int, error) {
	if len(prof.SampleType) == 0 {
		return 0, apperrors.New(apperrors.CodeEmptyData, "profile has no sample types")
	}
	if sampleType == "" {
		sampleType = prof.DefaultSampleType
	}
	if sampleType == "" {
		return len(prof.SampleType) - 1, nil
	}

	if i := findSampleType(prof, sampleType); i >= 0 {
		return i, nil
	}
	for _, alt := range alternatives[sampleType] {
		if i := findSampleType(prof, alt); i >= 0 {
			return i, nil
		}
	}
	return 0, apperrors.Wrapf(apperrors.CodeInvalidInput, nil, "sample type %q not found in profile", sampleType)
}

func findSampleType(prof *profile.Profile, name string) int {
	for i, st := range prof.SampleType {
		if st.Type == name {
			return i
		}
	}
	return -1
}

// stack lists the frames of locations root first. Inlined functions of a
// location are expanded outermost first.
func stack(locations []*profile.Location) []string {
	frames := make([]string, 0, len(locations))
	for i := len(locations) - 1; i >= 0; i-- {
		loc := locations[i]
		if len(loc.Line) == 0 {
			frames = append(frames, fmt.Sprintf("0x%x", loc.Address))
			continue
		}
		for j := len(loc.Line) - 1; j >= 0; j-- {
			name := ""
			if fn := loc.Line[j].Function; fn != nil {
				name = fn.Name
			}
			if name == "" {
				name = fmt.Sprintf("0x%x", loc.Address)
			}
			frames = append(frames, name)
		}
	}
	return frames
}

func label(s *profile.Sample, key string) string {
	if values := s.Label[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func numLabel(s *profile.Sample, key string) int64 {
	if values := s.NumLabel[key]; len(values) > 0 {
		return values[0]
	}
	return 0
}

func mainBinary(prof *profile.Profile) string {
	if len(prof.Mapping) == 0 || prof.Mapping[0].File == "" {
		return ""
	}
	return path.Base(prof.Mapping[0].File)
}
