package collapsed

import (
	"bufio"
	"context"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/perf-diff/internal/parser"
	apperrors "github.com/perf-diff/pkg/errors"
	"github.com/perf-diff/pkg/model"
	"github.com/perf-diff/pkg/profiling"
)

// maxLineSize bounds a single collapsed line. Deep Java stacks easily
// exceed bufio's default.
const maxLineSize = 4 * 1024 * 1024

// ParserOptions holds configuration options for the collapsed parser.
type ParserOptions struct {
	// IncludeSwapper counts idle samples in TotalSamples.
	IncludeSwapper bool

	// KeepModules keeps "(module)" suffixes on frames.
	KeepModules bool

	// StrictMode fails on the first malformed line instead of skipping it.
	StrictMode bool
}

// DefaultParserOptions returns default parser options.
func DefaultParserOptions() *ParserOptions {
	return &ParserOptions{}
}

// Option configures a Parser.
type Option func(*ParserOptions)

// WithStrictMode fails parsing on malformed lines.
func WithStrictMode(strict bool) Option {
	return func(o *ParserOptions) { o.StrictMode = strict }
}

// WithIncludeSwapper counts idle samples.
func WithIncludeSwapper(include bool) Option {
	return func(o *ParserOptions) { o.IncludeSwapper = include }
}

// WithKeepModules keeps module suffixes on frames.
func WithKeepModules(keep bool) Option {
	return func(o *ParserOptions) { o.KeepModules = keep }
}

// Parser implements the collapsed format parser.
type Parser struct {
	opts *ParserOptions
}

// NewParser creates a new collapsed format parser.
func NewParser(opts *ParserOptions) *Parser {
	if opts == nil {
		opts = DefaultParserOptions()
	}
	return &Parser{opts: opts}
}

// New creates a parser from functional options.
func New(opts ...Option) *Parser {
	o := DefaultParserOptions()
	for _, opt := range opts {
		opt(o)
	}
	return NewParser(o)
}

// Register adds a default collapsed parser to registry.
func Register(registry *parser.Registry, opts ...Option) {
	registry.Register(New(opts...))
}

// SupportedFormats returns the formats supported by this parser.
func (p *Parser) SupportedFormats() []string {
	return []string{parser.FormatCollapsed, parser.FormatFolded}
}

// Name returns the name of this parser.
func (p *Parser) Name() string {
	return "collapsed"
}

type threadKey struct {
	pid  int
	tid  int
	name string
}

// Parse reads collapsed stacks. Every valid line becomes one sample whose
// call stack is listed outermost frame first.
func (p *Parser) Parse(ctx context.Context, reader io.Reader) (*model.ParseResult, error) {
	result := &model.ParseResult{
		Format:    parser.FormatCollapsed,
		Kind:      model.KindSampled,
		ValueType: "samples",
		Samples:   make([]*model.Sample, 0),
	}

	threads := make(map[threadKey]*model.ThreadInfo)
	var allSamples int64

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sample, err := p.parseLine(line)
		if err != nil {
			if p.opts.StrictMode {
				return nil, apperrors.Wrapf(apperrors.CodeParseError, err, "line %d", lineNum)
			}
			continue
		}
		if sample == nil {
			continue
		}

		allSamples += sample.Value
		if p.opts.IncludeSwapper || !profiling.IsSwapperThread(sample.ThreadName) {
			result.TotalSamples += sample.Value
		}

		key := threadKey{pid: sample.PID, tid: sample.TID, name: sample.ThreadName}
		info, ok := threads[key]
		if !ok {
			info = &model.ThreadInfo{PID: sample.PID, TID: sample.TID, ThreadName: sample.ThreadName}
			threads[key] = info
		}
		info.Samples += sample.Value

		result.Samples = append(result.Samples, sample)
	}

	if err := scanner.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeParseError, "failed to read input", err)
	}

	result.ThreadStats = buildThreadStats(threads, allSamples)
	return result, nil
}

// parseLine parses "thread;frame;...;frame count". It returns nil for
// records that are silently dropped.
func (p *Parser) parseLine(line string) (*model.Sample, error) {
	lastSpace := strings.LastIndexAny(line, " \t")
	if lastSpace == -1 {
		return nil, parser.ErrInvalidFormat
	}

	count, err := strconv.ParseInt(line[lastSpace+1:], 10, 64)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeParseError, "invalid count value", err)
	}
	if count <= 0 {
		return nil, nil
	}

	parts := strings.Split(strings.TrimSpace(line[:lastSpace]), ";")
	if IsGarbage(parts[0]) {
		return nil, nil
	}
	thread := ExtractThreadInfo(parts[0])

	frames := parts[1:]
	if len(frames) > 0 && apmThreadRegex.MatchString(frames[0]) {
		frames = frames[1:]
	}

	stack := make([]string, 0, len(frames))
	for _, frame := range frames {
		if frame == "" || frame == "[]" {
			continue
		}
		stack = append(stack, cleanFrame(frame, p.opts.KeepModules))
	}

	return &model.Sample{
		PID:        thread.PID,
		ThreadName: thread.ThreadName,
		TID:        thread.TID,
		CallStack:  stack,
		Value:      count,
	}, nil
}

func buildThreadStats(threads map[threadKey]*model.ThreadInfo, total int64) map[string]*model.ThreadInfo {
	result := make(map[string]*model.ThreadInfo, len(threads))
	if total == 0 {
		return result
	}

	infos := make([]*model.ThreadInfo, 0, len(threads))
	for _, info := range threads {
		info.Percentage = float64(info.Samples) / float64(total) * 100
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Samples != infos[j].Samples {
			return infos[i].Samples > infos[j].Samples
		}
		return infos[i].ThreadName < infos[j].ThreadName
	})

	for _, info := range infos {
		key := strconv.Itoa(info.TID)
		if info.TID < 0 {
			key = info.ThreadName
		}
		if _, dup := result[key]; dup {
			key = info.ThreadName + "/" + key
		}
		result[key] = info
	}
	return result
}
