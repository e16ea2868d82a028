package callgraph

import (
	"context"
	"sort"
	"strconv"

	"github.com/perf-diff/internal/callsite"
	"github.com/perf-diff/pkg/model"
	"github.com/perf-diff/pkg/profiling"
)

// Grouping levels produced by the Generator.
var (
	ThreadLevel  = &Level{name: "Thread"}
	ProcessLevel = &Level{name: "Process", next: ThreadLevel}
)

// GeneratorOptions holds configuration options for the call graph generator.
type GeneratorOptions struct {
	// IncludeSwapper includes swapper (idle) threads.
	IncludeSwapper bool

	// KernelSuffix marks kernel frames (e.g. "_[k]" in perf output).
	// Leading kernel frames of a stack are attached as extra children of
	// the innermost user frame. Empty disables the split.
	KernelSuffix string

	// ThreadGroups folds numbered threads of a pool ("worker-1",
	// "worker-2") into one thread element ("worker").
	ThreadGroups bool
}

// DefaultGeneratorOptions returns default generator options.
func DefaultGeneratorOptions() *GeneratorOptions {
	return &GeneratorOptions{
		IncludeSwapper: false,
		KernelSuffix:   profiling.DefaultKernelSuffix,
		ThreadGroups:   false,
	}
}

// Generator builds call graphs with a process -> thread hierarchy from
// parsed profiling data.
type Generator struct {
	opts *GeneratorOptions
}

// NewGenerator creates a new call graph generator.
func NewGenerator(opts *GeneratorOptions) *Generator {
	if opts == nil {
		opts = DefaultGeneratorOptions()
	}
	return &Generator{opts: opts}
}

// Hierarchy returns the descriptor chain of the graphs built by g.
func (g *Generator) Hierarchy() Descriptor {
	return ProcessLevel
}

type elementIndex struct {
	processes map[string]*Group
	order     []*Group
}

func newElementIndex() *elementIndex {
	return &elementIndex{processes: make(map[string]*Group)}
}

func (g *Generator) thread(idx *elementIndex, processName string, pid int, threadName string, tid int) *Group {
	pname := processName
	if pname == "" {
		pname = idName(pid)
	}
	proc, ok := idx.processes[pname]
	if !ok {
		proc = NewGroup(pname, ProcessLevel)
		idx.processes[pname] = proc
		idx.order = append(idx.order, proc)
	}

	tname := threadName
	if tname == "" {
		tname = idName(tid)
	} else if g.opts.ThreadGroups {
		tname = profiling.ExtractThreadGroup(tname)
	}
	return proc.ChildOrNew(tname, ThreadLevel)
}

func idName(id int) string {
	if id <= 0 {
		return "unknown"
	}
	return strconv.Itoa(id)
}

func (g *Generator) graph() *CallGraph {
	if g.opts.KernelSuffix == "" {
		return New()
	}
	suffix := g.opts.KernelSuffix
	return New(WithKernelSplit(func(s callsite.Symbol) bool {
		name, ok := s.(string)
		return ok && profiling.IsKernelFrame(name, suffix)
	}))
}

// Generate builds a call graph from sampled call stacks.
func (g *Generator) Generate(ctx context.Context, samples []*model.Sample) (*CallGraph, error) {
	cg := g.graph()
	idx := newElementIndex()

	for _, sample := range samples {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if len(sample.CallStack) == 0 {
			continue
		}
		if !g.opts.IncludeSwapper && profiling.IsSwapperThread(sample.ThreadName) {
			continue
		}

		thread := g.thread(idx, sample.ProcessName, sample.PID, sample.ThreadName, sample.TID)
		cg.AddWeightedStackTrace(thread, innermostFirst(sample.CallStack), sample.Value)
	}

	return cg, nil
}

// innermostFirst reverses a root-first call stack.
func innermostFirst(stack []string) []callsite.Symbol {
	frames := make([]callsite.Symbol, len(stack))
	for i, f := range stack {
		frames[len(stack)-1-i] = f
	}
	return frames
}

type spanNode struct {
	span     *model.Span
	children []*spanNode
}

// GenerateFromSpans builds a call graph from instrumented spans. Spans of
// one thread are nested by time containment; each top-level span becomes
// a root call site with timing data.
func (g *Generator) GenerateFromSpans(ctx context.Context, spans []*model.Span) (*CallGraph, error) {
	cg := New()
	idx := newElementIndex()

	var threads []*Group
	perThread := make(map[*Group][]*model.Span)
	for _, s := range spans {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !g.opts.IncludeSwapper && profiling.IsSwapperThread(s.ThreadName) {
			continue
		}
		thread := g.thread(idx, s.ProcessName, s.PID, s.ThreadName, s.TID)
		if _, ok := perThread[thread]; !ok {
			threads = append(threads, thread)
		}
		perThread[thread] = append(perThread[thread], s)
	}

	for _, thread := range threads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, root := range nestSpans(perThread[thread]) {
			cg.AddAggregatedCallSite(thread, root.site())
		}
	}

	return cg, nil
}

// nestSpans orders spans by start (longest first on ties) and nests each
// one under the innermost open span that fully contains it.
func nestSpans(spans []*model.Span) []*spanNode {
	sorted := make([]*model.Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].Duration > sorted[j].Duration
	})

	var roots, stack []*spanNode
	for _, s := range sorted {
		for len(stack) > 0 {
			top := stack[len(stack)-1].span
			if top.End() > s.Start && s.End() <= top.End() {
				break
			}
			stack = stack[:len(stack)-1]
		}
		n := &spanNode{span: s}
		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, n)
		}
		stack = append(stack, n)
	}
	return roots
}

func (n *spanNode) site() *callsite.CallSite {
	site := callsite.NewInstrumented(n.span.Name, n.span.Duration, n.span.CPUTime)
	for _, c := range n.children {
		site.AddCall(c.site())
	}
	return site
}
