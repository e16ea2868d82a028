package callgraph

import (
	"github.com/perf-diff/internal/callsite"
)

// TreeSet is a read-only view of calling-context trees per element.
type TreeSet interface {
	// Elements returns the root elements of the set.
	Elements() []Element
	// TreesFor returns the root call sites of one element.
	TreesFor(e Element) []*callsite.CallSite
}

// CallGraph maps grouping elements to calling-context trees.
//
// A CallGraph is not safe for concurrent mutation. Reads are safe once no
// goroutine mutates it anymore.
type CallGraph struct {
	roots    []Element
	rootSet  map[Element]struct{}
	trees    map[Element]*callsite.Set
	elements []Element

	kernelFrame func(callsite.Symbol) bool
}

// Option configures a CallGraph.
type Option func(*CallGraph)

// WithKernelSplit attaches the leading (innermost) frames of a stack that
// satisfy isKernel as an extra child chain of the innermost user frame.
func WithKernelSplit(isKernel func(callsite.Symbol) bool) Option {
	return func(g *CallGraph) {
		g.kernelFrame = isKernel
	}
}

// New creates an empty call graph.
func New(opts ...Option) *CallGraph {
	g := &CallGraph{
		rootSet: make(map[Element]struct{}),
		trees:   make(map[Element]*callsite.Set),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddAggregatedCallSite registers the top-most ancestor of e as a root
// element and adds site to the trees of e. A root with the same symbol
// absorbs site, which must not be used afterwards.
func (g *CallGraph) AddAggregatedCallSite(e Element, site *callsite.CallSite) {
	g.track(e)
	set, ok := g.trees[e]
	if !ok {
		set = callsite.NewSet()
		g.trees[e] = set
		g.elements = append(g.elements, e)
	}
	set.Add(site)
}

func (g *CallGraph) track(e Element) {
	root := Root(e)
	if _, ok := g.rootSet[root]; ok {
		return
	}
	g.rootSet[root] = struct{}{}
	g.roots = append(g.roots, root)
}

// AddStackTrace adds one observation of frames, ordered innermost first,
// to the trees of e with weight 1.
func (g *CallGraph) AddStackTrace(e Element, frames []callsite.Symbol) {
	g.AddWeightedStackTrace(e, frames, 1)
}

// AddWeightedStackTrace adds frames, ordered innermost first, to the trees
// of e. Every call site of the stack receives weight. Empty stacks are
// ignored.
func (g *CallGraph) AddWeightedStackTrace(e Element, frames []callsite.Symbol, weight int64) {
	if len(frames) == 0 {
		return
	}
	g.AddAggregatedCallSite(e, g.chain(frames, weight))
}

func (g *CallGraph) chain(frames []callsite.Symbol, weight int64) *callsite.CallSite {
	k := 0
	if g.kernelFrame != nil {
		for k < len(frames) && g.kernelFrame(frames[k]) {
			k++
		}
		if k == len(frames) {
			k = 0
		}
	}
	if k == 0 {
		return callsite.Chain(frames, weight)
	}

	leaf := callsite.New(frames[k], weight)
	leaf.AddExtraChild(callsite.Chain(frames[:k], weight))
	current := leaf
	for _, f := range frames[k+1:] {
		parent := callsite.New(f, weight)
		parent.AddCallee(current)
		current = parent
	}
	return current
}

// CallingContextTree returns the root call sites of e. The result is empty
// for unknown elements.
func (g *CallGraph) CallingContextTree(e Element) []*callsite.CallSite {
	set, ok := g.trees[e]
	if !ok {
		return []*callsite.CallSite{}
	}
	return set.Sites()
}

// TreesFor implements TreeSet.
func (g *CallGraph) TreesFor(e Element) []*callsite.CallSite {
	return g.CallingContextTree(e)
}

// Elements returns the tracked root elements in registration order.
func (g *CallGraph) Elements() []Element {
	out := make([]Element, len(g.roots))
	copy(out, g.roots)
	return out
}

// LeafElements returns every element that holds trees, in the order they
// first received data.
func (g *CallGraph) LeafElements() []Element {
	out := make([]Element, len(g.elements))
	copy(out, g.elements)
	return out
}

// TotalWeight sums the root weights of every element.
func (g *CallGraph) TotalWeight() int64 {
	var total int64
	for _, set := range g.trees {
		total += set.Weight()
	}
	return total
}

// Empty reports whether no call site was added.
func (g *CallGraph) Empty() bool {
	return len(g.elements) == 0
}

// Walk visits every call site of every element in pre-order.
func (g *CallGraph) Walk(fn func(e Element, site *callsite.CallSite, depth int) bool) {
	for _, e := range g.elements {
		for _, root := range g.trees[e].Sites() {
			root.Walk(func(site *callsite.CallSite, depth int) bool {
				return fn(e, site, depth)
			})
		}
	}
}

// Merge copies the trees of every element of graphs into a single Label
// element called name. The source graphs are left untouched.
func Merge(name string, graphs ...TreeSet) *CallGraph {
	merged := New()
	label := Label(name)
	for _, src := range graphs {
		for _, root := range src.Elements() {
			for _, e := range Descendants(root) {
				for _, site := range src.TreesFor(e) {
					merged.AddAggregatedCallSite(label, site.Copy())
				}
			}
		}
	}
	return merged
}
