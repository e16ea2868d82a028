package diff

import (
	"github.com/perf-diff/internal/callgraph"
	"github.com/perf-diff/internal/callsite"
	"github.com/perf-diff/internal/metric"
)

// Title is the title of every differential provider.
const Title = "Differential tree"

// TreeSet holds differential trees keyed by the baseline elements.
type TreeSet struct {
	graph    *callgraph.CallGraph
	pairs    []Pair
	elements []callgraph.Element
}

func newTreeSet(pairs []Pair) *TreeSet {
	s := &TreeSet{graph: callgraph.New(), pairs: pairs}
	seen := make(map[callgraph.Element]bool)
	for _, p := range pairs {
		root := callgraph.Root(p.First)
		if !seen[root] {
			seen[root] = true
			s.elements = append(s.elements, root)
		}
	}
	return s
}

// Elements implements callgraph.TreeSet. It returns the root elements of
// every paired baseline element.
func (s *TreeSet) Elements() []callgraph.Element {
	out := make([]callgraph.Element, len(s.elements))
	copy(out, s.elements)
	return out
}

// TreesFor implements callgraph.TreeSet.
func (s *TreeSet) TreesFor(e callgraph.Element) []*callsite.CallSite {
	return s.graph.TreesFor(e)
}

// Pairs returns the element pairs the trees were computed for.
func (s *TreeSet) Pairs() []Pair {
	out := make([]Pair, len(s.pairs))
	copy(out, s.pairs)
	return out
}

// Walk visits every differential node.
func (s *TreeSet) Walk(fn func(e callgraph.Element, site *callsite.CallSite, depth int) bool) {
	s.graph.Walk(fn)
}

// Provider serves differential trees. Display data comes from the
// provider of the compared trees through each node's original call site.
type Provider struct {
	original callgraph.Provider
	trees    *TreeSet
}

// NewProvider wraps trees with the metadata of original.
func NewProvider(original callgraph.Provider, trees *TreeSet) *Provider {
	return &Provider{original: original, trees: trees}
}

// Title implements callgraph.Provider.
func (p *Provider) Title() string {
	return Title
}

// WeightType implements callgraph.Provider.
func (p *Provider) WeightType() metric.Type {
	return p.original.WeightType()
}

// AdditionalMetrics returns the Differential metric followed by the
// metrics of the original provider.
func (p *Provider) AdditionalMetrics() []metric.Type {
	return append([]metric.Type{metric.Differential}, p.original.AdditionalMetrics()...)
}

// AdditionalMetric implements callgraph.Provider. Index 0 is the relative
// change; higher indexes are read from the original provider.
func (p *Provider) AdditionalMetric(site *callsite.CallSite, index int) float64 {
	if index == 0 {
		return DifferenceOf(site)
	}
	return p.original.AdditionalMetric(OriginalOf(site), index-1)
}

// ToDisplayString implements callgraph.Provider.
func (p *Provider) ToDisplayString(site *callsite.CallSite) string {
	return p.original.ToDisplayString(OriginalOf(site))
}

// TreeSet implements callgraph.Provider.
func (p *Provider) TreeSet() callgraph.TreeSet {
	return p.trees
}

// Trees returns the differential tree set.
func (p *Provider) Trees() *TreeSet {
	return p.trees
}

// Original returns the wrapped provider.
func (p *Provider) Original() callgraph.Provider {
	return p.original
}
