// Package diff computes differential calling-context trees: trees of one
// profile annotated with the relative change of every call site versus a
// baseline profile.
package diff

import (
	"math"

	"github.com/perf-diff/internal/callgraph"
	"github.com/perf-diff/internal/callsite"
	"github.com/perf-diff/internal/metric"
)

// MergeName is the element name used by DiffGraphs.
const MergeName = "Merge"

// DiffTrees computes the differential trees of second against the
// baseline first. Every root of second yields one differential node whose
// weight is the root's own weight and whose difference is
//
//	(base - other) / other
//
// where other is the root of first with the same symbol. The difference is
// NaN when there is no such root or its value is zero.
//
// When statistic is not empty and a root of second exposes it, the values
// are that statistic instead of the raw weights; a missing statistic on
// the baseline side counts as zero. Callees are always compared on raw
// weights.
func DiffTrees(first, second []*callsite.CallSite, statistic string) []*callsite.CallSite {
	out := make([]*callsite.CallSite, 0, len(second))
	for _, base := range second {
		other := callsite.FindSymbol(first, base.Symbol())
		node := NewNode(base, relative(base, other, statistic))
		if other != nil {
			node.Payload().(*Difference).Baseline = other
		}

		var otherChildren, otherExtra []*callsite.CallSite
		if other != nil {
			otherChildren = other.Children()
			otherExtra = other.ExtraChildren()
		}
		for _, child := range DiffTrees(otherChildren, base.Children(), "") {
			node.AddCallee(child)
		}
		for _, extra := range DiffTrees(otherExtra, base.ExtraChildren(), "") {
			node.AddExtraChild(extra)
		}
		out = append(out, node)
	}
	return out
}

func relative(base, other *callsite.CallSite, statistic string) float64 {
	baseValue := base.Weight()
	var otherValue int64
	if other != nil {
		otherValue = other.Weight()
	}

	if statistic != "" {
		if v, ok := base.Statistic(statistic); ok {
			baseValue = v
			otherValue = 0
			if other != nil {
				if ov, ok := other.Statistic(statistic); ok {
					otherValue = ov
				}
			}
		}
	}

	if other == nil || otherValue == 0 {
		return math.NaN()
	}
	return float64(baseValue-otherValue) / float64(otherValue)
}

// Pair matches an element of the baseline tree set with one of the
// compared tree set.
type Pair struct {
	First  callgraph.Element
	Second callgraph.Element
}

// PairElements matches the elements of two tree sets. In order of
// preference:
//
//   - two single flat elements are paired together;
//   - elements equal on both sides are paired, recursing into the children
//     of matched hierarchical elements;
//   - failing that, hierarchical elements are paired by name, recursing
//     into children by name. Flat elements are never paired by name.
//
// It returns nil when nothing can be paired.
func PairElements(first, second []callgraph.Element) []Pair {
	if len(first) == 1 && len(second) == 1 && !isTree(first[0]) && !isTree(second[0]) {
		return []Pair{{First: first[0], Second: second[0]}}
	}
	if pairs := pairByEquality(first, second); len(pairs) > 0 {
		return pairs
	}
	return pairByName(first, second)
}

func isTree(e callgraph.Element) bool {
	_, ok := e.(callgraph.TreeElement)
	return ok
}

func children(e callgraph.Element) []callgraph.Element {
	te, ok := e.(callgraph.TreeElement)
	if !ok {
		return nil
	}
	kids := te.Children()
	out := make([]callgraph.Element, len(kids))
	for i, c := range kids {
		out[i] = c
	}
	return out
}

func pairByEquality(first, second []callgraph.Element) []Pair {
	var pairs []Pair
	for _, e1 := range first {
		for _, e2 := range second {
			if e1 != e2 {
				continue
			}
			pairs = append(pairs, Pair{First: e1, Second: e2})
			pairs = append(pairs, pairByEquality(children(e1), children(e2))...)
			break
		}
	}
	return pairs
}

// pairByName only considers hierarchical elements. An element of second
// may be paired with several elements of first.
func pairByName(first, second []callgraph.Element) []Pair {
	var pairs []Pair
	for _, e1 := range first {
		if !isTree(e1) {
			continue
		}
		for _, e2 := range second {
			if !isTree(e2) || e1.Name() != e2.Name() {
				continue
			}
			pairs = append(pairs, Pair{First: e1, Second: e2})
			pairs = append(pairs, pairByName(children(e1), children(e2))...)
			break
		}
	}
	return pairs
}

// DiffTreeSets pairs the elements of first and second and diffs the trees
// of every pair, second against first. The result is keyed by the
// elements of first and served through a Provider that takes its metadata
// from provider. It returns nil when no element could be paired.
func DiffTreeSets(provider callgraph.Provider, first, second callgraph.TreeSet) *Provider {
	pairs := PairElements(first.Elements(), second.Elements())
	if len(pairs) == 0 {
		return nil
	}

	set := newTreeSet(pairs)
	for _, p := range pairs {
		for _, node := range DiffTrees(first.TreesFor(p.First), second.TreesFor(p.Second), "") {
			set.graph.AddAggregatedCallSite(p.First, node)
		}
	}

	if provider == nil {
		provider = callgraph.NewGraphProvider("", metric.Samples, second)
	}
	return NewProvider(provider, set)
}

// DiffGraphs merges every tree set of each side into one element and diffs
// the merged trees, second against first, on statistic. When the second
// side has no data the sides are swapped. It returns nil when both sides
// are empty.
func DiffGraphs(provider callgraph.Provider, first, second []callgraph.TreeSet, statistic string) *Provider {
	a := callgraph.Merge(MergeName, first...)
	b := callgraph.Merge(MergeName, second...)
	if b.Empty() {
		a, b = b, a
	}
	if b.Empty() {
		return nil
	}

	label := callgraph.Label(MergeName)
	set := newTreeSet([]Pair{{First: label, Second: label}})
	for _, node := range DiffTrees(a.TreesFor(label), b.TreesFor(label), statistic) {
		set.graph.AddAggregatedCallSite(label, node)
	}

	if provider == nil {
		provider = callgraph.NewGraphProvider("", metric.Samples, b)
	}
	return NewProvider(provider, set)
}
