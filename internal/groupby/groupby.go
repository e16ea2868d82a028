// Package groupby regroups a call graph along a coarser level of its
// element hierarchy.
package groupby

import (
	"strings"

	"github.com/perf-diff/internal/callgraph"
)

// AllName is the name of the element produced when grouping by
// callgraph.All.
const AllName = "All"

// GroupBy returns a new call graph whose elements are the elements of src
// at level target. The trees of every element below a matching element
// are folded into it. Elements above the target level are kept as empty
// placeholders, and subtrees without a matching element are dropped.
//
// Every call site of the result is a copy; src is not modified.
func GroupBy(target callgraph.Descriptor, src *callgraph.CallGraph) *callgraph.CallGraph {
	dst := callgraph.New()
	if target == nil {
		return dst
	}

	if target.IsAll() {
		all := callgraph.NewGroup(AllName, target)
		for _, root := range src.Elements() {
			fold(dst, src, all, root)
		}
		return dst
	}

	for _, root := range src.Elements() {
		regroup(dst, src, nil, root, target)
	}
	return dst
}

func regroup(dst, src *callgraph.CallGraph, parent *callgraph.Group, e callgraph.Element, target callgraph.Descriptor) {
	te, ok := e.(callgraph.TreeElement)
	if !ok {
		return
	}

	if te.Descriptor() == target {
		fold(dst, src, child(parent, te.Name(), target), te)
		return
	}

	placeholder := child(parent, te.Name(), te.Descriptor())
	for _, c := range te.Children() {
		regroup(dst, src, placeholder, c, target)
	}
}

func child(parent *callgraph.Group, name string, d callgraph.Descriptor) *callgraph.Group {
	if parent == nil {
		return callgraph.NewGroup(name, d)
	}
	return parent.ChildOrNew(name, d)
}

// fold copies the trees of e and of every element below it into into.
func fold(dst, src *callgraph.CallGraph, into callgraph.Element, e callgraph.Element) {
	for _, d := range callgraph.Descendants(e) {
		for _, site := range src.TreesFor(d) {
			dst.AddAggregatedCallSite(into, site.Copy())
		}
	}
}

// ByName resolves the level called name in chain. "all" (any case)
// resolves to callgraph.All. It returns nil when no level matches.
func ByName(chain callgraph.Descriptor, name string) callgraph.Descriptor {
	if strings.EqualFold(name, callgraph.All.Name()) {
		return callgraph.All
	}
	for _, d := range callgraph.Levels(chain) {
		if strings.EqualFold(d.Name(), name) {
			return d
		}
	}
	return nil
}

// LevelNames lists the names accepted by ByName for chain.
func LevelNames(chain callgraph.Descriptor) []string {
	names := []string{callgraph.All.Name()}
	for _, d := range callgraph.Levels(chain) {
		names = append(names, strings.ToLower(d.Name()))
	}
	return names
}
