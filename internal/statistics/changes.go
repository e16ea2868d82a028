// Package statistics summarizes parsed profiles and differential trees.
package statistics

import (
	"math"
	"sort"
	"strings"

	"github.com/perf-diff/internal/callgraph"
	"github.com/perf-diff/internal/callsite"
	"github.com/perf-diff/internal/diff"
	"github.com/perf-diff/internal/metric"
	"github.com/perf-diff/pkg/model"
)

// DefaultMinChange is the relative change below which a call site is
// considered unchanged.
const DefaultMinChange = 0.05

// ChangesCalculator extracts the call paths that moved the most from a
// differential provider.
type ChangesCalculator struct {
	topN      int
	minChange float64
}

// ChangesOption configures the ChangesCalculator.
type ChangesOption func(*ChangesCalculator)

// WithTopN sets the number of changes to return. Zero means no limit.
func WithTopN(n int) ChangesOption {
	return func(c *ChangesCalculator) {
		c.topN = n
	}
}

// WithMinChange sets the smallest relative change reported as a
// regression or an improvement.
func WithMinChange(v float64) ChangesOption {
	return func(c *ChangesCalculator) {
		c.minChange = math.Abs(v)
	}
}

// NewChangesCalculator creates a new ChangesCalculator.
func NewChangesCalculator(opts ...ChangesOption) *ChangesCalculator {
	c := &ChangesCalculator{
		topN:      20,
		minChange: DefaultMinChange,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChangesResult holds the calculation result.
type ChangesResult struct {
	Changes      []*model.Change
	NodeCount    int
	NewNodes     int
	BaseWeight   int64
	TargetWeight int64
}

// Calculate walks every differential tree of p. A call site without a
// baseline is reported once as added; its callees only count as new nodes.
// Changes are ordered by absolute weight delta, largest first.
func (c *ChangesCalculator) Calculate(p *diff.Provider) *ChangesResult {
	result := &ChangesResult{Changes: make([]*model.Change, 0)}
	if p == nil {
		return result
	}

	trees := p.Trees()
	var candidates []*model.Change
	for _, pair := range trees.Pairs() {
		name := ElementName(pair.First)
		for _, root := range trees.TreesFor(pair.First) {
			result.TargetWeight += root.Weight()
			result.BaseWeight += diff.BaselineWeight(root)
			c.visit(p, name, root, nil, false, result, &candidates)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		di, dj := absDelta(candidates[i]), absDelta(candidates[j])
		if di != dj {
			return di > dj
		}
		return strings.Join(candidates[i].Path, ";") < strings.Join(candidates[j].Path, ";")
	})
	if c.topN > 0 && len(candidates) > c.topN {
		candidates = candidates[:c.topN]
	}
	result.Changes = append(result.Changes, candidates...)
	return result
}

func (c *ChangesCalculator) visit(p *diff.Provider, element string, site *callsite.CallSite, parent []string, underNew bool, result *ChangesResult, out *[]*model.Change) {
	result.NodeCount++
	symbol := p.ToDisplayString(site)
	path := append(parent[:len(parent):len(parent)], symbol)

	difference := diff.DifferenceOf(site)
	isNew := !diff.HasBaseline(site)
	if isNew {
		result.NewNodes++
	}

	baseWeight := diff.BaselineWeight(site)
	if kind, ok := c.classify(difference, isNew, site.Weight() > baseWeight); ok && !underNew {
		change := &model.Change{
			Element:      element,
			Path:         path,
			Symbol:       symbol,
			Kind:         kind,
			BaseWeight:   baseWeight,
			TargetWeight: site.Weight(),
			Formatted:    metric.FormatDifferential(difference),
		}
		if kind == model.ChangeRegression && math.IsNaN(difference) {
			change.Formatted = metric.Generic(math.Inf(1))
		}
		if !math.IsNaN(difference) {
			d := difference
			change.Difference = &d
		}
		*out = append(*out, change)
	}

	for _, extra := range site.ExtraChildren() {
		c.visit(p, element, extra, path, underNew || isNew, result, out)
	}
	for _, callee := range site.Children() {
		c.visit(p, element, callee, path, underNew || isNew, result, out)
	}
}

// classify maps a relative difference to a change kind. A NaN difference
// means a new call site when there was no baseline match, and growth from
// a zero baseline value otherwise.
func (c *ChangesCalculator) classify(difference float64, isNew, grew bool) (model.ChangeKind, bool) {
	switch {
	case isNew:
		return model.ChangeAdded, true
	case math.IsNaN(difference):
		if grew {
			return model.ChangeRegression, true
		}
		return "", false
	case difference > c.minChange:
		return model.ChangeRegression, true
	case difference < -c.minChange:
		return model.ChangeImprovement, true
	}
	return "", false
}

func absDelta(c *model.Change) int64 {
	d := c.TargetWeight - c.BaseWeight
	if d < 0 {
		return -d
	}
	return d
}

// ElementName returns the display name of e: the full path for groups,
// the plain name otherwise.
func ElementName(e callgraph.Element) string {
	if g, ok := e.(*callgraph.Group); ok {
		return g.Path()
	}
	return e.Name()
}
