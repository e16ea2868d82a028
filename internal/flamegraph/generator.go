package flamegraph

import (
	"context"
	"math"

	"github.com/perf-diff/internal/callgraph"
	"github.com/perf-diff/internal/callsite"
	"github.com/perf-diff/internal/diff"
	apperrors "github.com/perf-diff/pkg/errors"
	"github.com/perf-diff/pkg/profiling"
)

// GeneratorOptions holds configuration options for the flame graph generator.
type GeneratorOptions struct {
	// MinPercent is the minimum percentage of the total for a frame to be
	// included. Zero keeps everything.
	MinPercent float64

	// MaxDepth limits the call depth below each element. Zero means no limit.
	MaxDepth int

	// SplitModules moves the "(module)" suffix of frames into Node.Module.
	SplitModules bool

	// Palette classifies differential nodes into style keys.
	Palette *diff.Palette

	// FlameThreshold is the relative growth drawn as pure red.
	FlameThreshold float64
}

// DefaultGeneratorOptions returns default generator options.
func DefaultGeneratorOptions() *GeneratorOptions {
	return &GeneratorOptions{
		SplitModules:   true,
		Palette:        diff.DefaultPalette(),
		FlameThreshold: 1,
	}
}

// Generator turns the trees of a provider into flame graph data.
type Generator struct {
	opts *GeneratorOptions
}

// NewGenerator creates a new flame graph generator.
func NewGenerator(opts *GeneratorOptions) *Generator {
	if opts == nil {
		opts = DefaultGeneratorOptions()
	}
	if opts.Palette == nil {
		opts.Palette = diff.DefaultPalette()
	}
	return &Generator{opts: opts}
}

// Generate builds the flame graph of p. The first level below the root
// holds one node per element; differential providers get their nodes
// annotated with the relative change and its colors.
func (g *Generator) Generate(ctx context.Context, p callgraph.Provider) (*FlameGraph, error) {
	fg := NewFlameGraph(p.Title())
	fg.WeightType = p.WeightType().Title
	_, fg.Differential = p.(*diff.Provider)

	set := p.TreeSet()
	for _, e := range set.Elements() {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeCanceled, "flame graph generation canceled", err)
		}
		node := g.element(p, set, e, fg.Differential)
		fg.Root.AddChild(node)
		fg.Root.Value += node.Value
		fg.Root.Baseline += node.Baseline
	}
	if fg.Differential {
		g.annotateAggregate(fg.Root)
	}

	fg.TotalValue = fg.Root.Value
	fg.Cleanup(g.opts.MinPercent)
	fg.CalculateMaxDepth()
	return fg, nil
}

func (g *Generator) element(p callgraph.Provider, set callgraph.TreeSet, e callgraph.Element, differential bool) *Node {
	n := NewNode(e.Name(), KindElement, 0)
	for _, site := range set.TreesFor(e) {
		child := n.AddChild(g.frame(p, site, KindFrame, differential, 1))
		n.Value += child.Value
		n.Baseline += child.Baseline
	}
	if te, ok := e.(callgraph.TreeElement); ok {
		for _, c := range te.Children() {
			child := n.AddChild(g.element(p, set, c, differential))
			n.Value += child.Value
			n.Baseline += child.Baseline
		}
	}
	if differential {
		g.annotateAggregate(n)
	}
	return n
}

func (g *Generator) frame(p callgraph.Provider, site *callsite.CallSite, kind string, differential bool, depth int) *Node {
	name := p.ToDisplayString(site)
	var module string
	if g.opts.SplitModules {
		name, module = profiling.SplitFuncAndModule(name)
	}

	n := NewNode(name, kind, site.Weight())
	n.Module = module
	n.Self = site.Weight()
	g.metrics(n, p, site)
	if differential {
		n.Baseline = diff.BaselineWeight(site)
		g.annotate(n, diff.DifferenceOf(site))
	}

	if g.opts.MaxDepth > 0 && depth >= g.opts.MaxDepth {
		return n
	}
	for _, extra := range site.ExtraChildren() {
		child := n.AddChild(g.frame(p, extra, KindExtra, differential, depth+1))
		n.Self -= child.Value
	}
	for _, callee := range site.Children() {
		child := n.AddChild(g.frame(p, callee, KindFrame, differential, depth+1))
		n.Self -= child.Value
	}
	n.Self = max(n.Self, 0)
	return n
}

func (g *Generator) metrics(n *Node, p callgraph.Provider, site *callsite.CallSite) {
	for i, m := range p.AdditionalMetrics() {
		v := p.AdditionalMetric(site, i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if n.Metrics == nil {
			n.Metrics = make(map[string]float64)
		}
		n.Metrics[m.Title] = v
	}
}

func (g *Generator) annotate(n *Node, difference float64) {
	if !math.IsNaN(difference) {
		d := difference
		n.Difference = &d
	}
	n.Style = g.opts.Palette.Style(difference)
	n.Color = diff.FlameColor(difference, g.opts.FlameThreshold).Color
}

// annotateAggregate derives the change of an element or the root from the
// baseline weights of its children.
func (g *Generator) annotateAggregate(n *Node) {
	difference := math.NaN()
	if n.Baseline > 0 {
		difference = float64(n.Value-n.Baseline) / float64(n.Baseline)
	}
	g.annotate(n, difference)
}
