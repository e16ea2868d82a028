package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/perf-diff/internal/callgraph"
	"github.com/perf-diff/internal/groupby"
	"github.com/perf-diff/internal/metric"
	apperrors "github.com/perf-diff/pkg/errors"
	"github.com/perf-diff/pkg/model"
)

// graphBuilder turns parse results into grouped call graphs.
type graphBuilder struct {
	generator *callgraph.Generator
	target    callgraph.Descriptor
}

func (s *Service) newGraphBuilder(groupBy string) (*graphBuilder, error) {
	opts := &callgraph.GeneratorOptions{
		IncludeSwapper: s.config.Analysis.IncludeSwapper,
		ThreadGroups:   s.config.Analysis.ThreadGroups,
	}
	if s.config.Analysis.KernelSplit {
		opts.KernelSuffix = s.config.Analysis.KernelSuffix
	}
	gen := callgraph.NewGenerator(opts)

	if groupBy == "" {
		groupBy = s.config.Analysis.GroupBy
	}
	target := groupby.ByName(gen.Hierarchy(), groupBy)
	if target == nil {
		return nil, apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf(
			"unknown group-by level %q, expected one of %s",
			groupBy, strings.Join(groupby.LevelNames(gen.Hierarchy()), ", ")))
	}
	return &graphBuilder{generator: gen, target: target}, nil
}

// build creates the call graph of one or more parse results of the same
// kind and regroups it.
func (b *graphBuilder) build(ctx context.Context, results ...*model.ParseResult) (*callgraph.CallGraph, error) {
	var (
		g   *callgraph.CallGraph
		err error
	)
	if len(results) > 0 && results[0].Instrumented() {
		var spans []*model.Span
		for _, r := range results {
			spans = append(spans, r.Spans...)
		}
		g, err = b.generator.GenerateFromSpans(ctx, spans)
	} else {
		var samples []*model.Sample
		for _, r := range results {
			samples = append(samples, r.Samples...)
		}
		g, err = b.generator.Generate(ctx, samples)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCanceled, "call graph construction canceled", err)
	}
	if g.Empty() {
		return nil, apperrors.New(apperrors.CodeEmptyData, "no call stacks left after filtering")
	}
	return groupby.GroupBy(b.target, g), nil
}

// checkKinds fails when results mix sampled and instrumented profiles.
func checkKinds(results ...*model.ParseResult) error {
	for _, r := range results[1:] {
		if r.Instrumented() != results[0].Instrumented() {
			return apperrors.New(apperrors.CodeInvalidInput,
				"cannot combine sampled and instrumented profiles")
		}
	}
	return nil
}

// newProvider wraps g with the weight type of results.
func newProvider(title string, g callgraph.TreeSet, results ...*model.ParseResult) *callgraph.GraphProvider {
	if len(results) > 0 && results[0].Instrumented() {
		return callgraph.NewGraphProvider(title, metric.Duration, g,
			callgraph.WithMetrics(callgraph.InstrumentedMetrics...))
	}
	return callgraph.NewGraphProvider(title, weightType(results...), g)
}

// weightType maps the value unit of the profiles onto a metric type. The
// first result decides.
func weightType(results ...*model.ParseResult) metric.Type {
	if len(results) == 0 {
		return metric.Samples
	}
	switch strings.ToLower(results[0].ValueUnit) {
	case "nanoseconds", "ns":
		return metric.Duration
	case "bytes":
		return metric.Bytes
	}
	return metric.Samples
}

func profileTitle(results ...*model.ParseResult) string {
	if len(results) > 0 && results[0].ValueType != "" {
		return results[0].ValueType
	}
	return "Samples"
}
