package diff

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perf-diff/internal/callgraph"
	"github.com/perf-diff/internal/callsite"
	"github.com/perf-diff/internal/metric"
)

func instrumentedGraph(duration, childDuration int64) (*callgraph.CallGraph, callgraph.Element) {
	g := callgraph.New()
	e := callgraph.Label("main-thread")
	site := callsite.NewInstrumented("handle", duration, 4)
	site.AddCall(callsite.NewInstrumented("query", childDuration, callsite.TimeUnknown))
	g.AddAggregatedCallSite(e, site)
	return g, e
}

func TestProvider(t *testing.T) {
	g1, e := instrumentedGraph(100, 40)
	g2, _ := instrumentedGraph(150, 40)
	original := callgraph.NewGraphProvider("Spans", metric.Duration, g2,
		callgraph.WithMetrics(callgraph.InstrumentedMetrics...),
		callgraph.WithSymbolFormatter(func(s callsite.Symbol) string {
			return strings.ToUpper(callsite.FormatSymbol(s))
		}))

	p := DiffTreeSets(original, g1, g2)
	require.NotNil(t, p)

	assert.Equal(t, Title, p.Title())
	assert.Equal(t, metric.Duration.Title, p.WeightType().Title)
	assert.Same(t, original, p.Original())

	metrics := p.AdditionalMetrics()
	require.Len(t, metrics, 4)
	assert.Equal(t, metric.DifferentialTitle, metrics[0].Title)
	assert.Equal(t, callsite.StatSelfTime, metrics[1].Title)
	assert.Equal(t, callsite.StatCPUTime, metrics[2].Title)
	assert.Equal(t, callsite.StatCalls, metrics[3].Title)

	roots := p.TreeSet().TreesFor(e)
	require.Len(t, roots, 1)
	root := roots[0]

	assert.InDelta(t, 0.5, p.AdditionalMetric(root, 0), 1e-9)
	assert.Equal(t, "+50%", metrics[0].FormatValue(p.AdditionalMetric(root, 0)))
	assert.Equal(t, 110.0, p.AdditionalMetric(root, 1))
	assert.Equal(t, 4.0, p.AdditionalMetric(root, 2))
	assert.Equal(t, 1.0, p.AdditionalMetric(root, 3))
	assert.True(t, math.IsNaN(p.AdditionalMetric(root, 9)))
	assert.Equal(t, "HANDLE", p.ToDisplayString(root))

	query := root.Child("query")
	require.NotNil(t, query)
	assert.Equal(t, 0.0, p.AdditionalMetric(query, 0))
	assert.Equal(t, metric.NoDifference, metrics[0].FormatValue(p.AdditionalMetric(query, 0)))
	assert.True(t, math.IsNaN(p.AdditionalMetric(query, 2)))
	assert.Equal(t, "QUERY", p.ToDisplayString(query))
}

func TestProvider_NewCallSiteMetric(t *testing.T) {
	g1 := callgraph.New()
	g1.AddStackTrace(callgraph.Label("x"), callsite.Symbols("main"))
	g2 := callgraph.New()
	g2.AddStackTrace(callgraph.Label("x"), callsite.Symbols("helper", "main"))

	p := DiffTreeSets(callgraph.NewGraphProvider("CPU", metric.Samples, g2), g1, g2)
	require.NotNil(t, p)

	helper := p.TreeSet().TreesFor(callgraph.Label("x"))[0].Child("helper")
	require.NotNil(t, helper)
	value := p.AdditionalMetric(helper, 0)
	assert.True(t, math.IsNaN(value))
	assert.Equal(t, "NaN", p.AdditionalMetrics()[0].FormatValue(value))
}

func TestProvider_WalkAndPairs(t *testing.T) {
	g1, e := instrumentedGraph(10, 5)
	g2, _ := instrumentedGraph(10, 5)

	p := DiffTreeSets(nil, g1, g2)
	require.NotNil(t, p)

	var visited []string
	p.Trees().Walk(func(el callgraph.Element, site *callsite.CallSite, depth int) bool {
		assert.Equal(t, e, el)
		visited = append(visited, callsite.FormatSymbol(site.Symbol()))
		return true
	})
	assert.Equal(t, []string{"handle", "query"}, visited)
	assert.Equal(t, []Pair{{First: e, Second: e}}, p.Trees().Pairs())
}
