package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perf-diff/internal/callgraph"
	"github.com/perf-diff/internal/callsite"
	"github.com/perf-diff/internal/diff"
	"github.com/perf-diff/internal/metric"
	"github.com/perf-diff/pkg/model"
)

func diffProvider(t *testing.T) *diff.Provider {
	t.Helper()
	e := callgraph.Label("main")

	base := callgraph.New()
	base.AddWeightedStackTrace(e, callsite.Symbols("slow", "main"), 10)
	base.AddWeightedStackTrace(e, callsite.Symbols("fast", "main"), 40)
	base.AddWeightedStackTrace(e, callsite.Symbols("steady", "main"), 50)

	target := callgraph.New()
	target.AddWeightedStackTrace(e, callsite.Symbols("slow", "main"), 35)
	target.AddWeightedStackTrace(e, callsite.Symbols("fast", "main"), 20)
	target.AddWeightedStackTrace(e, callsite.Symbols("steady", "main"), 51)
	target.AddWeightedStackTrace(e, callsite.Symbols("leaf", "helper", "main"), 5)

	p := diff.DiffTreeSets(callgraph.NewGraphProvider("CPU", metric.Samples, target), base, target)
	require.NotNil(t, p)
	return p
}

func TestChangesCalculator_Calculate(t *testing.T) {
	result := NewChangesCalculator().Calculate(diffProvider(t))

	assert.Equal(t, int64(111), result.TargetWeight)
	assert.Equal(t, int64(100), result.BaseWeight)
	assert.Equal(t, 6, result.NodeCount)
	assert.Equal(t, 2, result.NewNodes)

	require.Len(t, result.Changes, 4)

	slow := result.Changes[0]
	assert.Equal(t, "slow", slow.Symbol)
	assert.Equal(t, "main", slow.Element)
	assert.Equal(t, []string{"main", "slow"}, slow.Path)
	assert.Equal(t, model.ChangeRegression, slow.Kind)
	assert.Equal(t, int64(10), slow.BaseWeight)
	assert.Equal(t, int64(35), slow.TargetWeight)
	require.NotNil(t, slow.Difference)
	assert.InDelta(t, 2.5, *slow.Difference, 1e-9)
	assert.Equal(t, "+250%", slow.Formatted)

	fast := result.Changes[1]
	assert.Equal(t, "fast", fast.Symbol)
	assert.Equal(t, model.ChangeImprovement, fast.Kind)
	assert.Equal(t, "-50%", fast.Formatted)

	root := result.Changes[2]
	assert.Equal(t, "main", root.Symbol)
	assert.Equal(t, model.ChangeRegression, root.Kind)

	// Only the top-most new call site is listed.
	added := result.Changes[3]
	assert.Equal(t, model.ChangeAdded, added.Kind)
	assert.Equal(t, []string{"main", "helper"}, added.Path)
	assert.Nil(t, added.Difference)
	assert.Zero(t, added.BaseWeight)
	assert.Equal(t, int64(5), added.TargetWeight)
}

func TestChangesCalculator_TopNAndMinChange(t *testing.T) {
	p := diffProvider(t)

	result := NewChangesCalculator(WithTopN(1)).Calculate(p)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, "slow", result.Changes[0].Symbol)

	result = NewChangesCalculator(WithMinChange(-0.01), WithTopN(0)).Calculate(p)
	var symbols []string
	for _, c := range result.Changes {
		symbols = append(symbols, c.Symbol)
	}
	assert.Contains(t, symbols, "steady", "a 2% change passes a 1% threshold")

	result = NewChangesCalculator(WithMinChange(5)).Calculate(p)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, model.ChangeAdded, result.Changes[0].Kind)
}

func TestChangesCalculator_ZeroBaseline(t *testing.T) {
	e := callgraph.Label("main")
	build := func(idle int64) *callgraph.CallGraph {
		root := callsite.New("main", 10)
		root.AddCallee(callsite.New("idle", idle))
		g := callgraph.New()
		g.AddAggregatedCallSite(e, root)
		return g
	}
	base, target := build(0), build(4)

	p := diff.DiffTreeSets(callgraph.NewGraphProvider("CPU", metric.Samples, target), base, target)
	require.NotNil(t, p)
	result := NewChangesCalculator(WithTopN(0)).Calculate(p)

	assert.Zero(t, result.NewNodes)
	require.Len(t, result.Changes, 1)
	idle := result.Changes[0]
	assert.Equal(t, "idle", idle.Symbol)
	assert.Equal(t, model.ChangeRegression, idle.Kind)
	assert.Zero(t, idle.BaseWeight)
	assert.Equal(t, int64(4), idle.TargetWeight)
	assert.Nil(t, idle.Difference)
	assert.Equal(t, "+Inf", idle.Formatted)

	// Zero on both sides is no change.
	result = NewChangesCalculator(WithTopN(0)).Calculate(
		diff.DiffTreeSets(nil, build(0), build(0)))
	assert.Empty(t, result.Changes)
}

func TestChangesCalculator_Nil(t *testing.T) {
	result := NewChangesCalculator().Calculate(nil)
	assert.Empty(t, result.Changes)
	assert.Zero(t, result.NodeCount)
}

func TestElementName(t *testing.T) {
	chain := callgraph.NewDescriptorChain("Process", "Thread")
	proc := callgraph.NewGroup("java", chain)
	thread := proc.ChildOrNew("main", chain.Next())

	assert.Equal(t, "java/main", ElementName(thread))
	assert.Equal(t, "plain", ElementName(callgraph.Label("plain")))
}
