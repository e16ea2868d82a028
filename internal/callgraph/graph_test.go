package callgraph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perf-diff/internal/callsite"
)

func TestCallGraph_AddStackTrace_RoundTrip(t *testing.T) {
	g := New()
	e := Label("E")

	g.AddStackTrace(e, callsite.Symbols("leaf", "mid", "root"))
	g.AddStackTrace(e, callsite.Symbols("leaf", "mid", "root"))

	roots := g.CallingContextTree(e)
	require.Len(t, roots, 1)
	root := roots[0]
	assert.Equal(t, "root", root.Symbol())
	assert.Equal(t, int64(2), root.Weight())
	require.Len(t, root.Children(), 1)
	mid := root.Child("mid")
	require.NotNil(t, mid)
	assert.Equal(t, int64(2), mid.Weight())
	require.Len(t, mid.Children(), 1)
	assert.Equal(t, int64(2), mid.Child("leaf").Weight())
}

func TestCallGraph_AddWeightedStackTrace(t *testing.T) {
	g := New()
	e := Label("E")

	g.AddWeightedStackTrace(e, callsite.Symbols("a", "main"), 3)
	g.AddWeightedStackTrace(e, callsite.Symbols("b", "main"), 4)
	g.AddWeightedStackTrace(e, nil, 10)

	roots := g.CallingContextTree(e)
	require.Len(t, roots, 1)
	assert.Equal(t, int64(7), roots[0].Weight())
	assert.Equal(t, 2, roots[0].NumChildren())
	assert.Equal(t, int64(7), g.TotalWeight())
}

func TestCallGraph_EmptyStackIgnored(t *testing.T) {
	g := New()
	g.AddStackTrace(Label("E"), []callsite.Symbol{})

	assert.True(t, g.Empty())
	assert.Empty(t, g.Elements())
}

func TestCallGraph_AddAggregatedCallSite_TracksRoots(t *testing.T) {
	g := New()
	proc := NewGroup("1", ProcessLevel)
	t2 := proc.ChildOrNew("2", ThreadLevel)
	t3 := proc.ChildOrNew("3", ThreadLevel)

	g.AddAggregatedCallSite(t2, callsite.New("op1", 5))
	g.AddAggregatedCallSite(t3, callsite.New("op2", 2))
	g.AddAggregatedCallSite(t2, callsite.New("op1", 1))

	assert.Equal(t, []Element{proc}, g.Elements())
	assert.Equal(t, []Element{t2, t3}, g.LeafElements())
	require.Len(t, g.CallingContextTree(t2), 1)
	assert.Equal(t, int64(6), g.CallingContextTree(t2)[0].Weight())
	assert.Empty(t, g.CallingContextTree(proc))
	assert.NotNil(t, g.CallingContextTree(Label("missing")))
}

func TestCallGraph_DifferentRootSymbolsKeptApart(t *testing.T) {
	g := New()
	e := Label("E")
	g.AddStackTrace(e, callsite.Symbols("x", "main"))
	g.AddStackTrace(e, callsite.Symbols("x", "other"))

	roots := g.TreesFor(e)
	require.Len(t, roots, 2)
	assert.Equal(t, "main", roots[0].Symbol())
	assert.Equal(t, "other", roots[1].Symbol())
}

func TestCallGraph_KernelSplit(t *testing.T) {
	g := New(WithKernelSplit(func(s callsite.Symbol) bool {
		return strings.HasSuffix(s.(string), "_[k]")
	}))
	e := Label("E")

	g.AddStackTrace(e, callsite.Symbols("copy_user_[k]", "sys_read_[k]", "read", "main"))
	g.AddStackTrace(e, callsite.Symbols("sys_read_[k]", "read", "main"))
	g.AddStackTrace(e, callsite.Symbols("idle_[k]", "cpu_idle_[k]"))

	roots := g.CallingContextTree(e)
	require.Len(t, roots, 2)

	read := roots[0].Child("read")
	require.NotNil(t, read)
	assert.Empty(t, read.Children())
	extra := read.ExtraChildren()
	require.Len(t, extra, 1)
	assert.Equal(t, "sys_read_[k]", extra[0].Symbol())
	assert.Equal(t, int64(2), extra[0].Weight())
	assert.Equal(t, int64(1), extra[0].Child("copy_user_[k]").Weight())

	assert.Equal(t, "cpu_idle_[k]", roots[1].Symbol())
	assert.NotNil(t, roots[1].Child("idle_[k]"))
}

func TestCallGraph_Walk(t *testing.T) {
	g := New()
	g.AddStackTrace(Label("A"), callsite.Symbols("leaf", "root"))
	g.AddStackTrace(Label("B"), callsite.Symbols("other"))

	var seen []string
	g.Walk(func(e Element, site *callsite.CallSite, depth int) bool {
		seen = append(seen, e.Name()+":"+site.Symbol().(string))
		return true
	})

	assert.Equal(t, []string{"A:root", "A:leaf", "B:other"}, seen)
}

func TestMerge(t *testing.T) {
	first := New()
	proc := NewGroup("1", ProcessLevel)
	first.AddStackTrace(proc.ChildOrNew("2", ThreadLevel), callsite.Symbols("a", "main"))
	first.AddStackTrace(proc.ChildOrNew("3", ThreadLevel), callsite.Symbols("b", "main"))
	second := New()
	second.AddWeightedStackTrace(Label("x"), callsite.Symbols("a", "main"), 5)

	merged := Merge("Merge", first, second)

	require.Equal(t, []Element{Label("Merge")}, merged.Elements())
	roots := merged.TreesFor(Label("Merge"))
	require.Len(t, roots, 1)
	assert.Equal(t, int64(7), roots[0].Weight())
	assert.Equal(t, int64(6), roots[0].Child("a").Weight())

	roots[0].AddWeight(100)
	assert.Equal(t, int64(1), first.TreesFor(proc.Child("2"))[0].Weight())
	assert.Equal(t, int64(5), second.TreesFor(Label("x"))[0].Weight())
}
