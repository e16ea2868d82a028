package groupby

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perf-diff/internal/callgraph"
	"github.com/perf-diff/internal/callsite"
	"github.com/perf-diff/internal/testutil"
)

// want describes an expected instrumented call site: duration, self time
// and callees.
type want struct {
	name     string
	duration int64
	self     int64
	children []want
}

func w(name string, duration, self int64, children ...want) want {
	return want{name: name, duration: duration, self: self, children: children}
}

func call(name string, duration int64, children ...*callsite.CallSite) *callsite.CallSite {
	site := callsite.NewInstrumented(name, duration, callsite.TimeUnknown)
	for _, c := range children {
		site.AddCall(c)
	}
	return site
}

func nodes(wants []want) []testutil.Node {
	out := make([]testutil.Node, 0, len(wants))
	for _, x := range wants {
		out = append(out, testutil.Node{
			Symbol:   x.name,
			Weight:   x.duration,
			Value:    float64(x.self),
			Children: nodes(x.children),
		})
	}
	return out
}

func selfTime(site *callsite.CallSite) float64 {
	self, _ := site.Statistic(callsite.StatSelfTime)
	return float64(self)
}

func assertTrees(t *testing.T, expected []want, actual []*callsite.CallSite) {
	t.Helper()
	testutil.AssertTrees(t, nodes(expected), actual, selfTime)
}

// fixture builds two processes with two threads each:
//
//	1/2: op1(9,5){op2(4,3){op3(1,1)}}, op4(8,8)
//	1/3: op2(17,10){op3(1,1), op2(6,6)}
//	5/6: op1(19,3){op2(3,2){op3(1,1)}, op3(5,3){op1(2,2)}, op4(8,8)}
//	5/7: op5(19,7){op2(12,11){op3(1,1)}}
func fixture() *callgraph.CallGraph {
	g := callgraph.New()

	p1 := callgraph.NewGroup("1", callgraph.ProcessLevel)
	t2 := p1.ChildOrNew("2", callgraph.ThreadLevel)
	t3 := p1.ChildOrNew("3", callgraph.ThreadLevel)
	p5 := callgraph.NewGroup("5", callgraph.ProcessLevel)
	t6 := p5.ChildOrNew("6", callgraph.ThreadLevel)
	t7 := p5.ChildOrNew("7", callgraph.ThreadLevel)

	g.AddAggregatedCallSite(t2, call("op1", 9, call("op2", 4, call("op3", 1))))
	g.AddAggregatedCallSite(t2, call("op4", 8))
	g.AddAggregatedCallSite(t3, call("op2", 17, call("op3", 1), call("op2", 6)))
	g.AddAggregatedCallSite(t6, call("op1", 19,
		call("op2", 3, call("op3", 1)),
		call("op3", 5, call("op1", 2)),
		call("op4", 8)))
	g.AddAggregatedCallSite(t7, call("op5", 19, call("op2", 12, call("op3", 1))))

	return g
}

func TestFixture(t *testing.T) {
	g := fixture()

	require.Len(t, g.Elements(), 2)
	t6 := g.Elements()[1].(*callgraph.Group).Child("6")
	assertTrees(t, []want{
		w("op1", 19, 3,
			w("op2", 3, 2, w("op3", 1, 1)),
			w("op3", 5, 3, w("op1", 2, 2)),
			w("op4", 8, 8)),
	}, g.TreesFor(t6))
}

func TestGroupBy_Process(t *testing.T) {
	grouped := GroupBy(callgraph.ProcessLevel, fixture())

	elements := grouped.Elements()
	require.Len(t, elements, 2)

	p1 := elements[0].(*callgraph.Group)
	assert.Equal(t, "1", p1.Name())
	assert.Empty(t, p1.Children())
	assertTrees(t, []want{
		w("op1", 9, 5, w("op2", 4, 3, w("op3", 1, 1))),
		w("op4", 8, 8),
		w("op2", 17, 10, w("op3", 1, 1), w("op2", 6, 6)),
	}, grouped.TreesFor(p1))

	p5 := elements[1].(*callgraph.Group)
	assert.Equal(t, "5", p5.Name())
	assert.Empty(t, p5.Children())
	assertTrees(t, []want{
		w("op1", 19, 3,
			w("op2", 3, 2, w("op3", 1, 1)),
			w("op3", 5, 3, w("op1", 2, 2)),
			w("op4", 8, 8)),
		w("op5", 19, 7, w("op2", 12, 11, w("op3", 1, 1))),
	}, grouped.TreesFor(p5))
}

func TestGroupBy_Thread(t *testing.T) {
	grouped := GroupBy(callgraph.ThreadLevel, fixture())

	elements := grouped.Elements()
	require.Len(t, elements, 2)
	for _, e := range elements {
		placeholder := e.(*callgraph.Group)
		assert.Len(t, placeholder.Children(), 2)
		assert.Empty(t, grouped.TreesFor(placeholder))
	}

	p1 := elements[0].(*callgraph.Group)
	assertTrees(t, []want{
		w("op1", 9, 5, w("op2", 4, 3, w("op3", 1, 1))),
		w("op4", 8, 8),
	}, grouped.TreesFor(p1.Child("2")))
	assertTrees(t, []want{
		w("op5", 19, 7, w("op2", 12, 11, w("op3", 1, 1))),
	}, grouped.TreesFor(elements[1].(*callgraph.Group).Child("7")))
}

func TestGroupBy_All(t *testing.T) {
	grouped := GroupBy(callgraph.All, fixture())

	elements := grouped.Elements()
	require.Len(t, elements, 1)
	assert.Equal(t, AllName, elements[0].Name())
	assertTrees(t, []want{
		w("op1", 28, 8,
			w("op2", 7, 5, w("op3", 2, 2)),
			w("op3", 5, 3, w("op1", 2, 2)),
			w("op4", 8, 8)),
		w("op4", 8, 8),
		w("op2", 17, 10, w("op3", 1, 1), w("op2", 6, 6)),
		w("op5", 19, 7, w("op2", 12, 11, w("op3", 1, 1))),
	}, grouped.TreesFor(elements[0]))
}

func TestGroupBy_Repeated(t *testing.T) {
	src := fixture()

	for i := 0; i < 3; i++ {
		for _, d := range []callgraph.Descriptor{callgraph.All, callgraph.ProcessLevel, callgraph.ThreadLevel} {
			grouped := GroupBy(d, src)
			assert.Equal(t, src.TotalWeight(), grouped.TotalWeight(), "iteration %d, %s", i, d.Name())
		}
	}

	all := GroupBy(callgraph.All, src)
	assertTrees(t, []want{w("op1", 28, 8,
		w("op2", 7, 5, w("op3", 2, 2)),
		w("op3", 5, 3, w("op1", 2, 2)),
		w("op4", 8, 8)),
		w("op4", 8, 8),
		w("op2", 17, 10, w("op3", 1, 1), w("op2", 6, 6)),
		w("op5", 19, 7, w("op2", 12, 11, w("op3", 1, 1))),
	}, all.TreesFor(all.Elements()[0]))

	byThread := GroupBy(callgraph.ThreadLevel, GroupBy(callgraph.ThreadLevel, src))
	assert.Equal(t, src.TotalWeight(), byThread.TotalWeight())
	require.Len(t, byThread.Elements(), 2)
}

func TestGroupBy_DoesNotAliasSource(t *testing.T) {
	src := fixture()
	t2 := src.Elements()[0].(*callgraph.Group).Child("2")
	original := src.TreesFor(t2)[0]

	grouped := GroupBy(callgraph.All, src)
	merged := grouped.TreesFor(grouped.Elements()[0])[0]

	assert.NotSame(t, original, merged)
	merged.AddWeight(1000)
	assert.Equal(t, int64(9), original.Weight())
	self, _ := original.Statistic(callsite.StatSelfTime)
	assert.Equal(t, int64(5), self)
}

func TestGroupBy_AllLabels(t *testing.T) {
	src := callgraph.New()
	src.AddAggregatedCallSite(callgraph.Label("E1"), callsite.New("S", 3))
	src.AddAggregatedCallSite(callgraph.Label("E2"), callsite.New("S", 5))

	grouped := GroupBy(callgraph.All, src)

	elements := grouped.Elements()
	require.Len(t, elements, 1)
	roots := grouped.TreesFor(elements[0])
	require.Len(t, roots, 1)
	assert.Equal(t, "S", roots[0].Symbol())
	assert.Equal(t, int64(8), roots[0].Weight())

	assert.True(t, GroupBy(callgraph.ProcessLevel, src).Empty())
}

func TestGroupBy_NoMatchingLevel(t *testing.T) {
	other := callgraph.NewDescriptorChain("Event")

	assert.True(t, GroupBy(other, fixture()).Empty())
	assert.True(t, GroupBy(nil, fixture()).Empty())
}

func TestByName(t *testing.T) {
	chain := callgraph.ProcessLevel

	assert.Equal(t, callgraph.All, ByName(chain, "all"))
	assert.Equal(t, callgraph.All, ByName(chain, "ALL"))
	assert.Equal(t, callgraph.Descriptor(callgraph.ProcessLevel), ByName(chain, "process"))
	assert.Equal(t, callgraph.Descriptor(callgraph.ThreadLevel), ByName(chain, "Thread"))
	assert.Nil(t, ByName(chain, "event"))

	assert.Equal(t, []string{"all", "process", "thread"}, LevelNames(chain))
}
