package testutil

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/perf-diff/internal/callsite"
)

var (
	alwaysEqual       = cmp.Comparer(func(_, _ interface{}) bool { return true })
	defaultCmpOptions = []cmp.Option{
		// NaNs compare equal
		cmp.FilterValues(func(x, y float64) bool {
			return math.IsNaN(x) && math.IsNaN(y)
		}, alwaysEqual),
		cmpopts.EquateApprox(0, 1e-9),
		cmpopts.EquateEmpty(),
	}
)

// Diff returns a human readable diff of a and b. NaN equals NaN and floats
// are compared with a small absolute tolerance.
func Diff(a, b interface{}, opts ...cmp.Option) string {
	opts = append(opts, defaultCmpOptions...)
	return cmp.Diff(a, b, opts...)
}

// Node is a comparable snapshot of a call-site tree.
type Node struct {
	Symbol   string
	Weight   int64
	Value    float64
	Children []Node
}

// Snapshot copies trees into Nodes, recording value(site) for each call
// site. A nil value records 0.
func Snapshot(trees []*callsite.CallSite, value func(*callsite.CallSite) float64) []Node {
	out := make([]Node, 0, len(trees))
	for _, site := range trees {
		out = append(out, snapshot(site, value))
	}
	return out
}

func snapshot(site *callsite.CallSite, value func(*callsite.CallSite) float64) Node {
	n := Node{
		Symbol: callsite.FormatSymbol(site.Symbol()),
		Weight: site.Weight(),
	}
	if value != nil {
		n.Value = value(site)
	}
	for _, child := range site.Children() {
		n.Children = append(n.Children, snapshot(child, value))
	}
	return n
}

// AssertTrees fails t when got does not match want.
func AssertTrees(t *testing.T, want []Node, got []*callsite.CallSite, value func(*callsite.CallSite) float64) {
	t.Helper()
	if d := Diff(want, Snapshot(got, value)); d != "" {
		t.Errorf("trees mismatch (-want +got):\n%s", d)
	}
}
