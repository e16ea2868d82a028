package diff

import (
	"math"

	"github.com/perf-diff/internal/callsite"
)

// Difference is the payload of a differential call site.
type Difference struct {
	// Value is the relative change versus the baseline. NaN means the
	// baseline had no corresponding call site or a zero value.
	Value float64

	// Original is the call site the differential node was computed from.
	Original *callsite.CallSite

	// Baseline is the matching call site of the baseline, if any.
	Baseline *callsite.CallSite
}

// Merge keeps the receiver's values. Differential trees are not meant to
// be merged.
func (d *Difference) Merge(callsite.Payload) {}

// Copy implements callsite.Payload. The original tree is shared.
func (d *Difference) Copy() callsite.Payload {
	dup := *d
	return &dup
}

// Statistic reads statistics of the original call site.
func (d *Difference) Statistic(name string) (int64, bool) {
	if d.Original == nil {
		return 0, false
	}
	return d.Original.Statistic(name)
}

// NewNode creates a differential call site for base.
func NewNode(base *callsite.CallSite, difference float64) *callsite.CallSite {
	node := callsite.New(base.Symbol(), base.Weight())
	node.SetPayload(&Difference{Value: difference, Original: base})
	return node
}

// DifferenceOf returns the relative change carried by site, or NaN for a
// site that is not differential.
func DifferenceOf(site *callsite.CallSite) float64 {
	if site == nil {
		return math.NaN()
	}
	if d, ok := site.Payload().(*Difference); ok {
		return d.Value
	}
	return math.NaN()
}

// OriginalOf returns the call site site was computed from, or site itself
// when it is not differential.
func OriginalOf(site *callsite.CallSite) *callsite.CallSite {
	if site == nil {
		return nil
	}
	if d, ok := site.Payload().(*Difference); ok && d.Original != nil {
		return d.Original
	}
	return site
}

// NoBaseline reports whether site had no counterpart in the baseline, or
// a counterpart with a zero value.
func NoBaseline(site *callsite.CallSite) bool {
	return math.IsNaN(DifferenceOf(site))
}

// HasBaseline reports whether site was matched with a call site of the
// baseline, whatever that call site's value.
func HasBaseline(site *callsite.CallSite) bool {
	d, ok := site.Payload().(*Difference)
	return ok && d.Baseline != nil
}

// BaselineWeight returns the weight of the baseline call site matched by
// site, or 0 when there was none.
func BaselineWeight(site *callsite.CallSite) int64 {
	if d, ok := site.Payload().(*Difference); ok && d.Baseline != nil {
		return d.Baseline.Weight()
	}
	return 0
}
