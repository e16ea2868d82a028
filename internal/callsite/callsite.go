// Package callsite implements the node of a calling-context tree: a symbol,
// an additive weight and the callees of that symbol, keyed by their own
// symbols.
package callsite

import (
	"fmt"

	apperrors "github.com/perf-diff/pkg/errors"
)

// Payload carries data that a CallSite folds on merge in addition to its
// weight. Implementations decide how two payloads of the same kind combine.
type Payload interface {
	// Merge folds other into the receiver. other may be of a different
	// concrete type, in which case it should be ignored.
	Merge(other Payload)

	// Copy returns an independent copy.
	Copy() Payload

	// Statistic returns the named statistic when the payload exposes it.
	Statistic(name string) (int64, bool)
}

// CallSite is one node of a calling-context tree.
//
// A CallSite owns its children. The caller link is informational and is
// never followed to mutate anything.
type CallSite struct {
	symbol   Symbol
	weight   int64
	children map[Symbol]*CallSite
	order    []Symbol
	caller   *CallSite
	extra    []*CallSite
	payload  Payload
}

// New creates a childless call site.
func New(symbol Symbol, weight int64) *CallSite {
	return &CallSite{
		symbol: symbol,
		weight: weight,
	}
}

// Symbol returns the frame identity of the call site.
func (c *CallSite) Symbol() Symbol {
	return c.symbol
}

// Weight returns the aggregated weight.
func (c *CallSite) Weight() int64 {
	return c.weight
}

// AddWeight adds delta to the weight.
func (c *CallSite) AddWeight(delta int64) {
	c.weight += delta
}

// Caller returns the call site this one was attached under, if any.
func (c *CallSite) Caller() *CallSite {
	return c.caller
}

// Payload returns the extra data attached to the call site.
func (c *CallSite) Payload() Payload {
	return c.payload
}

// SetPayload replaces the payload.
func (c *CallSite) SetPayload(p Payload) {
	c.payload = p
}

// Children returns the callees in first-insertion order.
func (c *CallSite) Children() []*CallSite {
	out := make([]*CallSite, 0, len(c.order))
	for _, s := range c.order {
		out = append(out, c.children[s])
	}
	return out
}

// Child returns the callee with the given symbol, or nil.
func (c *CallSite) Child(symbol Symbol) *CallSite {
	return c.children[symbol]
}

// NumChildren returns the number of distinct callees.
func (c *CallSite) NumChildren() int {
	return len(c.order)
}

// ExtraChildren returns the auxiliary trees attached to this call site.
func (c *CallSite) ExtraChildren() []*CallSite {
	out := make([]*CallSite, len(c.extra))
	copy(out, c.extra)
	return out
}

// AddExtraChild attaches an auxiliary tree. Auxiliary trees with the same
// symbol are merged together; they never enter the callee map.
func (c *CallSite) AddExtraChild(child *CallSite) {
	for _, e := range c.extra {
		if e.symbol == child.symbol {
			e.mergeFrom(child)
			return
		}
	}
	child.caller = c
	c.extra = append(c.extra, child)
}

// AddCallee adds child under this call site. If a callee with the same
// symbol exists, child is merged into it and must not be used afterwards.
func (c *CallSite) AddCallee(child *CallSite) {
	if existing, ok := c.children[child.symbol]; ok {
		existing.mergeFrom(child)
		return
	}
	c.adopt(child)
}

// AddCall adds child like AddCallee and, when both sides carry timing
// data, removes the child's duration from this call site's self time.
func (c *CallSite) AddCall(child *CallSite) {
	if t, ok := c.payload.(*Timing); ok {
		if d, ok := child.Statistic(StatDuration); ok {
			t.SelfTime -= d
		}
	}
	c.AddCallee(child)
}

// Merge folds other into c. Weights and payloads are combined and the
// callees are merged by symbol. other is consumed by the call.
//
// Merging call sites of different symbols is a programming error and
// returns an error wrapping errors.ErrSymbolMismatch.
func (c *CallSite) Merge(other *CallSite) error {
	if c.symbol != other.symbol {
		return apperrors.Wrap(apperrors.CodeSymbolMismatch,
			fmt.Sprintf("cannot merge %s into %s", FormatSymbol(other.symbol), FormatSymbol(c.symbol)), nil)
	}
	c.mergeFrom(other)
	return nil
}

func (c *CallSite) mergeFrom(other *CallSite) {
	c.weight += other.weight

	switch {
	case other.payload == nil:
	case c.payload == nil:
		c.payload = other.payload
	default:
		c.payload.Merge(other.payload)
	}

	for _, s := range other.order {
		child := other.children[s]
		if existing, ok := c.children[s]; ok {
			existing.mergeFrom(child)
			continue
		}
		c.adopt(child)
	}

	for _, e := range other.extra {
		c.AddExtraChild(e)
	}
}

func (c *CallSite) adopt(child *CallSite) {
	if c.children == nil {
		c.children = make(map[Symbol]*CallSite)
	}
	child.caller = c
	c.children[child.symbol] = child
	c.order = append(c.order, child.symbol)
}

// Copy returns a deep copy of the tree rooted at c. The copy has no caller
// and shares no node or payload with c.
func (c *CallSite) Copy() *CallSite {
	dup := &CallSite{
		symbol: c.symbol,
		weight: c.weight,
	}
	if c.payload != nil {
		dup.payload = c.payload.Copy()
	}
	for _, s := range c.order {
		dup.adopt(c.children[s].Copy())
	}
	for _, e := range c.extra {
		ec := e.Copy()
		ec.caller = dup
		dup.extra = append(dup.extra, ec)
	}
	return dup
}

// MaxDepth returns the number of levels of the tree rooted at c. A call
// site without callees has depth 1.
func (c *CallSite) MaxDepth() int {
	depth := 0
	for _, s := range c.order {
		if d := c.children[s].MaxDepth(); d > depth {
			depth = d
		}
	}
	return depth + 1
}

// Statistic returns a named statistic from the payload.
func (c *CallSite) Statistic(name string) (int64, bool) {
	if c.payload == nil {
		return 0, false
	}
	return c.payload.Statistic(name)
}

// Walk visits the tree in pre-order. Returning false from fn skips the
// callees of the visited call site.
func (c *CallSite) Walk(fn func(site *CallSite, depth int) bool) {
	c.walk(fn, 0)
}

func (c *CallSite) walk(fn func(*CallSite, int) bool, depth int) {
	if !fn(c, depth) {
		return
	}
	for _, s := range c.order {
		c.children[s].walk(fn, depth+1)
	}
}

// String returns "symbol (weight)".
func (c *CallSite) String() string {
	return fmt.Sprintf("%s (%d)", FormatSymbol(c.symbol), c.weight)
}

// Chain builds a single-branch tree from frames ordered innermost first:
// frames[0] becomes the deepest call site and the last frame the root.
// Every call site of the chain gets weight. Chain returns nil for no frames.
func Chain(frames []Symbol, weight int64) *CallSite {
	if len(frames) == 0 {
		return nil
	}
	current := New(frames[0], weight)
	for _, f := range frames[1:] {
		parent := New(f, weight)
		parent.AddCallee(current)
		current = parent
	}
	return current
}

// FindSymbol returns the first site of sites whose symbol equals symbol.
func FindSymbol(sites []*CallSite, symbol Symbol) *CallSite {
	for _, s := range sites {
		if s.symbol == symbol {
			return s
		}
	}
	return nil
}
