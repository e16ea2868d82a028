// Package callgraph groups calling-context trees by element (process,
// thread, experiment...) and exposes them to display and diff layers.
package callgraph

import "strings"

// Descriptor describes one level of a grouping hierarchy.
type Descriptor interface {
	Name() string
	// Next returns the finer level, or nil for the leaf level.
	Next() Descriptor
	// IsAll reports whether this is the level that aggregates everything.
	IsAll() bool
}

// Level is a node of a descriptor chain.
type Level struct {
	name string
	next *Level
	all  bool
}

// Name implements Descriptor.
func (l *Level) Name() string {
	return l.name
}

// Next implements Descriptor.
func (l *Level) Next() Descriptor {
	if l.next == nil {
		return nil
	}
	return l.next
}

// IsAll implements Descriptor.
func (l *Level) IsAll() bool {
	return l.all
}

func (l *Level) String() string {
	return l.name
}

// All aggregates every element into one.
var All Descriptor = &Level{name: "all", all: true}

// NewDescriptorChain links levels from the coarsest to the finest and
// returns the first one. It returns nil for no names.
func NewDescriptorChain(names ...string) *Level {
	var head *Level
	for i := len(names) - 1; i >= 0; i-- {
		head = &Level{name: names[i], next: head}
	}
	return head
}

// Levels lists d and every level after it.
func Levels(d Descriptor) []Descriptor {
	var out []Descriptor
	for ; d != nil; d = d.Next() {
		out = append(out, d)
	}
	return out
}

// Element is a grouping key of a call graph.
type Element interface {
	Name() string
}

// Label is a flat element compared by value.
type Label string

// Name implements Element.
func (l Label) Name() string {
	return string(l)
}

// TreeElement is an element with a place in a grouping hierarchy.
type TreeElement interface {
	Element
	Parent() TreeElement
	Children() []TreeElement
	Descriptor() Descriptor
}

// Group is a hierarchical element. Groups compare by identity.
type Group struct {
	name       string
	descriptor Descriptor
	parent     *Group
	children   []*Group
	index      map[string]*Group
}

// NewGroup creates a parentless group.
func NewGroup(name string, descriptor Descriptor) *Group {
	return &Group{
		name:       name,
		descriptor: descriptor,
		index:      make(map[string]*Group),
	}
}

// Name implements Element.
func (g *Group) Name() string {
	return g.name
}

// Descriptor implements TreeElement.
func (g *Group) Descriptor() Descriptor {
	return g.descriptor
}

// Parent implements TreeElement.
func (g *Group) Parent() TreeElement {
	if g.parent == nil {
		return nil
	}
	return g.parent
}

// Children implements TreeElement.
func (g *Group) Children() []TreeElement {
	out := make([]TreeElement, len(g.children))
	for i, c := range g.children {
		out[i] = c
	}
	return out
}

// AddChild attaches child under g and returns it. A child already
// attached elsewhere is moved.
func (g *Group) AddChild(child *Group) *Group {
	if child.parent != nil {
		child.parent.removeChild(child)
	}
	child.parent = g
	g.children = append(g.children, child)
	if _, ok := g.index[child.name]; !ok {
		g.index[child.name] = child
	}
	return child
}

// Child returns the first child named name, or nil.
func (g *Group) Child(name string) *Group {
	return g.index[name]
}

// ChildOrNew returns the child named name, creating it with descriptor
// when missing.
func (g *Group) ChildOrNew(name string, descriptor Descriptor) *Group {
	if c := g.index[name]; c != nil {
		return c
	}
	return g.AddChild(NewGroup(name, descriptor))
}

// IsLeaf reports whether g has no children.
func (g *Group) IsLeaf() bool {
	return len(g.children) == 0
}

// Path returns the names from the root group down to g, joined by "/".
func (g *Group) Path() string {
	var parts []string
	for cur := g; cur != nil; cur = cur.parent {
		parts = append(parts, cur.name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

func (g *Group) String() string {
	return g.name
}

func (g *Group) removeChild(child *Group) {
	for i, c := range g.children {
		if c == child {
			g.children = append(g.children[:i], g.children[i+1:]...)
			break
		}
	}
	if g.index[child.name] == child {
		delete(g.index, child.name)
		for _, c := range g.children {
			if c.name == child.name {
				g.index[c.name] = c
				break
			}
		}
	}
}

// Root returns the top-most ancestor of e, or e itself when it is not
// hierarchical.
func Root(e Element) Element {
	te, ok := e.(TreeElement)
	if !ok {
		return e
	}
	for p := te.Parent(); p != nil; p = p.Parent() {
		te = p
	}
	return te
}

// Descendants returns e followed by every element below it, depth first.
func Descendants(e Element) []Element {
	out := []Element{e}
	if te, ok := e.(TreeElement); ok {
		for _, c := range te.Children() {
			out = append(out, Descendants(c)...)
		}
	}
	return out
}
