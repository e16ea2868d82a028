// Package flamegraph exports call-graph and differential trees as flame
// graph data.
package flamegraph

// Node kinds.
const (
	KindRoot    = "root"
	KindElement = "element"
	KindFrame   = "frame"
	KindExtra   = "extra"
)

// Node represents a node in the flame graph tree.
type Node struct {
	Name     string  `json:"name"`
	Module   string  `json:"module,omitempty"`
	Kind     string  `json:"kind"`
	Value    int64   `json:"value"`
	Self     int64   `json:"self"`
	Children []*Node `json:"children,omitempty"`

	// Differential fields. Difference is nil for nodes without a baseline.
	Baseline   int64    `json:"baseline,omitempty"`
	Difference *float64 `json:"difference,omitempty"`
	Style      string   `json:"style,omitempty"`
	Color      string   `json:"color,omitempty"`

	// Metrics holds the additional metrics of the provider that have a
	// value for the node.
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// NewNode creates a new flame graph node.
func NewNode(name, kind string, value int64) *Node {
	return &Node{Name: name, Kind: kind, Value: value}
}

// AddChild appends child and returns it.
func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

// Child returns the first child called name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// FlameGraph represents the complete flame graph structure.
type FlameGraph struct {
	Title        string `json:"title"`
	WeightType   string `json:"weightType"`
	Differential bool   `json:"differential"`
	Root         *Node  `json:"root"`
	TotalValue   int64  `json:"totalValue"`
	MaxDepth     int    `json:"maxDepth,omitempty"`
}

// NewFlameGraph creates a new flame graph with a root node.
func NewFlameGraph(title string) *FlameGraph {
	return &FlameGraph{
		Title: title,
		Root:  NewNode("root", KindRoot, 0),
	}
}

// Cleanup drops frame nodes below minPercent (0-100) of the total value.
// Element nodes are always kept.
func (fg *FlameGraph) Cleanup(minPercent float64) {
	if fg.Root == nil || minPercent <= 0 {
		return
	}
	threshold := int64(float64(fg.TotalValue) * minPercent / 100.0)
	fg.cleanupNode(fg.Root, threshold)
}

func (fg *FlameGraph) cleanupNode(node *Node, threshold int64) {
	if len(node.Children) == 0 {
		node.Children = nil
		return
	}

	filtered := make([]*Node, 0, len(node.Children))
	for _, child := range node.Children {
		if child.Kind == KindElement || child.Value >= threshold {
			fg.cleanupNode(child, threshold)
			filtered = append(filtered, child)
		}
	}

	if len(filtered) == 0 {
		node.Children = nil
	} else {
		node.Children = filtered
	}
}

// CalculateMaxDepth calculates the maximum depth of the flame graph.
func (fg *FlameGraph) CalculateMaxDepth() int {
	if fg.Root == nil {
		return 0
	}
	fg.MaxDepth = depth(fg.Root, 0)
	return fg.MaxDepth
}

func depth(node *Node, current int) int {
	deepest := current
	for _, child := range node.Children {
		deepest = max(deepest, depth(child, current+1))
	}
	return deepest
}
