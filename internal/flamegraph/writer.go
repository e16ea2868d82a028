package flamegraph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/perf-diff/pkg/profiling"
	"github.com/perf-diff/pkg/writer"
)

// JSONWriter writes flame graph data as JSON.
type JSONWriter = writer.JSONWriter[*FlameGraph]

// NewJSONWriter creates a new JSON writer.
func NewJSONWriter() *JSONWriter {
	return writer.NewJSONWriter[*FlameGraph]()
}

// NewPrettyJSONWriter creates a JSON writer with pretty printing.
func NewPrettyJSONWriter() *JSONWriter {
	return writer.NewPrettyJSONWriter[*FlameGraph]()
}

// WriteResult is an alias to the common writer.WriteResult.
type WriteResult = writer.WriteResult

// FoldedWriter writes flame graph data in collapsed format, one line per
// node with self weight. The element chain becomes the first frame, joined
// with "/", so the output parses back with thread attribution.
type FoldedWriter struct{}

// NewFoldedWriter creates a new folded format writer.
func NewFoldedWriter() *FoldedWriter {
	return &FoldedWriter{}
}

// Write writes the flame graph in folded format.
func (w *FoldedWriter) Write(fg *FlameGraph, out io.Writer) error {
	bw := bufio.NewWriter(out)
	err := walkSelf(fg.Root, nil, nil, func(stack []string, n *Node) error {
		if n.Self <= 0 {
			return nil
		}
		_, err := fmt.Fprintf(bw, "%s %d\n", profiling.FoldStack(stack), n.Self)
		return err
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

// WriteToFile writes the flame graph in folded format to a file.
func (w *FoldedWriter) WriteToFile(fg *FlameGraph, path string) error {
	return writeFile(path, func(f io.Writer) error { return w.Write(fg, f) })
}

// DiffFoldedWriter writes a differential flame graph as "stack base target"
// lines, the input format of difffolded flame graph renderers. Vanished
// callees have no node of their own, so their baseline weight is reported
// as self weight of the caller.
type DiffFoldedWriter struct{}

// NewDiffFoldedWriter creates a new differential folded writer.
func NewDiffFoldedWriter() *DiffFoldedWriter {
	return &DiffFoldedWriter{}
}

// Write writes the differential flame graph.
func (w *DiffFoldedWriter) Write(fg *FlameGraph, out io.Writer) error {
	bw := bufio.NewWriter(out)
	err := walkSelf(fg.Root, nil, nil, func(stack []string, n *Node) error {
		base := n.Baseline
		for _, c := range n.Children {
			base -= c.Baseline
		}
		base = max(base, 0)
		if base == 0 && n.Self <= 0 {
			return nil
		}
		_, err := fmt.Fprintf(bw, "%s %d %d\n", profiling.FoldStack(stack), base, n.Self)
		return err
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

// WriteToFile writes the differential folded output to a file.
func (w *DiffFoldedWriter) WriteToFile(fg *FlameGraph, path string) error {
	return writeFile(path, func(f io.Writer) error { return w.Write(fg, f) })
}

// walkSelf visits every frame node with its folded stack. elements
// collects the element chain above the current node.
func walkSelf(n *Node, elements, stack []string, visit func([]string, *Node) error) error {
	switch n.Kind {
	case KindElement:
		elements = append(elements, n.Name)
	case KindFrame, KindExtra:
		if len(stack) == 0 && len(elements) > 0 {
			stack = append(stack, strings.Join(elements, "/"))
		}
		stack = append(stack, frameName(n))
		if err := visit(stack, n); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		// Each branch gets its own backing array.
		if err := walkSelf(c, elements[:len(elements):len(elements)], stack[:len(stack):len(stack)], visit); err != nil {
			return err
		}
	}
	return nil
}

func frameName(n *Node) string {
	if n.Module == "" {
		return n.Name
	}
	return n.Name + "(" + n.Module + ")"
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := write(file); err != nil {
		return err
	}
	return file.Close()
}
