package callgraph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/perf-diff/internal/callsite"
)

// TextWriter renders the trees of a provider as an indented listing.
type TextWriter struct {
	// MaxDepth limits the rendered call-site depth. Zero means unlimited.
	MaxDepth int

	// Indent is repeated once per level.
	Indent string
}

// NewTextWriter creates a text writer with two-space indentation.
func NewTextWriter() *TextWriter {
	return &TextWriter{Indent: "  "}
}

// Write renders p to writer.
func (w *TextWriter) Write(p Provider, writer io.Writer) error {
	bw := bufio.NewWriter(writer)
	fmt.Fprintf(bw, "== %s ==\n", p.Title())

	set := p.TreeSet()
	for _, root := range set.Elements() {
		w.writeElement(bw, p, set, root, 0)
	}
	return bw.Flush()
}

// WriteToFile renders p to a file.
func (w *TextWriter) WriteToFile(p Provider, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return w.Write(p, file)
}

func (w *TextWriter) writeElement(bw *bufio.Writer, p Provider, set TreeSet, e Element, level int) {
	prefix := strings.Repeat(w.Indent, level)
	fmt.Fprintf(bw, "%s[%s]\n", prefix, e.Name())

	for _, site := range set.TreesFor(e) {
		w.writeSite(bw, p, site, level+1, 1)
	}
	if te, ok := e.(TreeElement); ok {
		for _, c := range te.Children() {
			w.writeElement(bw, p, set, c, level+1)
		}
	}
}

func (w *TextWriter) writeSite(bw *bufio.Writer, p Provider, site *callsite.CallSite, level, depth int) {
	if w.MaxDepth > 0 && depth > w.MaxDepth {
		return
	}
	fmt.Fprintf(bw, "%s%s %s", strings.Repeat(w.Indent, level), p.ToDisplayString(site),
		p.WeightType().FormatValue(float64(site.Weight())))
	for i, m := range p.AdditionalMetrics() {
		fmt.Fprintf(bw, " %s=%s", m.Title, m.FormatValue(p.AdditionalMetric(site, i)))
	}
	bw.WriteString("\n")

	for _, extra := range site.ExtraChildren() {
		fmt.Fprintf(bw, "%s+ %s %s\n", strings.Repeat(w.Indent, level+1), p.ToDisplayString(extra),
			p.WeightType().FormatValue(float64(extra.Weight())))
	}
	for _, child := range site.Children() {
		w.writeSite(bw, p, child, level+1, depth+1)
	}
}
