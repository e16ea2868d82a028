// Package writer serializes reports and flame trees as JSON, optionally
// compressed.
package writer

import (
	"fmt"
	"io"
	"os"

	gojson "github.com/goccy/go-json"

	"github.com/perf-diff/pkg/compression"
)

// JSONWriter writes values of type T as JSON.
type JSONWriter[T any] struct {
	// Indent specifies the indentation for pretty printing.
	// Empty string means compact output.
	Indent string

	// Compression wraps the output in a gzip or zstd stream.
	Compression compression.Type
	Level       compression.Level
}

// NewJSONWriter creates a new JSON writer with compact output.
func NewJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Compression: compression.TypeNone}
}

// NewPrettyJSONWriter creates a JSON writer with pretty printing.
func NewPrettyJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: "  ", Compression: compression.TypeNone}
}

// NewCompressedJSONWriter creates a compact JSON writer compressing its
// output with t.
func NewCompressedJSONWriter[T any](t compression.Type, level compression.Level) *JSONWriter[T] {
	return &JSONWriter[T]{Compression: t, Level: level}
}

// Write writes data to w.
func (jw *JSONWriter[T]) Write(data T, w io.Writer) error {
	cw, err := compression.NewWriter(w, jw.Compression, jw.Level)
	if err != nil {
		return err
	}

	enc := gojson.NewEncoder(cw)
	enc.SetEscapeHTML(false)
	if jw.Indent != "" {
		enc.SetIndent("", jw.Indent)
	}
	if err := enc.Encode(data); err != nil {
		cw.Close()
		return fmt.Errorf("failed to encode data: %w", err)
	}
	return cw.Close()
}

// WriteToFile writes data to a new file at path.
func (jw *JSONWriter[T]) WriteToFile(data T, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := jw.Write(data, file); err != nil {
		return err
	}
	return file.Close()
}

// WriteResult contains statistics about a written file.
type WriteResult struct {
	Path           string
	JSONSize       int64
	CompressedSize int64
	CompressionPct float64
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteToFileWithStats writes data to path and reports the encoded and
// on-disk sizes.
func (jw *JSONWriter[T]) WriteToFileWithStats(data T, path string) (*WriteResult, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	disk := &countingWriter{w: file}
	cw, err := compression.NewWriter(disk, jw.Compression, jw.Level)
	if err != nil {
		return nil, err
	}
	plain := &countingWriter{w: cw}

	enc := gojson.NewEncoder(plain)
	enc.SetEscapeHTML(false)
	if jw.Indent != "" {
		enc.SetIndent("", jw.Indent)
	}
	if err := enc.Encode(data); err != nil {
		cw.Close()
		return nil, fmt.Errorf("failed to encode data: %w", err)
	}
	if err := cw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s writer: %w", jw.Compression, err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	result := &WriteResult{Path: path, JSONSize: plain.n, CompressedSize: disk.n}
	if plain.n > 0 {
		result.CompressionPct = float64(disk.n) / float64(plain.n) * 100
	}
	return result, nil
}

// ReadFile decodes a file written by JSONWriter, whatever its compression.
func ReadFile[T any](path string) (T, error) {
	var out T
	file, err := os.Open(path)
	if err != nil {
		return out, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	r, _, err := compression.NewReader(file)
	if err != nil {
		return out, err
	}
	defer r.Close()

	if err := gojson.NewDecoder(r).Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return out, nil
}
