// Package parser defines the interface of profile parsers and a registry
// that picks one by format name or by sniffing the input.
package parser

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/perf-diff/pkg/model"
)

// Format names.
const (
	FormatCollapsed = "collapsed"
	FormatFolded    = "folded"
	FormatPprof     = "pprof"
	FormatChrome    = "chrome"
)

// Parser is the interface for parsing profiling data.
type Parser interface {
	// Parse parses profiling data from the reader.
	Parse(ctx context.Context, reader io.Reader) (*model.ParseResult, error)

	// SupportedFormats returns the formats supported by this parser.
	SupportedFormats() []string

	// Name returns the name of this parser.
	Name() string
}

// Registry holds registered parsers keyed by format.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

// NewRegistry creates a new parser Registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[string]Parser),
	}
}

// Register registers p for every format it supports.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, format := range p.SupportedFormats() {
		r.parsers[strings.ToLower(format)] = p
	}
}

// Get returns the parser for format.
func (r *Registry) Get(format string) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[strings.ToLower(format)]
	if !ok {
		return nil, unsupported(format)
	}
	return p, nil
}

// Formats lists the registered format names.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.parsers))
	for f := range r.parsers {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Detect guesses the format of an input from its file name and its first
// bytes. Gzip and other binary payloads are pprof, JSON documents are
// Chrome trace events and anything else is treated as collapsed stacks.
func Detect(name string, head []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pprof", ".pb":
		return FormatPprof
	case ".json":
		return FormatChrome
	case ".folded", ".collapsed":
		return FormatCollapsed
	}

	if bytes.HasPrefix(head, []byte{0x1f, 0x8b}) || binary(head) {
		return FormatPprof
	}
	trimmed := bytes.TrimLeft(head, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatChrome
	}
	return FormatCollapsed
}

// binary reports whether head holds control bytes that never occur in
// text formats. Decompressed pprof protobufs start with such bytes.
func binary(head []byte) bool {
	for _, b := range head {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			return true
		}
	}
	return false
}
