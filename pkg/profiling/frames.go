// Package profiling holds naming conventions shared by the profile parsers
// and the call graph builders: thread pools, idle threads, kernel frames
// and folded stacks.
package profiling

import (
	"strings"
	"unicode"
)

// DefaultKernelSuffix marks kernel frames in perf script and collapsed
// output.
const DefaultKernelSuffix = "_[k]"

// ExtractThreadGroup strips the pool index of a thread name:
// "grpc-nio-worker-1" becomes "grpc-nio-worker". Names made only of
// digits and separators are returned unchanged.
func ExtractThreadGroup(threadName string) string {
	name := strings.TrimRightFunc(threadName, func(r rune) bool {
		return unicode.IsDigit(r) || r == '-' || r == '_' || r == '#'
	})
	if name == "" {
		return threadName
	}
	return name
}

// IsSwapperThread reports whether name is the kernel idle task.
func IsSwapperThread(name string) bool {
	name = strings.TrimPrefix(name, "[")
	return name == "swapper" || name == "swapper]" || strings.HasPrefix(name, "swapper/")
}

// IsKernelFrame reports whether frame carries the kernel suffix. An empty
// suffix matches nothing.
func IsKernelFrame(frame, suffix string) bool {
	return suffix != "" && strings.HasSuffix(frame, suffix)
}

// SplitFuncAndModule splits "function(module)" into its parts. Frames
// without a trailing module are returned whole.
func SplitFuncAndModule(frame string) (function, module string) {
	open := strings.LastIndex(frame, "(")
	if open <= 0 || !strings.HasSuffix(frame, ")") {
		return frame, ""
	}
	return frame[:open], frame[open+1 : len(frame)-1]
}

// FoldStack joins a root-first stack with semicolons.
func FoldStack(stack []string) string {
	return strings.Join(stack, ";")
}

// UnfoldStack splits a folded stack, dropping empty frames.
func UnfoldStack(folded string) []string {
	if folded == "" {
		return nil
	}
	parts := strings.Split(folded, ";")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
