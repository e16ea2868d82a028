package profiling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractThreadGroup(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"worker-1", "worker"},
		{"thread_12", "thread"},
		{"pool#3", "pool"},
		{"grpc-nio-worker-123", "grpc-nio-worker"},
		{"main", "main"},
		{"123", "123"},
		{"", ""},
		{"C2 CompilerThre-26", "C2 CompilerThre"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ExtractThreadGroup(tt.input), "input %q", tt.input)
	}
}

func TestIsSwapperThread(t *testing.T) {
	for _, name := range []string{"swapper", "swapper/0", "[swapper]", "[swapper/3]"} {
		assert.True(t, IsSwapperThread(name), name)
	}
	for _, name := range []string{"worker-1", "myswapper", "swapperd", ""} {
		assert.False(t, IsSwapperThread(name), name)
	}
}

func TestIsKernelFrame(t *testing.T) {
	assert.True(t, IsKernelFrame("do_syscall_64_[k]", DefaultKernelSuffix))
	assert.False(t, IsKernelFrame("main", DefaultKernelSuffix))
	assert.False(t, IsKernelFrame("do_syscall_64_[k]", ""))
}

func TestSplitFuncAndModule(t *testing.T) {
	fn, mod := SplitFuncAndModule("malloc(libc.so.6)")
	assert.Equal(t, "malloc", fn)
	assert.Equal(t, "libc.so.6", mod)

	fn, mod = SplitFuncAndModule("main")
	assert.Equal(t, "main", fn)
	assert.Empty(t, mod)

	fn, mod = SplitFuncAndModule("(anonymous)")
	assert.Equal(t, "(anonymous)", fn)
	assert.Empty(t, mod)
}

func TestFoldStack(t *testing.T) {
	stack := []string{"main", "run", "work"}

	folded := FoldStack(stack)

	assert.Equal(t, "main;run;work", folded)
	assert.Equal(t, stack, UnfoldStack(folded))
	assert.Equal(t, []string{"a", "b"}, UnfoldStack("a;;b;"))
	assert.Nil(t, UnfoldStack(""))
	assert.Nil(t, UnfoldStack(";;"))
}
