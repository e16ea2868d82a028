package callsite

import "fmt"

// Symbol identifies one call-stack frame: a resolved name (string), a raw
// address (uint64) or any other comparable key. Symbols are used as map
// keys, so values whose dynamic type is not comparable will panic.
type Symbol = any

// FormatSymbol renders a symbol for display. Addresses are shown in hex.
func FormatSymbol(s Symbol) string {
	switch v := s.(type) {
	case nil:
		return ""
	case string:
		return v
	case uint64:
		return fmt.Sprintf("0x%x", v)
	case uintptr:
		return fmt.Sprintf("0x%x", uint64(v))
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Symbols converts names to symbols.
func Symbols(names ...string) []Symbol {
	out := make([]Symbol, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}
