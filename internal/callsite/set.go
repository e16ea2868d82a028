package callsite

// Set is an ordered collection of root call sites with at most one entry
// per symbol. Adding a call site whose symbol is present merges it into
// the existing entry.
type Set struct {
	order []Symbol
	sites map[Symbol]*CallSite
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{sites: make(map[Symbol]*CallSite)}
}

// Add installs site, or merges it into the entry with the same symbol.
// The returned call site is the one held by the set.
func (s *Set) Add(site *CallSite) *CallSite {
	if existing, ok := s.sites[site.symbol]; ok {
		existing.mergeFrom(site)
		return existing
	}
	s.sites[site.symbol] = site
	s.order = append(s.order, site.symbol)
	return site
}

// Get returns the entry for symbol, or nil.
func (s *Set) Get(symbol Symbol) *CallSite {
	return s.sites[symbol]
}

// Sites returns the entries in first-insertion order.
func (s *Set) Sites() []*CallSite {
	out := make([]*CallSite, 0, len(s.order))
	for _, sym := range s.order {
		out = append(out, s.sites[sym])
	}
	return out
}

// Len returns the number of entries.
func (s *Set) Len() int {
	return len(s.order)
}

// Weight returns the summed weight of the entries.
func (s *Set) Weight() int64 {
	var total int64
	for _, site := range s.sites {
		total += site.weight
	}
	return total
}
